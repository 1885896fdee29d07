package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"issue-service/internal/model"
	"issue-service/internal/repository"

	"github.com/avast/retry-go"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

const (
	maxRetryAttempts = 3
	initialDelay     = 1 * time.Second
	maxDelay         = 30 * time.Second
	resubscribeDelay = 5 * time.Second
)

type Consumer interface {
	Consume(queue string) (<-chan amqp.Delivery, error)
}

type IssueReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Issue, error)
}

type DocumentIndex interface {
	Index(issue *model.Issue) error
	Delete(id uuid.UUID) error
}

// Acknowledger is the part of amqp.Delivery the indexer settles.
type Acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

// SearchIndexer keeps the search index in step with issue events. Each
// event reloads the issue from the store so the document never lags a
// later event delivered first.
type SearchIndexer struct {
	consumer Consumer
	issues   IssueReader
	index    DocumentIndex
	delay    time.Duration
	done     chan struct{}
	wg       sync.WaitGroup
	log      zerolog.Logger
}

func NewSearchIndexer(log zerolog.Logger, consumer Consumer, issues IssueReader, index DocumentIndex) *SearchIndexer {
	return &SearchIndexer{
		consumer: consumer,
		issues:   issues,
		index:    index,
		delay:    initialDelay,
		done:     make(chan struct{}),
		log:      log.With().Str("component", "indexer").Logger(),
	}
}

func (s *SearchIndexer) Start() {
	s.wg.Add(1)
	go s.consumeQueue()
	s.log.Info().Str("queue", SearchIndexQueue).Msg("indexer started")
}

func (s *SearchIndexer) Stop() {
	close(s.done)
	s.wg.Wait()
	s.log.Info().Msg("indexer stopped")
}

func (s *SearchIndexer) consumeQueue() {
	defer s.wg.Done()

	for {
		select {
		case <-s.done:
			return
		default:
		}

		msgs, err := s.consumer.Consume(SearchIndexQueue)
		if err != nil {
			s.log.Warn().Err(err).Dur("retry_in", resubscribeDelay).Msg("consume failed")
			select {
			case <-s.done:
				return
			case <-time.After(resubscribeDelay):
			}
			continue
		}
		s.processQueue(msgs)
	}
}

func (s *SearchIndexer) processQueue(msgs <-chan amqp.Delivery) {
	for {
		select {
		case <-s.done:
			return
		case msg, ok := <-msgs:
			if !ok {
				s.log.Warn().Msg("delivery channel closed, resubscribing")
				return
			}
			s.Handle(context.Background(), msg.Body, msg)
		}
	}
}

// Handle indexes the issue named by one event body, retrying with
// backoff, then acks. Undecodable bodies are acked and dropped; events
// that keep failing are nacked without requeue.
func (s *SearchIndexer) Handle(ctx context.Context, body []byte, ack Acknowledger) {
	var ev model.IssueEvent
	if err := json.Unmarshal(body, &ev); err != nil || ev.IssueID == uuid.Nil {
		s.log.Warn().Err(err).Msg("dropping malformed event")
		ack.Ack(false)
		return
	}

	err := retry.Do(
		func() error {
			return s.sync(ctx, ev.IssueID)
		},
		retry.Attempts(maxRetryAttempts),
		retry.Delay(s.delay),
		retry.MaxDelay(maxDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			s.log.Debug().Err(err).Uint("attempt", n+1).Str("issue_id", ev.IssueID.String()).Msg("index retry")
		}),
	)
	if err != nil {
		s.log.Error().Err(err).Str("issue_id", ev.IssueID.String()).Msg("indexing failed")
		ack.Nack(false, false)
		return
	}
	ack.Ack(false)
}

func (s *SearchIndexer) sync(ctx context.Context, id uuid.UUID) error {
	issue, err := s.issues.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return s.index.Delete(id)
	}
	if err != nil {
		return err
	}
	return s.index.Index(issue)
}
