package messaging

import (
	"context"
	"sync"
	"time"

	"issue-service/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	workerInterval     = 1 * time.Second
	batchSize          = 50
	cleanupInterval    = 1 * time.Hour
	publishedRetention = 24 * time.Hour
)

type Publisher interface {
	Publish(ctx context.Context, messageID, routingKey string, body []byte) error
}

type OutboxStore interface {
	ClaimPending(ctx context.Context, limit int) ([]repository.OutboxMessage, error)
	MarkPublished(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error
	DeletePublished(ctx context.Context, olderThan time.Duration) (int64, error)
	Stats(ctx context.Context) (map[string]int, error)
}

// OutboxWorker publishes events written by the repositories, in
// creation order, and prunes published rows after a day.
type OutboxWorker struct {
	outbox    OutboxStore
	publisher Publisher
	done      chan struct{}
	wg        sync.WaitGroup
	log       zerolog.Logger
}

func NewOutboxWorker(log zerolog.Logger, outbox OutboxStore, publisher Publisher) *OutboxWorker {
	return &OutboxWorker{
		outbox:    outbox,
		publisher: publisher,
		done:      make(chan struct{}),
		log:       log.With().Str("component", "outbox").Logger(),
	}
}

func (w *OutboxWorker) Start() {
	w.wg.Add(2)
	go w.processLoop()
	go w.cleanupLoop()
	w.log.Info().Msg("outbox worker started")
}

func (w *OutboxWorker) processLoop() {
	defer w.wg.Done()

	ticker := time.NewTicker(workerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			w.ProcessPending(context.Background())
		}
	}
}

// ProcessPending publishes one batch and reports how many messages went
// out. A failed publish is recorded on the row and retried next tick.
func (w *OutboxWorker) ProcessPending(ctx context.Context) int {
	messages, err := w.outbox.ClaimPending(ctx, batchSize)
	if err != nil {
		w.log.Error().Err(err).Msg("claim pending")
		return 0
	}

	published := 0
	for _, msg := range messages {
		if err := w.publisher.Publish(ctx, msg.ID.String(), msg.RoutingKey, msg.Payload); err != nil {
			w.log.Warn().Err(err).Str("message_id", msg.ID.String()).Int("retry", msg.RetryCount).Msg("publish failed")
			if err := w.outbox.MarkFailed(ctx, msg.ID, err.Error()); err != nil {
				w.log.Error().Err(err).Str("message_id", msg.ID.String()).Msg("mark failed")
			}
			continue
		}
		if err := w.outbox.MarkPublished(ctx, msg.ID); err != nil {
			w.log.Error().Err(err).Str("message_id", msg.ID.String()).Msg("mark published")
			continue
		}
		published++
	}
	return published
}

func (w *OutboxWorker) cleanupLoop() {
	defer w.wg.Done()

	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			deleted, err := w.outbox.DeletePublished(context.Background(), publishedRetention)
			if err != nil {
				w.log.Error().Err(err).Msg("cleanup")
			} else if deleted > 0 {
				w.log.Info().Int64("deleted", deleted).Msg("cleaned published messages")
			}
		}
	}
}

func (w *OutboxWorker) Stop() {
	close(w.done)
	w.wg.Wait()
	w.log.Info().Msg("outbox worker stopped")
}

// Stats counts outbox rows per status.
func (w *OutboxWorker) Stats(ctx context.Context) (map[string]int, error) {
	return w.outbox.Stats(ctx)
}
