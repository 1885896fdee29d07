// Package messaging moves issue domain events from the outbox table to
// RabbitMQ and feeds them into the search index.
package messaging

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"issue-service/internal/model"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

const (
	ExchangeName     = "civic.issues"
	SearchIndexQueue = "issue.search-index"

	reconnectDelay = 5 * time.Second
	publishTimeout = 5 * time.Second
)

// IssueRoutingKeys are the event keys bound to the search-index queue.
var IssueRoutingKeys = []string{
	model.EventIssueCreated,
	model.EventIssueUpdated,
	model.EventIssueStatusUpdated,
	model.EventIssueUpvoted,
	model.EventIssueEscalated,
}

var errChannelUnavailable = errors.New("channel not available")

type RabbitMQ struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	url     string
	mu      sync.RWMutex
	done    chan struct{}
	log     zerolog.Logger
}

func NewRabbitMQ(log zerolog.Logger, host, port, user, password string) (*RabbitMQ, error) {
	r := &RabbitMQ{
		url:  fmt.Sprintf("amqp://%s:%s@%s:%s/", user, password, host, port),
		done: make(chan struct{}),
		log:  log.With().Str("component", "rabbitmq").Logger(),
	}
	if err := r.connect(); err != nil {
		return nil, err
	}
	go r.handleReconnect()
	return r, nil
}

func (r *RabbitMQ) connect() error {
	conn, err := amqp.Dial(r.url)
	if err != nil {
		return fmt.Errorf("connect to rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	if err := declareTopology(ch); err != nil {
		ch.Close()
		conn.Close()
		return err
	}

	r.conn, r.channel = conn, ch
	r.log.Info().Str("exchange", ExchangeName).Msg("rabbitmq connected")
	return nil
}

func declareTopology(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(ExchangeName, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}
	if _, err := ch.QueueDeclare(SearchIndexQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	for _, key := range IssueRoutingKeys {
		if err := ch.QueueBind(SearchIndexQueue, key, ExchangeName, false, nil); err != nil {
			return fmt.Errorf("bind %s: %w", key, err)
		}
	}
	return nil
}

func (r *RabbitMQ) handleReconnect() {
	for {
		r.mu.RLock()
		closed := r.conn.NotifyClose(make(chan *amqp.Error, 1))
		r.mu.RUnlock()

		select {
		case <-r.done:
			return
		case err := <-closed:
			if err != nil {
				r.log.Warn().Err(err).Msg("connection lost, reconnecting")
			}
		}

		r.mu.Lock()
		for {
			select {
			case <-r.done:
				r.mu.Unlock()
				return
			default:
			}
			if err := r.connect(); err != nil {
				r.log.Error().Err(err).Dur("retry_in", reconnectDelay).Msg("reconnect failed")
				time.Sleep(reconnectDelay)
				continue
			}
			break
		}
		r.mu.Unlock()
	}
}

// Publish sends a persistent JSON message. messageID lets consumers
// recognise redeliveries.
func (r *RabbitMQ) Publish(ctx context.Context, messageID, routingKey string, body []byte) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.channel == nil {
		return errChannelUnavailable
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err := r.channel.PublishWithContext(ctx, ExchangeName, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    messageID,
		Body:         body,
		Timestamp:    time.Now(),
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", routingKey, err)
	}
	return nil
}

// Consume registers a manual-ack consumer on queue.
func (r *RabbitMQ) Consume(queue string) (<-chan amqp.Delivery, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.channel == nil {
		return nil, errChannelUnavailable
	}
	msgs, err := r.channel.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("register consumer: %w", err)
	}
	return msgs, nil
}

func (r *RabbitMQ) Close() {
	close(r.done)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.channel != nil {
		r.channel.Close()
	}
	if r.conn != nil {
		r.conn.Close()
	}
	r.log.Info().Msg("rabbitmq connection closed")
}
