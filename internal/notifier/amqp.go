package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/WyZzYx/Jobsight/internal/model"
)

const (
	DefaultExchange = "jobsight.postings"
	exchangeType    = "topic"

	publishTimeout = 5 * time.Second
)

// Ensure AMQPNotifier implements model.Notifier.
var _ model.Notifier = (*AMQPNotifier)(nil)

// publishFunc sends one message and waits for the broker's confirmation.
type publishFunc func(ctx context.Context, routingKey string, msg amqp.Publishing) error

// AMQPNotifier publishes one persistent JSON message per new posting to a
// topic exchange. The routing key is "posting.<provider>".
type AMQPNotifier struct {
	exchange string
	publish  publishFunc
	logger   *slog.Logger

	mu      sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel
}

// NewAMQPNotifier dials url, enables publisher confirms and declares the exchange.
func NewAMQPNotifier(url, exchange string, logger *slog.Logger) (*AMQPNotifier, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq: dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("rabbitmq: channel: %w", err)
	}

	if err := ch.Confirm(false); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("rabbitmq: enable confirms: %w", err)
	}

	if err := ch.ExchangeDeclare(exchange, exchangeType, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("rabbitmq: declare exchange: %w", err)
	}

	n := &AMQPNotifier{exchange: exchange, logger: logger, conn: conn, channel: ch}
	n.publish = n.publishConfirmed

	logger.Info("rabbitmq notifier initialized", "exchange", exchange)
	return n, nil
}

func (n *AMQPNotifier) publishConfirmed(ctx context.Context, routingKey string, msg amqp.Publishing) error {
	n.mu.Lock()
	ch := n.channel
	n.mu.Unlock()
	if ch == nil || ch.IsClosed() {
		return errors.New("rabbitmq: channel not available")
	}

	dc, err := ch.PublishWithDeferredConfirmWithContext(ctx, n.exchange, routingKey, false, false, msg)
	if err != nil {
		return fmt.Errorf("rabbitmq: publish: %w", err)
	}
	acked, err := dc.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("rabbitmq: publish confirmation (message_id=%s): %w", msg.MessageId, err)
	}
	if !acked {
		return fmt.Errorf("rabbitmq: broker nacked message (message_id=%s)", msg.MessageId)
	}
	return nil
}

// Notify publishes every posting. Failures are collected and returned together.
func (n *AMQPNotifier) Notify(ctx context.Context, postings []model.JobPosting) error {
	var errs []error
	for _, p := range postings {
		if err := n.send(ctx, p); err != nil {
			n.logger.Error("rabbitmq notification failed", "posting", p.Key(), "error", err)
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%d of %d rabbitmq notifications failed: %w", len(errs), len(postings), errors.Join(errs...))
	}
	return nil
}

func (n *AMQPNotifier) send(ctx context.Context, p model.JobPosting) error {
	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("rabbitmq: marshal posting: %w", err)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("rabbitmq: message id: %w", err)
	}

	publishCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	key := routingKey(p)
	err = n.publish(publishCtx, key, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    id.String(),
		Timestamp:    time.Now(),
		Type:         "posting.created",
		Body:         body,
	})
	if err != nil {
		return err
	}

	n.logger.Debug("published posting", "posting", p.Key(), "routing_key", key, "body_size", len(body))
	return nil
}

func routingKey(p model.JobPosting) string {
	provider := strings.ToLower(p.Provider)
	if provider == "" {
		provider = "unknown"
	}
	return "posting." + provider
}

// Close closes the channel and connection.
func (n *AMQPNotifier) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.channel != nil {
		n.channel.Close()
		n.channel = nil
	}
	if n.conn != nil {
		err := n.conn.Close()
		n.conn = nil
		return err
	}
	return nil
}
