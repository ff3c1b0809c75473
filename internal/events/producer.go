package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/amirk1998/secure-bank/internal/metrics"
)

// EventProducer publishes to a durable topic exchange.
type EventProducer struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	logger   *slog.Logger
}

// NewEventProducer connects to RabbitMQ and declares the exchange.
func NewEventProducer(amqpURL, exchange string, logger *slog.Logger) (*EventProducer, error) {
	cleanURL, err := sanitizeAMQPURL(amqpURL)
	if err != nil {
		return nil, err
	}

	conn, err := amqp.DialConfig(cleanURL, amqp.Config{Dial: amqp.DefaultDial(10 * time.Second)})
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	if err := declareExchange(ch, exchange); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %q: %w", exchange, err)
	}

	return &EventProducer{conn: conn, channel: ch, exchange: exchange, logger: logger}, nil
}

func declareExchange(ch *amqp.Channel, exchange string) error {
	return ch.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // autoDelete
		false,    // internal
		false,    // noWait
		nil,      // args
	)
}

// Publish sends event with a one-shot channel reopen on failure.
func (p *EventProducer) Publish(ctx context.Context, event *SecurityEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal security event: %w", err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    event.OccurredAt,
		Body:         body,
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.channel.PublishWithContext(ctx, p.exchange, event.RoutingKey(), false, false, msg)
	if err != nil {
		p.logger.Warn("publish failed, reopening channel", "exchange", p.exchange, "error", err)
		if reopenErr := p.reopen(); reopenErr != nil {
			metrics.SecurityEventsPublished.WithLabelValues(event.Action, "failed").Inc()
			return fmt.Errorf("failed to publish security event: %w", errors.Join(err, reopenErr))
		}
		err = p.channel.PublishWithContext(ctx, p.exchange, event.RoutingKey(), false, false, msg)
	}

	if err != nil {
		metrics.SecurityEventsPublished.WithLabelValues(event.Action, "failed").Inc()
		return fmt.Errorf("failed to publish security event: %w", err)
	}

	metrics.SecurityEventsPublished.WithLabelValues(event.Action, "published").Inc()
	return nil
}

// Caller must hold p.mu.
func (p *EventProducer) reopen() error {
	if p.conn == nil || p.conn.IsClosed() {
		return amqp.ErrClosed
	}
	ch, err := p.conn.Channel()
	if err != nil {
		return err
	}
	if err := declareExchange(ch, p.exchange); err != nil {
		ch.Close()
		return err
	}
	if p.channel != nil {
		p.channel.Close()
	}
	p.channel = ch
	return nil
}

// Close closes the RabbitMQ channel and connection.
func (p *EventProducer) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		p.conn.Close()
	}
}

func sanitizeAMQPURL(raw string) (string, error) {
	clean := strings.TrimSpace(raw)
	clean = strings.Trim(clean, "\"'")
	// Drop stray characters before the scheme.
	if idx := strings.Index(strings.ToLower(clean), "amqp"); idx > 0 {
		clean = clean[idx:]
	}
	u, err := url.Parse(clean)
	if err != nil {
		return "", err
	}
	if u.Scheme != "amqp" && u.Scheme != "amqps" {
		return "", errors.New("AMQP scheme must be either 'amqp://' or 'amqps://'")
	}
	return clean, nil
}
