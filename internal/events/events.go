// Package events publishes security events to a RabbitMQ topic exchange so
// downstream fraud tooling can react to lockouts, freezes and blocked
// transfers.
package events

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/amirk1998/secure-bank/internal/metrics"
)

// SecurityEvent is the message body published for every audited action.
type SecurityEvent struct {
	Action     string    `json:"action"`
	Level      string    `json:"level"`
	UserID     *int      `json:"userId,omitempty"`
	Resource   string    `json:"resource"`
	IPAddress  string    `json:"ip,omitempty"`
	Success    bool      `json:"success"`
	Message    string    `json:"message,omitempty"`
	Metadata   string    `json:"metadata,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

// RoutingKey is security.<action>, lowercased.
func (e *SecurityEvent) RoutingKey() string {
	return "security." + strings.ToLower(e.Action)
}

// Publisher is implemented by types that can publish security events.
type Publisher interface {
	Publish(ctx context.Context, event *SecurityEvent) error
	Close()
}

// LogPublisher writes events to the log. It stands in when no broker is
// configured or the broker was unreachable at startup.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, event *SecurityEvent) error {
	p.logger.InfoContext(ctx, "security event",
		"routing_key", event.RoutingKey(),
		"level", event.Level,
		"success", event.Success,
		"message", event.Message,
	)
	metrics.SecurityEventsPublished.WithLabelValues(event.Action, "logged").Inc()
	return nil
}

func (p *LogPublisher) Close() {}

// Connect dials the broker, falling back to a LogPublisher when url is
// empty or the dial fails.
func Connect(url, exchange string, logger *slog.Logger) Publisher {
	if strings.TrimSpace(url) == "" {
		logger.Info("RABBITMQ_URL not set, security events will be logged only")
		return NewLogPublisher(logger)
	}

	producer, err := NewEventProducer(url, exchange, logger)
	if err != nil {
		logger.Warn("failed to connect to RabbitMQ, security events will be logged only", "error", err)
		return NewLogPublisher(logger)
	}
	return producer
}
