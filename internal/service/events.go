package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// LogbookTransitionedEvent is published after a committed transition.
type LogbookTransitionedEvent struct {
	LogbookID  uint      `json:"logbook_id"`
	TraineeID  uint      `json:"trainee_id"`
	From       string    `json:"from"`
	To         string    `json:"to"`
	ActorID    uint      `json:"actor_id"`
	ActorRole  string    `json:"actor_role"`
	OccurredAt time.Time `json:"occurred_at"`
}

// EntryRecordedEvent is published after an entry is stored.
type EntryRecordedEvent struct {
	EntryID    uint      `json:"entry_id"`
	LogbookID  uint      `json:"logbook_id"`
	TraineeID  uint      `json:"trainee_id"`
	Section    string    `json:"section"`
	Minutes    int64     `json:"minutes"`
	Simulated  bool      `json:"simulated"`
	OccurredAt time.Time `json:"occurred_at"`
}

// EventPublisher delivers domain events once the originating write committed.
type EventPublisher interface {
	LogbookTransitioned(ctx context.Context, event LogbookTransitionedEvent) error
	EntryRecorded(ctx context.Context, event EntryRecordedEvent) error
}

type natsEventPublisher struct {
	conn    *nats.Conn
	subject string
	logger  zerolog.Logger
}

// NewNATSEventPublisher publishes events under subject. A nil connection
// yields a publisher that drops every event.
func NewNATSEventPublisher(conn *nats.Conn, subject string, logger zerolog.Logger) EventPublisher {
	return &natsEventPublisher{
		conn:    conn,
		subject: strings.Trim(strings.ReplaceAll(subject, ":", "."), "."),
		logger:  logger.With().Str("component", "event_publisher").Logger(),
	}
}

func (p *natsEventPublisher) LogbookTransitioned(ctx context.Context, event LogbookTransitionedEvent) error {
	return p.publish(ctx, "logbook.transitioned", event)
}

func (p *natsEventPublisher) EntryRecorded(ctx context.Context, event EntryRecordedEvent) error {
	return p.publish(ctx, "entry.recorded", event)
}

func (p *natsEventPublisher) publish(ctx context.Context, name string, event interface{}) error {
	if p.conn == nil || p.subject == "" {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	subject := eventSubject(p.subject, name)
	if err := p.conn.Publish(subject, payload); err != nil {
		return err
	}
	p.logger.Debug().Str("subject", subject).Msg("event published")
	return nil
}

func eventSubject(base, name string) string {
	if base == "" {
		return name
	}
	return base + "." + name
}
