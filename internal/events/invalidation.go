package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/goliatone/go-advocate-search/cache"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// DefaultSubject carries cache invalidation messages.
const DefaultSubject = "advocates.invalidate"

// Invalidation asks every API instance to drop cached entries. No tags means
// the whole advocate cache.
type Invalidation struct {
	Tags   []string `json:"tags,omitempty"`
	Source string   `json:"source,omitempty"`
}

// TagsOrDefault returns the tags to evict.
func (i Invalidation) TagsOrDefault() []string {
	if len(i.Tags) == 0 {
		return []string{cache.TagAdvocates}
	}
	return i.Tags
}

// Decode parses a message body. An empty body is a full invalidation.
func Decode(data []byte) (Invalidation, error) {
	var inv Invalidation
	if len(data) == 0 {
		return inv, nil
	}
	if err := json.Unmarshal(data, &inv); err != nil {
		return Invalidation{}, fmt.Errorf("decode invalidation: %w", err)
	}
	return inv, nil
}

// Connect opens a NATS connection that keeps reconnecting after drops.
func Connect(url, name string) (*nats.Conn, error) {
	conn, err := nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", url, err)
	}
	return conn, nil
}

// Invalidator evicts cached entries by tag.
type Invalidator interface {
	InvalidateTags(ctx context.Context, tags ...string) error
}

// Subscriber applies invalidation messages to a cache.
type Subscriber struct {
	target Invalidator
	log    *zap.Logger
	sub    *nats.Subscription
}

// NewSubscriber returns a Subscriber that is not yet attached to a connection.
func NewSubscriber(target Invalidator, log *zap.Logger) *Subscriber {
	if log == nil {
		log = zap.NewNop()
	}
	return &Subscriber{target: target, log: log}
}

// Subscribe starts delivering messages published on subject to Handle.
func (s *Subscriber) Subscribe(conn *nats.Conn, subject string) error {
	sub, err := conn.Subscribe(subject, s.Handle)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", subject, err)
	}
	s.sub = sub
	s.log.Info("cache invalidation subscriber started", zap.String("subject", subject))
	return nil
}

// Handle applies one message. Malformed messages are logged and dropped.
func (s *Subscriber) Handle(msg *nats.Msg) {
	inv, err := Decode(msg.Data)
	if err != nil {
		s.log.Warn("invalidation_dropped", zap.String("subject", msg.Subject), zap.Error(err))
		return
	}

	tags := inv.TagsOrDefault()
	if err := s.target.InvalidateTags(context.Background(), tags...); err != nil {
		s.log.Error("invalidation_failed", zap.Strings("tags", tags), zap.Error(err))
		return
	}
	s.log.Info("cache_invalidated", zap.Strings("tags", tags), zap.String("source", inv.Source))
}

// Close stops the subscription.
func (s *Subscriber) Close() error {
	if s.sub == nil {
		return nil
	}
	return s.sub.Unsubscribe()
}

// Conn is the part of *nats.Conn the Publisher needs.
type Conn interface {
	Publish(subject string, data []byte) error
	FlushWithContext(ctx context.Context) error
}

var _ Conn = (*nats.Conn)(nil)

// Publisher broadcasts invalidation messages.
type Publisher struct {
	conn    Conn
	subject string
}

// NewPublisher returns a Publisher writing to subject.
func NewPublisher(conn Conn, subject string) *Publisher {
	if subject == "" {
		subject = DefaultSubject
	}
	return &Publisher{conn: conn, subject: subject}
}

// Subject returns the subject messages are published on.
func (p *Publisher) Subject() string {
	return p.subject
}

// Publish sends inv and waits until the server has received it.
func (p *Publisher) Publish(ctx context.Context, inv Invalidation) error {
	data, err := json.Marshal(inv)
	if err != nil {
		return fmt.Errorf("encode invalidation: %w", err)
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", p.subject, err)
	}
	if err := p.conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("flush %s: %w", p.subject, err)
	}
	return nil
}
