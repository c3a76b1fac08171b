package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/zap"

	"github.com/anasy333/krishisat-gateway/pkg/logger"
)

// Event types
const (
	EventCodeSent       = "auth.code_sent"
	EventLoginSucceeded = "auth.login_succeeded"
	EventLoginFailed    = "auth.login_failed"
	EventLogout         = "auth.logout"
	EventSessionExpired = "auth.session_expired"
)

// Event is one auth audit record.
type Event struct {
	Type      string    `json:"type"`
	SessionID string    `json:"session_id,omitempty"`
	UserID    string    `json:"user_id,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Role      string    `json:"role,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	TraceID   string    `json:"trace_id,omitempty"`
	At        time.Time `json:"at"`
}

// Publisher emits audit events. Publishing is best effort and never blocks
// the request path.
type Publisher interface {
	Publish(ctx context.Context, event Event)
	Close()
}

// KafkaPublisher writes events to a Kafka topic via franz-go.
type KafkaPublisher struct {
	client *kgo.Client
	topic  string
	log    *logger.Logger
}

// KafkaConfig holds publisher settings.
type KafkaConfig struct {
	Brokers  []string
	Topic    string
	ClientID string
}

// NewKafkaPublisher connects to the brokers. The caller falls back to the
// Nop publisher when this fails; audit must never block startup.
func NewKafkaPublisher(ctx context.Context, cfg *KafkaConfig) (*KafkaPublisher, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ClientID(cfg.ClientID),
		kgo.DefaultProduceTopic(cfg.Topic),
		kgo.ProducerBatchMaxBytes(1<<20),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka client: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to reach kafka brokers: %w", err)
	}

	return &KafkaPublisher{
		client: client,
		topic:  cfg.Topic,
		log:    logger.Get().With(zap.String("component", "audit_publisher")),
	}, nil
}

// Publish produces the event asynchronously, keyed by session id so events
// of one session stay ordered within a partition.
func (p *KafkaPublisher) Publish(ctx context.Context, event Event) {
	if event.At.IsZero() {
		event.At = time.Now()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		p.log.Warn("failed to encode audit event",
			zap.String("type", event.Type),
			zap.Error(err))
		return
	}

	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(event.SessionID),
		Value: payload,
	}
	p.client.Produce(ctx, record, func(_ *kgo.Record, err error) {
		if err != nil {
			p.log.Warn("failed to publish audit event",
				zap.String("type", event.Type),
				zap.Error(err))
		}
	})
}

// Close flushes and releases the Kafka client.
func (p *KafkaPublisher) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = p.client.Flush(ctx)
	p.client.Close()
}

// NopPublisher discards events. Used when Kafka is disabled or unreachable.
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, event Event) {}
func (NopPublisher) Close()                                   {}
