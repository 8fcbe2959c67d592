// Package events publishes comment and vote activity for downstream consumers
// (notifications, search indexing).
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	log "github.com/sirupsen/logrus"
)

type Type string

const (
	CommentCreated Type = "comment.created"
	CommentDeleted Type = "comment.deleted"
	VoteChanged    Type = "vote.changed"
)

type Event struct {
	Type       Type      `json:"type"`
	PostID     string    `json:"postId,omitempty"`
	CommentID  string    `json:"commentId,omitempty"`
	ParentID   string    `json:"parentId,omitempty"`
	ActorID    string    `json:"actorId"`
	Recipient  string    `json:"recipientId,omitempty"` // who should be notified, empty for none
	TargetType string    `json:"targetType,omitempty"`
	TargetID   string    `json:"targetId,omitempty"`
	Value      string    `json:"value,omitempty"` // vote value, empty when cleared
	OccurredAt time.Time `json:"occurredAt"`
}

// Publisher never blocks the request path and never reports failures to callers.
type Publisher interface {
	Publish(ctx context.Context, e Event)
	Close() error
}

// LogPublisher is used when no broker is configured.
type LogPublisher struct{}

func (LogPublisher) Publish(ctx context.Context, e Event) {
	log.WithFields(log.Fields{
		"type":      e.Type,
		"post":      e.PostID,
		"comment":   e.CommentID,
		"actor":     e.ActorID,
		"recipient": e.Recipient,
	}).Debug("[events] published")
}

func (LogPublisher) Close() error { return nil }

type KafkaPublisher struct {
	w *kafka.Writer
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		w: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			AllowAutoTopicCreation: true,
			WriteTimeout:           10 * time.Second,
			// Async 模式下 WriteMessages 立即返回, Close 会等待已缓冲的消息写完
			Async:      true,
			Completion: logCompletion,
		},
	}
}

func logCompletion(messages []kafka.Message, err error) {
	if err != nil {
		log.Errorf("[events] failed to write %d event(s) to Kafka: %v", len(messages), err)
		return
	}
	log.Debugf("[events] %d event(s) sent to Kafka", len(messages))
}

// Publish hands the event to the writer's batch queue; the message key is the post id so
// that events of one thread stay ordered within a partition. The request context is not
// used: delivery outlives the request.
func (p *KafkaPublisher) Publish(ctx context.Context, e Event) {
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}
	payload, err := json.Marshal(e)
	if err != nil {
		log.Errorf("[events] failed to marshal %s event: %v", e.Type, err)
		return
	}

	key := e.PostID
	if key == "" {
		key = e.TargetID
	}
	if err := p.w.WriteMessages(context.Background(), kafka.Message{Key: []byte(key), Value: payload}); err != nil {
		log.Errorf("[events] failed to queue %s event: %v", e.Type, err)
	}
}

// Close flushes buffered events and closes the writer.
func (p *KafkaPublisher) Close() error {
	return p.w.Close()
}

// New picks the Kafka publisher when brokers are configured.
func New(brokers []string, topic string) Publisher {
	if len(brokers) == 0 {
		return LogPublisher{}
	}
	return NewKafkaPublisher(brokers, topic)
}
