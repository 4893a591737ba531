package messaging

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// Publisher is what services depend on; KafkaProducer implements it.
type Publisher interface {
	SendMessage(ctx context.Context, topic, key string, value interface{}) error
}

// KafkaProducer keeps one writer per topic, created on first use.
type KafkaProducer struct {
	brokers []string

	mu      sync.Mutex
	writers map[string]*kafka.Writer
}

func NewKafkaProducer(brokers []string) *KafkaProducer {
	return &KafkaProducer{
		brokers: brokers,
		writers: make(map[string]*kafka.Writer),
	}
}

func (kp *KafkaProducer) writer(topic string) *kafka.Writer {
	kp.mu.Lock()
	defer kp.mu.Unlock()

	if writer, exists := kp.writers[topic]; exists {
		return writer
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(kp.brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           50 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}
	kp.writers[topic] = writer
	return writer
}

// SendMessage JSON-encodes value and writes it keyed by key, so every event
// of one order lands on the same partition.
func (kp *KafkaProducer) SendMessage(ctx context.Context, topic, key string, value interface{}) error {
	jsonData, err := json.Marshal(value)
	if err != nil {
		return err
	}

	message := kafka.Message{
		Key:   []byte(key),
		Value: jsonData,
		Time:  time.Now(),
	}
	return kp.writer(topic).WriteMessages(ctx, message)
}

func (kp *KafkaProducer) Close() error {
	kp.mu.Lock()
	defer kp.mu.Unlock()

	var firstErr error
	for topic, writer := range kp.writers {
		if err := writer.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(kp.writers, topic)
	}
	return firstErr
}

const (
	EventOrderPlaced    = "order_placed"
	EventOrderCancelled = "order_cancelled"
)

type OrderEvent struct {
	Type       string      `json:"type"`
	OrderID    string      `json:"order_id"`
	UserID     string      `json:"user_id"`
	OccurredAt time.Time   `json:"occurred_at"`
	Data       interface{} `json:"data"`
}

type NotificationEvent struct {
	Type     string                 `json:"type"`
	UserID   string                 `json:"user_id"`
	Title    string                 `json:"title"`
	Message  string                 `json:"message"`
	Metadata map[string]interface{} `json:"metadata"`
}
