// Package broker publica los eventos del libro de stock en Kafka.
package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
)

var _ inventory.EventPublisher = (*Publisher)(nil)

// Envelope formato de cada mensaje publicado.
type Envelope struct {
	EventID   string          `json:"event_id"`
	EventType string          `json:"event_type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

// MessageWriter lo que el publicador usa de *kafka.Writer.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher escribe eventos en un tópico; la llave del mensaje es el id del registro de stock
// para conservar el orden por registro dentro de la partición.
type Publisher struct {
	w MessageWriter
}

// NewPublisher construye el publicador sobre un writer existente.
func NewPublisher(w MessageWriter) *Publisher {
	return &Publisher{w: w}
}

// NewKafkaWriter writer con balanceo por hash de llave.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           50 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}
}

// Publish serializa y escribe los eventos en un solo lote.
func (p *Publisher) Publish(ctx context.Context, events ...inventory.Event) error {
	if len(events) == 0 {
		return nil
	}
	msgs := make([]kafka.Message, 0, len(events))
	for _, e := range events {
		msg, err := toMessage(e)
		if err != nil {
			return err
		}
		msgs = append(msgs, msg)
	}
	if err := p.w.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("kafka: publicar %d eventos: %w", len(msgs), err)
	}
	return nil
}

// Close libera el writer.
func (p *Publisher) Close() error {
	return p.w.Close()
}

func toMessage(e inventory.Event) (kafka.Message, error) {
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("serializar evento %s: %w", e.Type, err)
	}
	ts := e.OccurredAt
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	body, err := json.Marshal(Envelope{
		EventID:   uuid.NewString(),
		EventType: e.Type,
		Payload:   payload,
		Timestamp: ts,
	})
	if err != nil {
		return kafka.Message{}, err
	}
	return kafka.Message{
		Key:     []byte(e.Key),
		Value:   body,
		Time:    ts,
		Headers: []kafka.Header{{Key: "event_type", Value: []byte(e.Type)}},
	}, nil
}
