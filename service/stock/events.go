package stock

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Stock event names, published as the routing payload's "event" field.
const (
	EventStockIncreased = "stock.increased"
	EventStockDecreased = "stock.decreased"
	EventStockClaimed   = "stock.claimed"
	EventStockReleased  = "stock.released"
)

// Publisher writes stock events to an AMQP queue as JSON. It is optional:
// services accept a nil *Publisher and skip publishing.
type Publisher struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string
}

// NewPublisher connects, declares the durable queue and returns a ready
// publisher.
func NewPublisher(url, queue string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}
	return &Publisher{conn: conn, ch: ch, queue: queue}, nil
}

func (p *Publisher) Close() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}

type eventEnvelope struct {
	Event      string      `json:"event"`
	OccurredAt time.Time   `json:"occurred_at"`
	Payload    interface{} `json:"payload"`
}

// Publish sends one event. Best-effort at-most-once; callers log failures.
func (p *Publisher) Publish(event string, payload interface{}) error {
	body, err := json.Marshal(eventEnvelope{Event: event, OccurredAt: time.Now(), Payload: payload})
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return p.ch.PublishWithContext(ctx, "", p.queue, false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
	})
}
