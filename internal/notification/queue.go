package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// Queue publishes messages to a durable RabbitMQ queue. Failed deliveries
// are dead-lettered to "<name>.dlq".
type Queue struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	name    string
}

func DialQueue(url, name string) (*Queue, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	q := &Queue{conn: conn, channel: ch, name: name}
	if err := q.declare(); err != nil {
		q.Close()
		return nil, err
	}
	return q, nil
}

func (q *Queue) declare() error {
	deadLetter := q.name + ".dlq"
	if _, err := q.channel.QueueDeclare(deadLetter, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare dead letter queue: %w", err)
	}

	_, err := q.channel.QueueDeclare(
		q.name,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		amqp.Table{
			"x-dead-letter-exchange":    "",
			"x-dead-letter-routing-key": deadLetter,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}
	return nil
}

func (q *Queue) Send(ctx context.Context, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode email: %w", err)
	}

	return q.channel.PublishWithContext(ctx, "", q.name, false, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		ContentType:  "application/json",
		Body:         body,
	})
}

// Consume hands every queued message to deliver until ctx is cancelled or
// the channel closes.
func (q *Queue) Consume(ctx context.Context, deliver Sender) error {
	if err := q.channel.Qos(10, 0, false); err != nil {
		return fmt.Errorf("failed to set prefetch: %w", err)
	}

	msgs, err := q.channel.Consume(q.name, "bulkwear-mailer", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return fmt.Errorf("delivery channel closed")
			}
			if err := handleDelivery(ctx, d.Body, deliver); err != nil {
				logrus.WithError(err).Error("Email delivery failed, dead-lettering")
				d.Nack(false, false)
				continue
			}
			d.Ack(false)
		}
	}
}

func handleDelivery(ctx context.Context, body []byte, deliver Sender) error {
	var msg Message
	if err := json.Unmarshal(body, &msg); err != nil {
		return fmt.Errorf("invalid email payload: %w", err)
	}
	if msg.To == "" || msg.Template == "" {
		return fmt.Errorf("email payload missing recipient or template")
	}
	return deliver.Send(ctx, msg)
}

func (q *Queue) Close() {
	if q.channel != nil {
		q.channel.Close()
	}
	if q.conn != nil {
		q.conn.Close()
	}
}
