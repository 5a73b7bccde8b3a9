package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"

	"github.com/frank-furt/pos-backend/internal/orders"
)

const exchangeName = "pos.orders"

// OrderMessage is the JSON payload published for order events. Kitchen
// displays and notification consumers subscribe to the pos.orders topic
// exchange.
type OrderMessage struct {
	MessageID string    `json:"message_id"`
	OrderID   int       `json:"idPedido"`
	TableID   int       `json:"idMesa,omitempty"`
	Status    string    `json:"estado"`
	Total     int64     `json:"total,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher publishes order events to RabbitMQ. It implements
// orders.EventPublisher.
type Publisher struct {
	conn    *amqp091.Connection
	channel *amqp091.Channel
}

// NewPublisher connects to RabbitMQ and declares the topic exchange. The
// connection is retried a few times so the broker may come up alongside the
// server.
func NewPublisher(url string) (*Publisher, error) {
	var conn *amqp091.Connection
	var err error
	for i := 0; i < 5; i++ {
		conn, err = amqp091.Dial(url)
		if err == nil {
			break
		}
		log.Printf("⏳ Waiting for message broker... (%d/5)", i+1)
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to message broker: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := channel.ExchangeDeclare(exchangeName, "topic", true, false, false, false, nil); err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	return &Publisher{conn: conn, channel: channel}, nil
}

// Close releases the channel and the connection.
func (p *Publisher) Close() {
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		p.conn.Close()
	}
}

// PublishOrderCreated announces a newly committed manual order.
func (p *Publisher) PublishOrderCreated(ctx context.Context, order *orders.Order) error {
	return p.publish(ctx, "order.created", OrderMessage{
		MessageID: uuid.New().String(),
		OrderID:   order.ID,
		TableID:   order.TableID,
		Status:    order.Status,
		Total:     order.Total,
		Timestamp: time.Now(),
	})
}

// PublishOrderStatusChanged announces a committed status transition.
func (p *Publisher) PublishOrderStatusChanged(ctx context.Context, orderID int, status string) error {
	return p.publish(ctx, routingKeyFor(status), OrderMessage{
		MessageID: uuid.New().String(),
		OrderID:   orderID,
		Status:    status,
		Timestamp: time.Now(),
	})
}

func routingKeyFor(status string) string {
	switch status {
	case orders.StatusPaid:
		return "order.paid"
	case orders.StatusCancelled:
		return "order.cancelled"
	default:
		return "order.status_changed"
	}
}

func (p *Publisher) publish(ctx context.Context, routingKey string, msg OrderMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	return p.channel.PublishWithContext(ctx, exchangeName, routingKey, false, false, amqp091.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp091.Persistent,
		MessageId:    msg.MessageID,
		Timestamp:    msg.Timestamp,
	})
}
