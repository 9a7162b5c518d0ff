// Package events publishes progression events to RabbitMQ so downstream
// consumers (dashboards, digest jobs) can react without the engine knowing
// about them. Publishing is fire-and-forget from the engine's point of
// view: a broker failure never fails a completion.
package events

import (
	"encoding/json"
	"log"
	"time"

	"github.com/streadway/amqp"
)

// Event types emitted by the progression engine.
const (
	TypeCompletionRecorded  = "completion.recorded"
	TypeCompletionUndone    = "completion.undone"
	TypeAchievementUnlocked = "achievement.unlocked"
	TypeWeeklyReset         = "weekly.reset"
)

// Event is the wire shape for one progression event.
type Event struct {
	Type       string                 `json:"type"`
	UserID     string                 `json:"user_id"`
	ItemID     string                 `json:"item_id,omitempty"`
	OccurredAt time.Time              `json:"occurred_at"`
	Payload    map[string]interface{} `json:"payload,omitempty"`
}

// Publisher provides the Publish method to publish progression events.
type Publisher interface {
	Publish(event Event) error
	Close() error
}

// RabbitPublisher publishes events to a durable RabbitMQ queue.
type RabbitPublisher struct {
	conn      *amqp.Connection
	ch        *amqp.Channel
	queueName string
}

// NewRabbitPublisher connects to RabbitMQ at the given URL, declares the
// durable queue, and returns a ready publisher. The channel is put in
// confirm mode so lost publishes surface in the logs.
func NewRabbitPublisher(url, queueName string) (*RabbitPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	if err = ch.Confirm(false); err != nil {
		conn.Close()
		return nil, err
	}

	_, err = ch.QueueDeclare(
		queueName,
		true,  // Durable
		false, // Delete when unused
		false, // Exclusive
		false, // No-wait
		nil,   // Arguments
	)
	if err != nil {
		conn.Close()
		return nil, err
	}

	notifyClose := make(chan *amqp.Error)
	conn.NotifyClose(notifyClose)

	go func() {
		err := <-notifyClose
		if err != nil {
			log.Printf("RabbitMQ connection closed: %v", err)
		}
	}()

	return &RabbitPublisher{conn: conn, ch: ch, queueName: queueName}, nil
}

// Publish marshals the event as JSON and publishes it persistently to the
// queue.
func (p *RabbitPublisher) Publish(event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return p.ch.Publish(
		"",          // Exchange
		p.queueName, // Routing key
		false,       // Mandatory
		false,       // Immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
}

// Close shuts down the channel and connection.
func (p *RabbitPublisher) Close() error {
	if p.ch != nil {
		p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
