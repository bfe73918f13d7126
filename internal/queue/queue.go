// Package queue moves crawl jobs through RabbitMQ. Every work queue has a
// _retry queue that dead-letters back after a delay and a _dlq for messages
// that kept failing.
package queue

import (
	"fmt"
	"time"

	"github.com/OFFIS-RIT/cinegraph/backend/internal/util"

	"github.com/rabbitmq/amqp091-go"
)

const (
	CrawlQueue = "crawl_queue"

	retryDelay = 10 * time.Second
)

// Publisher is implemented by *amqp091.Channel.
type Publisher interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
}

// Declarer is implemented by *amqp091.Channel.
type Declarer interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp091.Table) (amqp091.Queue, error)
}

func Init() (*amqp091.Connection, error) {
	connURL := fmt.Sprintf(
		"amqp://%s:%s@%s:%s/",
		util.GetEnv("RABBITMQ_USER"),
		util.GetEnv("RABBITMQ_PASSWORD"),
		util.GetEnvString("RABBITMQ_HOST", "localhost"),
		util.GetEnvString("RABBITMQ_PORT", "5672"),
	)
	conn, err := amqp091.Dial(connURL)
	if err != nil {
		return nil, fmt.Errorf("connect to RabbitMQ: %w", err)
	}
	return conn, nil
}

// SetupQueues declares each queue with its retry and dead letter queues.
func SetupQueues(ch Declarer, queueNames []string) error {
	for _, name := range queueNames {
		if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare %s: %w", name, err)
		}
		if _, err := ch.QueueDeclare(name+"_dlq", true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare %s_dlq: %w", name, err)
		}
		_, err := ch.QueueDeclare(name+"_retry", true, false, false, false, amqp091.Table{
			"x-message-ttl":             int32(retryDelay.Milliseconds()),
			"x-dead-letter-exchange":    "",
			"x-dead-letter-routing-key": name,
		})
		if err != nil {
			return fmt.Errorf("declare %s_retry: %w", name, err)
		}
	}
	return nil
}

// PublishFIFO publishes a persistent JSON message to queueName through the
// default exchange.
func PublishFIFO(ch Publisher, queueName string, data []byte) error {
	return ch.Publish("", queueName, false, false, amqp091.Publishing{
		ContentType:  "application/json",
		Body:         data,
		DeliveryMode: amqp091.Persistent,
		Timestamp:    time.Now(),
	})
}
