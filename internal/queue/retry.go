package queue

import (
	"errors"

	"github.com/OFFIS-RIT/cinegraph/backend/pkg/logger"

	"github.com/rabbitmq/amqp091-go"
)

// MaxRetries is how often a failed message is retried before it is parked in
// the dead letter queue.
const MaxRetries = 10

const retriesHeader = "x-retries"

func retries(h amqp091.Table) int {
	switch v := h[retriesHeader].(type) {
	case int32:
		return int(v)
	case int64:
		return int(v)
	case int:
		return v
	}
	return 0
}

// ErrInvalidMessage marks messages that can never be processed. They skip the
// retry queue.
var ErrInvalidMessage = errors.New("invalid message")

// HandleProcessingError routes a message that failed with err to queueName's
// retry queue, or to its dead letter queue once MaxRetries is reached or err
// is an ErrInvalidMessage. The message is acknowledged when the republish
// succeeded and requeued otherwise.
func HandleProcessingError(ch Publisher, msg amqp091.Delivery, queueName string, err error) {
	n := retries(msg.Headers)

	target := queueName + "_retry"
	headers := amqp091.Table{}
	for k, v := range msg.Headers {
		headers[k] = v
	}
	switch {
	case errors.Is(err, ErrInvalidMessage):
		target = queueName + "_dlq"
		logger.Warn("[Queue] Sending invalid message to DLQ", "dlq", target, "err", err)
	case n >= MaxRetries:
		target = queueName + "_dlq"
		logger.Warn("[Queue] Sending message to DLQ", "dlq", target, "retries", n)
	default:
		headers[retriesHeader] = int32(n + 1)
	}

	err = ch.Publish("", target, false, false, amqp091.Publishing{
		ContentType:  msg.ContentType,
		Body:         msg.Body,
		Headers:      headers,
		DeliveryMode: amqp091.Persistent,
	})
	if err != nil {
		logger.Error("[Queue] Failed to republish message", "queue", target, "err", err)
		if err := msg.Nack(false, true); err != nil {
			logger.Error("[Queue] Failed to nack message", "err", err)
		}
		return
	}
	if err := msg.Ack(false); err != nil {
		logger.Error("[Queue] Failed to ack message", "err", err)
	}
}
