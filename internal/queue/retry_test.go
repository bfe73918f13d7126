package queue

import (
	"errors"
	"fmt"
	"testing"

	"github.com/rabbitmq/amqp091-go"
)

type published struct {
	key string
	msg amqp091.Publishing
}

type channel struct {
	sent []published
	err  error
}

func (c *channel) Publish(_, key string, _, _ bool, msg amqp091.Publishing) error {
	if c.err != nil {
		return c.err
	}
	c.sent = append(c.sent, published{key: key, msg: msg})
	return nil
}

func (c *channel) QueueDeclare(name string, _, _, _, _ bool, args amqp091.Table) (amqp091.Queue, error) {
	c.sent = append(c.sent, published{key: name, msg: amqp091.Publishing{Headers: args}})
	return amqp091.Queue{Name: name}, nil
}

type acks struct {
	acked, nacked, requeued bool
}

func (a *acks) Ack(uint64, bool) error { a.acked = true; return nil }
func (a *acks) Nack(_ uint64, _ bool, requeue bool) error {
	a.nacked, a.requeued = true, requeue
	return nil
}
func (a *acks) Reject(uint64, bool) error { return nil }

func TestHandleProcessingError(t *testing.T) {
	tests := []struct {
		name        string
		headers     amqp091.Table
		wantQueue   string
		err         error
		wantRetries any
	}{
		{name: "first failure", wantQueue: "crawl_queue_retry", wantRetries: int32(1)},
		{name: "counts up", headers: amqp091.Table{"x-retries": int32(3)}, wantQueue: "crawl_queue_retry", wantRetries: int32(4)},
		{name: "int64 header", headers: amqp091.Table{"x-retries": int64(9)}, wantQueue: "crawl_queue_retry", wantRetries: int32(10)},
		{name: "exhausted", headers: amqp091.Table{"x-retries": int32(MaxRetries)}, wantQueue: "crawl_queue_dlq", wantRetries: int32(MaxRetries)},
		{name: "invalid", err: fmt.Errorf("%w: bad json", ErrInvalidMessage), wantQueue: "crawl_queue_dlq", wantRetries: nil},
		{name: "invalid after retries", headers: amqp091.Table{"x-retries": int32(2)}, err: ErrInvalidMessage, wantQueue: "crawl_queue_dlq", wantRetries: int32(2)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ch := &channel{}
			a := &acks{}
			err := tt.err
			if err == nil {
				err = errors.New("s3 unavailable")
			}
			HandleProcessingError(ch, amqp091.Delivery{Acknowledger: a, Headers: tt.headers, Body: []byte("{}")}, CrawlQueue, err)

			if len(ch.sent) != 1 || ch.sent[0].key != tt.wantQueue {
				t.Fatalf("sent = %+v, want one message to %s", ch.sent, tt.wantQueue)
			}
			if got := ch.sent[0].msg.Headers["x-retries"]; got != tt.wantRetries {
				t.Fatalf("x-retries = %v, want %v", got, tt.wantRetries)
			}
			if !a.acked {
				t.Fatal("the original delivery must be acked")
			}
		})
	}
}

func TestHandleProcessingErrorRequeuesOnPublishFailure(t *testing.T) {
	a := &acks{}
	HandleProcessingError(&channel{err: errors.New("channel closed")}, amqp091.Delivery{Acknowledger: a}, CrawlQueue, errors.New("s3 unavailable"))
	if a.acked || !a.nacked || !a.requeued {
		t.Fatalf("expected a requeueing nack, got %+v", a)
	}
}

func TestSetupQueues(t *testing.T) {
	ch := &channel{}
	if err := SetupQueues(ch, []string{CrawlQueue}); err != nil {
		t.Fatalf("SetupQueues: %v", err)
	}
	if len(ch.sent) != 3 || ch.sent[2].key != "crawl_queue_retry" {
		t.Fatalf("declared %+v", ch.sent)
	}
	if ch.sent[2].msg.Headers["x-dead-letter-routing-key"] != CrawlQueue {
		t.Fatal("the retry queue must dead letter back to the work queue")
	}
}
