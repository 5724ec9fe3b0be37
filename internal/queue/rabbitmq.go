package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	// DefaultQueueName is the queue the worker consumes from
	DefaultQueueName = "auth_event_jobs"
	// DefaultDLQName is the dead letter queue fed by rejected jobs
	DefaultDLQName = "auth_event_jobs_dlq"
	// DefaultExchangeName is the direct exchange for immediate delivery
	DefaultExchangeName = "auth_jobs"
	// DefaultDelayedExchangeName is the delayed-delivery exchange
	// (requires the rabbitmq_delayed_message_exchange plugin)
	DefaultDelayedExchangeName = "auth_jobs_delayed"

	workRoutingKey = "jobs"
	deadRoutingKey = "dlq"
)

// RabbitMQQueue implements JobQueue on top of RabbitMQ. Jobs with a future
// NotBefore go through the delayed exchange; everything else is published
// for immediate delivery. Rejected jobs dead-letter into the DLQ.
type RabbitMQQueue struct {
	conn                *amqp.Connection
	channel             *amqp.Channel
	queueName           string
	dlqName             string
	exchangeName        string
	delayedExchangeName string
}

// NewRabbitMQQueue connects to the broker and declares the exchanges and
// queues the service uses.
func NewRabbitMQQueue(amqpURL string) (*RabbitMQQueue, error) {
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	q := &RabbitMQQueue{
		conn:                conn,
		channel:             ch,
		queueName:           DefaultQueueName,
		dlqName:             DefaultDLQName,
		exchangeName:        DefaultExchangeName,
		delayedExchangeName: DefaultDelayedExchangeName,
	}

	if err := q.declareTopology(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to setup queues: %w", err)
	}

	return q, nil
}

// declareTopology declares both exchanges, the work queue and the DLQ, and
// binds them. The delayed exchange is optional: if the plugin is missing,
// delayed jobs fall back to immediate delivery and the worker re-enqueues
// them until their NotBefore passes.
func (q *RabbitMQQueue) declareTopology() error {
	err := q.channel.ExchangeDeclare(
		q.delayedExchangeName,
		"x-delayed-message",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		amqp.Table{"x-delayed-type": "direct"},
	)
	if err != nil {
		// A failed declare closes the channel; reopen before carrying on
		// without delayed delivery.
		if q.channel.IsClosed() {
			ch, openErr := q.conn.Channel()
			if openErr != nil {
				return fmt.Errorf("failed to reopen channel after delayed exchange error: %w", openErr)
			}
			q.channel = ch
		}
		fmt.Printf("Warning: delayed message exchange not available (plugin may not be installed): %v\n", err)
	}

	if err := q.channel.ExchangeDeclare(
		q.exchangeName, "direct", true, false, false, false, nil,
	); err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	if _, err := q.channel.QueueDeclare(
		q.dlqName, true, false, false, false, amqp.Table{},
	); err != nil {
		return fmt.Errorf("failed to declare DLQ: %w", err)
	}

	if err := q.channel.QueueBind(
		q.dlqName, deadRoutingKey, q.exchangeName, false, nil,
	); err != nil {
		return fmt.Errorf("failed to bind DLQ: %w", err)
	}

	workArgs := amqp.Table{
		"x-dead-letter-exchange":    q.exchangeName,
		"x-dead-letter-routing-key": deadRoutingKey,
	}
	if _, err := q.channel.QueueDeclare(
		q.queueName, true, false, false, false, workArgs,
	); err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	if err := q.channel.QueueBind(
		q.queueName, workRoutingKey, q.exchangeName, false, nil,
	); err != nil {
		return fmt.Errorf("failed to bind queue to exchange: %w", err)
	}

	// Bind errors here only mean the delayed exchange is absent.
	_ = q.channel.QueueBind(
		q.queueName, workRoutingKey, q.delayedExchangeName, false, nil,
	)

	return nil
}

// Enqueue publishes a job. A future NotBefore routes it through the delayed
// exchange with an x-delay header; a NotAfter deadline becomes a per-message
// TTL so the broker dead-letters jobs nobody consumed in time.
func (q *RabbitMQQueue) Enqueue(ctx context.Context, job *Job) error {
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	publishing := amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		MessageId:    job.ID.String(),
		Timestamp:    job.CreatedAt,
	}

	if job.NotAfter != nil {
		if ttl := time.Until(*job.NotAfter); ttl > 0 {
			publishing.Expiration = fmt.Sprintf("%d", ttl.Milliseconds())
		}
	}

	exchange := q.exchangeName
	if job.NotBefore != nil {
		if delay := time.Until(*job.NotBefore); delay > 0 {
			exchange = q.delayedExchangeName
			publishing.Headers = amqp.Table{"x-delay": int(delay.Milliseconds())}
		}
	}

	if err := q.channel.PublishWithContext(
		ctx, exchange, workRoutingKey, false, false, publishing,
	); err != nil {
		return fmt.Errorf("failed to publish job: %w", err)
	}

	return nil
}

// Consume opens a dedicated consumer channel and streams messages until ctx
// is cancelled. Expired jobs are dead-lettered, jobs delivered before their
// NotBefore are requeued, and undecodable bodies go to the DLQ with an error
// on the error channel.
func (q *RabbitMQQueue) Consume(ctx context.Context, prefetchCount int) (<-chan *Message, <-chan error, error) {
	consumeCh, err := q.conn.Channel()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create consumer channel: %w", err)
	}

	// Prefetch bounds the unacked messages one worker holds, which keeps
	// dispatch fair when several workers share the queue.
	if err := consumeCh.Qos(prefetchCount, 0, false); err != nil {
		_ = consumeCh.Close()
		return nil, nil, fmt.Errorf("failed to set QoS: %w", err)
	}

	deliveries, err := consumeCh.Consume(
		q.queueName,
		"",    // consumer tag, auto-generated
		false, // manual ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		_ = consumeCh.Close()
		return nil, nil, fmt.Errorf("failed to start consuming: %w", err)
	}

	msgChan := make(chan *Message, prefetchCount)
	errChan := make(chan error, 1)

	go func() {
		defer close(msgChan)
		defer close(errChan)
		defer func() {
			_ = consumeCh.Close()
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case delivery, ok := <-deliveries:
				if !ok {
					errChan <- fmt.Errorf("delivery channel closed")
					return
				}

				var job Job
				if err := json.Unmarshal(delivery.Body, &job); err != nil {
					_ = delivery.Nack(false, false)
					errChan <- fmt.Errorf("failed to unmarshal job: %w", err)
					continue
				}

				if job.IsExpired() {
					_ = delivery.Nack(false, false)
					continue
				}

				if !job.ShouldProcess() {
					// Delivered ahead of NotBefore, put it back.
					_ = delivery.Nack(false, true)
					continue
				}

				msg := newMessage(&job, delivery.DeliveryTag, consumeCh)

				select {
				case <-ctx.Done():
					_ = delivery.Nack(false, true)
					return
				case msgChan <- msg:
				}
			}
		}
	}()

	return msgChan, errChan, nil
}

// Dequeue pulls a single message, or nil when the queue is empty.
// DEPRECATED: Use Consume, which avoids polling and balances load across
// workers.
func (q *RabbitMQQueue) Dequeue(ctx context.Context) (*Message, error) {
	delivery, ok, err := q.channel.Get(q.queueName, false)
	if err != nil {
		return nil, fmt.Errorf("failed to get message: %w", err)
	}
	if !ok {
		return nil, nil
	}

	var job Job
	if err := json.Unmarshal(delivery.Body, &job); err != nil {
		_ = delivery.Nack(false, false)
		return nil, fmt.Errorf("failed to unmarshal job: %w", err)
	}

	if job.IsExpired() {
		_ = delivery.Nack(false, false)
		return nil, nil
	}

	if !job.ShouldProcess() {
		_ = delivery.Nack(false, true)
		return nil, nil
	}

	return newMessage(&job, delivery.DeliveryTag, q.channel), nil
}

// HealthCheck reports whether the connection and channel are still open.
func (q *RabbitMQQueue) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if q.conn == nil || q.conn.IsClosed() {
		return fmt.Errorf("rabbitmq connection is closed")
	}
	if q.channel == nil || q.channel.IsClosed() {
		return fmt.Errorf("rabbitmq channel is closed")
	}
	return nil
}

// PurgeOlderThan removes messages from the dead letter queue whose timestamp
// is older than the retention period. It returns the number of messages
// removed.
func (q *RabbitMQQueue) PurgeOlderThan(ctx context.Context, retention time.Duration) (int, error) {
	cutoff := time.Now().Add(-retention)
	purged := 0

	for {
		select {
		case <-ctx.Done():
			return purged, ctx.Err()
		default:
		}

		msg, ok, err := q.channel.Get(q.dlqName, false)
		if err != nil {
			return purged, fmt.Errorf("failed to read DLQ: %w", err)
		}
		if !ok {
			// DLQ drained
			return purged, nil
		}

		if msg.Timestamp.Before(cutoff) {
			if err := msg.Ack(false); err != nil {
				return purged, fmt.Errorf("failed to ack DLQ message: %w", err)
			}
			purged++
			continue
		}

		// Dead letters arrive in rough death order, so the first message still
		// inside retention means the rest are newer. Requeue it and stop; a
		// requeued message returns to the head and rescanning would never end.
		if err := msg.Nack(false, true); err != nil {
			return purged, fmt.Errorf("failed to requeue DLQ message: %w", err)
		}
		return purged, nil
	}
}

// Close closes the channel and the connection.
func (q *RabbitMQQueue) Close() error {
	var err error
	if q.channel != nil {
		err = q.channel.Close()
	}
	if q.conn != nil {
		if closeErr := q.conn.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}
	return err
}
