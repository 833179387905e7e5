package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const (
	// DefaultQueueName is the work queue
	DefaultQueueName = "resalehub_jobs"
	// DefaultDLQName is the dead letter queue
	DefaultDLQName = "resalehub_jobs_dlq"
	// DefaultExchangeName is the direct exchange both queues bind to
	DefaultExchangeName = "resalehub"

	jobsRoutingKey = "jobs"
	dlqRoutingKey  = "dlq"
)

// RabbitMQQueue implements JobQueue using RabbitMQ
type RabbitMQQueue struct {
	conn         *amqp.Connection
	mu           sync.Mutex // guards channel; amqp channels are not safe for concurrent publish
	channel      *amqp.Channel
	queueName    string
	dlqName      string
	exchangeName string
	logger       *zap.Logger
}

// NewRabbitMQQueue connects and declares the exchange, work queue and DLQ
func NewRabbitMQQueue(amqpURL string, logger *zap.Logger) (*RabbitMQQueue, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
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
		conn:         conn,
		channel:      ch,
		queueName:    DefaultQueueName,
		dlqName:      DefaultDLQName,
		exchangeName: DefaultExchangeName,
		logger:       logger,
	}
	if err := q.setup(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to setup queues: %w", err)
	}
	return q, nil
}

func (q *RabbitMQQueue) setup() error {
	if err := q.channel.ExchangeDeclare(q.exchangeName, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	if _, err := q.channel.QueueDeclare(q.dlqName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare DLQ: %w", err)
	}
	if err := q.channel.QueueBind(q.dlqName, dlqRoutingKey, q.exchangeName, false, nil); err != nil {
		return fmt.Errorf("failed to bind DLQ: %w", err)
	}

	args := amqp.Table{
		"x-dead-letter-exchange":    q.exchangeName,
		"x-dead-letter-routing-key": dlqRoutingKey,
	}
	if _, err := q.channel.QueueDeclare(q.queueName, true, false, false, false, args); err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}
	if err := q.channel.QueueBind(q.queueName, jobsRoutingKey, q.exchangeName, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue to exchange: %w", err)
	}
	return nil
}

// publishing converts a job into a persistent AMQP message. NotAfter becomes a per-message TTL.
func publishing(job *Job, now time.Time) (amqp.Publishing, error) {
	body, err := json.Marshal(job)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("failed to marshal job: %w", err)
	}
	p := amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		MessageId:    job.ID.String(),
		Type:         string(job.Type),
		Timestamp:    job.CreatedAt,
	}
	if job.NotAfter != nil {
		if ttl := job.NotAfter.Sub(now); ttl > 0 {
			p.Expiration = strconv.FormatInt(ttl.Milliseconds(), 10)
		}
	}
	return p, nil
}

// Enqueue adds a job to the queue
func (q *RabbitMQQueue) Enqueue(ctx context.Context, job *Job) error {
	if err := job.Validate(); err != nil {
		return err
	}
	p, err := publishing(job, time.Now())
	if err != nil {
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if err := q.channel.PublishWithContext(ctx, q.exchangeName, jobsRoutingKey, false, false, p); err != nil {
		return fmt.Errorf("failed to publish job: %w", err)
	}
	return nil
}

// Consume delivers messages on a dedicated channel with the given prefetch.
func (q *RabbitMQQueue) Consume(ctx context.Context, prefetchCount int) (<-chan MessageInterface, <-chan error, error) {
	if prefetchCount < 1 {
		prefetchCount = 1
	}
	consumeCh, err := q.conn.Channel()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create consumer channel: %w", err)
	}
	if err := consumeCh.Qos(prefetchCount, 0, false); err != nil {
		_ = consumeCh.Close()
		return nil, nil, fmt.Errorf("failed to set QoS: %w", err)
	}

	deliveries, err := consumeCh.Consume(q.queueName, "", false, false, false, false, nil)
	if err != nil {
		_ = consumeCh.Close()
		return nil, nil, fmt.Errorf("failed to start consuming: %w", err)
	}

	msgChan := make(chan MessageInterface, prefetchCount)
	errChan := make(chan error, 1)

	go func() {
		defer close(msgChan)
		defer close(errChan)
		defer func() { _ = consumeCh.Close() }()

		for {
			select {
			case <-ctx.Done():
				return
			case delivery, ok := <-deliveries:
				if !ok {
					errChan <- errors.New("delivery channel closed")
					return
				}

				var job Job
				if err := json.Unmarshal(delivery.Body, &job); err != nil {
					_ = delivery.Nack(false, false)
					q.logger.Warn("job_decode_failed", zap.String("message_id", delivery.MessageId), zap.Error(err))
					continue
				}
				if job.IsExpired(time.Now()) {
					_ = delivery.Nack(false, false)
					continue
				}

				msg := newMessage(&job, delivery)
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

// PurgeOlderThan drains dead-lettered messages whose publish time is older than retention.
// It stops at the first message young enough to keep, since the DLQ is in arrival order.
func (q *RabbitMQQueue) PurgeOlderThan(ctx context.Context, retention time.Duration) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	cutoff := time.Now().Add(-retention)
	purged := 0
	for {
		if err := ctx.Err(); err != nil {
			return purged, err
		}
		msg, ok, err := q.channel.Get(q.dlqName, false)
		if err != nil {
			return purged, fmt.Errorf("failed to read DLQ: %w", err)
		}
		if !ok {
			return purged, nil
		}
		if !msg.Timestamp.IsZero() && msg.Timestamp.After(cutoff) {
			_ = msg.Nack(false, true)
			return purged, nil
		}
		if err := msg.Ack(false); err != nil {
			return purged, fmt.Errorf("failed to drop DLQ message: %w", err)
		}
		purged++
	}
}

// HealthCheck verifies the connection and publish channel are open
func (q *RabbitMQQueue) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if q.conn == nil || q.conn.IsClosed() {
		return errors.New("rabbitmq connection is closed")
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.channel == nil || q.channel.IsClosed() {
		return errors.New("rabbitmq channel is closed")
	}
	return nil
}

// Close closes the queue connection
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

var (
	_ JobQueue  = (*RabbitMQQueue)(nil)
	_ DLQPurger = (*RabbitMQQueue)(nil)
)
