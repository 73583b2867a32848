// Package amqp publishes and consumes dataset events over a RabbitMQ fanout
// exchange. Every replica binds its own exclusive queue, so a single
// "dataset seeded" event reaches all of them.
package amqp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

// Circuit breaker states
const (
	StateClosed int32 = iota
	StateOpen
	StateHalfOpen
)

const (
	maxFailures    = 5
	openTimeout    = 30 * time.Second
	publishTimeout = 5 * time.Second
	maxBackoff     = 30 * time.Second
)

var ErrCircuitOpen = errors.New("circuit breaker is open")

type Client struct {
	url          string
	exchangeName string
	// queueName is empty for a server-named exclusive queue.
	queueName string

	mu      sync.Mutex
	conn    *amqp091.Connection
	channel *amqp091.Channel

	failureCount int64
	state        int32
	lastFailure  time.Time
}

func NewClient(url, exchangeName string) (*Client, error) {
	client := &Client{
		url:          url,
		exchangeName: exchangeName,
	}

	if err := client.connect(); err != nil {
		return nil, err
	}
	return client, nil
}

func (c *Client) connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectLocked()
}

func (c *Client) connectLocked() error {
	conn, err := amqp091.Dial(c.url)
	if err != nil {
		return fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	err = channel.ExchangeDeclare(
		c.exchangeName, // name
		"fanout",       // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return fmt.Errorf("declare exchange: %w", err)
	}

	c.conn = conn
	c.channel = channel
	return nil
}

// ensureChannel reconnects when the broker dropped the connection.
func (c *Client) ensureChannel() (*amqp091.Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.channel != nil && !c.channel.IsClosed() {
		return c.channel, nil
	}
	if c.conn != nil {
		c.conn.Close()
	}
	c.conn, c.channel = nil, nil

	if err := c.connectLocked(); err != nil {
		return nil, err
	}
	slog.Info("Reconnected to AMQP broker", "exchange", c.exchangeName)
	return c.channel, nil
}

// PublishDatasetSeeded fans a seed event out to every bound replica
func (c *Client) PublishDatasetSeeded(ctx context.Context, msg *DatasetSeededMessage) error {
	if c.isCircuitOpen() {
		return fmt.Errorf("publish dataset seeded: %w", ErrCircuitOpen)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	channel, err := c.ensureChannel()
	if err != nil {
		c.recordFailure()
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = channel.PublishWithContext(
		ctx,
		c.exchangeName, // exchange
		"",             // routing key, ignored by fanout
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			MessageId:    msg.BatchID.String(),
			Timestamp:    msg.Timestamp,
			Body:         body,
		},
	)
	if err != nil {
		if isConnectionError(err) {
			c.recordFailure()
		}
		return fmt.Errorf("publish message: %w", err)
	}
	c.recordSuccess()

	slog.InfoContext(ctx, "Published dataset seeded message",
		"batch_id", msg.BatchID,
		"count", msg.Count,
		"policy", msg.Policy,
		"exchange", c.exchangeName)

	return nil
}

// ConsumeDatasetEvents binds an exclusive queue to the exchange and hands every
// event to handler until ctx is cancelled. Lost connections are re-established
// with exponential backoff.
func (c *Client) ConsumeDatasetEvents(ctx context.Context, handler func(context.Context, *DatasetSeededMessage) error) error {
	attempt := 0
	for {
		err := c.consumeOnce(ctx, handler, func() { attempt = 0 })
		if ctx.Err() != nil {
			slog.InfoContext(ctx, "Stopping message consumption", "reason", ctx.Err())
			return ctx.Err()
		}

		wait := exponentialBackoff(attempt)
		attempt++
		slog.WarnContext(ctx, "AMQP consumer interrupted, retrying",
			"error", err,
			"attempt", attempt,
			"backoff", wait)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

func (c *Client) consumeOnce(ctx context.Context, handler func(context.Context, *DatasetSeededMessage) error, onReady func()) error {
	channel, err := c.ensureChannel()
	if err != nil {
		return err
	}

	queue, err := channel.QueueDeclare(
		c.queueName, // name, empty for server-named
		false,       // durable
		true,        // delete when unused
		true,        // exclusive
		false,       // no-wait
		nil,         // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	if err := channel.QueueBind(queue.Name, "", c.exchangeName, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}

	msgs, err := channel.Consume(
		queue.Name, // queue
		"",         // consumer
		false,      // auto-ack (we want manual ack)
		true,       // exclusive
		false,      // no-local
		false,      // no-wait
		nil,        // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	onReady()
	slog.InfoContext(ctx, "Started consuming dataset events",
		"queue", queue.Name,
		"exchange", c.exchangeName)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return fmt.Errorf("message channel closed")
			}
			dispatch(ctx, delivery.Body, delivery, handler)
		}
	}
}

type acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

func dispatch(ctx context.Context, body []byte, ack acknowledger, handler func(context.Context, *DatasetSeededMessage) error) {
	msg, err := DatasetSeededMessageFromJSON(body)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to unmarshal message", "error", err)
		ack.Nack(false, false) // reject and don't requeue
		return
	}

	if err := handler(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to handle message",
			"error", err,
			"batch_id", msg.BatchID)
		ack.Nack(false, true) // reject and requeue
		return
	}

	ack.Ack(false)
	slog.InfoContext(ctx, "Processed dataset seeded message",
		"batch_id", msg.BatchID,
		"count", msg.Count)
}

func (c *Client) isCircuitOpen() bool {
	switch atomic.LoadInt32(&c.state) {
	case StateOpen:
		c.mu.Lock()
		last := c.lastFailure
		c.mu.Unlock()
		if time.Since(last) > openTimeout {
			atomic.CompareAndSwapInt32(&c.state, StateOpen, StateHalfOpen)
			return false
		}
		return true
	default:
		return false
	}
}

func (c *Client) recordSuccess() {
	atomic.StoreInt64(&c.failureCount, 0)
	atomic.StoreInt32(&c.state, StateClosed)
}

func (c *Client) recordFailure() {
	c.mu.Lock()
	c.lastFailure = time.Now()
	c.mu.Unlock()

	if atomic.AddInt64(&c.failureCount, 1) >= maxFailures || atomic.LoadInt32(&c.state) == StateHalfOpen {
		atomic.StoreInt32(&c.state, StateOpen)
	}
}

func exponentialBackoff(attempt int) time.Duration {
	if attempt >= 5 {
		return maxBackoff
	}
	d := time.Second << attempt
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, amqp091.ErrClosed) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"connection", "eof", "broken pipe"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	if c.channel != nil && !c.channel.IsClosed() {
		if err := c.channel.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close channel: %w", err))
		}
	}
	if c.conn != nil && !c.conn.IsClosed() {
		if err := c.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close connection: %w", err))
		}
	}
	return errors.Join(errs...)
}
