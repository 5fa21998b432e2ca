// Package amqp propagates cache invalidations between processes over RabbitMQ.
package amqp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"

	"finclient/internal/log"
)

// Circuit breaker states.
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
	routingKey     = "cache.invalidate"
)

var (
	ErrCircuitOpen  = errors.New("circuit breaker is open")
	ErrClientClosed = errors.New("amqp client closed")
)

// channel is the part of *amqp091.Channel the client uses.
type channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp091.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp091.Table) (amqp091.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp091.Table) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp091.Table) (<-chan amqp091.Delivery, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	Close() error
}

type connection interface {
	Channel() (channel, error)
	Close() error
}

type dialer func(url string) (connection, error)

type brokerConnection struct {
	*amqp091.Connection
}

func (b brokerConnection) Channel() (channel, error) {
	ch, err := b.Connection.Channel()
	if err != nil {
		return nil, err
	}
	return ch, nil
}

func dialBroker(url string) (connection, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, err
	}
	return brokerConnection{conn}, nil
}

type Client struct {
	url          string
	exchangeName string
	queueName    string
	origin       string
	logger       *log.Logger
	dial         dialer

	// dialMu serializes reconnects. mu guards the fields below it.
	dialMu  sync.Mutex
	mu      sync.Mutex
	conn    connection
	channel channel
	closed  bool

	state        int32
	failureCount int64
	lastFailure  time.Time
}

type Option func(*Client)

func WithLogger(l *log.Logger) Option {
	return func(c *Client) { c.logger = l.WithComponent(log.ComponentAMQP) }
}

// WithOrigin sets the id stamped on published messages. Defaults to a random uuid.
func WithOrigin(origin string) Option {
	return func(c *Client) { c.origin = origin }
}

// NewClient connects and declares the fanout exchange. queueName is the
// queue this process consumes from; empty means a private, server-named
// queue that disappears with the connection.
func NewClient(url, exchangeName, queueName string, opts ...Option) (*Client, error) {
	c := &Client{
		url:          url,
		exchangeName: exchangeName,
		queueName:    queueName,
		origin:       uuid.NewString(),
		logger:       log.Default().WithComponent(log.ComponentAMQP),
		dial:         dialBroker,
	}
	for _, opt := range opts {
		opt(c)
	}

	if err := c.connect(); err != nil {
		return nil, err
	}
	return c, nil
}

// Origin identifies messages published by this client.
func (c *Client) Origin() string { return c.origin }

// connect dials a fresh connection and channel and installs them, closing
// the pair they replace.
func (c *Client) connect() error {
	conn, err := c.dial(c.url)
	if err != nil {
		return fmt.Errorf("dial AMQP: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		c.exchangeName, // name
		"fanout",       // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("declare exchange: %w", err)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		ch.Close()
		conn.Close()
		return ErrClientClosed
	}
	oldConn, oldChannel := c.conn, c.channel
	c.conn = conn
	c.channel = ch
	c.mu.Unlock()

	if oldChannel != nil {
		_ = oldChannel.Close()
	}
	if oldConn != nil {
		if err := oldConn.Close(); err != nil {
			c.logger.Debug("Closing replaced connection", log.FieldError, err)
		}
	}
	return nil
}

// reconnect replaces the connection unless another caller already
// replaced the one that stale came from.
func (c *Client) reconnect(stale channel) error {
	c.dialMu.Lock()
	defer c.dialMu.Unlock()

	c.mu.Lock()
	current, closed := c.channel, c.closed
	c.mu.Unlock()
	if closed {
		return ErrClientClosed
	}
	if current != stale {
		return nil
	}
	return c.connect()
}

func (c *Client) currentChannel() channel {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.channel
}

// declareQueue declares and binds the consume queue and returns its name.
func (c *Client) declareQueue(ch channel) (string, error) {
	durable := c.queueName != ""
	q, err := ch.QueueDeclare(
		c.queueName, // name
		durable,     // durable
		!durable,    // delete when unused
		!durable,    // exclusive
		false,       // no-wait
		nil,         // arguments
	)
	if err != nil {
		return "", fmt.Errorf("declare queue: %w", err)
	}

	if err := ch.QueueBind(q.Name, routingKey, c.exchangeName, false, nil); err != nil {
		return "", fmt.Errorf("bind queue: %w", err)
	}
	return q.Name, nil
}

// PublishInvalidation announces keys to other processes.
func (c *Client) PublishInvalidation(ctx context.Context, keys [][]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	if c.isCircuitOpen() {
		return fmt.Errorf("publish invalidation: %w", ErrCircuitOpen)
	}

	body, err := NewInvalidationMessage(c.origin, keys).ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	ch := c.currentChannel()
	if ch == nil {
		c.recordFailure()
		return fmt.Errorf("publish invalidation: no channel")
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = ch.PublishWithContext(
		ctx,
		c.exchangeName, // exchange
		routingKey,     // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Transient,
			Timestamp:    time.Now(),
			AppId:        c.origin,
			Body:         body,
		},
	)
	if err != nil {
		c.recordFailure()
		if isConnectionError(err) {
			if rerr := c.reconnect(ch); rerr != nil {
				c.logger.Warn("Reconnect failed", log.FieldError, rerr)
			}
		}
		return fmt.Errorf("publish message: %w", err)
	}
	c.recordSuccess()

	c.logger.Debug("Published invalidation",
		log.FieldKeys, fmt.Sprint(keys),
		"exchange", c.exchangeName)
	return nil
}

// ConsumeInvalidations delivers messages from other origins to handler
// until ctx ends. A message the handler rejects is requeued; an
// undecodable one is dropped. Lost connections are re-established with
// exponential backoff.
func (c *Client) ConsumeInvalidations(ctx context.Context, handler func(*InvalidationMessage) error) error {
	for attempt := 0; ; attempt++ {
		ch := c.currentChannel()
		err := c.consume(ctx, ch, handler)
		if ctx.Err() != nil {
			c.logger.Info("Stopping message consumption", "reason", ctx.Err())
			return ctx.Err()
		}

		wait := exponentialBackoff(attempt)
		c.logger.Warn("Consumer stopped, reconnecting",
			log.FieldError, err,
			"attempt", attempt+1,
			"backoff", wait)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		if err := c.reconnect(ch); err != nil {
			if errors.Is(err, ErrClientClosed) {
				return err
			}
			c.logger.Warn("Reconnect failed", log.FieldError, err)
			continue
		}
		attempt = -1
	}
}

func (c *Client) consume(ctx context.Context, ch channel, handler func(*InvalidationMessage) error) error {
	if ch == nil {
		return errors.New("no channel")
	}

	queue, err := c.declareQueue(ch)
	if err != nil {
		return err
	}

	msgs, err := ch.Consume(
		queue, // queue
		"",    // consumer
		false, // auto-ack (we want manual ack)
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	c.logger.Info("Started consuming invalidations", "queue", queue)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return fmt.Errorf("message channel closed")
			}
			c.handle(delivery, handler)
		}
	}
}

type acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

func (c *Client) handle(d amqp091.Delivery, handler func(*InvalidationMessage) error) {
	c.dispatch(d.Body, &d, handler)
}

func (c *Client) dispatch(body []byte, ack acknowledger, handler func(*InvalidationMessage) error) {
	msg, err := InvalidationMessageFromJSON(body)
	if err != nil {
		c.logger.Error("Failed to unmarshal message", log.FieldError, err)
		_ = ack.Nack(false, false) // reject and don't requeue
		return
	}

	if msg.Origin == c.origin {
		_ = ack.Ack(false)
		return
	}

	if err := handler(msg); err != nil {
		c.logger.Error("Failed to handle message",
			log.FieldError, err,
			"origin", msg.Origin)
		_ = ack.Nack(false, true) // reject and requeue
		return
	}

	_ = ack.Ack(false)
	c.logger.Debug("Processed invalidation",
		log.FieldKeys, fmt.Sprint(msg.Keys),
		"origin", msg.Origin)
}

func (c *Client) isCircuitOpen() bool {
	switch atomic.LoadInt32(&c.state) {
	case StateOpen:
		c.mu.Lock()
		last := c.lastFailure
		c.mu.Unlock()
		if time.Since(last) > openTimeout {
			atomic.StoreInt32(&c.state, StateHalfOpen)
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
	n := atomic.AddInt64(&c.failureCount, 1)
	c.mu.Lock()
	c.lastFailure = time.Now()
	c.mu.Unlock()
	if n >= maxFailures || atomic.LoadInt32(&c.state) == StateHalfOpen {
		atomic.StoreInt32(&c.state, StateOpen)
	}
}

func exponentialBackoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
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
	for _, s := range []string{"connection", "eof", "broken pipe", "channel/connection is not open"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		return err
	}
	return nil
}
