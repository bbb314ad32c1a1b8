package messaging

import (
	"context"
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill/message"
	"go.uber.org/zap"
)

// Handler receives one decoded event. A returned error nacks the message.
type Handler[T any] func(ctx context.Context, event *T) error

// Consumer decodes JSON messages from one topic into T and hands them to a Handler.
type Consumer[T any] struct {
	sub    message.Subscriber
	topic  string
	handle Handler[T]
	log    *zap.Logger

	stop    context.CancelFunc
	stopped chan struct{}
}

// NewConsumer binds handle to topic on sub. Nothing is read until Start.
func NewConsumer[T any](
	sub message.Subscriber,
	topic string,
	handle Handler[T],
	logger *zap.Logger,
) *Consumer[T] {
	return &Consumer[T]{
		sub:     sub,
		topic:   topic,
		handle:  handle,
		log:     logger.With(zap.String("topic", topic)),
		stopped: make(chan struct{}),
	}
}

func (c *Consumer[T]) Topic() string {
	return c.topic
}

// Start subscribes and reads in the background until ctx ends, the
// subscription closes, or Shutdown is called.
func (c *Consumer[T]) Start(ctx context.Context) error {
	ctx, c.stop = context.WithCancel(ctx)

	msgs, err := c.sub.Subscribe(ctx, c.topic)
	if err != nil {
		c.stop()
		close(c.stopped)

		return err
	}

	go c.run(ctx, msgs)

	return nil
}

func (c *Consumer[T]) run(ctx context.Context, msgs <-chan *message.Message) {
	defer close(c.stopped)

	for {
		var (
			msg *message.Message
			ok  bool
		)

		select {
		case <-ctx.Done():
			return
		case msg, ok = <-msgs:
		}

		if !ok {
			return
		}

		c.process(ctx, msg)
	}
}

// process acks decoded events the handler accepts, nacks handler failures
// for redelivery, and acks payloads that are not valid JSON for T.
func (c *Consumer[T]) process(ctx context.Context, msg *message.Message) {
	log := c.log.With(zap.String("message_id", msg.UUID))

	if id := msg.Metadata.Get(MetadataRequestID); id != "" {
		ctx = ContextWithRequestID(ctx, id)
		log = log.With(zap.String("request_id", id))
	}

	event := new(T)
	if err := json.Unmarshal(msg.Payload, event); err != nil {
		log.Error("discarding malformed event", zap.Error(err))
		msg.Ack()

		return
	}

	if err := c.handle(ctx, event); err != nil {
		log.Error("event handler failed, requeueing", zap.Error(err))
		msg.Nack()

		return
	}

	msg.Ack()
	log.Debug("event consumed")
}

// Shutdown cancels the subscription and blocks until the message being
// processed, if any, is settled. It is a no-op before Start.
func (c *Consumer[T]) Shutdown() error {
	if c.stop == nil {
		return nil
	}

	c.stop()
	<-c.stopped

	return nil
}
