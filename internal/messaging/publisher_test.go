package messaging_test

import (
	"context"
	"errors"
	"testing"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/serroba/rowquota/internal/messaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockPublisher struct {
	messages   []*message.Message
	topic      string
	publishErr error
	closeErr   error
	closes     int
}

func (m *mockPublisher) Publish(topic string, msgs ...*message.Message) error {
	if m.publishErr != nil {
		return m.publishErr
	}

	m.topic = topic
	m.messages = append(m.messages, msgs...)

	return nil
}

func (m *mockPublisher) Close() error {
	m.closes++

	return m.closeErr
}

type publishTestEvent struct {
	ID    int64  `json:"id"`
	Owner string `json:"owner"`
}

func TestNewPublishFunc(t *testing.T) {
	t.Run("publishes event as json", func(t *testing.T) {
		mock := &mockPublisher{}
		publish := messaging.NewPublishFunc[publishTestEvent](mock, "records.test")

		err := publish(context.Background(), &publishTestEvent{ID: 7, Owner: "georgia"})

		require.NoError(t, err)
		assert.Equal(t, "records.test", mock.topic)
		require.Len(t, mock.messages, 1)
		assert.JSONEq(t, `{"id":7,"owner":"georgia"}`, string(mock.messages[0].Payload))
		assert.NotEmpty(t, mock.messages[0].UUID)
	})

	t.Run("copies request id into metadata", func(t *testing.T) {
		mock := &mockPublisher{}
		publish := messaging.NewPublishFunc[publishTestEvent](mock, "records.test")
		ctx := messaging.ContextWithRequestID(context.Background(), "req-42")

		require.NoError(t, publish(ctx, &publishTestEvent{ID: 1}))

		assert.Equal(t, "req-42", mock.messages[0].Metadata.Get(messaging.MetadataRequestID))
	})

	t.Run("leaves metadata empty without request id", func(t *testing.T) {
		mock := &mockPublisher{}
		publish := messaging.NewPublishFunc[publishTestEvent](mock, "records.test")

		require.NoError(t, publish(context.Background(), &publishTestEvent{ID: 1}))

		assert.Empty(t, mock.messages[0].Metadata.Get(messaging.MetadataRequestID))
	})

	t.Run("returns error when publish fails", func(t *testing.T) {
		mock := &mockPublisher{publishErr: errors.New("stream unavailable")}
		publish := messaging.NewPublishFunc[publishTestEvent](mock, "records.test")

		err := publish(context.Background(), &publishTestEvent{ID: 1})

		assert.EqualError(t, err, "stream unavailable")
	})
}

func TestRequestIDFromContext(t *testing.T) {
	assert.Empty(t, messaging.RequestIDFromContext(context.Background()))
	assert.Equal(t, "abc", messaging.RequestIDFromContext(
		messaging.ContextWithRequestID(context.Background(), "abc")))
}

func TestDiscard(t *testing.T) {
	publish := messaging.NewPublishFunc[publishTestEvent](messaging.Discard{}, "records.test")

	require.NoError(t, publish(context.Background(), &publishTestEvent{ID: 1}))
	require.NoError(t, messaging.Discard{}.Close())
}

func TestPublisherGroup(t *testing.T) {
	t.Run("returns underlying publisher", func(t *testing.T) {
		mock := &mockPublisher{}
		group := messaging.NewPublisherGroup(mock)

		assert.Equal(t, mock, group.Publisher())
	})

	t.Run("closes publisher on shutdown", func(t *testing.T) {
		mock := &mockPublisher{}
		group := messaging.NewPublisherGroup(mock)

		require.NoError(t, group.Shutdown())
		assert.Equal(t, 1, mock.closes)
	})

	t.Run("returns error when close fails", func(t *testing.T) {
		mock := &mockPublisher{closeErr: errors.New("close error")}
		group := messaging.NewPublisherGroup(mock)

		assert.Error(t, group.Shutdown())
	})
}
