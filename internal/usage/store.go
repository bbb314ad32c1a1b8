package usage

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/serroba/rowquota/internal/messaging"
	"go.uber.org/zap"
)

// Store persists usage events.
type Store interface {
	SaveListed(ctx context.Context, event *ListedEvent) error
}

// LogStore writes usage events to the log instead of a database.
type LogStore struct {
	logger *zap.Logger
}

// NewLogStore creates a store that logs every event at info level.
func NewLogStore(logger *zap.Logger) *LogStore {
	return &LogStore{logger: logger}
}

func (s *LogStore) SaveListed(ctx context.Context, event *ListedEvent) error {
	fields := []zap.Field{
		zap.String("key", event.KeyFingerprint),
		zap.Bool("unlimited", event.Unlimited),
		zap.Int("total", event.Total),
		zap.Int("returned", event.Returned),
		zap.Bool("truncated", event.Truncated()),
		zap.String("clientIp", event.ClientIP),
		zap.Time("listedAt", event.ListedAt),
	}
	if !event.Unlimited {
		fields = append(fields, zap.Int("limit", event.Limit))
	}

	if id := messaging.RequestIDFromContext(ctx); id != "" {
		fields = append(fields, zap.String("request_id", id))
	}

	s.logger.Info("records listed", fields...)

	return nil
}

// NewListedConsumer subscribes store to the records listed topic.
func NewListedConsumer(
	subscriber message.Subscriber,
	store Store,
	logger *zap.Logger,
) *messaging.Consumer[ListedEvent] {
	return messaging.NewConsumer(subscriber, TopicRecordsListed, store.SaveListed, logger)
}
