package container

import (
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/pkg/errors"
	"github.com/samber/do"
	"github.com/serroba/rowquota/internal/messaging"
	"github.com/serroba/rowquota/internal/usage"
	"go.uber.org/zap"
)

const usageConsumerGroup = "rowquota-usage"

// PublisherGroupPackage provides the publisher group and the typed usage
// publish function. With analytics disabled events are discarded.
func PublisherGroupPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*messaging.PublisherGroup, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)

		if !opts.Analytics {
			logger.Info("usage events disabled")

			return messaging.NewPublisherGroup(messaging.Discard{}), nil
		}

		client := do.MustInvoke[*RedisClient](i)

		publisher, err := redisstream.NewPublisher(
			redisstream.PublisherConfig{Client: client.Client},
			messaging.NewZapLogger(logger),
		)
		if err != nil {
			return nil, errors.WithMessage(err, "create redis stream publisher")
		}

		return messaging.NewPublisherGroup(publisher), nil
	})

	do.Provide(injector, func(i *do.Injector) (messaging.Publish[usage.ListedEvent], error) {
		group := do.MustInvoke[*messaging.PublisherGroup](i)

		return messaging.NewPublishFunc[usage.ListedEvent](group.Publisher(), usage.TopicRecordsListed), nil
	})
}

// ConsumerGroupPackage provides the consumer group that logs usage events.
func ConsumerGroupPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*messaging.ConsumerGroup, error) {
		logger := do.MustInvoke[*zap.Logger](i)
		client := do.MustInvoke[*RedisClient](i)

		subscriber, err := redisstream.NewSubscriber(
			redisstream.SubscriberConfig{
				Client:        client.Client,
				ConsumerGroup: usageConsumerGroup,
			},
			messaging.NewZapLogger(logger),
		)
		if err != nil {
			return nil, errors.WithMessage(err, "create redis stream subscriber")
		}

		group := messaging.NewConsumerGroup(subscriber, logger)
		group.Add(usage.NewListedConsumer(subscriber, usage.NewLogStore(logger), logger))

		return group, nil
	})
}
