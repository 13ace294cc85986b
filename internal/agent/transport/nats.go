package transport

import (
	"time"

	"github.com/ThreeDotsLabs/watermill"
	watermillnats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/nats-io/nats.go"

	"github.com/drblury/agentflow/internal/agent/config"
)

var (
	NATSPublisherFactory = func(cfg watermillnats.PublisherConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
		return watermillnats.NewPublisher(cfg, logger)
	}
	NATSSubscriberFactory = func(cfg watermillnats.SubscriberConfig, logger watermill.LoggerAdapter) (message.Subscriber, error) {
		return watermillnats.NewSubscriber(cfg, logger)
	}
)

func natsTransport(conf *config.Config, logger watermill.LoggerAdapter) (Transport, error) {
	marshaler := &watermillnats.NATSMarshaler{}
	options := []nats.Option{
		nats.RetryOnFailedConnect(true),
		nats.ReconnectWait(time.Second),
		nats.Timeout(5 * time.Second),
	}

	publisher, err := NATSPublisherFactory(
		watermillnats.PublisherConfig{
			URL:         conf.NATSURL,
			Marshaler:   marshaler,
			NatsOptions: options,
		},
		logger,
	)
	if err != nil {
		return Transport{}, err
	}

	subscriber, err := NATSSubscriberFactory(
		watermillnats.SubscriberConfig{
			URL:         conf.NATSURL,
			Unmarshaler: marshaler,
			NatsOptions: options,
		},
		logger,
	)
	if err != nil {
		return Transport{}, err
	}

	return Transport{
		Publisher:  publisher,
		Subscriber: subscriber,
	}, nil
}
