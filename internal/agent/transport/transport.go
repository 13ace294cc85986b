// Package transport builds the watermill publisher/subscriber pair backing
// the queue runner, selected by configuration.
package transport

import (
	"context"
	"fmt"
	"strings"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/drblury/agentflow/internal/agent/config"
)

// Transport combines a publisher and subscriber pair produced by a factory.
type Transport struct {
	Publisher  message.Publisher
	Subscriber message.Subscriber
}

// Factory abstracts how the worker initialises message transports. Tests
// inject a factory returning an in-memory pair.
type Factory interface {
	Build(ctx context.Context, conf *config.Config, logger watermill.LoggerAdapter) (Transport, error)
}

// FactoryFunc adapts a function to the Factory interface.
type FactoryFunc func(ctx context.Context, conf *config.Config, logger watermill.LoggerAdapter) (Transport, error)

func (f FactoryFunc) Build(ctx context.Context, conf *config.Config, logger watermill.LoggerAdapter) (Transport, error) {
	return f(ctx, conf, logger)
}

// DefaultFactory returns the built-in factory covering the supported
// transports.
func DefaultFactory() Factory {
	return defaultFactory{}
}

type defaultFactory struct{}

func (defaultFactory) Build(_ context.Context, conf *config.Config, logger watermill.LoggerAdapter) (Transport, error) {
	if conf == nil {
		return Transport{}, fmt.Errorf("config is required")
	}

	switch strings.ToLower(conf.PubSubSystem) {
	case "", "channel":
		return channelTransport(conf, logger)
	case "kafka":
		return kafkaTransport(conf, logger)
	case "rabbitmq":
		return rabbitTransport(conf, logger)
	case "nats":
		return natsTransport(conf, logger)
	case "http":
		return httpTransport(conf, logger)
	}
	return Transport{}, fmt.Errorf("unknown pubsub system: %q", conf.PubSubSystem)
}
