package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	configpkg "github.com/drblury/agentflow/internal/agent/config"
	loggingpkg "github.com/drblury/agentflow/internal/agent/logging"
	transportpkg "github.com/drblury/agentflow/internal/agent/transport"
)

func newChannelService(t *testing.T, deps ServiceDependencies) *Service {
	t.Helper()
	svc, err := NewService(context.Background(), configpkg.Default(), loggingpkg.Nop(), deps)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestNewService(t *testing.T) {
	t.Parallel()

	t.Run("builds the channel transport by default", func(t *testing.T) {
		svc := newChannelService(t, ServiceDependencies{})
		if svc.Publisher() == nil {
			t.Fatal("expected publisher")
		}
		if svc.subscriber == nil {
			t.Fatal("expected subscriber")
		}
	})

	t.Run("uses the injected transport factory", func(t *testing.T) {
		built := false
		factory := transportpkg.FactoryFunc(func(_ context.Context, _ *configpkg.Config, _ watermill.LoggerAdapter) (transportpkg.Transport, error) {
			built = true
			return transportpkg.Transport{Publisher: nopPublisher{}}, nil
		})
		svc := newChannelService(t, ServiceDependencies{TransportFactory: factory})
		if !built {
			t.Fatal("expected factory to be invoked")
		}
		if _, ok := svc.Publisher().(nopPublisher); !ok {
			t.Fatalf("unexpected publisher %T", svc.Publisher())
		}
	})

	t.Run("transport failures propagate", func(t *testing.T) {
		factory := transportpkg.FactoryFunc(func(context.Context, *configpkg.Config, watermill.LoggerAdapter) (transportpkg.Transport, error) {
			return transportpkg.Transport{}, errors.New("broker unreachable")
		})
		_, err := NewService(context.Background(), configpkg.Default(), loggingpkg.Nop(), ServiceDependencies{TransportFactory: factory})
		if err == nil {
			t.Fatal("expected transport error")
		}
	})

	t.Run("extra middlewares are registered", func(t *testing.T) {
		registered := false
		deps := ServiceDependencies{
			Middlewares: []MiddlewareRegistration{{
				Name: "probe",
				Builder: func(*Service) (message.HandlerMiddleware, error) {
					registered = true
					return func(h message.HandlerFunc) message.HandlerFunc { return h }, nil
				},
			}},
		}
		newChannelService(t, deps)
		if !registered {
			t.Fatal("expected middleware to be registered")
		}
	})

	t.Run("broken middleware fails construction", func(t *testing.T) {
		deps := ServiceDependencies{
			DisableDefaultMiddlewares: true,
			Middlewares: []MiddlewareRegistration{{
				Name: "broken",
				Builder: func(*Service) (message.HandlerMiddleware, error) {
					return nil, errors.New("no good")
				},
			}},
		}
		_, err := NewService(context.Background(), configpkg.Default(), loggingpkg.Nop(), deps)
		if err == nil {
			t.Fatal("expected middleware error")
		}
	})
}

func TestServiceAddHandler(t *testing.T) {
	t.Parallel()

	svc := newChannelService(t, ServiceDependencies{DisableDefaultMiddlewares: true})

	handler := func(*message.Message) error { return nil }
	if err := svc.AddHandler("tasks", "agentflow.process.Check.run", handler); err != nil {
		t.Fatalf("AddHandler: %v", err)
	}

	if err := svc.AddHandler("", "topic", handler); err == nil {
		t.Fatal("expected error for missing name")
	}
	if err := svc.AddHandler("tasks", "", handler); err == nil {
		t.Fatal("expected error for missing topic")
	}

	var missing *Service
	if err := missing.AddHandler("tasks", "topic", handler); err == nil {
		t.Fatal("expected error for nil service")
	}
}
