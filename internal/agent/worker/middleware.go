package worker

import (
	"errors"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/components/metrics"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	idspkg "github.com/drblury/agentflow/internal/agent/ids"
	loggingpkg "github.com/drblury/agentflow/internal/agent/logging"
	metadatapkg "github.com/drblury/agentflow/internal/agent/metadata"
)

// MiddlewareBuilder constructs a handler middleware using the service
// instance.
type MiddlewareBuilder func(*Service) (message.HandlerMiddleware, error)

// MiddlewareRegistration captures how a middleware should be registered on a
// Service router.
type MiddlewareRegistration struct {
	Name       string
	Middleware message.HandlerMiddleware
	Builder    MiddlewareBuilder
}

// RetryMiddlewareConfig customises the transport-level retry middleware.
// Step-level retrying is scheduled by the runner and is independent of this.
type RetryMiddlewareConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	RetryIf         func(error) bool
}

func (cfg RetryMiddlewareConfig) withDefaults() RetryMiddlewareConfig {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 5
	}
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = time.Second
	}
	if cfg.MaxInterval <= 0 {
		cfg.MaxInterval = 16 * time.Second
	}
	return cfg
}

// DefaultMiddlewares returns the standard middleware chain used by the
// Service constructor.
func DefaultMiddlewares() []MiddlewareRegistration {
	return []MiddlewareRegistration{
		CorrelationIDMiddleware(),
		LogMessagesMiddleware(nil),
		TracerMiddleware(),
		MetricsMiddleware(),
		RetryMiddleware(RetryMiddlewareConfig{}),
		PoisonQueueMiddleware(nil),
		RecovererMiddleware(),
	}
}

// CorrelationIDMiddleware ensures each processed message carries a
// correlation identifier.
func CorrelationIDMiddleware() MiddlewareRegistration {
	return MiddlewareRegistration{
		Name: "correlation_id",
		Middleware: func(h message.HandlerFunc) message.HandlerFunc {
			return func(msg *message.Message) ([]*message.Message, error) {
				if _, ok := msg.Metadata[metadatapkg.KeyCorrelationID]; !ok {
					msg.Metadata[metadatapkg.KeyCorrelationID] = idspkg.CreateULID()
				}
				return h(msg)
			}
		},
	}
}

// LogMessagesMiddleware logs the payload and metadata of handled messages.
func LogMessagesMiddleware(logger loggingpkg.ServiceLogger) MiddlewareRegistration {
	return MiddlewareRegistration{
		Name: "log_messages",
		Builder: func(s *Service) (message.HandlerMiddleware, error) {
			l := logger
			if l == nil {
				l = s.Logger
			}
			if l == nil {
				return nil, errors.New("log messages middleware requires a logger")
			}
			return func(h message.HandlerFunc) message.HandlerFunc {
				return func(msg *message.Message) ([]*message.Message, error) {
					l.Debug("Processing message", loggingpkg.LogFields{
						"message_uuid": msg.UUID,
						"payload":      string(msg.Payload),
						"metadata":     msg.Metadata,
					})
					return h(msg)
				}
			}, nil
		},
	}
}

// TracerMiddleware wraps handler execution in an OpenTelemetry span.
func TracerMiddleware() MiddlewareRegistration {
	return MiddlewareRegistration{
		Name: "tracer",
		Middleware: func(h message.HandlerFunc) message.HandlerFunc {
			return func(msg *message.Message) ([]*message.Message, error) {
				tracer := otel.Tracer("agentflow-worker-tracer")
				ctx, span := tracer.Start(msg.Context(), "ProcessTask")
				defer span.End()
				msg.SetContext(ctx)

				span.SetAttributes(
					attribute.String("message.uuid", msg.UUID),
					attribute.String("process.id", msg.Metadata[metadatapkg.KeyProcessID]),
					attribute.String("process.type", msg.Metadata[metadatapkg.KeyProcessType]),
					attribute.String("process.step", msg.Metadata[metadatapkg.KeyStepName]),
				)
				return h(msg)
			}
		},
	}
}

// MetricsMiddleware adds Prometheus router metrics and mounts the metrics
// endpoint when enabled.
func MetricsMiddleware() MiddlewareRegistration {
	return MiddlewareRegistration{
		Name: "metrics",
		Builder: func(s *Service) (message.HandlerMiddleware, error) {
			if !s.Conf.MetricsEnabled {
				return nil, nil
			}

			metricsBuilder := metrics.NewPrometheusMetricsBuilder(
				prometheus.DefaultRegisterer,
				"agentflow",
				s.Conf.PubSubSystem,
			)

			metricsBuilder.AddPrometheusRouterMetrics(s.router)

			if s.Conf.MetricsPort > 0 {
				s.RegisterHTTPHandler(s.Conf.MetricsPort, "/metrics", promhttp.Handler())
			}

			return metricsBuilder.NewRouterMiddleware().Middleware, nil
		},
	}
}

// RetryMiddleware retries handler execution with exponential backoff. Zero
// fields fall back to the service configuration, then to built-in defaults.
func RetryMiddleware(cfg RetryMiddlewareConfig) MiddlewareRegistration {
	return MiddlewareRegistration{
		Name: "retry",
		Builder: func(s *Service) (message.HandlerMiddleware, error) {
			normalized := cfg
			if s.Conf != nil {
				if normalized.MaxRetries <= 0 {
					normalized.MaxRetries = s.Conf.RetryMaxRetries
				}
				if normalized.InitialInterval <= 0 {
					normalized.InitialInterval = s.Conf.RetryInitialInterval
				}
				if normalized.MaxInterval <= 0 {
					normalized.MaxInterval = s.Conf.RetryMaxInterval
				}
			}
			normalized = normalized.withDefaults()
			return middleware.Retry{
				MaxRetries:      normalized.MaxRetries,
				InitialInterval: normalized.InitialInterval,
				MaxInterval:     normalized.MaxInterval,
				ShouldRetry: func(params middleware.RetryParams) bool {
					if normalized.RetryIf != nil {
						return normalized.RetryIf(params.Err)
					}
					return true
				},
			}.Middleware, nil
		},
	}
}

// UnprocessableTaskError wraps task payloads that cannot be decoded at all.
// The poison queue filter matches it so broken envelopes are parked instead
// of redelivered forever.
type UnprocessableTaskError struct {
	Payload string
	Err     error
}

func (e *UnprocessableTaskError) Error() string {
	return fmt.Sprintf("unprocessable task: %s error: %v", e.Payload, e.Err)
}

func (e *UnprocessableTaskError) Unwrap() error { return e.Err }

// PoisonQueueMiddleware publishes messages matching the filter to the
// configured poison queue. The default filter matches only undecodable
// envelopes.
func PoisonQueueMiddleware(filter func(error) bool) MiddlewareRegistration {
	return MiddlewareRegistration{
		Name: "poison_queue",
		Builder: func(s *Service) (message.HandlerMiddleware, error) {
			if s.Conf == nil {
				return nil, errors.New("service config is required for poison queue middleware")
			}
			if s.publisher == nil {
				return nil, errors.New("publisher is required for poison queue middleware")
			}

			f := filter
			if f == nil {
				f = func(err error) bool {
					var unprocessable *UnprocessableTaskError
					return errors.As(err, &unprocessable)
				}
			}

			return middleware.PoisonQueueWithFilter(s.publisher, s.Conf.PoisonQueue, f)
		},
	}
}

// RecovererMiddleware converts panics into handler errors so they can be
// retried or parked.
func RecovererMiddleware() MiddlewareRegistration {
	return MiddlewareRegistration{
		Name:       "recoverer",
		Middleware: middleware.Recoverer,
	}
}

// RegisterMiddleware attaches the supplied middleware to the router.
func (s *Service) RegisterMiddleware(cfg MiddlewareRegistration) error {
	if s.router == nil {
		return errors.New("router is not initialised")
	}

	var mw message.HandlerMiddleware
	switch {
	case cfg.Middleware != nil:
		mw = cfg.Middleware
	case cfg.Builder != nil:
		var err error
		mw, err = cfg.Builder(s)
		if err != nil {
			return err
		}
	default:
		return errors.New("middleware registration requires Middleware or Builder")
	}

	if mw == nil {
		return nil
	}

	s.router.AddMiddleware(mw)
	return nil
}
