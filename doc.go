// Package agentflow is a rule-driven process engine for submission
// workflows built on Watermill. Domain events applied to a submission are
// matched against a rule registry; each matching rule starts a named,
// multi-step process whose step results, retries, and status history are
// tracked per process instance. Processes run either synchronously in the
// caller's goroutine or asynchronously as chained queue tasks, one topic per
// step, with identical ordering and failure semantics in both modes.
//
// The worker Service reads the target transport (Kafka, RabbitMQ, NATS,
// HTTP, or Go channels) from Config, bootstraps the Watermill router, and
// registers the default middleware chain for correlation IDs, logging,
// tracing, metrics, poison queue forwarding, and panic recovery. A minimal
// asynchronous setup fills Config, creates a Service, prepares each process
// definition on an AsyncRunner, and wires a Dispatcher in front of the event
// store; the synchronous Runner needs only a Store.
//
// # Processes
//
// A process is an immutable ordered list of named steps built with Define or
// Extend. Steps receive the previous step's result and the triggering event
// with its before and after submission snapshots, return a result consumed
// by the next step, and may emit further domain events. Each step carries a
// retry policy with exponential backoff and jitter; errors are classified as
// terminal failures, recoverable errors, or explicit retry signals.
//
// # Rules
//
// Rules bind an event kind plus an optional condition to a process
// definition. StandardRules registers the built-in bindings: content
// classification on preview confirmation, stopword checks on feature events,
// title and abstract checks on metadata events, source and PDF size limits,
// reclassification proposals, and confirmation email on finalization.
//
// # Middleware
//
// The default middleware chain includes correlation ID injection, structured
// logging, OpenTelemetry tracing, Prometheus metrics, poison queue
// forwarding, and panic recovery. Custom middleware can be added via
// ServiceDependencies.Middlewares.
package agentflow
