// Package config groups the transport, middleware, and policy settings used
// by the worker service and the rule table.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Names of the policy parameters resolved into triggers by the rule table.
const (
	ParamTitleSimilarityWindow       = "TITLE_SIMILARITY_WINDOW"
	ParamTitleSimilarityThreshold    = "TITLE_SIMILARITY_THRESHOLD"
	ParamMetadataASCIIThreshold      = "METADATA_ASCII_THRESHOLD"
	ParamLowStop                     = "LOW_STOP"
	ParamLowStopPercent              = "LOW_STOP_PERCENT"
	ParamUncompressedPackageMax      = "UNCOMPRESSED_PACKAGE_MAX"
	ParamCompressedPackageMax        = "COMPRESSED_PACKAGE_MAX"
	ParamPDFLimit                    = "PDF_LIMIT"
	ParamNoReclassifyCategories      = "NO_RECLASSIFY_CATEGORIES"
	ParamNoReclassifyArchives        = "NO_RECLASSIFY_ARCHIVES"
	ParamReclassifyProposalThreshold = "RECLASSIFY_PROPOSAL_THRESHOLD"
	ParamAutoCrossForPrimary         = "AUTO_CROSS_FOR_PRIMARY"
)

// Config carries everything the agent needs at startup. Each transport only
// uses the keys relevant to it.
type Config struct {
	// PubSubSystem selects the backing message infrastructure for the
	// queue-backed runner: "channel", "kafka", "rabbitmq", "nats", or "http".
	PubSubSystem string `env:"AGENT_PUBSUB_SYSTEM" envDefault:"channel"`

	// Kafka configuration.
	KafkaBrokers       []string `env:"AGENT_KAFKA_BROKERS"`
	KafkaConsumerGroup string   `env:"AGENT_KAFKA_CONSUMER_GROUP" envDefault:"agentflow-worker"`

	// RabbitMQ configuration.
	RabbitMQURL string `env:"AGENT_RABBITMQ_URL"`

	// NATS configuration.
	NATSURL string `env:"AGENT_NATS_URL"`

	// HTTP configuration.
	HTTPServerAddress string `env:"AGENT_HTTP_SERVER_ADDRESS"`
	HTTPPublisherURL  string `env:"AGENT_HTTP_PUBLISHER_URL"`

	// PoisonQueue receives task messages that cannot be decoded at all.
	PoisonQueue string `env:"AGENT_POISON_QUEUE" envDefault:"agentflow.poison"`

	// Retry middleware tuning for transport-level redelivery. Zero values
	// fall back to library defaults. Step-level retrying is configured per
	// step and is independent of these.
	RetryMaxRetries      int           `env:"AGENT_RETRY_MAX_RETRIES"`
	RetryInitialInterval time.Duration `env:"AGENT_RETRY_INITIAL_INTERVAL"`
	RetryMaxInterval     time.Duration `env:"AGENT_RETRY_MAX_INTERVAL"`

	// Metrics configuration.
	MetricsEnabled bool `env:"AGENT_METRICS_ENABLED"`
	MetricsPort    int  `env:"AGENT_METRICS_PORT" envDefault:"9090"`

	// SQLiteFile is the event store database path. ":memory:" keeps the
	// store in memory, which is useful for tests.
	SQLiteFile string `env:"AGENT_SQLITE_FILE"`

	// Policy parameters consumed by the rule table. Carried forward from
	// the legacy moderation system.
	TitleSimilarityWindowDays   float64  `env:"AGENT_TITLE_SIMILARITY_WINDOW_DAYS" envDefault:"91.25"`
	TitleSimilarityThreshold    float64  `env:"AGENT_TITLE_SIMILARITY_THRESHOLD" envDefault:"0.7"`
	MetadataASCIIThreshold      float64  `env:"AGENT_METADATA_ASCII_THRESHOLD" envDefault:"0.5"`
	LowStopThreshold            int      `env:"AGENT_LOW_STOP" envDefault:"400"`
	LowStopPercentThreshold     float64  `env:"AGENT_LOW_STOP_PERCENT" envDefault:"0.10"`
	UncompressedPackageMaxBytes int64    `env:"AGENT_UNCOMPRESSED_PACKAGE_MAX_BYTES" envDefault:"18000000"`
	CompressedPackageMaxBytes   int64    `env:"AGENT_COMPRESSED_PACKAGE_MAX_BYTES" envDefault:"6000000"`
	PDFLimitBytes               int64    `env:"AGENT_PDF_LIMIT_BYTES" envDefault:"15000000"`
	NoReclassifyCategories      []string `env:"AGENT_NO_RECLASSIFY_CATEGORIES" envDefault:"cs.CE"`
	NoReclassifyArchives        []string `env:"AGENT_NO_RECLASSIFY_ARCHIVES" envDefault:"econ"`
	ReclassifyProposalThreshold float64  `env:"AGENT_RECLASSIFY_PROPOSAL_THRESHOLD" envDefault:"0.57"`
	AutoCrossForPrimary         map[string]string
}

// FromEnv loads configuration from the process environment.
func FromEnv() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

// Default returns a configuration suitable for in-process use and tests.
func Default() *Config {
	cfg := &Config{
		PubSubSystem:                "channel",
		KafkaConsumerGroup:          "agentflow-worker",
		PoisonQueue:                 "agentflow.poison",
		MetricsPort:                 9090,
		TitleSimilarityWindowDays:   3 * 365.0 / 12,
		TitleSimilarityThreshold:    0.7,
		MetadataASCIIThreshold:      0.5,
		LowStopThreshold:            400,
		LowStopPercentThreshold:     0.10,
		UncompressedPackageMaxBytes: 18_000_000,
		CompressedPackageMaxBytes:   6_000_000,
		PDFLimitBytes:               15_000_000,
		NoReclassifyCategories:      []string{"cs.CE"},
		NoReclassifyArchives:        []string{"econ"},
		ReclassifyProposalThreshold: 0.57,
	}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.AutoCrossForPrimary == nil {
		// When these categories are the primary, the corresponding cross is
		// proposed automatically.
		c.AutoCrossForPrimary = map[string]string{
			"cs.LG":   "stat.ML",
			"stat.ML": "cs.LG",
		}
	}
}

// Param returns a policy parameter by the name the rule table uses.
func (c *Config) Param(key string) any {
	switch key {
	case ParamTitleSimilarityWindow:
		return c.TitleSimilarityWindowDays
	case ParamTitleSimilarityThreshold:
		return c.TitleSimilarityThreshold
	case ParamMetadataASCIIThreshold:
		return c.MetadataASCIIThreshold
	case ParamLowStop:
		return c.LowStopThreshold
	case ParamLowStopPercent:
		return c.LowStopPercentThreshold
	case ParamUncompressedPackageMax:
		return c.UncompressedPackageMaxBytes
	case ParamCompressedPackageMax:
		return c.CompressedPackageMaxBytes
	case ParamPDFLimit:
		return c.PDFLimitBytes
	case ParamNoReclassifyCategories:
		return c.NoReclassifyCategories
	case ParamNoReclassifyArchives:
		return c.NoReclassifyArchives
	case ParamReclassifyProposalThreshold:
		return c.ReclassifyProposalThreshold
	case ParamAutoCrossForPrimary:
		return c.AutoCrossForPrimary
	}
	return nil
}

func (c Config) String() string {
	// Redact credentials that may be embedded in connection URLs.
	copy := c
	if copy.RabbitMQURL != "" {
		copy.RabbitMQURL = redactURLCredentials(copy.RabbitMQURL)
	}
	if copy.NATSURL != "" {
		copy.NATSURL = redactURLCredentials(copy.NATSURL)
	}
	type configAlias Config
	return fmt.Sprintf("%+v", configAlias(copy))
}

func redactURLCredentials(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "***REDACTED_URL***"
	}
	if parsed.User != nil {
		if _, hasPassword := parsed.User.Password(); hasPassword {
			parsed.User = url.UserPassword(parsed.User.Username(), "***REDACTED***")
		}
	}
	return parsed.String()
}

// Validate checks that the configuration has all required fields for the
// selected transport.
func (c *Config) Validate() error {
	var errs []error

	switch strings.ToLower(c.PubSubSystem) {
	case "kafka":
		if len(c.KafkaBrokers) == 0 {
			errs = append(errs, errors.New("kafka: brokers are required"))
		}
	case "rabbitmq":
		if c.RabbitMQURL == "" {
			errs = append(errs, errors.New("rabbitmq: URL is required"))
		}
	case "nats":
		if c.NATSURL == "" {
			errs = append(errs, errors.New("nats: URL is required"))
		}
	case "http":
		if c.HTTPPublisherURL == "" {
			errs = append(errs, errors.New("http: publisher URL is required"))
		}
	}

	if c.RetryMaxRetries < 0 {
		errs = append(errs, errors.New("retry: max retries cannot be negative"))
	}
	if c.RetryInitialInterval < 0 {
		errs = append(errs, errors.New("retry: initial interval cannot be negative"))
	}
	if c.RetryMaxInterval > 0 && c.RetryInitialInterval > c.RetryMaxInterval {
		errs = append(errs, errors.New("retry: initial interval cannot exceed max interval"))
	}
	if c.MetricsPort < 0 || c.MetricsPort > 65535 {
		errs = append(errs, fmt.Errorf("metrics: invalid port %d", c.MetricsPort))
	}
	if c.TitleSimilarityThreshold < 0 || c.TitleSimilarityThreshold > 1 {
		errs = append(errs, errors.New("policy: title similarity threshold must be in [0,1]"))
	}
	if c.MetadataASCIIThreshold < 0 || c.MetadataASCIIThreshold > 1 {
		errs = append(errs, errors.New("policy: metadata ascii threshold must be in [0,1]"))
	}

	return errors.Join(errs...)
}
