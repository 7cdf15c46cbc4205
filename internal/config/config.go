package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	"dqpipe/pkg/contracts/domain"
)

// hardMaxAttempts is the safety ceiling on notification attempts. No
// configuration may exceed it.
const hardMaxAttempts = 10

// Config is the complete configuration for one pipeline deployment.
// It is constructed once at startup, validated, and passed by value
// into each component; no component reads the environment afterwards,
// so independent runs cannot interfere with each other.
type Config struct {
	Logging  LoggingConfig  `yaml:"logging" envconfig:"LOGGING"`
	Paths    PathsConfig    `yaml:"paths" envconfig:"PATHS"`
	Server   ServerConfig   `yaml:"server" envconfig:"SERVER"`
	Pipeline PipelineConfig `yaml:"pipeline" envconfig:"PIPELINE"`
	Notify   NotifyConfig   `yaml:"notify" envconfig:"NOTIFY"`

	Schema     domain.ExpectedSchema `yaml:"schema"`
	Rules      []domain.FieldRule    `yaml:"rules" validate:"required,min=1,dive"`
	Aliases    map[string][]string   `yaml:"aliases"`
	Thresholds domain.Thresholds     `yaml:"thresholds"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn error"`
	Output   string `yaml:"output" envconfig:"OUTPUT" validate:"oneof=stdout file both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// PathsConfig contains file system paths for run artifacts.
type PathsConfig struct {
	DataDir    string `yaml:"data_dir" envconfig:"DATA_DIR"`
	ReportsDir string `yaml:"reports_dir" envconfig:"REPORTS_DIR"`
	CleanedDir string `yaml:"cleaned_dir" envconfig:"CLEANED_DIR"`
	LogsDir    string `yaml:"logs_dir" envconfig:"LOGS_DIR"`
}

// ServerConfig contains the HTTP service mode configuration.
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" validate:"gt=0,lt=65536"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
}

// PipelineConfig tunes run execution. ChunkSize bounds memory, never
// correctness: the drop ledger is identical for any chunk size. Dedupe
// drops exact repeats of an already seen row before validation.
type PipelineConfig struct {
	ChunkSize  int           `yaml:"chunk_size" envconfig:"CHUNK_SIZE" validate:"gt=0"`
	Workers    int           `yaml:"workers" envconfig:"WORKERS" validate:"gt=0"`
	Dedupe     bool          `yaml:"dedupe" envconfig:"DEDUPE"`
	RunTimeout time.Duration `yaml:"run_timeout" envconfig:"RUN_TIMEOUT" validate:"gt=0"`
}

// RetryConfig defines the bounded backoff schedule for delivery.
type RetryConfig struct {
	MaxAttempts  int           `yaml:"max_attempts" envconfig:"MAX_ATTEMPTS" validate:"gt=0"`
	InitialDelay time.Duration `yaml:"initial_delay" envconfig:"INITIAL_DELAY" validate:"gt=0"`
	MaxDelay     time.Duration `yaml:"max_delay" envconfig:"MAX_DELAY" validate:"gt=0"`
	Multiplier   float64       `yaml:"multiplier" envconfig:"MULTIPLIER" validate:"gte=1"`
}

// SMTPConfig configures the email transport.
type SMTPConfig struct {
	Host     string `yaml:"host" envconfig:"HOST"`
	Port     int    `yaml:"port" envconfig:"PORT"`
	Username string `yaml:"username" envconfig:"USERNAME"`
	Password string `yaml:"password" envconfig:"PASSWORD"`
	Sender   string `yaml:"sender" envconfig:"SENDER"`
}

// WebhookConfig configures the webhook transport.
type WebhookConfig struct {
	URL           string  `yaml:"url" envconfig:"URL"`
	RatePerSecond float64 `yaml:"rate_per_second" envconfig:"RATE_PER_SECOND"`
}

// NotifyConfig controls notification dispatch for quality reports and
// operator failure alerts.
type NotifyConfig struct {
	Recipient      string        `yaml:"recipient" envconfig:"RECIPIENT"`
	MinSeverity    string        `yaml:"min_severity" envconfig:"MIN_SEVERITY" validate:"oneof=LOW MEDIUM HIGH"`
	DryRun         bool          `yaml:"dry_run" envconfig:"DRY_RUN"`
	Primary        string        `yaml:"primary" envconfig:"PRIMARY" validate:"oneof=email webhook"`
	Fallback       string        `yaml:"fallback" envconfig:"FALLBACK" validate:"omitempty,oneof=email webhook"`
	AttemptTimeout time.Duration `yaml:"attempt_timeout" envconfig:"ATTEMPT_TIMEOUT" validate:"gt=0"`
	Retry          RetryConfig   `yaml:"retry" envconfig:"RETRY"`
	SMTP           SMTPConfig    `yaml:"smtp" envconfig:"SMTP"`
	Webhook        WebhookConfig `yaml:"webhook" envconfig:"WEBHOOK"`
	AlertWebhook   string        `yaml:"alert_webhook" envconfig:"ALERT_WEBHOOK"`
	AlertEmail     string        `yaml:"alert_email" envconfig:"ALERT_EMAIL"`
	ClientName     string        `yaml:"client_name" envconfig:"CLIENT_NAME"`
}

// Default returns the configuration defaults applied before any file
// or environment override.
func Default() Config {
	return Config{
		Logging: LoggingConfig{
			Level:    "info",
			Output:   "both",
			FilePath: "logs/app.log",
		},
		Paths: PathsConfig{
			DataDir:    "data",
			ReportsDir: "data/reports",
			CleanedDir: "data/processed",
			LogsDir:    "logs",
		},
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Pipeline: PipelineConfig{
			ChunkSize:  500,
			Workers:    4,
			Dedupe:     true,
			RunTimeout: 30 * time.Minute,
		},
		Notify: NotifyConfig{
			MinSeverity:    "MEDIUM",
			Primary:        "email",
			AttemptTimeout: 30 * time.Second,
			Retry: RetryConfig{
				MaxAttempts:  3,
				InitialDelay: 1 * time.Second,
				MaxDelay:     30 * time.Second,
				Multiplier:   2.0,
			},
			Webhook: WebhookConfig{RatePerSecond: 1},
			SMTP:    SMTPConfig{Port: 587},
		},
		Thresholds: domain.Thresholds{
			DropRateMedium: 0.10,
			DropRateHigh:   0.30,
		},
	}
}

// Load builds the configuration: defaults, then the YAML file (if
// given), then DQ_* environment variables, then validation.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := envconfig.Process("DQ", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// Validate checks structural tags and the cross-field rules the tags
// cannot express.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}

	if len(c.Schema.Required) == 0 {
		return fmt.Errorf("schema must declare at least one required column")
	}
	if c.Thresholds.DropRateMedium > c.Thresholds.DropRateHigh {
		return fmt.Errorf("drop_rate_medium (%v) must not exceed drop_rate_high (%v)",
			c.Thresholds.DropRateMedium, c.Thresholds.DropRateHigh)
	}
	if c.Notify.Retry.MaxAttempts > hardMaxAttempts {
		return fmt.Errorf("notify retry max_attempts %d exceeds hard ceiling %d",
			c.Notify.Retry.MaxAttempts, hardMaxAttempts)
	}
	if c.Notify.Retry.InitialDelay > c.Notify.Retry.MaxDelay {
		return fmt.Errorf("notify retry initial_delay must not exceed max_delay")
	}

	// Every rule must target a column the schema knows about, otherwise
	// the rule could never fire and the config is almost certainly wrong.
	known := make(map[string]bool)
	for _, col := range c.Schema.Columns() {
		known[col] = true
	}
	for _, rule := range c.Rules {
		if !known[rule.Column] {
			return fmt.Errorf("rule references column %q not present in schema", rule.Column)
		}
		if rule.Required && !c.Schema.IsRequired(rule.Column) {
			return fmt.Errorf("required rule on optional schema column %q", rule.Column)
		}
	}

	for reason, ceiling := range c.Thresholds.ReasonCeilings {
		if ceiling.Count < 0 {
			return fmt.Errorf("reason ceiling for %s must not be negative", reason)
		}
	}

	return nil
}
