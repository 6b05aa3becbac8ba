// Package config loads, validates, and writes the analysis service
// configuration. Files are YAML read through viper with ${VAR} environment
// interpolation; struct tags drive go-playground/validator validation.
package config

import (
	"time"
)

// Config is the root configuration for the AAR analysis service.
type Config struct {
	Core      CoreConfig      `mapstructure:"core" yaml:"core" validate:"required"`
	Scheduler SchedulerConfig `mapstructure:"scheduler" yaml:"scheduler" validate:"required"`
	Events    EventsConfig    `mapstructure:"events" yaml:"events" validate:"required"`
	Logging   LoggingConfig   `mapstructure:"logging" yaml:"logging"`
	Tracing   TracingConfig   `mapstructure:"tracing" yaml:"tracing"`
	Metrics   MetricsConfig   `mapstructure:"metrics" yaml:"metrics"`
}

// CoreConfig contains core application settings.
type CoreConfig struct {
	// HomeDir is the service's working directory (config, reports, logs).
	HomeDir string `mapstructure:"home_dir" yaml:"home_dir"`

	// ReportDir is where session reports are written.
	ReportDir string `mapstructure:"report_dir" yaml:"report_dir"`

	// ShutdownTimeout bounds graceful shutdown of the scheduler and bus.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" validate:"min=1s"`
}

// SchedulerConfig tunes the analysis orchestrator.
type SchedulerConfig struct {
	// Workers is the size of the task worker pool.
	Workers int `mapstructure:"workers" yaml:"workers" validate:"min=1,max=256"`

	// QueueCapacity bounds the pending task queue; submissions beyond it
	// fail with a capacity error.
	QueueCapacity int `mapstructure:"queue_capacity" yaml:"queue_capacity" validate:"min=1"`

	// PollInterval is the re-check period of the synchronous
	// analyze-all-domains facade.
	PollInterval time.Duration `mapstructure:"poll_interval" yaml:"poll_interval" validate:"min=1ms"`

	// TaskTimeout is the default per-task deadline. Zero disables it.
	TaskTimeout time.Duration `mapstructure:"task_timeout" yaml:"task_timeout"`
}

// EventsConfig tunes the event bus.
type EventsConfig struct {
	// QueueCapacity is the per-shard event queue depth.
	QueueCapacity int `mapstructure:"queue_capacity" yaml:"queue_capacity" validate:"min=1"`

	// Shards is the number of delivery workers. Events from one source
	// always land on the same shard.
	Shards int `mapstructure:"shards" yaml:"shards" validate:"min=1,max=64"`

	// PublishTimeout is how long a publisher blocks on a full queue
	// before the event is dropped with an error.
	PublishTimeout time.Duration `mapstructure:"publish_timeout" yaml:"publish_timeout" validate:"min=1ms"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `mapstructure:"format" yaml:"format" validate:"omitempty,oneof=text json"`
}

// TracingConfig contains distributed tracing configuration.
type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled" yaml:"enabled"`
	Endpoint    string  `mapstructure:"endpoint" yaml:"endpoint"`
	ServiceName string  `mapstructure:"service_name" yaml:"service_name"`
	SampleRate  float64 `mapstructure:"sample_rate" yaml:"sample_rate" validate:"min=0,max=1"`
}

// MetricsConfig contains metrics export configuration.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Provider selects the exporter: "prometheus" serves a scrape
	// endpoint on Port, "otlp" pushes to Endpoint.
	Provider string `mapstructure:"provider" yaml:"provider" validate:"omitempty,oneof=prometheus otlp"`
	Port     int    `mapstructure:"port" yaml:"port" validate:"omitempty,min=1024,max=65535"`
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`
}
