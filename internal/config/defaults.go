package config

import (
	"os"
	"path/filepath"
	"time"
)

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	homeDir := getDefaultHomeDir()

	return &Config{
		Core: CoreConfig{
			HomeDir:         homeDir,
			ReportDir:       filepath.Join(homeDir, "reports"),
			ShutdownTimeout: 30 * time.Second,
		},
		Scheduler: SchedulerConfig{
			Workers:       4,
			QueueCapacity: 128,
			PollInterval:  25 * time.Millisecond,
			TaskTimeout:   0,
		},
		Events: EventsConfig{
			QueueCapacity:  256,
			Shards:         4,
			PublishTimeout: 2 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Tracing: TracingConfig{
			Enabled:     false,
			Endpoint:    "",
			ServiceName: "aar-analysis",
			SampleRate:  1.0,
		},
		Metrics: MetricsConfig{
			Enabled:  false,
			Provider: "prometheus",
			Port:     9464,
		},
	}
}

// getDefaultHomeDir returns the default service home directory,
// ~/.aar, falling back to a temporary directory when the user home
// cannot be determined.
func getDefaultHomeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "aar")
	}
	return filepath.Join(home, ".aar")
}
