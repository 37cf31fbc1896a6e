package config

import (
	"time"

	"github.com/spf13/pflag"
)

// Option defines a configuration option that can be passed to Load
type Option func(*options) error

// options holds internal configuration options
type options struct {
	configPath string
	envPrefix  string
	flags      *pflag.FlagSet
}

// WithConfigFile specifies an explicit configuration file path
func WithConfigFile(path string) Option {
	return func(o *options) error {
		o.configPath = path
		return nil
	}
}

// WithEnvPrefix specifies a custom environment variable prefix
// Default is "METRICSHUB"
func WithEnvPrefix(prefix string) Option {
	return func(o *options) error {
		o.envPrefix = prefix
		return nil
	}
}

// LogLevel represents valid logging levels
type LogLevel string

const (
	LogLevelDebug   LogLevel = "debug"
	LogLevelInfo    LogLevel = "info"
	LogLevelWarning LogLevel = "warning"
	LogLevelError   LogLevel = "error"
)

// IsValid returns whether the log level is valid
func (l LogLevel) IsValid() bool {
	switch l {
	case LogLevelDebug, LogLevelInfo, LogLevelWarning, LogLevelError:
		return true
	default:
		return false
	}
}

// String implements the Stringer interface
func (l LogLevel) String() string {
	return string(l)
}

// Config is the agent configuration
type Config struct {
	LogLevel string `mapstructure:"log_level"`
	// Interval is the collect period in seconds
	Interval int `mapstructure:"interval"`
	// DiscoveryCycle is the number of collects between two discoveries
	DiscoveryCycle int `mapstructure:"discovery_cycle"`
	// JobTimeout is the deadline in seconds of one strategy run
	JobTimeout      int    `mapstructure:"job_timeout"`
	MaxParallelJobs int    `mapstructure:"max_parallel_jobs"`
	MetricsListen   string `mapstructure:"metrics_listen"`
	// Connectors lists the connector model files
	Connectors []string       `mapstructure:"connectors"`
	Snapshot   SnapshotConfig `mapstructure:"snapshot"`
	Hosts      []HostConfig   `mapstructure:"hosts"`
}

// SnapshotConfig configures the sqlite snapshot persistence
type SnapshotConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	Database     string `mapstructure:"database"`
	BatchSize    int    `mapstructure:"batch_size"`
	BatchTimeout int    `mapstructure:"batch_timeout"`
}

// HostConfig is one monitored host
type HostConfig struct {
	Hostname string `mapstructure:"hostname"`
	Type     string `mapstructure:"type"`
	// Connectors selects connector ids, empty means all loaded connectors
	Connectors []string          `mapstructure:"connectors"`
	Attributes map[string]string `mapstructure:"attributes"`
}

// IntervalDuration returns the collect period
func (c *Config) IntervalDuration() time.Duration {
	return time.Duration(c.Interval) * time.Second
}

// JobTimeoutDuration returns the strategy deadline
func (c *Config) JobTimeoutDuration() time.Duration {
	return time.Duration(c.JobTimeout) * time.Second
}
