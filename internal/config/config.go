package config

import (
	"os"
	"strings"

	"github.com/sentrysoftware/metricshub-sub023/internal/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultLogLevel        = "info"
	DefaultInterval        = 120
	DefaultDiscoveryCycle  = 30
	DefaultJobTimeout      = 300
	DefaultMaxParallelJobs = 20
	DefaultDatabase        = "/var/lib/metricshub/snapshots.db"
	DefaultBatchSize       = 500
	DefaultBatchTimeout    = 30

	defaultEnvPrefix  = "METRICSHUB"
	defaultConfigName = "metricshub"
)

// flag name to configuration key
var flagKeys = map[string]string{
	"log-level":         "log_level",
	"interval":          "interval",
	"discovery-cycle":   "discovery_cycle",
	"job-timeout":       "job_timeout",
	"max-parallel-jobs": "max_parallel_jobs",
	"metrics-listen":    "metrics_listen",
	"connector":         "connectors",
	"snapshot":          "snapshot.enabled",
	"snapshot-db":       "snapshot.database",
}

// RegisterFlags declares the configuration flags on fs
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "Configuration file (TOML)")
	fs.String("log-level", DefaultLogLevel, "Log level (debug, info, warning, error)")
	fs.Int("interval", DefaultInterval, "Collect period in seconds")
	fs.Int("discovery-cycle", DefaultDiscoveryCycle, "Collects between two discoveries")
	fs.Int("job-timeout", DefaultJobTimeout, "Deadline of one strategy run in seconds")
	fs.Int("max-parallel-jobs", DefaultMaxParallelJobs, "Concurrent monitor jobs per host")
	fs.String("metrics-listen", "", "Address of the self-metrics endpoint, empty disables it")
	fs.StringSlice("connector", nil, "Connector model file (repeatable)")
	fs.Bool("snapshot", false, "Record snapshots into sqlite")
	fs.String("snapshot-db", DefaultDatabase, "Snapshot database path")
}

// WithFlags makes the flags of fs override file and environment values.
// fs must have been prepared with RegisterFlags.
func WithFlags(fs *pflag.FlagSet) Option {
	return func(o *options) error {
		o.flags = fs
		return nil
	}
}

// Load reads the configuration from defaults, the TOML file, the environment
// and flags, in increasing priority, then validates it
func Load(opts ...Option) (*Config, error) {
	errFactory := errors.New()

	o := &options{envPrefix: defaultEnvPrefix}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
		}
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(o.envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path := configPath(o); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(defaultConfigName)
		v.SetConfigType("toml")
		v.AddConfigPath("/etc/metricshub")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, errFactory.Wrap(errors.ErrReadConfig, err)
		}
	}

	if o.flags != nil {
		for name, key := range flagKeys {
			f := o.flags.Lookup(name)
			if f == nil || !f.Changed {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, errFactory.Wrap(errors.ErrBindFlags, err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("interval", DefaultInterval)
	v.SetDefault("discovery_cycle", DefaultDiscoveryCycle)
	v.SetDefault("job_timeout", DefaultJobTimeout)
	v.SetDefault("max_parallel_jobs", DefaultMaxParallelJobs)
	v.SetDefault("metrics_listen", "")
	v.SetDefault("connectors", []string{})
	v.SetDefault("snapshot.enabled", false)
	v.SetDefault("snapshot.database", DefaultDatabase)
	v.SetDefault("snapshot.batch_size", DefaultBatchSize)
	v.SetDefault("snapshot.batch_timeout", DefaultBatchTimeout)
}

// configPath picks the explicit file: option, then --config, then
// <PREFIX>_CONFIG
func configPath(o *options) string {
	if o.configPath != "" {
		return o.configPath
	}
	if o.flags != nil {
		if path, err := o.flags.GetString("config"); err == nil && path != "" {
			return path
		}
	}

	return os.Getenv(o.envPrefix + "_CONFIG")
}

// Validate checks if the configuration is usable
func (c *Config) Validate() error {
	errFactory := errors.New()

	if !LogLevel(strings.ToLower(c.LogLevel)).IsValid() {
		return errFactory.WithData(errors.ErrInvalidLogLevel, c.LogLevel)
	}
	if c.Interval <= 0 {
		return errFactory.WithData(errors.ErrInvalidInterval, c.Interval)
	}
	if c.JobTimeout <= 0 {
		return errFactory.WithData(errors.ErrInvalidConfig, struct {
			Field string
			Value int
		}{"job_timeout", c.JobTimeout})
	}
	if c.DiscoveryCycle <= 0 || c.MaxParallelJobs <= 0 {
		return errFactory.WithData(errors.ErrInvalidConfig, struct {
			DiscoveryCycle  int
			MaxParallelJobs int
		}{c.DiscoveryCycle, c.MaxParallelJobs})
	}
	if c.Snapshot.Enabled && c.Snapshot.Database == "" {
		return errFactory.WithData(errors.ErrInvalidConfig, struct {
			Field string
		}{"snapshot.database"})
	}
	if len(c.Hosts) == 0 {
		return errFactory.WithMessage(errors.ErrMissingConfig, "no host configured")
	}

	seen := make(map[string]bool, len(c.Hosts))
	for _, h := range c.Hosts {
		if h.Hostname == "" {
			return errFactory.WithMessage(errors.ErrInvalidConfig, "host without hostname")
		}
		key := strings.ToLower(h.Hostname)
		if seen[key] {
			return errFactory.WithData(errors.ErrInvalidConfig, struct {
				DuplicateHost string
			}{h.Hostname})
		}
		seen[key] = true
	}

	return nil
}
