package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sentrysoftware/metricshub-sub023/internal/config"
	"github.com/sentrysoftware/metricshub-sub023/internal/errors"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "metricshub.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

const hostsOnly = `
[[hosts]]
hostname = "ups-01"
`

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
log_level = "debug"
interval = 60
discovery_cycle = 10
job_timeout = 45
max_parallel_jobs = 4
metrics_listen = ":9464"
connectors = ["/etc/metricshub/connectors/ups.yaml"]

[snapshot]
enabled = true
database = "/tmp/snapshots.db"
batch_size = 50

[[hosts]]
hostname = "ups-01"
type = "linux"
connectors = ["ups"]
[hosts.attributes]
site = "paris"

[[hosts]]
hostname = "storage-02"
`)
	t.Setenv("METRICSHUB_CONFIG", path)

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 60, cfg.Interval)
	assert.Equal(t, 10, cfg.DiscoveryCycle)
	assert.Equal(t, 45, cfg.JobTimeout)
	assert.Equal(t, 4, cfg.MaxParallelJobs)
	assert.Equal(t, ":9464", cfg.MetricsListen)
	assert.Equal(t, []string{"/etc/metricshub/connectors/ups.yaml"}, cfg.Connectors)

	assert.True(t, cfg.Snapshot.Enabled)
	assert.Equal(t, "/tmp/snapshots.db", cfg.Snapshot.Database)
	assert.Equal(t, 50, cfg.Snapshot.BatchSize)
	assert.Equal(t, config.DefaultBatchTimeout, cfg.Snapshot.BatchTimeout)

	require.Len(t, cfg.Hosts, 2)
	assert.Equal(t, "ups-01", cfg.Hosts[0].Hostname)
	assert.Equal(t, "linux", cfg.Hosts[0].Type)
	assert.Equal(t, []string{"ups"}, cfg.Hosts[0].Connectors)
	assert.Equal(t, "paris", cfg.Hosts[0].Attributes["site"])
	assert.Equal(t, "storage-02", cfg.Hosts[1].Hostname)
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load(config.WithConfigFile(writeConfig(t, hostsOnly)))
	require.NoError(t, err)

	assert.Equal(t, config.DefaultLogLevel, cfg.LogLevel)
	assert.Equal(t, config.DefaultInterval, cfg.Interval)
	assert.Equal(t, config.DefaultDiscoveryCycle, cfg.DiscoveryCycle)
	assert.Equal(t, config.DefaultJobTimeout, cfg.JobTimeout)
	assert.Equal(t, config.DefaultMaxParallelJobs, cfg.MaxParallelJobs)
	assert.False(t, cfg.Snapshot.Enabled)
	assert.Equal(t, config.DefaultDatabase, cfg.Snapshot.Database)
	assert.Equal(t, 2*time.Minute, cfg.IntervalDuration())
}

func TestLoadConfigFileInvalidFormat(t *testing.T) {
	path := writeConfig(t, `
This is not a valid TOML file
`)

	_, err := config.Load(config.WithConfigFile(path))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrReadConfig))
	assert.Contains(t, err.Error(), "Failed to read config file")
}

func TestInvalidLogLevel(t *testing.T) {
	path := writeConfig(t, `log_level = "invalid"`+hostsOnly)

	_, err := config.Load(config.WithConfigFile(path))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrInvalidLogLevel))
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `interval = 60`+hostsOnly)
	t.Setenv("METRICSHUB_INTERVAL", "15")
	t.Setenv("METRICSHUB_SNAPSHOT_ENABLED", "true")

	cfg, err := config.Load(config.WithConfigFile(path))
	require.NoError(t, err)
	assert.Equal(t, 15, cfg.Interval)
	assert.True(t, cfg.Snapshot.Enabled)
}

func TestFlagsOverrideFile(t *testing.T) {
	path := writeConfig(t, `
log_level = "error"
interval = 60
`+hostsOnly)

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	config.RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{
		"--config", path,
		"--log-level", "debug",
		"--connector", "a.yaml", "--connector", "b.yaml",
	}))

	cfg, err := config.Load(config.WithFlags(fs))
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel, "flag wins over file")
	assert.Equal(t, 60, cfg.Interval, "unset flag keeps file value")
	assert.Equal(t, []string{"a.yaml", "b.yaml"}, cfg.Connectors)
}

func TestValidate(t *testing.T) {
	valid := func() config.Config {
		return config.Config{
			LogLevel:        "info",
			Interval:        120,
			DiscoveryCycle:  30,
			JobTimeout:      300,
			MaxParallelJobs: 20,
			Hosts:           []config.HostConfig{{Hostname: "ups-01"}},
		}
	}

	tests := []struct {
		name   string
		mutate func(*config.Config)
		code   errors.ErrorCode
	}{
		{"valid", func(*config.Config) {}, ""},
		{"zero interval", func(c *config.Config) { c.Interval = 0 }, errors.ErrInvalidInterval},
		{"negative timeout", func(c *config.Config) { c.JobTimeout = -1 }, errors.ErrInvalidConfig},
		{"no hosts", func(c *config.Config) { c.Hosts = nil }, errors.ErrMissingConfig},
		{"empty hostname", func(c *config.Config) { c.Hosts = []config.HostConfig{{}} }, errors.ErrInvalidConfig},
		{"duplicate host", func(c *config.Config) {
			c.Hosts = append(c.Hosts, config.HostConfig{Hostname: "UPS-01"})
		}, errors.ErrInvalidConfig},
		{"snapshot without database", func(c *config.Config) {
			c.Snapshot = config.SnapshotConfig{Enabled: true}
		}, errors.ErrInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.code == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, tt.code))
		})
	}
}
