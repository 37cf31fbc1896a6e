package metrics

import "github.com/sentrysoftware/metricshub-sub023/internal/errors"

const (
	// File system permissions and paths
	defaultDirPerm      = 0o755
	defaultDBPath       = "/var/lib/metricshub/snapshots.db"
	defaultBatchSize    = 500
	defaultBatchTimeout = 30
)

type Config struct {
	DBPath string
	// BackupDir receives a copy of the database before a schema change;
	// empty means a "backups" directory next to the database
	BackupDir string
	// BatchSize is the number of samples buffered before a write
	BatchSize int
	// BatchTimeout is the longest time in seconds a sample stays buffered
	BatchTimeout int
	Enabled      bool
}

func DefaultConfig() Config {
	return Config{
		DBPath:       defaultDBPath,
		BatchSize:    defaultBatchSize,
		BatchTimeout: defaultBatchTimeout,
		Enabled:      false, // Disabled by default
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()

	// Only validate the rest if persistence is enabled
	if !c.Enabled {
		return nil
	}
	if c.DBPath == "" {
		return errFactory.New(ErrInvalidDBPath)
	}
	if c.BatchSize < 0 || c.BatchTimeout < 0 {
		return errFactory.WithData(ErrInvalidConfig, struct {
			BatchSize    int
			BatchTimeout int
		}{c.BatchSize, c.BatchTimeout})
	}

	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
