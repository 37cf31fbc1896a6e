package metrics

import (
	"database/sql"
	"strings"

	"github.com/sentrysoftware/metricshub-sub023/internal/errors"
	"github.com/sentrysoftware/metricshub-sub023/internal/logger"
)

const (
	// Version 2 added the state columns
	SchemaVersion = 2

	// SQL statements derived from schema
	createTablesSQL = `
	   CREATE TABLE IF NOT EXISTS schema_versions (
	       version     INTEGER PRIMARY KEY,
	       applied_at  TEXT NOT NULL
	   );
	   CREATE TABLE IF NOT EXISTS metric_samples (
	       id                    INTEGER PRIMARY KEY AUTOINCREMENT,
	       recorded_at           INTEGER NOT NULL,
	       host                  TEXT NOT NULL,
	       monitor_key           TEXT NOT NULL,
	       monitor_type          TEXT NOT NULL,
	       metric                TEXT NOT NULL,
	       value                 REAL NOT NULL,
	       previous_value        REAL NOT NULL,
	       state                 TEXT NOT NULL DEFAULT '',
	       previous_state        TEXT NOT NULL DEFAULT '',
	       collect_time          INTEGER NOT NULL,
	       previous_collect_time INTEGER NOT NULL,
	       missing               INTEGER NOT NULL CHECK (missing IN (0, 1))
	   );
	   CREATE INDEX IF NOT EXISTS idx_metric_samples_monitor
	       ON metric_samples (host, monitor_key, metric, recorded_at);`

	insertSampleSQL = `
    INSERT INTO metric_samples (
        recorded_at, host, monitor_key, monitor_type, metric,
        value, previous_value, state, previous_state,
        collect_time, previous_collect_time, missing
    ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
)

// sampleTables are dropped in this order when the schema is recreated
var sampleTables = []string{"metric_samples", "schema_versions"}

// inTx runs fn in a transaction, rolled back unless fn succeeds. Failures
// carry code and phase.
func inTx(db *sql.DB, log logger.Logger, code errors.ErrorCode, phase string, fn func(*sql.Tx) error) error {
	errFactory := errors.New()

	tx, err := db.Begin()
	if err != nil {
		return errFactory.Wrap(code, err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			log.Debug().Err(rbErr).Str("phase", phase).Msg("Failed to rollback transaction")
		}
		return errFactory.WithData(code, struct {
			Phase string
			Error string
		}{
			Phase: phase,
			Error: err.Error(),
		})
	}

	if err := tx.Commit(); err != nil {
		return errFactory.WithData(code, struct {
			Phase string
			Error string
		}{
			Phase: "commit_" + phase,
			Error: err.Error(),
		})
	}

	return nil
}

// InitSchema creates the tables and records SchemaVersion
func InitSchema(db *sql.DB, log logger.Logger) error {
	log.Debug().Str("sql", strings.TrimSpace(createTablesSQL)).Msg("Creating snapshot tables")

	err := inTx(db, log, ErrSchemaInitFailed, "create_tables", func(tx *sql.Tx) error {
		if _, err := tx.Exec(createTablesSQL); err != nil {
			return err
		}
		_, err := tx.Exec(`
        INSERT INTO schema_versions (version, applied_at)
        VALUES (?, datetime('now'))
    `, SchemaVersion)
		return err
	})
	if err != nil {
		return err
	}

	log.Info().
		Int("version", SchemaVersion).
		Msg("Schema initialized successfully")

	return nil
}

// GetSchemaVersion returns the recorded schema version, 0 for an empty
// database
func GetSchemaVersion(db *sql.DB) (int, error) {
	exists, err := TableExists(db, "schema_versions")
	if err != nil || !exists {
		return 0, err
	}

	var version int
	err = db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_versions`).Scan(&version)
	if err != nil {
		return 0, errors.New().WithData(ErrSchemaValidationFailed, struct {
			Phase string
			Error string
		}{
			Phase: "get_version",
			Error: err.Error(),
		})
	}

	return version, nil
}

// TableExists checks if a table exists
func TableExists(db *sql.DB, tableName string) (bool, error) {
	var n int
	err := db.QueryRow(
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`,
		tableName,
	).Scan(&n)
	if err != nil {
		return false, errors.New().WithData(ErrSchemaValidationFailed, struct {
			Phase string
			Table string
			Error string
		}{
			Phase: "check_table_exists",
			Table: tableName,
			Error: err.Error(),
		})
	}

	return n > 0, nil
}

// GetInsertSampleSQL returns the SQL to insert a sample
func GetInsertSampleSQL() string {
	return insertSampleSQL
}
