package metrics

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sentrysoftware/metricshub-sub023/internal/errors"
	"github.com/sentrysoftware/metricshub-sub023/internal/logger"
)

// ValidateAndUpdateSchema brings the database to SchemaVersion. An empty
// database is initialized. An older schema is copied into backupDir, then
// dropped and recreated; samples are not converted. A newer schema is left
// untouched and reported as an error.
func ValidateAndUpdateSchema(db *sql.DB, backupDir string, log logger.Logger) error {
	errFactory := errors.New()

	version, err := GetSchemaVersion(db)
	if err != nil {
		return errFactory.Wrap(ErrSchemaValidationFailed, err)
	}

	switch {
	case version == SchemaVersion:
		log.Debug().Int("version", version).Msg("Schema version is current")
		return nil
	case version > SchemaVersion:
		return errFactory.WithData(ErrSchemaMigrationFailed, struct {
			Phase     string
			Found     int
			Supported int
		}{
			Phase:     "newer_schema",
			Found:     version,
			Supported: SchemaVersion,
		})
	case version == 0:
		log.Debug().Msg("Empty database, creating schema")
		return InitSchema(db, log)
	}

	log.Warn().
		Int("found", version).
		Int("supported", SchemaVersion).
		Msg("Outdated snapshot schema, recreating")

	if _, err := backupDatabase(db, backupDir, version, log); err != nil {
		return errFactory.Wrap(ErrSchemaMigrationFailed, err)
	}
	if err := dropTables(db, log); err != nil {
		return err
	}

	return InitSchema(db, log)
}

// backupDatabase copies the database with VACUUM INTO, which must run
// outside any transaction
func backupDatabase(db *sql.DB, backupDir string, version int, log logger.Logger) (string, error) {
	errFactory := errors.New()

	if err := os.MkdirAll(backupDir, defaultDirPerm); err != nil {
		return "", errFactory.WithData(ErrSchemaMigrationFailed, struct {
			Phase string
			Path  string
			Error string
		}{
			Phase: "create_backup_dir",
			Path:  backupDir,
			Error: err.Error(),
		})
	}

	name := fmt.Sprintf("snapshots_v%d_%s.db", version, time.Now().UTC().Format("20060102T150405Z"))
	backupPath := filepath.Join(backupDir, name)

	quoted := strings.ReplaceAll(backupPath, "'", "''")
	if _, err := db.Exec("VACUUM INTO '" + quoted + "'"); err != nil {
		return "", errFactory.WithData(ErrSchemaMigrationFailed, struct {
			Phase string
			Path  string
			Error string
		}{
			Phase: "create_backup",
			Path:  backupPath,
			Error: err.Error(),
		})
	}

	log.Info().
		Str("path", backupPath).
		Int("version", version).
		Msg("Database backup created")

	return backupPath, nil
}

func dropTables(db *sql.DB, log logger.Logger) error {
	return inTx(db, log, ErrSchemaMigrationFailed, "drop_tables", func(tx *sql.Tx) error {
		for _, table := range sampleTables {
			if _, err := tx.Exec("DROP TABLE IF EXISTS " + table); err != nil {
				return fmt.Errorf("drop %s: %w", table, err)
			}
		}
		return nil
	})
}
