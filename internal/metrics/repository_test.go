package metrics

import (
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/sentrysoftware/metricshub-sub023/internal/errors"
	"github.com/sentrysoftware/metricshub-sub023/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample(metric string, value float64) Sample {
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return Sample{
		RecordedAt:  at,
		Host:        "ups-01",
		MonitorKey:  "ups_battery_b1",
		MonitorType: "battery",
		Metric:      metric,
		Value:       value,
		CollectTime: at,
	}
}

func TestRepositoryFlushesOnBatchSize(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	repo := newRepository(db, Config{BatchSize: 2}, logger.Nop())

	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC).UnixMilli()
	mock.ExpectBegin()
	prep := mock.ExpectPrepare("INSERT INTO metric_samples")
	prep.ExpectExec().
		WithArgs(at, "ups-01", "ups_battery_b1", "battery", "hw.battery.charge", 0.9, 0.0, "", "", at, int64(0), int64(0)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	prep.ExpectExec().
		WithArgs(at, "ups-01", "ups_battery_b1", "battery", "hw.battery.present", 1.0, 0.0, "", "", at, int64(0), int64(0)).
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Record([]Sample{sample("hw.battery.charge", 0.9)}))
	require.NoError(t, repo.Record([]Sample{sample("hw.battery.present", 1)}))
	assert.Empty(t, repo.buffer)

	mock.ExpectExec("PRAGMA wal_checkpoint").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectClose()
	require.NoError(t, repo.Close())

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryRollsBackOnInsertError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := newRepository(db, Config{BatchSize: 1}, logger.Nop())

	mock.ExpectBegin()
	mock.ExpectPrepare("INSERT INTO metric_samples").
		ExpectExec().
		WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	err = repo.Record([]Sample{sample("hw.battery.charge", 0.5)})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, ErrTransactionFailed))
	assert.Len(t, repo.buffer, 1, "failed samples stay buffered")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryCloseFlushesBuffer(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	repo := newRepository(db, Config{BatchSize: 100, BatchTimeout: 3600}, logger.Nop())
	require.NoError(t, repo.Record([]Sample{sample("hw.battery.charge", 0.7)}))

	mock.ExpectBegin()
	mock.ExpectPrepare("INSERT INTO metric_samples").
		ExpectExec().
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()
	mock.ExpectExec("PRAGMA wal_checkpoint").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectClose()

	require.NoError(t, repo.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUnixMilliZero(t *testing.T) {
	assert.Equal(t, int64(0), unixMilli(time.Time{}))
	assert.Equal(t, int64(1000), unixMilli(time.UnixMilli(1000)))
}
