package metrics

import (
	"context"
	"time"

	"github.com/sentrysoftware/metricshub-sub023/internal/telemetry"
)

// Recorder persists host snapshots
type Recorder interface {
	Record(ctx context.Context, snapshot telemetry.Snapshot) error
	Close() error
}

// Repository stores samples
type Repository interface {
	Record(samples []Sample) error
	Close() error
}

// Sample is one metric of one monitor at one snapshot, the unit of storage
type Sample struct {
	RecordedAt          time.Time
	Host                string
	MonitorKey          string
	MonitorType         string
	Metric              string
	Value               float64
	PreviousValue       float64
	State               string
	PreviousState       string
	CollectTime         time.Time
	PreviousCollectTime time.Time
	Missing             bool
}

// Samples flattens a snapshot, monitors and metrics in snapshot order
func Samples(snapshot telemetry.Snapshot) []Sample {
	var samples []Sample
	for _, m := range snapshot.Monitors {
		for _, metric := range m.Metrics {
			samples = append(samples, Sample{
				RecordedAt:          snapshot.Time,
				Host:                snapshot.Hostname,
				MonitorKey:          m.Key,
				MonitorType:         m.Type,
				Metric:              metric.Name,
				Value:               metric.Value,
				PreviousValue:       metric.PreviousValue,
				State:               metric.State,
				PreviousState:       metric.PreviousState,
				CollectTime:         metric.CollectTime,
				PreviousCollectTime: metric.PreviousCollectTime,
				Missing:             m.Missing,
			})
		}
	}

	return samples
}
