package telemetry

import (
	"strings"
	"time"

	"github.com/sentrysoftware/metricshub-sub023/internal/errors"
	"github.com/sentrysoftware/metricshub-sub023/internal/logger"
)

// identityAttributes build the id of a monitor whose mapping has no "id"
var identityAttributes = []string{"vendor", "model", "serial_number", "parent_id"}

// Factory creates and refreshes monitors of one host store
type Factory struct {
	store *HostTelemetry
	log   logger.Logger
}

// NewFactory creates a monitor factory bound to store
func NewFactory(store *HostTelemetry, log logger.Logger) *Factory {
	if log == nil {
		log = logger.Nop()
	}

	return &Factory{store: store, log: log}
}

// Identity derives the monitor id from interpreted attributes
func Identity(attributes map[string]string) string {
	if id := strings.TrimSpace(attributes["id"]); id != "" {
		return id
	}

	parts := make([]string, 0, len(identityAttributes))
	for _, name := range identityAttributes {
		if v := strings.TrimSpace(attributes[name]); v != "" {
			parts = append(parts, v)
		}
	}

	return strings.Join(parts, "_")
}

// CreateOrUpdateMonitor maps one instance table row to a monitor. The
// monitor is created when absent, otherwise its attributes are overwritten.
// Either way its discovery time becomes discoveryTime. Two rows of the same
// generation with the same identity resolve last-row-wins and return an
// identity collision error along with the monitor.
func (f *Factory) CreateOrUpdateMonitor(row []string, monitorType, connectorID string, attributesMap map[string]string, discoveryTime time.Time) (*Monitor, error) {
	errFactory := errors.New()

	attributes := InterpretAll(attributesMap, row)
	id := Identity(attributes)
	if id == "" {
		return nil, errFactory.WithData(ErrEmptyIdentity, struct {
			MonitorType string
			Row         []string
		}{monitorType, row})
	}
	attributes["id"] = id

	m, created := f.store.getOrCreate(connectorID, monitorType, id)
	wasMissing := m.IsMissing()
	if again := m.refresh(attributes, discoveryTime); again && !created {
		return m, errFactory.WithData(ErrIdentityCollision, m.Key())
	}

	switch {
	case created:
		f.log.Debug().Str("monitor", m.Key()).Msg("Monitor discovered")
	case wasMissing:
		f.log.Info().Str("monitor", m.Key()).Msg("Missing monitor discovered again")
	}

	return m, nil
}
