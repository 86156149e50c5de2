package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "chronotrack"

// Metrics holds the ChronoTrack metric instruments.
type Metrics struct {
	Registrations     metric.Int64Counter
	ProvisionFailures metric.Int64Counter
	TenantsDropped    metric.Int64Counter
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.Registrations, err = meter.Int64Counter("chronotrack.organizations.registered",
		metric.WithDescription("Number of organizations registered"))
	if err != nil {
		return nil, err
	}

	m.ProvisionFailures, err = meter.Int64Counter("chronotrack.provisioning.failures",
		metric.WithDescription("Number of tenant provisioning attempts that failed"))
	if err != nil {
		return nil, err
	}

	m.TenantsDropped, err = meter.Int64Counter("chronotrack.tenants.dropped",
		metric.WithDescription("Number of tenant databases dropped by operators"))
	if err != nil {
		return nil, err
	}

	return m, nil
}
