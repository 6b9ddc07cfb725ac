package config

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ConfigMetrics reports how a component's last configuration load went.
// Series are named {component}_config_*:
//
//	worker_config_load_timestamp            unix time of the last load
//	worker_config_validation_errors_total   rejected values, by field
//	worker_config_fallbacks_total           defaults substituted, by field
//	worker_config_fallback_active           1 while any default is standing in
//
// Alert on fallback_active: the worker keeps running on defaults, so a typo
// in SCRAPE_INTERVAL only shows up here and in the warn log.
type ConfigMetrics struct {
	Component string

	LoadTimestamp         prometheus.Gauge
	ValidationErrorsTotal *prometheus.CounterVec
	FallbacksTotal        *prometheus.CounterVec
	FallbackActive        prometheus.Gauge
}

// NewConfigMetrics registers the series for component on the default registry.
// Registering the same component twice panics.
func NewConfigMetrics(component string) *ConfigMetrics {
	name := func(suffix string) string { return component + "_config_" + suffix }
	return &ConfigMetrics{
		Component: component,

		LoadTimestamp: promauto.NewGauge(prometheus.GaugeOpts{
			Name: name("load_timestamp"),
			Help: "Unix timestamp of the last " + component + " configuration load",
		}),
		ValidationErrorsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: name("validation_errors_total"),
			Help: "Configuration values of " + component + " rejected by validation",
		}, []string{"field"}),
		FallbacksTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: name("fallbacks_total"),
			Help: "Defaults substituted for invalid " + component + " configuration values",
		}, []string{"field"}),
		FallbackActive: promauto.NewGauge(prometheus.GaugeOpts{
			Name: name("fallback_active"),
			Help: "1 if the current " + component + " configuration uses any fallback value",
		}),
	}
}

// RecordLoadTimestamp stamps the load gauge with the current time.
func (m *ConfigMetrics) RecordLoadTimestamp() { m.LoadTimestamp.SetToCurrentTime() }

// RecordValidationError counts a rejected value for field.
func (m *ConfigMetrics) RecordValidationError(field string) {
	m.ValidationErrorsTotal.WithLabelValues(field).Inc()
}

// RecordFallback counts a substituted default for field.
func (m *ConfigMetrics) RecordFallback(field string) {
	m.FallbacksTotal.WithLabelValues(field).Inc()
}

// SetFallbackActive publishes whether the loaded configuration relies on any fallback.
func (m *ConfigMetrics) SetFallbackActive(active bool) {
	v := 0.0
	if active {
		v = 1
	}
	m.FallbackActive.Set(v)
}
