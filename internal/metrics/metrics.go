// Package metrics exposes the prometheus collectors shared by the
// translation engine, the execution coordinator and the permission cache.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "cqlbridge"

// Metrics holds the collectors and the registry they are registered with.
type Metrics struct {
	registry     *prometheus.Registry
	Translations *prometheus.CounterVec
	Executions   *prometheus.CounterVec
	CacheLookups *prometheus.CounterVec
	Notification *prometheus.CounterVec
}

// New creates the collectors on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Translations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "translations_total",
			Help:      "Statements translated, by statement kind and outcome.",
		}, []string{"kind", "outcome"}),
		Executions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "executions_total",
			Help:      "Translated statements executed, by mode and outcome.",
		}, []string{"mode", "outcome"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "permission_cache_lookups_total",
			Help:      "Permission cache lookups, by result (hit, miss, error).",
		}, []string{"result"}),
		Notification: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "keyspace_notifications_total",
			Help:      "Keyspace access notifications sent to the permission authority, by action and outcome.",
		}, []string{"action", "outcome"}),
	}
	m.registry.MustRegister(m.Translations, m.Executions, m.CacheLookups, m.Notification)
	return m
}

// Registry returns the registry the collectors are registered with.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// WriteTextfile writes the current values in the node-exporter textfile
// format.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}

func (m *Metrics) ObserveTranslation(kind string, err error) {
	if m == nil {
		return
	}
	m.Translations.WithLabelValues(kind, outcome(err)).Inc()
}

func (m *Metrics) ObserveExecution(mode string, err error) {
	if m == nil {
		return
	}
	m.Executions.WithLabelValues(mode, outcome(err)).Inc()
}

func (m *Metrics) ObserveCacheLookup(result string) {
	if m == nil {
		return
	}
	m.CacheLookups.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveNotification(action string, err error) {
	if m == nil {
		return
	}
	m.Notification.WithLabelValues(action, outcome(err)).Inc()
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
