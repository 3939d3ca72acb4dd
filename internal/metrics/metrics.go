// Package metrics holds the prometheus collectors of tour imports.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	importFiles = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tourline",
		Subsystem: "import",
		Name:      "files_total",
		Help:      "Files handed to the importer, by status.",
	}, []string{"status"})
	importTours = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tourline",
		Subsystem: "import",
		Name:      "tours_total",
		Help:      "Tours read from import files, by outcome.",
	}, []string{"outcome"})
	registryCreated = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tourline",
		Name:      "registry_created_total",
		Help:      "Registry entries created by imports, by kind.",
	}, []string{"kind"})
	unresolvedSensors = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "tourline",
		Name:      "unresolved_sensors_total",
		Help:      "Sensor readings whose sensor id was not registered.",
	})
)

func init() {
	prometheus.MustRegister(importFiles, importTours, registryCreated, unresolvedSensors)
}

// RecordFile counts one imported file by status (parsed, skipped, failed).
func RecordFile(status string) {
	importFiles.WithLabelValues(status).Inc()
}

// RecordTours counts n tours with the given outcome.
func RecordTours(outcome string, n int) {
	if n <= 0 {
		return
	}
	importTours.WithLabelValues(outcome).Add(float64(n))
}

// RecordCreated counts registry entries of kind (tag, tourtype) created by an import.
func RecordCreated(kind string, n int) {
	if n <= 0 {
		return
	}
	registryCreated.WithLabelValues(kind).Add(float64(n))
}

func RecordUnresolvedSensors(n int) {
	if n <= 0 {
		return
	}
	unresolvedSensors.Add(float64(n))
}
