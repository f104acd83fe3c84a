// Package metrics holds the run counters of the ingestion and synthesis
// commands.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics is a set of counters registered on a private registry.
type Metrics struct {
	Registry *prometheus.Registry

	TalksIngested   prometheus.Counter
	SessionMarkers  prometheus.Counter
	FetchFailures   *prometheus.CounterVec
	SpeakersMerged  prometheus.Counter
	FeedsWritten    *prometheus.CounterVec
	DurationsProbed *prometheus.CounterVec
	DocsReplicated  *prometheus.CounterVec
}

// New creates and registers every counter.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		TalksIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "metacasts",
			Name:      "talks_ingested_total",
			Help:      "Talk records written by ingestion.",
		}),
		SessionMarkers: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "metacasts",
			Name:      "session_markers_total",
			Help:      "Pages without an author line.",
		}),
		FetchFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "metacasts",
			Name:      "fetch_failures_total",
			Help:      "Failed upstream fetches.",
		}, []string{"page"}),
		SpeakersMerged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "metacasts",
			Name:      "speakers_merged_total",
			Help:      "Speaker merge writes.",
		}),
		FeedsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "metacasts",
			Name:      "feeds_written_total",
			Help:      "Feed documents written.",
		}, []string{"kind"}),
		DurationsProbed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "metacasts",
			Name:      "durations_probed_total",
			Help:      "Duration probes by outcome.",
		}, []string{"result"}),
		DocsReplicated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "metacasts",
			Name:      "documents_replicated_total",
			Help:      "Documents copied between stores.",
		}, []string{"partition"}),
	}

	m.Registry.MustRegister(
		m.TalksIngested,
		m.SessionMarkers,
		m.FetchFailures,
		m.SpeakersMerged,
		m.FeedsWritten,
		m.DurationsProbed,
		m.DocsReplicated,
	)
	return m
}

// WriteTextfile writes the current values in the node exporter textfile
// format. An empty path is a no-op.
func (m *Metrics) WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.Registry)
}
