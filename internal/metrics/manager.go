// Package metrics exposes the gallery's Prometheus registry: Go/process
// collectors plus the gallery-specific collector tracking sync, thumbnail
// generation, and invalidator activity.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
)

// Manager owns the process's Prometheus registry.
type Manager struct {
	registry  *prometheus.Registry
	collector *GalleryCollector
}

// NewManager builds a registry with the standard Go/process collectors plus
// the gallery collector, whose counters and gauges other components
// update directly via Collector().
func NewManager() *Manager {
	registry := prometheus.NewRegistry()

	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	collector := NewGalleryCollector()
	registry.MustRegister(collector)

	log.Info().Msg("metrics manager initialized with gallery collector")

	return &Manager{
		registry:  registry,
		collector: collector,
	}
}

func (m *Manager) GetRegistry() *prometheus.Registry {
	return m.registry
}

// Collector returns the gallery-specific collector so components (index,
// thumbnail pipeline, invalidator) can record observations directly.
func (m *Manager) Collector() *GalleryCollector {
	return m.collector
}
