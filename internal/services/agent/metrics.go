package agent

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposes the agent's operational gauges and counters. A nil
// *Metrics disables collection (used by tests).
type Metrics struct {
	tankLevel    *prometheus.GaugeVec
	batteryPct   *prometheus.GaugeVec
	sprayedPlots *prometheus.GaugeVec
	operations   *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		tankLevel: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "fieldops_tank_level_liters",
			Help: "Remaining pesticide in the tank.",
		}, []string{"field"}),
		batteryPct: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "fieldops_battery_percent",
			Help: "Sprayer battery level.",
		}, []string{"field"}),
		sprayedPlots: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "fieldops_sprayed_plots",
			Help: "Plots treated since session start; resets with the session.",
		}, []string{"field"}),
		operations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "fieldops_operations_total",
			Help: "Spray/scan operations by mode and outcome.",
		}, []string{"mode", "outcome"}),
	}
}

func (m *Metrics) setLevels(field string, tankL, batteryPct float64) {
	if m == nil {
		return
	}
	m.tankLevel.WithLabelValues(field).Set(tankL)
	m.batteryPct.WithLabelValues(field).Set(batteryPct)
}

func (m *Metrics) setSprayedPlots(field string, n int) {
	if m == nil {
		return
	}
	m.sprayedPlots.WithLabelValues(field).Set(float64(n))
}

func (m *Metrics) countOperation(mode, outcome string) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(mode, outcome).Inc()
}
