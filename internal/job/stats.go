package job

import (
	metrics "github.com/rcrowley/go-metrics"
)

const (
	StatLaunched  = "jobs/launched"
	StatStopped   = "jobs/stopped"
	StatContinued = "jobs/continued"
	StatDone      = "jobs/done"
	StatRemoved   = "jobs/removed"
	StatTracked   = "jobs/tracked"
)

type stats struct {
	launched  metrics.Counter
	stopped   metrics.Counter
	continued metrics.Counter
	done      metrics.Counter
	removed   metrics.Counter
	tracked   metrics.Gauge
}

func newStats(reg metrics.Registry) *stats {
	if reg == nil {
		reg = metrics.NewRegistry()
	}
	return &stats{
		launched:  metrics.GetOrRegisterCounter(StatLaunched, reg),
		stopped:   metrics.GetOrRegisterCounter(StatStopped, reg),
		continued: metrics.GetOrRegisterCounter(StatContinued, reg),
		done:      metrics.GetOrRegisterCounter(StatDone, reg),
		removed:   metrics.GetOrRegisterCounter(StatRemoved, reg),
		tracked:   metrics.GetOrRegisterGauge(StatTracked, reg),
	}
}
