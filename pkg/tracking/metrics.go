package tracking

import (
	met "github.com/rcrowley/go-metrics"
)

// Metrics counts tracker activity. Each tracker owns its registry so
// several trackers (and tests) do not share counters.
type Metrics struct {
	Registry met.Registry

	DetectTimer   met.Timer
	EstimateTimer met.Timer

	Estimates       met.Counter
	Misses          met.Counter
	DetectErrors    met.Counter
	SolveErrors     met.Counter
	Initializations met.Counter
	ChaoticCycles   met.Counter

	SceneAdds    met.Counter
	SceneRemoves met.Counter

	SkippedSync      met.Counter
	SkippedInit      met.Counter
	SkippedPose      met.Counter
	SkippedStability met.Counter
}

// NewMetrics creates a metrics set on a fresh registry.
func NewMetrics() *Metrics {
	r := met.NewRegistry()
	return &Metrics{
		Registry: r,

		DetectTimer:   met.NewRegisteredTimer("tracking.detect", r),
		EstimateTimer: met.NewRegisteredTimer("tracking.estimate", r),

		Estimates:       met.NewRegisteredCounter("tracking.estimates", r),
		Misses:          met.NewRegisteredCounter("tracking.misses", r),
		DetectErrors:    met.NewRegisteredCounter("tracking.detect.errors", r),
		SolveErrors:     met.NewRegisteredCounter("tracking.solve.errors", r),
		Initializations: met.NewRegisteredCounter("tracking.initializations", r),
		ChaoticCycles:   met.NewRegisteredCounter("tracking.chaotic", r),

		SceneAdds:    met.NewRegisteredCounter("scene.adds", r),
		SceneRemoves: met.NewRegisteredCounter("scene.removes", r),

		SkippedSync:      met.NewRegisteredCounter("tasks.sync.skipped", r),
		SkippedInit:      met.NewRegisteredCounter("tasks.init.skipped", r),
		SkippedPose:      met.NewRegisteredCounter("tasks.pose.skipped", r),
		SkippedStability: met.NewRegisteredCounter("tasks.stability.skipped", r),
	}
}

// Snapshot flattens the registry for JSON output. Timer values are in
// milliseconds.
func (m *Metrics) Snapshot() map[string]any {
	out := make(map[string]any)
	m.Registry.Each(func(name string, i interface{}) {
		switch v := i.(type) {
		case met.Counter:
			out[name] = v.Snapshot().Count()
		case met.Timer:
			s := v.Snapshot()
			out[name] = map[string]any{
				"count":   s.Count(),
				"mean_ms": s.Mean() / 1e6,
				"max_ms":  float64(s.Max()) / 1e6,
				"min_ms":  float64(s.Min()) / 1e6,
				"p95_ms":  s.Percentile(0.95) / 1e6,
			}
		}
	})
	return out
}
