package tracking

import "github.com/teslashibe/go-arpose/pkg/pose"

// TuningParams holds the real-time adjustable tracking parameters.
// These can be modified via the tuning API without restarting.
type TuningParams struct {
	ChaosThreshold float64 `json:"chaos_threshold"` // Degrees (0 keeps current)
	MinResolved    int     `json:"min_resolved"`    // Key points required at initialization (0 keeps current)
	LogThreshold   float64 `json:"log_threshold"`   // Camera move logging threshold (0 keeps current)
}

// GetTuningParams returns current tuning parameters from the tracker.
func (t *Tracker) GetTuningParams() TuningParams {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return TuningParams{
		ChaosThreshold: t.limiter.Threshold(),
		MinResolved:    t.config.MinResolved,
		LogThreshold:   t.config.LogThreshold,
	}
}

// SetTuningParams updates tuning parameters at runtime.
// Only non-zero values are applied.
func (t *Tracker) SetTuningParams(params TuningParams) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if params.ChaosThreshold > 0 && params.ChaosThreshold < 180 {
		t.limiter = NewAngleLimiter(params.ChaosThreshold)
		t.config.ChaosThreshold = params.ChaosThreshold
	}
	if params.MinResolved >= pose.MinPoints {
		t.config.MinResolved = params.MinResolved
	}
	if params.LogThreshold > 0 {
		t.config.LogThreshold = params.LogThreshold
	}

	t.logger.Info("tuning updated",
		"chaos_threshold", t.config.ChaosThreshold,
		"min_resolved", t.config.MinResolved,
		"log_threshold", t.config.LogThreshold)
}
