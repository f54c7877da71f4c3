package pose

import "github.com/teslashibe/go-arpose/pkg/filter"

// FilterBank smooths the six pose components with independent filters.
type FilterBank struct {
	name    string
	filters [6]*filter.Kalman // tx, ty, tz, rx, ry, rz
}

// NewFilterBank creates six filters sharing one configuration.
func NewFilterBank(name string, cfg filter.Config) *FilterBank {
	b := &FilterBank{name: name}
	for i := range b.filters {
		b.filters[i] = filter.NewKalman(cfg)
	}
	return b
}

// Apply filters each component of p and returns the smoothed pose.
func (b *FilterBank) Apply(p Pose) Pose {
	c := p.Components()
	for i, f := range b.filters {
		c[i] = f.Filter(c[i])
	}
	return FromComponents(c)
}

// Name identifies the bank in logs.
func (b *FilterBank) Name() string {
	return b.name
}

// Bank noise presets. Both trust observations with R = 0.1; the predict-biased
// bank allows ten times less drift per step so it follows the measurement more slowly.
var (
	PredictNoise = filter.Config{ProcessNoise: 0.001, MeasurementNoise: 0.1, A: 1, B: 0, C: 1}
	ObserveNoise = filter.Config{ProcessNoise: 0.01, MeasurementNoise: 0.1, A: 1, B: 0, C: 1}
)
