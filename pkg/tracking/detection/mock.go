package detection

import (
	"context"
	"image"
	"sync"
	"sync/atomic"
)

// MockDetector implements Detector for testing.
type MockDetector struct {
	// DetectFunc is called when Detect is invoked.
	DetectFunc func(ctx context.Context, img image.Image) ([]Landmark, error)

	// CloseFunc is called when Close is invoked.
	CloseFunc func() error

	mu       sync.Mutex
	calls    int
	inflight atomic.Int32
	maxSeen  atomic.Int32
}

// NewMockDetector returns a detector that always reports landmarks.
func NewMockDetector(landmarks []Landmark) *MockDetector {
	return &MockDetector{
		DetectFunc: func(context.Context, image.Image) ([]Landmark, error) {
			out := make([]Landmark, len(landmarks))
			copy(out, landmarks)
			return out, nil
		},
	}
}

// Detect implements Detector.
func (m *MockDetector) Detect(ctx context.Context, img image.Image) ([]Landmark, error) {
	n := m.inflight.Add(1)
	defer m.inflight.Add(-1)
	for {
		seen := m.maxSeen.Load()
		if n <= seen || m.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}

	m.mu.Lock()
	m.calls++
	fn := m.DetectFunc
	m.mu.Unlock()

	if fn == nil {
		return []Landmark{}, nil
	}
	return fn(ctx, img)
}

// Close implements Detector.
func (m *MockDetector) Close() error {
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

// SetDetectFunc swaps the detect behavior while calls may be in flight.
func (m *MockDetector) SetDetectFunc(fn func(ctx context.Context, img image.Image) ([]Landmark, error)) {
	m.mu.Lock()
	m.DetectFunc = fn
	m.mu.Unlock()
}

// Calls returns the number of Detect invocations.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// MaxConcurrent returns the highest number of overlapping Detect calls seen.
func (m *MockDetector) MaxConcurrent() int {
	return int(m.maxSeen.Load())
}
