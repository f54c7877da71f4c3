package feed

import (
	"image"
	"sync/atomic"
	"time"
)

// Static replays a fixed image at a steady rate. It stands in for a camera
// in tests and demos.
type Static struct {
	img      image.Image
	interval time.Duration
	reads    atomic.Int64
}

// NewStatic creates a source yielding img every interval.
func NewStatic(img image.Image, interval time.Duration) *Static {
	return &Static{img: img, interval: interval}
}

// Open implements Source.
func (s *Static) Open() error { return nil }

// Read implements Source.
func (s *Static) Read() (image.Image, error) {
	if n := s.reads.Add(1); n > 1 && s.interval > 0 {
		time.Sleep(s.interval)
	}
	return s.img, nil
}

// Close implements Source.
func (s *Static) Close() error { return nil }
