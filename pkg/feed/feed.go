package feed

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// retryDelay spaces out reads after a device error or an empty frame.
const retryDelay = 100 * time.Millisecond

var (
	// ErrInactive is returned by Frame while the feed is stopped.
	ErrInactive = errors.New("feed: inactive")

	// ErrAlreadyActive is returned by Start on a running feed.
	ErrAlreadyActive = errors.New("feed: already active")
)

// Feed is a live video stream the tracker samples.
type Feed interface {
	// Active reports whether the stream is switched on.
	Active() bool
	// Ready reports whether a frame is available.
	Ready() bool
	// Frame returns the latest frame, waiting for the first one if needed.
	Frame(ctx context.Context) (image.Image, error)
}

// Source produces frames from a device. Read blocks until the next frame.
type Source interface {
	Open() error
	Read() (image.Image, error)
	Close() error
}

// Switch turns a Source on and off and latches its latest frame.
type Switch struct {
	src    Source
	logger *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	active atomic.Bool

	frameMu    sync.RWMutex
	latest     image.Image
	frameReady chan struct{}
}

// NewSwitch wraps src. The feed starts inactive.
func NewSwitch(src Source, logger *slog.Logger) *Switch {
	if logger == nil {
		logger = slog.Default()
	}
	return &Switch{
		src:        src,
		logger:     logger,
		frameReady: make(chan struct{}),
	}
}

// Start opens the source and begins reading frames.
func (s *Switch) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active.Load() {
		return ErrAlreadyActive
	}
	if err := s.src.Open(); err != nil {
		return fmt.Errorf("open feed: %w", err)
	}

	s.frameMu.Lock()
	s.latest = nil
	s.frameReady = make(chan struct{})
	s.frameMu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.active.Store(true)

	go s.readLoop(ctx, s.done)

	s.logger.Info("feed started")
	return nil
}

// Stop halts reading and closes the source. Stopping an inactive feed is
// a no-op.
func (s *Switch) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active.Load() {
		return nil
	}
	s.active.Store(false)
	s.cancel()
	<-s.done

	s.frameMu.Lock()
	s.latest = nil
	s.frameMu.Unlock()

	s.logger.Info("feed stopped")
	return s.src.Close()
}

// Active reports whether the feed is switched on.
func (s *Switch) Active() bool {
	return s.active.Load()
}

// Ready reports whether a frame has arrived since Start.
func (s *Switch) Ready() bool {
	if !s.active.Load() {
		return false
	}
	s.frameMu.RLock()
	defer s.frameMu.RUnlock()
	return s.latest != nil
}

// Frame returns the latest frame.
func (s *Switch) Frame(ctx context.Context) (image.Image, error) {
	if !s.active.Load() {
		return nil, ErrInactive
	}

	s.frameMu.RLock()
	latest, ready := s.latest, s.frameReady
	s.frameMu.RUnlock()
	if latest != nil {
		return latest, nil
	}

	select {
	case <-ready:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	s.frameMu.RLock()
	defer s.frameMu.RUnlock()
	if s.latest == nil {
		return nil, ErrInactive
	}
	return s.latest, nil
}

func (s *Switch) readLoop(ctx context.Context, done chan struct{}) {
	defer close(done)

	first := true
	for {
		if ctx.Err() != nil {
			return
		}

		img, err := s.src.Read()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.logger.Warn("feed read failed", "error", err)
			if !sleepCtx(ctx, retryDelay) {
				return
			}
			continue
		}
		if img == nil || img.Bounds().Empty() {
			if !sleepCtx(ctx, retryDelay) {
				return
			}
			continue
		}

		s.frameMu.Lock()
		s.latest = img
		if first {
			close(s.frameReady)
			first = false
		}
		s.frameMu.Unlock()
	}
}

// sleepCtx waits for d and reports false if ctx ended first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
