package pose

import (
	"sync"

	"gonum.org/v1/gonum/spatial/r3"
)

// MockSolver implements Solver for testing.
type MockSolver struct {
	// SolveFunc is called when Solve is invoked.
	SolveFunc func(object []r3.Vec, image []Point2, guess *Pose) (Pose, error)

	mu    sync.Mutex
	calls []MockSolveCall
}

// MockSolveCall records one Solve invocation.
type MockSolveCall struct {
	Points int
	Guess  *Pose
}

// NewMockSolver returns a solver that always reports p.
func NewMockSolver(p Pose) *MockSolver {
	return &MockSolver{
		SolveFunc: func([]r3.Vec, []Point2, *Pose) (Pose, error) {
			return p, nil
		},
	}
}

// Solve implements Solver.
func (m *MockSolver) Solve(object []r3.Vec, image []Point2, _ Intrinsics, _ Distortion, guess *Pose) (Pose, error) {
	var g *Pose
	if guess != nil {
		cp := *guess
		g = &cp
	}

	m.mu.Lock()
	m.calls = append(m.calls, MockSolveCall{Points: len(image), Guess: g})
	m.mu.Unlock()

	return m.SolveFunc(object, image, guess)
}

// Calls returns the recorded invocations.
func (m *MockSolver) Calls() []MockSolveCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockSolveCall, len(m.calls))
	copy(out, m.calls)
	return out
}
