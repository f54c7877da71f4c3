package scene

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teslashibe/go-arpose/pkg/geom"
	"gonum.org/v1/gonum/spatial/r3"
)

func assertVecNear(t *testing.T, want, got r3.Vec, tol float64) {
	t.Helper()
	assert.InDelta(t, want.X, got.X, tol, "X")
	assert.InDelta(t, want.Y, got.Y, tol, "Y")
	assert.InDelta(t, want.Z, got.Z, tol, "Z")
}

func TestCamera_Defaults(t *testing.T) {
	cam := NewCamera(DefaultCameraConfig(), 640, 480)

	assertVecNear(t, r3.Vec{Y: 500}, cam.Position(), 1e-12)
	assert.InDelta(t, 4.0/3.0, cam.Aspect(), 1e-12)
	assert.Equal(t, 37.2, cam.FOV())

	r := cam.Ray(0, 0)
	assertVecNear(t, r3.Vec{Y: 500}, r.Origin, 1e-12)
	assertVecNear(t, r3.Vec{Y: -1}, r.Dir, 1e-12)

	// Screen up is world +Z.
	up := cam.Ray(0, 1)
	assert.Greater(t, up.Dir.Z, 0.0)
}

func TestCamera_SetTransform(t *testing.T) {
	cam := NewCamera(DefaultCameraConfig(), 640, 480)
	m := geom.Translation(r3.Vec{X: 1, Y: 2, Z: 3})
	cam.SetTransform(m)

	assert.Equal(t, m, cam.Transform())
	assertVecNear(t, r3.Vec{X: 1, Y: 2, Z: 3}, cam.Position(), 0)
	assertVecNear(t, r3.Vec{}, cam.Euler(), 0)

	// Identity rotation looks down -Z.
	assertVecNear(t, r3.Vec{Z: -1}, cam.Ray(0, 0).Dir, 1e-12)
}

func TestCamera_LookAt(t *testing.T) {
	cam := NewCamera(DefaultCameraConfig(), 640, 480)
	cam.SetTransform(geom.Translation(r3.Vec{X: 100}))
	cam.LookAt(r3.Vec{})

	assertVecNear(t, r3.Vec{X: 100}, cam.Position(), 1e-12)
	assertVecNear(t, r3.Vec{X: -1}, cam.Ray(0, 0).Dir, 1e-12)
}

func TestOrbitControls(t *testing.T) {
	cam := NewCamera(DefaultCameraConfig(), 640, 480)
	ctl := NewOrbitControls(cam, r3.Vec{}, 1, 1000)

	require.True(t, ctl.Enabled())
	require.NoError(t, ctl.Rotate(math.Pi/2, 0))
	assertVecNear(t, r3.Vec{X: -500}, cam.Position(), 1e-9)
	assertVecNear(t, r3.Vec{X: 1}, cam.Ray(0, 0).Dir, 1e-9)

	require.NoError(t, ctl.Dolly(3))
	assert.InDelta(t, 1000, ctl.Distance(), 1e-9)

	require.NoError(t, ctl.Dolly(1e-6))
	assert.InDelta(t, 1, ctl.Distance(), 1e-9)

	ctl.Disable()
	before := cam.Transform()
	assert.ErrorIs(t, ctl.Rotate(0.3, 0.1), ErrControlsDisabled)
	assert.ErrorIs(t, ctl.Dolly(2), ErrControlsDisabled)
	assert.Equal(t, before, cam.Transform())

	ctl.Enable()
	require.NoError(t, ctl.Rotate(0, 10))
	_, _, polar := ctl.spherical()
	assert.Less(t, polar, math.Pi)
}
