package scene

import (
	"context"
	"image"
	"image/color"
	"math"
	"runtime"
	"sync"
	"time"

	"github.com/teslashibe/go-arpose/pkg/geom"
	"gonum.org/v1/gonum/spatial/r3"
)

// DirectionalLight shines uniformly from Direction (pointing toward the light).
type DirectionalLight struct {
	Direction r3.Vec  `yaml:"direction"`
	Intensity float64 `yaml:"intensity"`
}

// Config holds viewer configuration.
type Config struct {
	Width        int                `yaml:"width"`
	Height       int                `yaml:"height"`
	Camera       CameraConfig       `yaml:"camera"`
	MinDistance  float64            `yaml:"min_distance"`
	MaxDistance  float64            `yaml:"max_distance"`
	Ambient      float64            `yaml:"ambient"`
	Lights       []DirectionalLight `yaml:"lights"`
	Background   color.RGBA         `yaml:"-"`
	OriginMarker bool               `yaml:"origin_marker"` // Small red sphere at the orbit target
}

// DefaultConfig returns a 640×480 viewer with one key and one fill light.
func DefaultConfig() Config {
	return Config{
		Width:       640,
		Height:      480,
		Camera:      DefaultCameraConfig(),
		MinDistance: 1,
		MaxDistance: 1000,
		Ambient:     0.3,
		Lights: []DirectionalLight{
			{Direction: r3.Vec{X: 5, Y: 5, Z: 5}, Intensity: 0.9},
			{Direction: r3.Vec{X: -5, Y: -5, Z: -5}, Intensity: 0.6},
		},
		Background:   color.RGBA{A: 0xff},
		OriginMarker: true,
	}
}

// Engine is the viewer: scene, camera, controls and renderer.
type Engine struct {
	cfg      Config
	scene    *Scene
	camera   *Camera
	controls *OrbitControls
	marker   *Object
	lights   []DirectionalLight

	frameMu sync.RWMutex
	frame   *image.RGBA
}

// NewEngine creates a viewer from cfg.
func NewEngine(cfg Config) *Engine {
	cam := NewCamera(cfg.Camera, cfg.Width, cfg.Height)
	e := &Engine{
		cfg:      cfg,
		scene:    New(),
		camera:   cam,
		controls: NewOrbitControls(cam, cfg.Camera.Target, cfg.MinDistance, cfg.MaxDistance),
	}
	for _, l := range cfg.Lights {
		if r3.Norm(l.Direction) == 0 {
			continue
		}
		e.lights = append(e.lights, DirectionalLight{Direction: r3.Unit(l.Direction), Intensity: l.Intensity})
	}
	if cfg.OriginMarker {
		e.marker = NewSphere("origin", cfg.Camera.Target, 5, 16, color.RGBA{R: 0xff, A: 0xff})
	}
	return e
}

// Size returns the viewport size in pixels.
func (e *Engine) Size() (width, height int) {
	return e.cfg.Width, e.cfg.Height
}

// Scene returns the scene graph.
func (e *Engine) Scene() *Scene { return e.scene }

// Camera returns the viewer camera.
func (e *Engine) Camera() *Camera { return e.camera }

// Controls returns the orbit controls.
func (e *Engine) Controls() *OrbitControls { return e.controls }

// Add puts o in the scene.
func (e *Engine) Add(o *Object) bool { return e.scene.Add(o) }

// Remove takes o out of the scene.
func (e *Engine) Remove(o *Object) bool { return e.scene.Remove(o) }

// Objects lists the scene's user objects. The origin marker is not included.
func (e *Engine) Objects() []*Object { return e.scene.Objects() }

// Matches reports whether the scene holds exactly the inventory's objects.
func (e *Engine) Matches(inv Inventory) bool {
	return SameObjects(e.scene, inv)
}

// CameraTransform returns the camera-to-world transform.
func (e *Engine) CameraTransform() geom.Mat4 {
	return e.camera.Transform()
}

// SetCameraTransform moves the camera.
func (e *Engine) SetCameraTransform(m geom.Mat4) {
	e.camera.SetTransform(m)
}

// SetControlsEnabled toggles orbit input.
func (e *Engine) SetControlsEnabled(enabled bool) {
	if enabled {
		e.controls.Enable()
	} else {
		e.controls.Disable()
	}
}

// Intersect casts a ray through the NDC point and returns the first
// world-space hit, including the origin marker.
func (e *Engine) Intersect(ndcX, ndcY float64) (r3.Vec, bool) {
	h, ok := e.cast(e.camera.Ray(ndcX, ndcY))
	if !ok {
		return r3.Vec{}, false
	}
	return h.Point, true
}

func (e *Engine) cast(r Ray) (Hit, bool) {
	objects := e.scene.Objects()
	if e.marker != nil {
		objects = append(objects, e.marker)
	}
	return nearest(r, objects)
}

// Render draws the scene from the current camera.
func (e *Engine) Render() image.Image {
	img := e.render()
	e.frameMu.Lock()
	e.frame = img
	e.frameMu.Unlock()
	return img
}

// LastFrame returns the most recent render, or nil before the first one.
func (e *Engine) LastFrame() image.Image {
	e.frameMu.RLock()
	defer e.frameMu.RUnlock()
	if e.frame == nil {
		return nil
	}
	return e.frame
}

// Animate renders every interval until ctx is done, passing each frame
// to onFrame when it is non-nil.
func (e *Engine) Animate(ctx context.Context, interval time.Duration, onFrame func(image.Image)) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			frame := e.Render()
			if onFrame != nil {
				onFrame(frame)
			}
		}
	}
}

func (e *Engine) render() *image.RGBA {
	w, h := e.cfg.Width, e.cfg.Height
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	if w == 0 || h == 0 {
		return img
	}

	cam := e.snapshotCamera()
	objects := e.scene.Objects()
	if e.marker != nil {
		objects = append(objects, e.marker)
	}

	workers := runtime.NumCPU()
	if workers > h {
		workers = h
	}
	rows := make(chan int, h)
	for y := 0; y < h; y++ {
		rows <- y
	}
	close(rows)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for y := range rows {
				ndcY := -(2*(float64(y)+0.5)/float64(h) - 1)
				for x := 0; x < w; x++ {
					ndcX := 2*(float64(x)+0.5)/float64(w) - 1
					r := cam.Ray(ndcX, ndcY)
					img.SetRGBA(x, y, e.shade(r, objects))
				}
			}
		}()
	}
	wg.Wait()
	return img
}

// snapshotCamera copies the camera so one frame uses one transform.
func (e *Engine) snapshotCamera() *Camera {
	return &Camera{
		fov:       e.camera.fov,
		aspect:    e.camera.aspect,
		near:      e.camera.near,
		far:       e.camera.far,
		up:        e.camera.up,
		transform: e.camera.Transform(),
	}
}

func (e *Engine) shade(r Ray, objects []*Object) color.RGBA {
	bg := e.cfg.Background
	hit, ok := nearest(r, objects)
	if !ok || hit.Distance > e.camera.far || hit.Distance < e.camera.near {
		return bg
	}

	n := hit.Normal
	if r3.Dot(n, r.Dir) > 0 {
		n = r3.Scale(-1, n)
	}

	light := e.cfg.Ambient
	for _, l := range e.lights {
		light += math.Max(0, r3.Dot(n, l.Direction)) * l.Intensity
	}

	alpha := hit.Object.Opacity()
	c := hit.Object.Color
	mix := func(fg, back uint8) uint8 {
		v := float64(fg)*light*alpha + float64(back)*(1-alpha)
		return uint8(math.Max(0, math.Min(255, v)))
	}
	return color.RGBA{R: mix(c.R, bg.R), G: mix(c.G, bg.G), B: mix(c.B, bg.B), A: 0xff}
}
