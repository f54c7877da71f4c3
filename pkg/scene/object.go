package scene

import (
	"image/color"
	"math"
	"sync"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/spatial/r3"
)

const hitEpsilon = 1e-9

// Triangle is one mesh face in world coordinates.
type Triangle struct {
	A, B, C r3.Vec
}

// Normal returns the unit face normal (right-hand winding).
func (t Triangle) Normal() r3.Vec {
	n := r3.Cross(r3.Sub(t.B, t.A), r3.Sub(t.C, t.A))
	if r3.Norm(n) == 0 {
		return r3.Vec{}
	}
	return r3.Unit(n)
}

// intersect is Möller–Trumbore, double sided. Returns the ray parameter.
func (t Triangle) intersect(r Ray) (float64, bool) {
	e1 := r3.Sub(t.B, t.A)
	e2 := r3.Sub(t.C, t.A)
	p := r3.Cross(r.Dir, e2)
	det := r3.Dot(e1, p)
	if math.Abs(det) < hitEpsilon {
		return 0, false
	}
	inv := 1 / det

	s := r3.Sub(r.Origin, t.A)
	u := r3.Dot(s, p) * inv
	if u < 0 || u > 1 {
		return 0, false
	}

	q := r3.Cross(s, e1)
	v := r3.Dot(r.Dir, q) * inv
	if v < 0 || u+v > 1 {
		return 0, false
	}

	d := r3.Dot(e2, q) * inv
	if d <= hitEpsilon {
		return 0, false
	}
	return d, true
}

// Ray is a half-line with a unit direction.
type Ray struct {
	Origin r3.Vec
	Dir    r3.Vec
}

// At returns the point at distance d along the ray.
func (r Ray) At(d float64) r3.Vec {
	return r3.Add(r.Origin, r3.Scale(d, r.Dir))
}

// Hit describes the nearest surface a ray meets.
type Hit struct {
	Object   *Object
	Point    r3.Vec
	Normal   r3.Vec
	Distance float64
}

// Object is a named, colored triangle mesh placed in world coordinates.
// Geometry is immutable after construction; opacity can change at runtime.
type Object struct {
	ID    uuid.UUID
	Name  string
	Color color.RGBA

	triangles []Triangle
	min, max  r3.Vec

	mu      sync.RWMutex
	opacity float64
}

// NewObject creates a mesh object. The triangle slice is copied.
func NewObject(name string, triangles []Triangle, c color.RGBA) *Object {
	o := &Object{
		ID:        uuid.New(),
		Name:      name,
		Color:     c,
		triangles: make([]Triangle, len(triangles)),
		opacity:   1,
	}
	copy(o.triangles, triangles)

	inf := math.Inf(1)
	o.min = r3.Vec{X: inf, Y: inf, Z: inf}
	o.max = r3.Vec{X: -inf, Y: -inf, Z: -inf}
	for _, t := range o.triangles {
		for _, v := range [3]r3.Vec{t.A, t.B, t.C} {
			o.min = r3.Vec{X: math.Min(o.min.X, v.X), Y: math.Min(o.min.Y, v.Y), Z: math.Min(o.min.Z, v.Z)}
			o.max = r3.Vec{X: math.Max(o.max.X, v.X), Y: math.Max(o.max.Y, v.Y), Z: math.Max(o.max.Z, v.Z)}
		}
	}
	return o
}

// NewQuad creates a flat rectangle from four corners in winding order.
func NewQuad(name string, a, b, c, d r3.Vec, col color.RGBA) *Object {
	return NewObject(name, []Triangle{{a, b, c}, {a, c, d}}, col)
}

// NewSphere creates a UV sphere mesh.
func NewSphere(name string, center r3.Vec, radius float64, segments int, col color.RGBA) *Object {
	if segments < 3 {
		segments = 3
	}
	point := func(i, j int) r3.Vec {
		theta := math.Pi * float64(i) / float64(segments)
		phi := 2 * math.Pi * float64(j) / float64(segments)
		return r3.Add(center, r3.Vec{
			X: radius * math.Sin(theta) * math.Cos(phi),
			Y: radius * math.Sin(theta) * math.Sin(phi),
			Z: radius * math.Cos(theta),
		})
	}

	var tris []Triangle
	for i := 0; i < segments; i++ {
		for j := 0; j < segments; j++ {
			a, b := point(i, j), point(i+1, j)
			c, d := point(i+1, j+1), point(i, j+1)
			if i != 0 {
				tris = append(tris, Triangle{a, b, d})
			}
			if i != segments-1 {
				tris = append(tris, Triangle{b, c, d})
			}
		}
	}
	return NewObject(name, tris, col)
}

// Triangles returns a copy of the mesh.
func (o *Object) Triangles() []Triangle {
	out := make([]Triangle, len(o.triangles))
	copy(out, o.triangles)
	return out
}

// Bounds returns the axis-aligned bounding box.
func (o *Object) Bounds() (min, max r3.Vec) {
	return o.min, o.max
}

// Opacity returns the render opacity in [0,1].
func (o *Object) Opacity() float64 {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.opacity
}

// SetOpacity sets the render opacity, clamped to [0,1].
func (o *Object) SetOpacity(v float64) {
	o.mu.Lock()
	o.opacity = math.Max(0, math.Min(1, v))
	o.mu.Unlock()
}

// Intersect returns the nearest hit of r on this object.
func (o *Object) Intersect(r Ray) (Hit, bool) {
	if !o.hitsBounds(r) {
		return Hit{}, false
	}

	best := Hit{Distance: math.Inf(1)}
	found := false
	for i := range o.triangles {
		d, ok := o.triangles[i].intersect(r)
		if !ok || d >= best.Distance {
			continue
		}
		best = Hit{Object: o, Distance: d, Normal: o.triangles[i].Normal()}
		found = true
	}
	if found {
		best.Point = r.At(best.Distance)
	}
	return best, found
}

// hitsBounds is the slab test against the bounding box.
func (o *Object) hitsBounds(r Ray) bool {
	if len(o.triangles) == 0 {
		return false
	}
	tmin, tmax := math.Inf(-1), math.Inf(1)
	origin := [3]float64{r.Origin.X, r.Origin.Y, r.Origin.Z}
	dir := [3]float64{r.Dir.X, r.Dir.Y, r.Dir.Z}
	lo := [3]float64{o.min.X, o.min.Y, o.min.Z}
	hi := [3]float64{o.max.X, o.max.Y, o.max.Z}
	for i := 0; i < 3; i++ {
		if dir[i] == 0 {
			if origin[i] < lo[i]-hitEpsilon || origin[i] > hi[i]+hitEpsilon {
				return false
			}
			continue
		}
		t1 := (lo[i] - origin[i]) / dir[i]
		t2 := (hi[i] - origin[i]) / dir[i]
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tmin = math.Max(tmin, t1)
		tmax = math.Min(tmax, t2)
	}
	return tmax >= math.Max(tmin, 0)-hitEpsilon
}
