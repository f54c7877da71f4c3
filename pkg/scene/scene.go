// Package scene provides the 3D viewer the tracker drives: a scene graph of
// meshes, a perspective camera with orbit controls, ray casting and a
// software renderer.
package scene

import (
	"math"
	"sync"
)

// Inventory is a set of objects that should be shown.
type Inventory interface {
	Objects() []*Object
}

// Scene is a thread-safe set of objects.
type Scene struct {
	mu      sync.RWMutex
	objects []*Object
}

// New creates an empty scene.
func New() *Scene {
	return &Scene{}
}

// Add inserts o. Returns false if it is already present.
func (s *Scene) Add(o *Object) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexOf(o) >= 0 {
		return false
	}
	s.objects = append(s.objects, o)
	return true
}

// Remove deletes o. Returns false if it was not present.
func (s *Scene) Remove(o *Object) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(o)
	if i < 0 {
		return false
	}
	s.objects = append(s.objects[:i], s.objects[i+1:]...)
	return true
}

// Contains reports whether o is in the scene.
func (s *Scene) Contains(o *Object) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.indexOf(o) >= 0
}

// Objects returns a snapshot of the scene's objects in insertion order.
func (s *Scene) Objects() []*Object {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Object, len(s.objects))
	copy(out, s.objects)
	return out
}

// Len returns the number of objects.
func (s *Scene) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}

// Intersect returns the nearest hit over all objects.
func (s *Scene) Intersect(r Ray) (Hit, bool) {
	return nearest(r, s.Objects())
}

func (s *Scene) indexOf(o *Object) int {
	for i, obj := range s.objects {
		if obj == o {
			return i
		}
	}
	return -1
}

func nearest(r Ray, objects []*Object) (Hit, bool) {
	best := Hit{Distance: math.Inf(1)}
	found := false
	for _, o := range objects {
		if h, ok := o.Intersect(r); ok && h.Distance < best.Distance {
			best = h
			found = true
		}
	}
	return best, found
}

// SameObjects reports whether a and b hold exactly the same objects.
func SameObjects(a, b Inventory) bool {
	ao, bo := a.Objects(), b.Objects()
	if len(ao) != len(bo) {
		return false
	}
	set := make(map[*Object]struct{}, len(ao))
	for _, o := range ao {
		set[o] = struct{}{}
	}
	for _, o := range bo {
		if _, ok := set[o]; !ok {
			return false
		}
	}
	return true
}
