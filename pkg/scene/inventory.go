package scene

import (
	"image/color"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Mesh colors by anatomical name.
var (
	ArteryColor  = color.RGBA{R: 0xff, A: 0xff}
	VeinColor    = color.RGBA{G: 0xbf, B: 0xff, A: 0xff}
	DefaultColor = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
)

// ColorFor picks a mesh color from its file name: arteries red, veins
// blue, everything else white.
func ColorFor(name string) color.RGBA {
	switch {
	case strings.Contains(name, "veins"):
		return VeinColor
	case strings.Contains(name, "artery"), strings.Contains(name, "arteries"):
		return ArteryColor
	default:
		return DefaultColor
	}
}

// Cabinet is the user's object inventory. The tracker keeps the scene in
// step with it.
type Cabinet struct {
	mu      sync.RWMutex
	objects []*Object
}

// NewCabinet creates an empty cabinet.
func NewCabinet() *Cabinet {
	return &Cabinet{}
}

// Add stores o. Returns false if it is already stored.
func (c *Cabinet) Add(o *Object) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, obj := range c.objects {
		if obj == o {
			return false
		}
	}
	c.objects = append(c.objects, o)
	return true
}

// Remove deletes the object with the given ID.
func (c *Cabinet) Remove(id uuid.UUID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, obj := range c.objects {
		if obj.ID == id {
			c.objects = append(c.objects[:i], c.objects[i+1:]...)
			return true
		}
	}
	return false
}

// Get looks an object up by ID.
func (c *Cabinet) Get(id uuid.UUID) (*Object, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, obj := range c.objects {
		if obj.ID == id {
			return obj, true
		}
	}
	return nil, false
}

// Objects returns a snapshot of the stored objects.
func (c *Cabinet) Objects() []*Object {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*Object, len(c.objects))
	copy(out, c.objects)
	return out
}

// Len returns the number of stored objects.
func (c *Cabinet) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.objects)
}
