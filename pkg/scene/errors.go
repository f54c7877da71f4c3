package scene

import "errors"

var (
	// ErrControlsDisabled is returned when orbit input arrives while the
	// controls are locked.
	ErrControlsDisabled = errors.New("scene: orbit controls disabled")

	// ErrNoGeometry is returned when a mesh file contains no faces.
	ErrNoGeometry = errors.New("scene: mesh has no geometry")

	// ErrBadFace is returned for a face that references a missing vertex.
	ErrBadFace = errors.New("scene: face references unknown vertex")
)
