package dedup

import (
	"fmt"

	"github.com/chewxy/math32"

	"github.com/Faultbox/meshdedup/pkg/formats"
)

// RotationStrategy picks the yaw, in radians, applied to a duplicate whose
// mesh is replaced by the canonical one.
type RotationStrategy interface {
	Angle(canonical, duplicate *formats.Mesh) float32
}

// RotationFunc adapts a function to RotationStrategy.
type RotationFunc func(canonical, duplicate *formats.Mesh) float32

// Angle calls f.
func (f RotationFunc) Angle(canonical, duplicate *formats.Mesh) float32 {
	return f(canonical, duplicate)
}

// ZeroRotation keeps the duplicate's orientation unchanged.
var ZeroRotation RotationStrategy = RotationFunc(func(_, _ *formats.Mesh) float32 {
	return 0
})

// MaximaRotation turns the duplicate by the angle between the bounding-box
// maxima of the two meshes in the XZ plane.
var MaximaRotation RotationStrategy = RotationFunc(func(canonical, duplicate *formats.Mesh) float32 {
	dx := canonical.Bounds.Max.X - duplicate.Bounds.Max.X
	dz := canonical.Bounds.Max.Z - duplicate.Bounds.Max.Z
	return math32.Atan2(dz, dx)
})

// RotationByName maps a configuration value to a strategy.
func RotationByName(name string) (RotationStrategy, error) {
	switch name {
	case "", "none":
		return ZeroRotation, nil
	case "maxima":
		return MaximaRotation, nil
	default:
		return nil, fmt.Errorf("unknown rotation strategy %q", name)
	}
}
