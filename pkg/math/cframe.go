package math

// CFrame is a rigid transform: a position plus a rotation matrix.
type CFrame struct {
	Position Vec3
	Rotation Mat3
}

// CFrameIdentity returns the transform at the origin with no rotation.
func CFrameIdentity() CFrame {
	return NewCFrame(0, 0, 0)
}

// NewCFrame returns an unrotated transform at (x, y, z).
func NewCFrame(x, y, z float32) CFrame {
	return CFrame{Position: Vec3{x, y, z}, Rotation: Mat3Identity()}
}

// CFrameFromComponents builds a transform from its 12 components:
// x, y, z followed by the rotation rows.
func CFrameFromComponents(c [12]float32) CFrame {
	return CFrame{
		Position: Vec3{c[0], c[1], c[2]},
		Rotation: Mat3{
			X: Vec3{c[3], c[4], c[5]},
			Y: Vec3{c[6], c[7], c[8]},
			Z: Vec3{c[9], c[10], c[11]},
		},
	}
}

// Components returns the inverse of CFrameFromComponents.
func (c CFrame) Components() [12]float32 {
	p, m := c.Position, c.Rotation
	return [12]float32{
		p.X, p.Y, p.Z,
		m.X.X, m.X.Y, m.X.Z,
		m.Y.X, m.Y.Y, m.Y.Z,
		m.Z.X, m.Z.Y, m.Z.Z,
	}
}

// FromAxisAngle returns a rotation-only transform of theta radians about axis.
// The basis axes are rotated individually and become the matrix columns.
func FromAxisAngle(axis Vec3, theta float32) CFrame {
	r := Right.AxisAngle(axis, theta)
	u := Up.AxisAngle(axis, theta)
	b := Back.AxisAngle(axis, theta)
	return CFrame{Rotation: Mat3FromColumns(r, u, b)}
}

// Angles returns the rotation Rx(x) * Ry(y) * Rz(z), angles in radians.
func Angles(x, y, z float32) CFrame {
	cfx := FromAxisAngle(Right, x)
	cfy := FromAxisAngle(Up, y)
	cfz := FromAxisAngle(Back, z)
	return cfx.Mul(cfy).Mul(cfz)
}

// Mul composes c with other: the result applies other in c's frame.
func (c CFrame) Mul(other CFrame) CFrame {
	return CFrame{
		Position: c.Rotation.MulVec(other.Position).Add(c.Position),
		Rotation: c.Rotation.Mul(other.Rotation),
	}
}
