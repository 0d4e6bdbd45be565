package math

// Mat3 is a 3x3 rotation matrix stored as rows.
type Mat3 struct {
	X, Y, Z Vec3
}

// Mat3Identity returns the identity rotation.
func Mat3Identity() Mat3 {
	return Mat3{X: Right, Y: Up, Z: Back}
}

// Mat3FromColumns builds a matrix whose columns are c0, c1 and c2.
func Mat3FromColumns(c0, c1, c2 Vec3) Mat3 {
	return Mat3{
		X: Vec3{c0.X, c1.X, c2.X},
		Y: Vec3{c0.Y, c1.Y, c2.Y},
		Z: Vec3{c0.Z, c1.Z, c2.Z},
	}
}

// Mul multiplies this matrix by another (m * other).
func (m Mat3) Mul(other Mat3) Mat3 {
	t := other.Transpose()
	return Mat3{
		X: Vec3{m.X.Dot(t.X), m.X.Dot(t.Y), m.X.Dot(t.Z)},
		Y: Vec3{m.Y.Dot(t.X), m.Y.Dot(t.Y), m.Y.Dot(t.Z)},
		Z: Vec3{m.Z.Dot(t.X), m.Z.Dot(t.Y), m.Z.Dot(t.Z)},
	}
}

// MulVec returns m * v.
func (m Mat3) MulVec(v Vec3) Vec3 {
	return Vec3{m.X.Dot(v), m.Y.Dot(v), m.Z.Dot(v)}
}

// Transpose returns the transposed matrix, which is the inverse of a rotation.
func (m Mat3) Transpose() Mat3 {
	return Mat3FromColumns(m.X, m.Y, m.Z)
}
