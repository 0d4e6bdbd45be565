package math

// Mat4 is a 4x4 matrix in column-major order (glTF/OpenGL compatible).
// Layout: [m0 m4 m8  m12]
//
//	[m1 m5 m9  m13]
//	[m2 m6 m10 m14]
//	[m3 m7 m11 m15]
type Mat4 [16]float32

// Mat4 returns the homogeneous matrix equivalent of the transform.
func (c CFrame) Mat4() Mat4 {
	r, p := c.Rotation, c.Position
	return Mat4{
		r.X.X, r.Y.X, r.Z.X, 0,
		r.X.Y, r.Y.Y, r.Z.Y, 0,
		r.X.Z, r.Y.Z, r.Z.Z, 0,
		p.X, p.Y, p.Z, 1,
	}
}
