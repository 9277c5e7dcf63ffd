package wire

// Fixed-size float vectors carried by game messages (positions, directions,
// orientation triples). Components are float32; the wire width depends on
// which encoder method the message schema picked (full or half precision).

// Vec2 is a 2-component float vector.
type Vec2 struct {
	X, Y float32
}

// Vec3 is a 3-component float vector.
type Vec3 struct {
	X, Y, Z float32
}

// Vec4 is a 4-component float vector.
type Vec4 struct {
	X, Y, Z, W float32
}

// IsZero reports whether all components are exactly zero.
func (v Vec2) IsZero() bool {
	return v.X == 0 && v.Y == 0
}

// IsZero reports whether all components are exactly zero.
func (v Vec3) IsZero() bool {
	return v.X == 0 && v.Y == 0 && v.Z == 0
}

// IsZero reports whether all components are exactly zero.
func (v Vec4) IsZero() bool {
	return v.X == 0 && v.Y == 0 && v.Z == 0 && v.W == 0
}

// Quantize returns the vector with every component passed through the
// half-precision encoding. Useful for predicting what a peer will see when
// the schema uses a packed encoding.
func (v Vec2) Quantize() Vec2 {
	return Vec2{
		X: Float16frombits(Float16bits(v.X)),
		Y: Float16frombits(Float16bits(v.Y)),
	}
}

// Quantize returns the vector with every component passed through the
// half-precision encoding.
func (v Vec3) Quantize() Vec3 {
	return Vec3{
		X: Float16frombits(Float16bits(v.X)),
		Y: Float16frombits(Float16bits(v.Y)),
		Z: Float16frombits(Float16bits(v.Z)),
	}
}

// Quantize returns the vector with every component passed through the
// half-precision encoding.
func (v Vec4) Quantize() Vec4 {
	return Vec4{
		X: Float16frombits(Float16bits(v.X)),
		Y: Float16frombits(Float16bits(v.Y)),
		Z: Float16frombits(Float16bits(v.Z)),
		W: Float16frombits(Float16bits(v.W)),
	}
}
