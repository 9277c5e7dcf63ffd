package wire

import "math"

// Half-precision (IEEE 754 binary16) conversion. Used by the packed vector
// encodings to halve per-component bandwidth; the conversion rounds to
// nearest even and is exact on the way back up, so encode/decode round-trips
// bit-for-bit at half precision.

// Float16bits converts a float32 to its IEEE 754 binary16 representation.
// Values beyond the binary16 range saturate to infinity; NaN stays NaN.
func Float16bits(f float32) uint16 {
	u := math.Float32bits(f)
	sign := uint16((u >> 16) & 0x8000)
	exp := (u >> 23) & 0xff
	man := u & 0x7fffff

	if exp == 0xff {
		if man != 0 {
			// Quiet NaN; keep the top mantissa bits so payload-ish NaNs
			// stay distinguishable from infinity.
			return sign | 0x7e00 | uint16(man>>13)
		}
		return sign | 0x7c00
	}

	e := int32(exp) - 127 + 15
	if e >= 0x1f {
		return sign | 0x7c00
	}

	if e <= 0 {
		// Subnormal half, or underflow to zero.
		if e < -10 {
			return sign
		}
		man |= 0x800000
		shift := uint32(14 - e)
		half := man >> shift
		round := uint32(1) << (shift - 1)
		if man&round != 0 && (man&(round-1) != 0 || half&1 != 0) {
			half++
		}
		return sign | uint16(half)
	}

	half := sign | uint16(e)<<10 | uint16(man>>13)
	// Round to nearest even on the 13 dropped bits. A mantissa carry rolls
	// into the exponent field, which is exactly the right behavior (up to
	// and including overflow to infinity).
	if man&0x1000 != 0 && (man&0x0fff != 0 || man&0x2000 != 0) {
		half++
	}
	return half
}

// Float16frombits converts an IEEE 754 binary16 representation to float32.
// The conversion is exact: every binary16 value is representable in binary32.
func Float16frombits(h uint16) float32 {
	sign := uint32(h&0x8000) << 16
	exp := uint32(h>>10) & 0x1f
	man := uint32(h & 0x3ff)

	switch {
	case exp == 0:
		if man == 0 {
			return math.Float32frombits(sign)
		}
		// Subnormal half: renormalize into the binary32 format.
		e := uint32(127 - 15 + 1)
		for man&0x400 == 0 {
			man <<= 1
			e--
		}
		man &= 0x3ff
		return math.Float32frombits(sign | e<<23 | man<<13)
	case exp == 0x1f:
		if man == 0 {
			return math.Float32frombits(sign | 0x7f800000)
		}
		return math.Float32frombits(sign | 0x7f800000 | man<<13)
	}
	return math.Float32frombits(sign | (exp+127-15)<<23 | man<<13)
}
