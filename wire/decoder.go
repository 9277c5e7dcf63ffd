package wire

import (
	"errors"
	"io"
	"math"
)

// Allocation limits to prevent runaway allocations from malicious or corrupt
// length prefixes. Game frames are small; anything near these limits is
// already garbage.
const (
	// MaxAllocation is the maximum length-prefixed allocation (1MB).
	MaxAllocation = 1 << 20

	// MaxCollectionCount is the maximum number of items in a list.
	MaxCollectionCount = 65535
)

// Common decoding errors.
var (
	ErrVarintOverflow     = errors.New("wire: varint overflow")
	ErrAllocationTooLarge = errors.New("wire: allocation size exceeds limit")
	ErrCollectionTooLarge = errors.New("wire: collection count exceeds limit")
	ErrTrailingBytes      = errors.New("wire: trailing bytes after payload")
)

// Decoder is a binary decoder that reads from a byte buffer.
type Decoder struct {
	buf []byte
	pos int
}

// NewDecoder creates a new decoder over the given byte slice.
func NewDecoder(buf []byte) *Decoder {
	return &Decoder{buf: buf}
}

// Remaining returns the number of unread bytes.
func (d *Decoder) Remaining() int {
	return len(d.buf) - d.pos
}

// EOF returns true if all bytes have been read.
func (d *Decoder) EOF() bool {
	return d.pos >= len(d.buf)
}

// ReadByte reads a single byte.
func (d *Decoder) ReadByte() (byte, error) {
	if d.pos >= len(d.buf) {
		return 0, io.ErrUnexpectedEOF
	}
	b := d.buf[d.pos]
	d.pos++
	return b, nil
}

// ReadBytes reads exactly n bytes and returns them.
// The returned slice references the decoder's buffer; do not modify.
func (d *Decoder) ReadBytes(n int) ([]byte, error) {
	if d.pos+n > len(d.buf) {
		return nil, io.ErrUnexpectedEOF
	}
	b := d.buf[d.pos : d.pos+n]
	d.pos += n
	return b, nil
}

// ReadUvarint reads an unsigned varint.
func (d *Decoder) ReadUvarint() (uint64, error) {
	var v uint64
	var shift uint

	for {
		if d.pos >= len(d.buf) {
			return 0, io.ErrUnexpectedEOF
		}
		b := d.buf[d.pos]
		d.pos++
		v |= uint64(b&0x7F) << shift
		if b < 0x80 {
			return v, nil
		}
		shift += 7
		if shift >= 64 {
			return 0, ErrVarintOverflow
		}
	}
}

// ReadSvarint reads a signed varint using ZigZag decoding.
func (d *Decoder) ReadSvarint() (int64, error) {
	uv, err := d.ReadUvarint()
	if err != nil {
		return 0, err
	}
	v := int64(uv >> 1)
	if uv&1 != 0 {
		v = ^v
	}
	return v, nil
}

// ReadString reads a length-prefixed UTF-8 string.
func (d *Decoder) ReadString() (string, error) {
	length, err := d.ReadUvarint()
	if err != nil {
		return "", err
	}
	if length > uint64(d.Remaining()) {
		return "", io.ErrUnexpectedEOF
	}
	if length > MaxAllocation {
		return "", ErrAllocationTooLarge
	}
	n := int(length)
	s := string(d.buf[d.pos : d.pos+n])
	d.pos += n
	return s, nil
}

// ReadLenBytes reads length-prefixed bytes.
// Returns a copy of the bytes (safe to retain).
func (d *Decoder) ReadLenBytes() ([]byte, error) {
	length, err := d.ReadUvarint()
	if err != nil {
		return nil, err
	}
	if length > uint64(d.Remaining()) {
		return nil, io.ErrUnexpectedEOF
	}
	if length > MaxAllocation {
		return nil, ErrAllocationTooLarge
	}
	n := int(length)
	b := make([]byte, n)
	copy(b, d.buf[d.pos:d.pos+n])
	d.pos += n
	return b, nil
}

// ReadCollectionCount reads a varint count and validates it against limits.
// Use this when reading the size of lists or other collections.
func (d *Decoder) ReadCollectionCount() (int, error) {
	count, err := d.ReadUvarint()
	if err != nil {
		return 0, err
	}
	if count > MaxCollectionCount {
		return 0, ErrCollectionTooLarge
	}
	// At minimum one byte per item for the smallest possible items.
	if count > uint64(d.Remaining()) {
		return 0, io.ErrUnexpectedEOF
	}
	return int(count), nil
}

// ReadStringList reads a count-prefixed list of strings.
func (d *Decoder) ReadStringList() ([]string, error) {
	count, err := d.ReadCollectionCount()
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, nil
	}
	list := make([]string, 0, count)
	for i := 0; i < count; i++ {
		s, err := d.ReadString()
		if err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	return list, nil
}

// ReadBool reads a boolean (single byte: 0x00=false, anything else=true).
func (d *Decoder) ReadBool() (bool, error) {
	b, err := d.ReadByte()
	if err != nil {
		return false, err
	}
	return b != 0x00, nil
}

// ReadUint16 reads a uint16 in big-endian byte order.
func (d *Decoder) ReadUint16() (uint16, error) {
	if d.pos+2 > len(d.buf) {
		return 0, io.ErrUnexpectedEOF
	}
	v := uint16(d.buf[d.pos])<<8 | uint16(d.buf[d.pos+1])
	d.pos += 2
	return v, nil
}

// ReadUint32 reads a uint32 in big-endian byte order.
func (d *Decoder) ReadUint32() (uint32, error) {
	if d.pos+4 > len(d.buf) {
		return 0, io.ErrUnexpectedEOF
	}
	v := uint32(d.buf[d.pos])<<24 | uint32(d.buf[d.pos+1])<<16 |
		uint32(d.buf[d.pos+2])<<8 | uint32(d.buf[d.pos+3])
	d.pos += 4
	return v, nil
}

// ReadUint64 reads a uint64 in big-endian byte order.
func (d *Decoder) ReadUint64() (uint64, error) {
	if d.pos+8 > len(d.buf) {
		return 0, io.ErrUnexpectedEOF
	}
	v := uint64(d.buf[d.pos])<<56 | uint64(d.buf[d.pos+1])<<48 |
		uint64(d.buf[d.pos+2])<<40 | uint64(d.buf[d.pos+3])<<32 |
		uint64(d.buf[d.pos+4])<<24 | uint64(d.buf[d.pos+5])<<16 |
		uint64(d.buf[d.pos+6])<<8 | uint64(d.buf[d.pos+7])
	d.pos += 8
	return v, nil
}

// ReadInt16 reads an int16 in big-endian byte order.
func (d *Decoder) ReadInt16() (int16, error) {
	v, err := d.ReadUint16()
	return int16(v), err
}

// ReadInt32 reads an int32 in big-endian byte order.
func (d *Decoder) ReadInt32() (int32, error) {
	v, err := d.ReadUint32()
	return int32(v), err
}

// ReadInt64 reads an int64 in big-endian byte order.
func (d *Decoder) ReadInt64() (int64, error) {
	v, err := d.ReadUint64()
	return int64(v), err
}

// ReadFloat32 reads a float32 in IEEE 754 format (big-endian).
func (d *Decoder) ReadFloat32() (float32, error) {
	v, err := d.ReadUint32()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(v), nil
}

// ReadFloat64 reads a float64 in IEEE 754 format (big-endian).
func (d *Decoder) ReadFloat64() (float64, error) {
	v, err := d.ReadUint64()
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(v), nil
}

// ReadFloat16 reads an IEEE 754 half-precision float (2 bytes, big-endian)
// widened to float32.
func (d *Decoder) ReadFloat16() (float32, error) {
	v, err := d.ReadUint16()
	if err != nil {
		return 0, err
	}
	return Float16frombits(v), nil
}

// ReadVec2 reads a Vec2 stored as two single-precision floats.
func (d *Decoder) ReadVec2() (Vec2, error) {
	var v Vec2
	var err error
	if v.X, err = d.ReadFloat32(); err != nil {
		return Vec2{}, err
	}
	if v.Y, err = d.ReadFloat32(); err != nil {
		return Vec2{}, err
	}
	return v, nil
}

// ReadVec3 reads a Vec3 stored as three single-precision floats.
func (d *Decoder) ReadVec3() (Vec3, error) {
	var v Vec3
	var err error
	if v.X, err = d.ReadFloat32(); err != nil {
		return Vec3{}, err
	}
	if v.Y, err = d.ReadFloat32(); err != nil {
		return Vec3{}, err
	}
	if v.Z, err = d.ReadFloat32(); err != nil {
		return Vec3{}, err
	}
	return v, nil
}

// ReadVec4 reads a Vec4 stored as four single-precision floats.
func (d *Decoder) ReadVec4() (Vec4, error) {
	var v Vec4
	var err error
	if v.X, err = d.ReadFloat32(); err != nil {
		return Vec4{}, err
	}
	if v.Y, err = d.ReadFloat32(); err != nil {
		return Vec4{}, err
	}
	if v.Z, err = d.ReadFloat32(); err != nil {
		return Vec4{}, err
	}
	if v.W, err = d.ReadFloat32(); err != nil {
		return Vec4{}, err
	}
	return v, nil
}

// ReadVec2Half reads a Vec2 packed as two half-precision floats.
func (d *Decoder) ReadVec2Half() (Vec2, error) {
	var v Vec2
	var err error
	if v.X, err = d.ReadFloat16(); err != nil {
		return Vec2{}, err
	}
	if v.Y, err = d.ReadFloat16(); err != nil {
		return Vec2{}, err
	}
	return v, nil
}

// ReadVec3Half reads a Vec3 packed as three half-precision floats.
func (d *Decoder) ReadVec3Half() (Vec3, error) {
	var v Vec3
	var err error
	if v.X, err = d.ReadFloat16(); err != nil {
		return Vec3{}, err
	}
	if v.Y, err = d.ReadFloat16(); err != nil {
		return Vec3{}, err
	}
	if v.Z, err = d.ReadFloat16(); err != nil {
		return Vec3{}, err
	}
	return v, nil
}

// ReadVec4Half reads a Vec4 packed as four half-precision floats.
func (d *Decoder) ReadVec4Half() (Vec4, error) {
	var v Vec4
	var err error
	if v.X, err = d.ReadFloat16(); err != nil {
		return Vec4{}, err
	}
	if v.Y, err = d.ReadFloat16(); err != nil {
		return Vec4{}, err
	}
	if v.Z, err = d.ReadFloat16(); err != nil {
		return Vec4{}, err
	}
	if v.W, err = d.ReadFloat16(); err != nil {
		return Vec4{}, err
	}
	return v, nil
}
