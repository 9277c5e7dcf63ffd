package net

import (
	"encoding/binary"
	"errors"
)

// PRE_HEAD_SIZE is the fixed frame prefix length.
const PRE_HEAD_SIZE = 4

// helloSize is the length of the schema hello a client sends as its very
// first bytes when checksum verification is enabled (magic + checksum).
const helloSize = 8

// helloMagic marks the schema hello so a stray peer speaking a different
// protocol is rejected instead of misread.
const helloMagic uint32 = 0x41524e41 // "ARNA"

// PreHead is the per-frame prefix: the byte length of the body that follows.
type PreHead struct {
	BodySize uint32
}

// EncodePreHead encodes the frame prefix.
func EncodePreHead(hdr *PreHead) []byte {
	buf := make([]byte, PRE_HEAD_SIZE)
	binary.LittleEndian.PutUint32(buf, hdr.BodySize)
	return buf
}

// DecodePreHead decodes the frame prefix.
func DecodePreHead(buf []byte) (*PreHead, error) {
	if len(buf) < PRE_HEAD_SIZE {
		return &PreHead{}, errors.New("buff too small")
	}
	hdr := &PreHead{
		BodySize: binary.LittleEndian.Uint32(buf),
	}
	if hdr.BodySize == 0 {
		return hdr, errors.New("invalid")
	}
	return hdr, nil
}

// encodeHello builds the 8-byte schema hello for the given registry checksum.
func encodeHello(checksum uint32) []byte {
	buf := make([]byte, helloSize)
	binary.LittleEndian.PutUint32(buf[0:4], helloMagic)
	binary.LittleEndian.PutUint32(buf[4:8], checksum)
	return buf
}

// decodeHello validates the magic and returns the peer's schema checksum.
func decodeHello(buf []byte) (uint32, error) {
	if len(buf) < helloSize {
		return 0, errors.New("hello too small")
	}
	if binary.LittleEndian.Uint32(buf[0:4]) != helloMagic {
		return 0, errors.New("bad hello magic")
	}
	return binary.LittleEndian.Uint32(buf[4:8]), nil
}
