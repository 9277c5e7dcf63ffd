// Package wire implements the deterministic binary encoding used for game
// messages. All multi-byte fields are big-endian; integers may also be
// encoded as varints. The same logical value always encodes to the same
// bytes, which keeps payloads comparable and replayable.
//
// Vector fields (2/3/4 float components) have two fixed-width encodings
// chosen per schema at definition time: full single-precision, or packed
// half-precision for bandwidth-sensitive messages. Both round-trip exactly
// at their declared precision.
package wire
