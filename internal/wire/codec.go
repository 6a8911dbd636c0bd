// Package wire implements the byte-level codec and framing for the driver's
// query protocol: little-endian integer packing, length-delimited message
// frames, and the handshake preamble.
package wire

import "encoding/binary"

// Pack encodes v as an unsigned little-endian integer occupying width bytes.
// width must be 4 or 8; any other value panics, since it indicates a
// programmer error in a caller that should only ever use the two widths the
// protocol defines (handshake/length fields and tokens).
func Pack(v uint64, width int) []byte {
	switch width {
	case 4:
		b := make([]byte, 4)
		binary.LittleEndian.PutUint32(b, uint32(v))
		return b
	case 8:
		b := make([]byte, 8)
		binary.LittleEndian.PutUint64(b, v)
		return b
	default:
		panic("wire: unsupported pack width")
	}
}

// Unpack decodes an unsigned little-endian integer from data. len(data) must
// be 4 or 8.
func Unpack(data []byte) uint64 {
	switch len(data) {
	case 4:
		return uint64(binary.LittleEndian.Uint32(data))
	case 8:
		return binary.LittleEndian.Uint64(data)
	default:
		panic("wire: unsupported unpack width")
	}
}
