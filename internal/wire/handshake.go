package wire

import (
	"fmt"
	"io"

	"reqldriver/internal/proto"
)

// maxStatusSize bounds the NUL-terminated handshake status line, guarding
// against a misbehaving peer that streams bytes without ever sending the
// terminator. It does not bound how long ReadStatus waits for bytes.
const maxStatusSize = 16 * 1024

// BuildHandshake assembles the V0_3 handshake request: version magic,
// auth-key length, auth-key bytes, wire-format magic, concatenated with no
// separators.
func BuildHandshake(authKey string) []byte {
	key := []byte(authKey)
	out := make([]byte, 0, 4+4+len(key)+4)
	out = append(out, Pack(uint64(proto.V0_3), 4)...)
	out = append(out, Pack(uint64(len(key)), 4)...)
	out = append(out, key...)
	out = append(out, Pack(uint64(proto.JSONWireFormat), 4)...)
	return out
}

// ReadStatus reads bytes from r until a NUL byte, returning the status
// string preceding it (without the terminator).
func ReadStatus(r io.Reader) (string, error) {
	var buf []byte
	b := make([]byte, 1)
	for {
		if _, err := io.ReadFull(r, b); err != nil {
			return "", fmt.Errorf("wire: read handshake status: %w", err)
		}
		if b[0] == 0x00 {
			return string(buf), nil
		}
		buf = append(buf, b[0])
		if len(buf) > maxStatusSize {
			return "", fmt.Errorf("wire: handshake status exceeds %d bytes", maxStatusSize)
		}
	}
}
