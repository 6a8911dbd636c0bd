package wire

import (
	"fmt"
	"io"

	"reqldriver/internal/proto"
)

// HeaderSize is the fixed 8-byte token + 4-byte length header every frame
// (in either direction) is prefixed with.
const HeaderSize = 12

// WriteFrame writes a token(8B LE) || length(4B LE) || payload frame to w.
func WriteFrame(w io.Writer, token uint64, payload []byte) error {
	if uint64(len(payload)) > uint64(proto.MaxFrameSize) {
		return fmt.Errorf("wire: payload length %d exceeds max frame size %d", len(payload), proto.MaxFrameSize)
	}
	frame := make([]byte, HeaderSize+len(payload))
	copy(frame[0:8], Pack(token, 8))
	copy(frame[8:12], Pack(uint64(len(payload)), 4))
	copy(frame[12:], payload)
	if _, err := w.Write(frame); err != nil {
		return fmt.Errorf("wire: write frame: %w", err)
	}
	return nil
}

// ReadFrame reads one token || length || payload frame from r, blocking
// until the full frame has arrived or r returns an error.
func ReadFrame(r io.Reader) (token uint64, payload []byte, err error) {
	var hdr [HeaderSize]byte
	if _, err = io.ReadFull(r, hdr[:]); err != nil {
		return 0, nil, fmt.Errorf("wire: read header: %w", err)
	}
	token = Unpack(hdr[0:8])
	length := Unpack(hdr[8:12])
	if length > uint64(proto.MaxFrameSize) {
		return 0, nil, fmt.Errorf("wire: frame length %d exceeds max frame size %d", length, proto.MaxFrameSize)
	}
	payload = make([]byte, length)
	if _, err = io.ReadFull(r, payload); err != nil {
		return 0, nil, fmt.Errorf("wire: read payload: %w", err)
	}
	return token, payload, nil
}
