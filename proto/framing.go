package proto

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

const HeaderSize = 4

// WriteMessage writes a 4-byte big-endian length followed by payload.
// Callers sharing w with other writers must hold a lock across the call.
func WriteMessage(w io.Writer, payload []byte) error {
	if uint64(len(payload)) > math.MaxUint32 {
		return fmt.Errorf("write message of %d bytes: %w", len(payload), ErrMessageTooLarge)
	}
	var header [HeaderSize]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(payload)))

	if _, err := w.Write(header[:]); err != nil {
		return wrapIOError("write header", err)
	}
	if len(payload) == 0 {
		return nil
	}
	if _, err := w.Write(payload); err != nil {
		return wrapIOError("write payload", err)
	}
	return nil
}

// ReadMessage blocks until one whole message has been read from r. Short
// reads are accumulated until the header and then the payload are complete.
// A max of 0 accepts any declared length.
func ReadMessage(r io.Reader, max uint32) ([]byte, error) {
	var header [HeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, wrapIOError("read header", err)
	}
	n := binary.BigEndian.Uint32(header[:])
	if max > 0 && n > max {
		return nil, fmt.Errorf("declared length %d exceeds limit %d: %w", n, max, ErrMessageTooLarge)
	}

	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		// EOF after a complete header is always mid-message.
		return nil, wrapIOError("read payload", err)
	}
	return payload, nil
}
