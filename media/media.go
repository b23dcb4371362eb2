// Package media holds the contracts lunalink needs from the outside world:
// an image codec, a capture device and a display. The protocol code only
// depends on these interfaces.
package media

import (
	"errors"
	"image"
	"time"
)

var (
	// ErrDeviceUnavailable is returned by Camera.Open when no capture device can be used.
	ErrDeviceUnavailable = errors.New("capture device unavailable")

	// ErrDecode marks a payload that is not a valid encoded frame.
	ErrDecode = errors.New("malformed frame payload")
)

type Codec interface {
	Encode(img image.Image) ([]byte, error)
	Decode(data []byte) (image.Image, error)
}

type Camera interface {
	Open(width, height int) (Capture, error)
}

// Capture is an opened device handle.
type Capture interface {
	ReadFrame() (image.Image, error)
	Close() error
}

type Display interface {
	Show(frame Frame) error
	QuitRequested() bool
}

type Frame struct {
	Seq      uint64
	Image    image.Image
	Encoded  []byte        // payload as received, before decoding
	Received time.Time
	Latency  time.Duration // one-way delay, only known in tagged mode
}
