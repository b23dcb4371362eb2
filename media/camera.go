package media

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"strconv"
	"sync"
)

// ErrEndOfStream is returned by a capture that has no more frames.
var ErrEndOfStream = errors.New("end of stream")

// NewCamera resolves a device name from the config: "test" for the
// synthetic pattern, "none" for no device, or a numeric camera index.
func NewCamera(device string) (Camera, error) {
	switch device {
	case "", "test":
		return &TestPattern{}, nil
	case "none":
		return NoCamera{}, nil
	}
	index, err := strconv.Atoi(device)
	if err != nil {
		return nil, fmt.Errorf("unknown camera device %q", device)
	}
	return NewDeviceCamera(index), nil
}

// NoCamera never opens.
type NoCamera struct{}

func (NoCamera) Open(width, height int) (Capture, error) {
	return nil, ErrDeviceUnavailable
}

// TestPattern produces a moving gradient. Limit caps the number of frames
// per capture; zero means unlimited.
type TestPattern struct {
	Limit int

	mu     sync.Mutex
	opened int
}

func (p *TestPattern) Open(width, height int) (Capture, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: invalid resolution %dx%d", ErrDeviceUnavailable, width, height)
	}
	p.mu.Lock()
	p.opened++
	p.mu.Unlock()
	return &patternCapture{width: width, height: height, limit: p.Limit}, nil
}

// Opened reports how many times the pattern has been opened.
func (p *TestPattern) Opened() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.opened
}

type patternCapture struct {
	width, height int
	limit         int
	n             int
	closed        bool
}

func (c *patternCapture) ReadFrame() (image.Image, error) {
	if c.closed {
		return nil, errors.New("capture closed")
	}
	if c.limit > 0 && c.n >= c.limit {
		return nil, ErrEndOfStream
	}
	c.n++

	img := image.NewRGBA(image.Rect(0, 0, c.width, c.height))
	shift := c.n * 8
	for y := 0; y < c.height; y++ {
		for x := 0; x < c.width; x++ {
			img.Set(x, y, color.RGBA{
				R: uint8((x + shift) * 255 / c.width),
				G: uint8(y * 255 / c.height),
				B: uint8(shift),
				A: 255,
			})
		}
	}
	return img, nil
}

func (c *patternCapture) Close() error {
	c.closed = true
	return nil
}
