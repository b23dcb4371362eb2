//go:build !gocv

package media

import "fmt"

// DeviceCamera stands in for a real camera when the binary was built
// without -tags gocv. Opening it always fails, which the rover reports to
// the earth side as "Camera not available".
type DeviceCamera struct {
	Index int
}

func NewDeviceCamera(index int) Camera {
	return &DeviceCamera{Index: index}
}

func (d *DeviceCamera) Open(width, height int) (Capture, error) {
	return nil, fmt.Errorf("%w: camera %d requires a build with -tags gocv", ErrDeviceUnavailable, d.Index)
}
