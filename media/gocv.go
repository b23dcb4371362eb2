//go:build gocv

package media

import (
	"errors"
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// DeviceCamera opens a local camera through OpenCV. Only built with -tags gocv.
type DeviceCamera struct {
	Index int
}

func NewDeviceCamera(index int) Camera {
	return &DeviceCamera{Index: index}
}

func (d *DeviceCamera) Open(width, height int) (Capture, error) {
	webcam, err := gocv.OpenVideoCapture(d.Index)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}
	if !webcam.IsOpened() {
		webcam.Close()
		return nil, fmt.Errorf("%w: camera %d did not open", ErrDeviceUnavailable, d.Index)
	}

	webcam.Set(gocv.VideoCaptureFrameWidth, float64(width))
	webcam.Set(gocv.VideoCaptureFrameHeight, float64(height))

	return &gocvCapture{webcam: webcam, mat: gocv.NewMat()}, nil
}

type gocvCapture struct {
	webcam *gocv.VideoCapture
	mat    gocv.Mat
}

func (c *gocvCapture) ReadFrame() (image.Image, error) {
	if ok := c.webcam.Read(&c.mat); !ok || c.mat.Empty() {
		return nil, errors.New("camera returned no frame")
	}
	return c.mat.ToImage()
}

func (c *gocvCapture) Close() error {
	c.mat.Close()
	return c.webcam.Close()
}
