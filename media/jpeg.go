package media

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
)

const DefaultQuality = 50

type JPEGCodec struct {
	Quality int
}

func NewJPEGCodec(quality int) *JPEGCodec {
	if quality <= 0 || quality > 100 {
		quality = DefaultQuality
	}
	return &JPEGCodec{Quality: quality}
}

func (c *JPEGCodec) Encode(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: c.Quality}); err != nil {
		return nil, fmt.Errorf("jpeg encode: %w", err)
	}
	return buf.Bytes(), nil
}

func (c *JPEGCodec) Decode(data []byte) (image.Image, error) {
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return img, nil
}
