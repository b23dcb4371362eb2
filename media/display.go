package media

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
)

// LogDisplay only logs what it would have shown.
type LogDisplay struct {
	shown atomic.Uint64
}

func (d *LogDisplay) Show(frame Frame) error {
	d.shown.Add(1)
	b := frame.Image.Bounds()
	slog.Info("Frame received", "seq", frame.Seq, "width", b.Dx(), "height", b.Dy(), "size", len(frame.Encoded), "latency", frame.Latency)
	return nil
}

func (d *LogDisplay) QuitRequested() bool { return false }

func (d *LogDisplay) Shown() uint64 { return d.shown.Load() }

// DirDisplay writes each received frame as a JPEG file into Dir.
type DirDisplay struct {
	Dir   string
	codec Codec
	saved atomic.Uint64
}

func NewDirDisplay(dir string, quality int) (*DirDisplay, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &DirDisplay{Dir: dir, codec: NewJPEGCodec(quality)}, nil
}

func (d *DirDisplay) Show(frame Frame) error {
	data := frame.Encoded
	if len(data) == 0 {
		var err error
		if data, err = d.codec.Encode(frame.Image); err != nil {
			return err
		}
	}
	n := d.saved.Add(1)
	name := fmt.Sprintf("frame_%06d_%s.jpg", n, frame.Received.Format("20060102_150405.000"))
	if err := os.WriteFile(filepath.Join(d.Dir, name), data, 0o644); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}
	return nil
}

func (d *DirDisplay) QuitRequested() bool { return false }

func (d *DirDisplay) Saved() uint64 { return d.saved.Load() }
