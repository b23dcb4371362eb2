package proto

import (
	"context"
	"time"
)

// Delay holds a message back for the one-way link latency. It reports
// whether the full delay elapsed; false means ctx ended first.
func Delay(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
