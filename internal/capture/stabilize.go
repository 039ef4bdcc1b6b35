package capture

import (
	"context"
	"time"
)

// Stabilizer waits for asynchronously rendered content before a capture.
type Stabilizer interface {
	Settle(ctx context.Context, d time.Duration) error
}

// FixedDelay waits the full duration. There is no completion signal; the
// delay is an empirically chosen window.
type FixedDelay struct{}

func (FixedDelay) Settle(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
