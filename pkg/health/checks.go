package health

import (
	"context"
	"runtime"
	"runtime/debug"
	"time"

	"github.com/go-faster/errors"
)

// Pinger is implemented by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Ping checks that p answers within the probe timeout.
func Ping(p Pinger) Check {
	return func(ctx context.Context) error {
		if err := p.Ping(ctx); err != nil {
			return errors.Wrap(err, "ping")
		}
		return nil
	}
}

// Goroutines fails when more than limit goroutines are running, which
// usually means a leak.
func Goroutines(limit int) Check {
	return func(context.Context) error {
		if n := runtime.NumGoroutine(); n > limit {
			return errors.Errorf("%d goroutines running, limit %d", n, limit)
		}
		return nil
	}
}

// GCPause fails when any recent stop-the-world pause exceeded limit.
func GCPause(limit time.Duration) Check {
	return func(context.Context) error {
		var stats debug.GCStats
		debug.ReadGCStats(&stats)
		for _, d := range stats.Pause {
			if d > limit {
				return errors.Errorf("gc pause %s over %s", d, limit)
			}
		}
		return nil
	}
}
