// Package health serves liveness and readiness probes for the CRM API.
//
// Each probe is polled in the background. A probe turns unhealthy after
// three consecutive failures and healthy again after one success, so a
// single slow database round trip does not flap the pod out of rotation.
package health

import (
	"context"
	"sync/atomic"
	"time"
)

// Check reports whether a dependency is usable.
type Check func(ctx context.Context) error

const (
	failuresToTrip  = 3
	successesToHeal = 1
)

type probe struct {
	name    string
	timeout time.Duration
	check   Check

	healthy atomic.Bool
	lastErr atomic.Pointer[string]

	// Only touched by the polling goroutine.
	fails, oks int
}

func newProbe(name string, timeout time.Duration, check Check) *probe {
	p := &probe{name: name, timeout: timeout, check: check}
	p.healthy.Store(true)
	return p
}

func (p *probe) poll(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if err := p.check(ctx); err != nil {
		msg := err.Error()
		p.lastErr.Store(&msg)
		p.oks = 0
		p.fails++
		if p.fails >= failuresToTrip {
			p.healthy.Store(false)
		}
		return
	}

	p.lastErr.Store(nil)
	p.fails = 0
	p.oks++
	if p.oks >= successesToHeal {
		p.healthy.Store(true)
	}
}

// failure returns the last error text of an unhealthy probe.
func (p *probe) failure() (string, bool) {
	if p.healthy.Load() {
		return "", false
	}
	if msg := p.lastErr.Load(); msg != nil {
		return *msg, true
	}
	return "unhealthy", true
}
