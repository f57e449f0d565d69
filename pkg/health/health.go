package health

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/jx"
)

// Registry holds the probes of one process.
type Registry struct {
	live  []*probe
	ready []*probe

	accepting atomic.Bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

func New() *Registry {
	return &Registry{}
}

// Live registers a probe that fails /livez.
func (r *Registry) Live(name string, timeout time.Duration, check Check) {
	r.live = append(r.live, newProbe(name, timeout, check))
}

// Ready registers a probe that fails /readyz.
func (r *Registry) Ready(name string, timeout time.Duration, check Check) {
	r.ready = append(r.ready, newProbe(name, timeout, check))
}

// Start polls every registered probe each interval until Stop is called or
// ctx is done. Probes must be registered before Start.
func (r *Registry) Start(ctx context.Context, interval time.Duration) {
	ctx, r.cancel = context.WithCancel(ctx)
	for _, p := range append(append([]*probe{}, r.live...), r.ready...) {
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			t := time.NewTicker(interval)
			defer t.Stop()

			p.poll(ctx)
			for {
				select {
				case <-ctx.Done():
					return
				case <-t.C:
					p.poll(ctx)
				}
			}
		}()
	}
}

// Stop halts polling and waits for in-flight checks.
func (r *Registry) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()
}

// SetReady toggles whether the process accepts traffic. It is flipped off
// at the start of a graceful shutdown.
func (r *Registry) SetReady(ready bool) {
	r.accepting.Store(ready)
}

// Mount registers GET /livez and GET /readyz on router.
func (r *Registry) Mount(router chi.Router) {
	router.Get("/livez", r.serveLive)
	router.Get("/readyz", r.serveReady)
}

func (r *Registry) serveLive(w http.ResponseWriter, _ *http.Request) {
	writeStatus(w, true, r.live)
}

func (r *Registry) serveReady(w http.ResponseWriter, _ *http.Request) {
	writeStatus(w, r.accepting.Load(), r.ready)
}

// writeStatus responds with {"status":"ok"} or
// {"status":"unavailable","checks":{"<probe>":"<error>"}}.
func writeStatus(w http.ResponseWriter, accepting bool, probes []*probe) {
	var failed [][2]string
	for _, p := range probes {
		if msg, bad := p.failure(); bad {
			failed = append(failed, [2]string{p.name, msg})
		}
	}

	var e jx.Encoder
	status := http.StatusOK
	e.Obj(func(e *jx.Encoder) {
		if accepting && len(failed) == 0 {
			e.Field("status", func(e *jx.Encoder) { e.Str("ok") })
			return
		}
		status = http.StatusServiceUnavailable
		e.Field("status", func(e *jx.Encoder) { e.Str("unavailable") })
		if !accepting {
			e.Field("reason", func(e *jx.Encoder) { e.Str("shutting down") })
		}
		if len(failed) > 0 {
			e.Field("checks", func(e *jx.Encoder) {
				e.Obj(func(e *jx.Encoder) {
					for _, f := range failed {
						e.Field(f[0], func(e *jx.Encoder) { e.Str(f[1]) })
					}
				})
			})
		}
	})

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}
