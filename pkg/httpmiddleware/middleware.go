// Package httpmiddleware contains the net/http middleware stack of the CRM API.
package httpmiddleware

import (
	"net/http"

	"github.com/go-faster/jx"
)

// Middleware decorates an http.Handler.
type Middleware func(http.Handler) http.Handler

// Wrap applies mws to h so that the first middleware sees the request first.
func Wrap(h http.Handler, mws ...Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// writeError responds with a GraphQL-shaped error body so that clients can
// parse transport failures the same way as resolver errors.
func writeError(w http.ResponseWriter, status int, msg string) {
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("errors", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				e.Obj(func(e *jx.Encoder) {
					e.Field("message", func(e *jx.Encoder) { e.Str(msg) })
				})
			})
		})
	})
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}
