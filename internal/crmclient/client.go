// Package crmclient is a minimal GraphQL-over-HTTP client for the CRM API,
// used by the scheduled jobs.
package crmclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Config configures the client.
type Config struct {
	URL     string        `default:"http://localhost:8080/graphql" usage:"CRM GraphQL endpoint"`
	Retries int           `default:"3" usage:"Extra attempts on transport errors and 5xx responses"`
	Timeout time.Duration `default:"10s" usage:"Per-attempt HTTP timeout"`
}

// Client issues GraphQL operations against the CRM API. It is safe for
// concurrent use.
type Client struct {
	url     string
	retries int
	http    *http.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default instrumented HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// New creates a Client.
func New(cfg Config, opts ...Option) *Client {
	c := &Client{
		url:     cfg.URL,
		retries: max(cfg.Retries, 0),
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// GraphQLError is returned when the response carries a non-empty errors list.
type GraphQLError struct {
	Messages []string
}

func (e *GraphQLError) Error() string {
	if len(e.Messages) == 1 {
		return "graphql: " + e.Messages[0]
	}
	return fmt.Sprintf("graphql: %s (and %d more)", e.Messages[0], len(e.Messages)-1)
}

// statusError reports a non-200 HTTP response.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.code, e.body)
}

func (e *statusError) retryable() bool {
	return e.code >= 500
}

// variable is a single GraphQL variable encoder.
type variable struct {
	name string
	enc  func(e *jx.Encoder)
}

func encodeRequest(query string, vars []variable) []byte {
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("query", func(e *jx.Encoder) { e.Str(query) })
		if len(vars) == 0 {
			return
		}
		e.Field("variables", func(e *jx.Encoder) {
			e.Obj(func(e *jx.Encoder) {
				for _, v := range vars {
					e.Field(v.name, v.enc)
				}
			})
		})
	})
	return e.Bytes()
}

// do executes query and passes the "data" object to decodeData. The request
// is attempted at most 1+Retries times, without backoff.
func (c *Client) do(ctx context.Context, query string, vars []variable, decodeData func(d *jx.Decoder) error) error {
	body := encodeRequest(query, vars)

	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		raw, err := c.post(ctx, body)
		if err == nil {
			return decodeResponse(raw, decodeData)
		}
		lastErr = err

		var se *statusError
		if errors.As(err, &se) && !se.retryable() {
			return err
		}
	}
	return errors.Wrapf(lastErr, "after %d attempts", c.retries+1)
}

func (c *Client) post(ctx context.Context, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "send request")
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, errors.Wrap(err, "read response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &statusError{code: resp.StatusCode, body: string(bytes.TrimSpace(raw))}
	}
	return raw, nil
}

func decodeResponse(raw []byte, decodeData func(d *jx.Decoder) error) error {
	var (
		gqlErr  GraphQLError
		hasData bool
	)
	err := jx.DecodeBytes(raw).Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "data":
			if d.Next() == jx.Null {
				return d.Null()
			}
			hasData = true
			return decodeData(d)
		case "errors":
			return d.Arr(func(d *jx.Decoder) error {
				return d.Obj(func(d *jx.Decoder, key string) error {
					if key != "message" {
						return d.Skip()
					}
					msg, err := d.Str()
					if err != nil {
						return err
					}
					gqlErr.Messages = append(gqlErr.Messages, msg)
					return nil
				})
			})
		default:
			return d.Skip()
		}
	})
	if err != nil {
		return errors.Wrap(err, "decode response")
	}
	if len(gqlErr.Messages) > 0 {
		return &gqlErr
	}
	if !hasData {
		return errors.New("response has no data")
	}
	return nil
}

// field decodes the single top-level field named name from a data object.
func field(name string, f func(d *jx.Decoder) error) func(d *jx.Decoder) error {
	return func(d *jx.Decoder) error {
		return d.Obj(func(d *jx.Decoder, key string) error {
			if key != name {
				return d.Skip()
			}
			return f(d)
		})
	}
}
