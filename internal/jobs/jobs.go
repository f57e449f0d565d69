// Package jobs implements the CRM background jobs. Each job issues one
// operation against the CRM API, appends timestamped lines to its sink and
// swallows operation failures after recording them.
package jobs

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/xenking/crm/internal/crmclient"
)

// Job names, as accepted by "crm-jobs run".
const (
	NameHeartbeat = "heartbeat"
	NameLowStock  = "low-stock"
	NameReminders = "order-reminders"
	NameReport    = "revenue-report"
)

const (
	heartbeatLayout = "02/01/2006-15:04:05"
	stampLayout     = "2006-01-02 15:04:05"
)

// API is the CRM surface the jobs call.
type API interface {
	Hello(ctx context.Context) (string, error)
	UpdateLowStockProducts(ctx context.Context) (*crmclient.RestockResult, error)
	RecentOrders(ctx context.Context, lastDays int) ([]crmclient.OrderReminder, error)
	Report(ctx context.Context) (*crmclient.Report, error)
}

// Job is a unit of scheduled work.
type Job struct {
	Name     string
	Schedule string
	run      func(ctx context.Context) ([]string, error)
	sink     Sink
	env      *env
}

// Run executes the job once. Failures are written to the sink and the log,
// never returned.
func (j *Job) Run(ctx context.Context) {
	lg := j.env.lg.With(zap.String("job", j.Name))
	start := time.Now()

	lines, err := j.run(ctx)
	outcome := "ok"
	if err != nil {
		outcome = "error"
		lg.Warn("Job operation failed", zap.Error(err))
	}

	if werr := j.sink.Append(lines...); werr != nil {
		outcome = "sink_error"
		lg.Error("Write job log", zap.Error(werr))
	}

	j.env.runs.Add(ctx, 1, metric.WithAttributes(
		attribute.String("job", j.Name),
		attribute.String("outcome", outcome),
	))
	lg.Info("Job finished",
		zap.String("outcome", outcome),
		zap.Int("lines", len(lines)),
		zap.Duration("took", time.Since(start)),
	)
}

// env carries the dependencies shared by all jobs.
type env struct {
	api  API
	now  func() time.Time
	lg   *zap.Logger
	runs metric.Int64Counter
}

// Option customizes job construction.
type Option func(*options)

type options struct {
	now   func() time.Time
	mp    metric.MeterProvider
	sinks map[string]Sink
}

// WithClock overrides the time source used for log timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithMeterProvider sets the meter provider for job run counters.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) { o.mp = mp }
}

// WithSink replaces the file sink of the named job.
func WithSink(name string, s Sink) Option {
	return func(o *options) { o.sinks[name] = s }
}

// Set is the full collection of CRM jobs.
type Set struct {
	jobs []*Job
}

// New builds every job from cfg.
func New(cfg Config, api API, lg *zap.Logger, opts ...Option) (*Set, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "validate config")
	}

	o := options{now: time.Now, mp: otel.GetMeterProvider(), sinks: map[string]Sink{}}
	for _, opt := range opts {
		opt(&o)
	}

	runs, err := o.mp.Meter("crm/jobs").Int64Counter("crm.jobs.runs",
		metric.WithDescription("Job runs by job and outcome"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create runs counter")
	}
	e := &env{api: api, now: o.now, lg: lg, runs: runs}

	sink := func(name, path string) Sink {
		if s, ok := o.sinks[name]; ok {
			return s
		}
		return NewFileSink(path)
	}

	return &Set{jobs: []*Job{
		{
			Name:     NameHeartbeat,
			Schedule: cfg.Heartbeat.Schedule,
			run:      e.heartbeat,
			sink:     sink(NameHeartbeat, cfg.Heartbeat.LogFile),
			env:      e,
		},
		{
			Name:     NameLowStock,
			Schedule: cfg.LowStock.Schedule,
			run:      e.lowStock,
			sink:     sink(NameLowStock, cfg.LowStock.LogFile),
			env:      e,
		},
		{
			Name:     NameReminders,
			Schedule: cfg.Reminders.Schedule,
			run:      e.reminders(cfg.Reminders.LastDays),
			sink:     sink(NameReminders, cfg.Reminders.LogFile),
			env:      e,
		},
		{
			Name:     NameReport,
			Schedule: cfg.Report.Schedule,
			run:      e.report,
			sink:     sink(NameReport, cfg.Report.LogFile),
			env:      e,
		},
	}}, nil
}

// All returns the jobs in registration order.
func (s *Set) All() []*Job {
	return slices.Clone(s.jobs)
}

// Get returns the job with the given name.
func (s *Set) Get(name string) (*Job, bool) {
	for _, j := range s.jobs {
		if j.Name == name {
			return j, true
		}
	}
	return nil, false
}

// Names lists the registered job names.
func (s *Set) Names() []string {
	names := make([]string, len(s.jobs))
	for i, j := range s.jobs {
		names[i] = j.Name
	}
	return names
}

func (e *env) heartbeat(ctx context.Context) ([]string, error) {
	ts := e.now().Format(heartbeatLayout)
	lines := []string{ts + " CRM is alive"}

	hello, err := e.api.Hello(ctx)
	if err != nil {
		return append(lines, fmt.Sprintf("%s - GraphQL request failed: %v", ts, err)), err
	}
	return append(lines, fmt.Sprintf("%s - GraphQL responded: %s", ts, hello)), nil
}

func (e *env) lowStock(ctx context.Context) ([]string, error) {
	ts := e.now().Format(stampLayout)

	res, err := e.api.UpdateLowStockProducts(ctx)
	if err != nil {
		return []string{fmt.Sprintf("%s - Error: %v", ts, err)}, err
	}

	lines := make([]string, 0, len(res.Products)+1)
	lines = append(lines, fmt.Sprintf("%s - %s", ts, res.Message))
	for _, p := range res.Products {
		lines = append(lines, fmt.Sprintf("%s - %s new stock: %d", ts, p.Name, p.Stock))
	}
	return lines, nil
}

// reminders stamps lines in UTC.
func (e *env) reminders(lastDays int) func(ctx context.Context) ([]string, error) {
	return func(ctx context.Context) ([]string, error) {
		ts := e.now().UTC().Format(stampLayout)

		orders, err := e.api.RecentOrders(ctx, lastDays)
		if err != nil {
			return []string{fmt.Sprintf("%s - Error: %v", ts, err)}, err
		}

		lines := make([]string, len(orders))
		for i, o := range orders {
			lines[i] = fmt.Sprintf("%s - Reminder for order %s -> %s", ts, o.OrderID, o.Email)
		}
		e.lg.Info("Order reminders processed", zap.Int("orders", len(orders)))
		return lines, nil
	}
}

func (e *env) report(ctx context.Context) ([]string, error) {
	ts := e.now().Format(stampLayout)

	r, err := e.api.Report(ctx)
	if err != nil {
		return []string{fmt.Sprintf("%s - Error: %v", ts, err)}, err
	}
	return []string{fmt.Sprintf("%s - Report: %d customers, %d orders, %s revenue",
		ts, r.Customers, r.Orders, r.Revenue.String())}, nil
}
