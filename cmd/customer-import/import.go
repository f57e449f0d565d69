package main

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	pgzip "github.com/klauspost/pgzip"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/crm/internal/domain/customer"
)

const (
	duplicateFPR  = 0.001
	progressEvery = 10_000
	maxLineSize   = 1 << 20
)

// bulkCreator is implemented by *customer.Service.
type bulkCreator interface {
	BulkCreate(ctx context.Context, inputs []customer.CreateInput) customer.BulkResult
}

type options struct {
	path      string
	batchSize int
	workers   int
	expected  uint
}

type stats struct {
	lines               atomic.Int64
	malformed           atomic.Int64
	created             atomic.Int64
	failed              atomic.Int64
	suspectedDuplicates atomic.Int64
}

func importFile(ctx context.Context, svc bulkCreator, opts options) (*stats, error) {
	f, err := os.Open(opts.path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", opts.path)
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	if strings.HasSuffix(opts.path, ".gz") {
		gz, err := pgzip.NewReader(f)
		if err != nil {
			return nil, errors.Wrapf(err, "create gzip reader for %s", opts.path)
		}
		defer func() { _ = gz.Close() }()
		r = gz
	}
	return importStream(ctx, svc, r, opts)
}

// importStream reads records on one goroutine and hands batches to
// opts.workers concurrent BulkCreate calls. Records whose email was probably
// seen earlier in the stream are still sent; the database decides, and the
// count is only reported.
func importStream(ctx context.Context, svc bulkCreator, r io.Reader, opts options) (*stats, error) {
	batchSize := max(opts.batchSize, 1)
	workers := max(opts.workers, 1)
	seen := bloom.NewWithEstimates(max(opts.expected, 1), duplicateFPR)

	var st stats
	batches := make(chan []customer.CreateInput, workers)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(batches)

		send := func(b []customer.CreateInput) error {
			select {
			case batches <- b:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 64*1024), maxLineSize)
		batch := make([]customer.CreateInput, 0, batchSize)
		for scanner.Scan() {
			line := scanner.Bytes()
			if len(bytes.TrimSpace(line)) == 0 {
				continue
			}
			n := st.lines.Add(1)
			if n%progressEvery == 0 {
				slog.Info("import progress", slog.Int64("lines", n))
			}

			in, err := decodeCustomer(line)
			if err != nil {
				st.malformed.Add(1)
				slog.Warn("skip malformed line", slog.Int64("line", n), slog.String("error", err.Error()))
				continue
			}
			if seen.TestAndAddString(strings.ToLower(in.Email)) {
				st.suspectedDuplicates.Add(1)
			}

			batch = append(batch, in)
			if len(batch) == batchSize {
				if err := send(batch); err != nil {
					return err
				}
				batch = make([]customer.CreateInput, 0, batchSize)
			}
		}
		if err := scanner.Err(); err != nil {
			return errors.Wrap(err, "scan input")
		}
		if len(batch) > 0 {
			return send(batch)
		}
		return nil
	})

	for range workers {
		g.Go(func() error {
			for b := range batches {
				res := svc.BulkCreate(ctx, b)
				st.created.Add(int64(len(res.Customers)))
				st.failed.Add(int64(len(res.Errors)))
				for _, msg := range res.Errors {
					slog.Debug("customer rejected", slog.String("error", msg))
				}
			}
			return ctx.Err()
		})
	}

	if err := g.Wait(); err != nil {
		return &st, err
	}
	return &st, nil
}

// decodeCustomer parses one {"name","email","phone"} object. Unknown keys
// are ignored.
func decodeCustomer(line []byte) (customer.CreateInput, error) {
	var in customer.CreateInput
	err := jx.DecodeBytes(line).Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "name":
			in.Name, err = d.Str()
		case "email":
			in.Email, err = d.Str()
		case "phone":
			if d.Next() == jx.Null {
				return d.Null()
			}
			in.Phone, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		return customer.CreateInput{}, errors.Wrap(err, "decode customer")
	}
	return in, nil
}
