package lxb

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/go-kit/log/level"
	"golang.org/x/sync/errgroup"

	"github.com/l1ktools/l1kio/fcs"
	"github.com/l1ktools/l1kio/source"
	"github.com/l1ktools/l1kio/telemetry"
)

// Load parses the FCS bytes in r and extracts channel from its only dataset.
func Load(r io.ReaderAt, size int64, channel string, opts ...Option) (*Result, error) {
	return load(r, size, channel, newOptions(opts))
}

func load(r io.ReaderAt, size int64, channel string, o *options) (res *Result, err error) {
	start := time.Now()
	defer func() {
		o.metrics.ObserveDecode(telemetry.KindLXB, start, err)
	}()

	f, err := fcs.Parse(r, size)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}
	return extract(FromFCS(f), channel, o)
}

// LoadFile loads a local LXB file.
func LoadFile(path string, channel string, opts ...Option) (*Result, error) {
	o := newOptions(opts)
	blob, err := source.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}
	defer blob.Close()

	res, err := load(blob, blob.Size(), channel, o)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	res.source = path
	return res, nil
}

// LoadPlate loads many LXB files, typically the wells of one plate, with at
// most WithConcurrency files in flight. Results are returned in locator
// order. The first failure cancels the remaining loads.
func LoadPlate(ctx context.Context, locators []string, channel string, opts ...Option) ([]*Result, error) {
	o := newOptions(opts)
	opener := o.opener
	if opener == nil {
		opener = source.NewOpener(source.Config{}, source.WithLogger(o.logger), source.WithMetrics(o.metrics))
	}

	results := make([]*Result, len(locators))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.concurrency)
	for i, loc := range locators {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			blob, err := opener.Open(gctx, loc)
			if err != nil {
				return fmt.Errorf("%s: %w: %w", loc, ErrIO, err)
			}
			defer blob.Close()

			res, err := load(blob, blob.Size(), channel, o)
			if err != nil {
				return fmt.Errorf("%s: %w", loc, err)
			}
			res.source = loc
			results[i] = res
			level.Debug(o.logger).Log("msg", "loaded well", "source", loc, "well", res.well, "events", res.Len())
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	level.Info(o.logger).Log("msg", "loaded plate", "files", len(locators))
	return results, nil
}
