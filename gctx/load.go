package gctx

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/l1ktools/l1kio/source"
)

// Load reads a matrix from a local path, file:// or s3:// locator. Locators
// ending in .gct are parsed as text GCT; anything else is opened as a GCTX
// container.
func Load(ctx context.Context, locator string, opts ...Option) (*Dataset, error) {
	o := newOptions(opts)
	loc, err := source.Parse(locator)
	if err != nil {
		return nil, err
	}
	opener := o.opener
	if opener == nil {
		opener = source.NewOpener(source.Config{}, source.WithLogger(o.logger), source.WithMetrics(o.metrics))
	}

	blob, err := opener.Open(ctx, locator)
	if err != nil {
		if errors.Is(err, source.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s: %w", ErrNotFound, locator, err)
		}
		return nil, fmt.Errorf("opening %s: %w", locator, err)
	}

	if loc.Ext() == ".gct" {
		defer blob.Close()
		return ReadGCT(io.NewSectionReader(blob, 0, blob.Size()), opts...)
	}

	r, err := OpenBlob(blob, locator, opts...)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return r.Read()
}
