package source

import (
	"context"
	"errors"
	"io"

	"golang.org/x/time/rate"
)

// backend is an object store that can report sizes and serve byte ranges.
type backend interface {
	stat(ctx context.Context, bucket, key string) (int64, error)
	getRange(ctx context.Context, bucket, key string, off, end int64) (io.ReadCloser, error)
	download(ctx context.Context, bucket, key string, size int64) ([]byte, error)
}

// rangedBlob issues one ranged request per ReadAt. Requests share the
// opener's rate limiter.
type rangedBlob struct {
	ctx     context.Context
	store   backend
	bucket  string
	key     string
	size    int64
	limiter *rate.Limiter
	fetched func(n int64)
}

func (b *rangedBlob) Size() int64 {
	return b.size
}

func (b *rangedBlob) Close() error {
	return nil
}

func (b *rangedBlob) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, errors.New("source: negative offset")
	}
	if off >= b.size {
		return 0, io.EOF
	}
	if len(p) == 0 {
		return 0, nil
	}

	end := off + int64(len(p)) - 1
	if end >= b.size {
		end = b.size - 1
	}
	if b.limiter != nil {
		if err := b.limiter.Wait(b.ctx); err != nil {
			return 0, err
		}
	}

	rc, err := b.store.getRange(b.ctx, b.bucket, b.key, off, end)
	if err != nil {
		return 0, err
	}
	defer rc.Close()

	n, err := io.ReadFull(rc, p[:end-off+1])
	b.fetched(int64(n))
	if err != nil {
		return n, err
	}
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}
