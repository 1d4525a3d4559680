// Package source acquires the bytes of GCTX and LXB files. Local paths are
// memory-mapped; s3:// locators are fetched from AWS S3, or from an
// S3-compatible endpoint through MinIO when one is configured.
package source

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
)

var (
	// ErrNotFound is returned when the located file or object does not exist.
	// It is os.ErrNotExist so local and remote misses test the same way.
	ErrNotFound = os.ErrNotExist

	// ErrUnsupportedScheme is returned for locators with an unknown scheme.
	ErrUnsupportedScheme = errors.New("source: unsupported locator scheme")
)

// Locator schemes.
const (
	SchemeFile = "file"
	SchemeS3   = "s3"
)

// Blob is a read-only handle to a file's bytes.
type Blob interface {
	io.ReaderAt
	io.Closer
	// Size returns the size of the blob in bytes.
	Size() int64
}

// Locator identifies a file either on the local file system or in a bucket.
type Locator struct {
	Scheme string
	Bucket string
	// Key is the object key, or the file path for SchemeFile.
	Key string
}

// Parse splits a locator such as "plate1/A01.lxb", "file:///data/x.gctx"
// or "s3://bucket/prefix/x.gctx".
func Parse(s string) (Locator, error) {
	if s == "" {
		return Locator{}, errors.New("source: empty locator")
	}
	scheme, rest, ok := strings.Cut(s, "://")
	if !ok {
		return Locator{Scheme: SchemeFile, Key: s}, nil
	}
	switch strings.ToLower(scheme) {
	case SchemeFile:
		if rest == "" {
			return Locator{}, fmt.Errorf("source: %q has no path", s)
		}
		return Locator{Scheme: SchemeFile, Key: rest}, nil
	case SchemeS3:
		bucket, key, _ := strings.Cut(rest, "/")
		if bucket == "" || key == "" {
			return Locator{}, fmt.Errorf("source: %q needs a bucket and a key", s)
		}
		return Locator{Scheme: SchemeS3, Bucket: bucket, Key: key}, nil
	}
	return Locator{}, fmt.Errorf("%w: %q", ErrUnsupportedScheme, scheme)
}

// String formats the locator back into its parseable form.
func (l Locator) String() string {
	switch l.Scheme {
	case SchemeS3:
		return "s3://" + l.Bucket + "/" + l.Key
	default:
		return l.Key
	}
}

// Name returns the last element of the path or key.
func (l Locator) Name() string {
	return path.Base(strings.ReplaceAll(l.Key, "\\", "/"))
}

// Ext returns the lower-cased file extension including the dot.
func (l Locator) Ext() string {
	return strings.ToLower(path.Ext(l.Name()))
}

// memBlob serves a fully downloaded object.
type memBlob struct {
	*bytes.Reader
}

func (memBlob) Close() error { return nil }

// NewBytes wraps an in-memory buffer as a Blob.
func NewBytes(data []byte) Blob {
	return memBlob{bytes.NewReader(data)}
}
