package source

import (
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
)

type minioBackend struct {
	client *minio.Client
}

func (m minioBackend) stat(ctx context.Context, bucket, key string) (int64, error) {
	info, err := m.client.StatObject(ctx, bucket, key, minio.StatObjectOptions{})
	if err != nil {
		errResp := minio.ToErrorResponse(err)
		if errResp.Code == "NoSuchKey" || errResp.Code == "NotFound" {
			return 0, fmt.Errorf("%w: s3://%s/%s", ErrNotFound, bucket, key)
		}
		return 0, err
	}
	return info.Size, nil
}

func (m minioBackend) getRange(ctx context.Context, bucket, key string, off, end int64) (io.ReadCloser, error) {
	opts := minio.GetObjectOptions{}
	if err := opts.SetRange(off, end); err != nil {
		return nil, err
	}
	return m.client.GetObject(ctx, bucket, key, opts)
}

func (m minioBackend) download(ctx context.Context, bucket, key string, size int64) ([]byte, error) {
	obj, err := m.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer obj.Close()

	data := make([]byte, size)
	if _, err := io.ReadFull(obj, data); err != nil {
		return nil, fmt.Errorf("reading s3://%s/%s: %w", bucket, key, err)
	}
	return data, nil
}
