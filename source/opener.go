package source

import (
	"context"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/config"
	awscreds "github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"golang.org/x/time/rate"

	"github.com/l1ktools/l1kio/internal/mmap"
	"github.com/l1ktools/l1kio/telemetry"
)

// Config configures remote access. The zero value reads s3:// locators from
// AWS with the default credential chain and downloads whole objects.
type Config struct {
	// Endpoint is an S3-compatible host[:port]. When set, objects are read
	// through MinIO instead of the AWS SDK.
	Endpoint string
	Region   string

	// Static credentials; empty uses the default chain (AWS) or anonymous
	// access (MinIO).
	AccessKeyID     string
	SecretAccessKey string

	// Insecure disables TLS for Endpoint.
	Insecure bool

	// Ranged serves ReadAt with ranged GET requests instead of downloading
	// the whole object up front.
	Ranged bool

	// RequestsPerSecond limits remote requests. Zero means unlimited.
	RequestsPerSecond float64
}

// Option configures an Opener.
type Option func(*Opener)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger log.Logger) Option {
	return func(o *Opener) {
		o.logger = logger
	}
}

// WithMetrics records fetched bytes.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(o *Opener) {
		o.metrics = m
	}
}

// WithS3Client reads s3:// locators through client instead of building one
// from Config.
func WithS3Client(client S3API) Option {
	return func(o *Opener) {
		o.remote = s3Backend{client: client}
	}
}

// Opener resolves locators to blobs. It is safe for concurrent use.
type Opener struct {
	cfg     Config
	logger  log.Logger
	metrics *telemetry.Metrics
	limiter *rate.Limiter

	mu     sync.Mutex
	remote backend
}

// NewOpener creates an Opener. Remote clients are built on first use.
func NewOpener(cfg Config, opts ...Option) *Opener {
	o := &Opener{
		cfg:    cfg,
		logger: log.NewNopLogger(),
	}
	if cfg.RequestsPerSecond > 0 {
		o.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), max(1, int(cfg.RequestsPerSecond)))
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Open returns the blob named by locator. The caller must close it.
func (o *Opener) Open(ctx context.Context, locator string) (Blob, error) {
	loc, err := Parse(locator)
	if err != nil {
		return nil, err
	}
	switch loc.Scheme {
	case SchemeFile:
		return OpenFile(loc.Key)
	case SchemeS3:
		return o.openRemote(ctx, loc)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, loc.Scheme)
}

// OpenFile memory-maps a local file.
func OpenFile(path string) (Blob, error) {
	m, err := mmap.Open(path)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (o *Opener) openRemote(ctx context.Context, loc Locator) (Blob, error) {
	store, err := o.backend(ctx)
	if err != nil {
		return nil, err
	}
	if err := o.wait(ctx); err != nil {
		return nil, err
	}
	size, err := store.stat(ctx, loc.Bucket, loc.Key)
	if err != nil {
		return nil, err
	}

	level.Debug(o.logger).Log("msg", "opening remote object", "locator", loc, "size", size, "ranged", o.cfg.Ranged)

	if o.cfg.Ranged {
		return &rangedBlob{
			ctx:     ctx,
			store:   store,
			bucket:  loc.Bucket,
			key:     loc.Key,
			size:    size,
			limiter: o.limiter,
			fetched: func(n int64) { o.metrics.AddFetched(SchemeS3, n) },
		}, nil
	}

	if err := o.wait(ctx); err != nil {
		return nil, err
	}
	data, err := store.download(ctx, loc.Bucket, loc.Key, size)
	if err != nil {
		return nil, fmt.Errorf("downloading %s: %w", loc, err)
	}
	o.metrics.AddFetched(SchemeS3, int64(len(data)))
	return NewBytes(data), nil
}

func (o *Opener) wait(ctx context.Context) error {
	if o.limiter == nil {
		return nil
	}
	return o.limiter.Wait(ctx)
}

func (o *Opener) backend(ctx context.Context) (backend, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.remote != nil {
		return o.remote, nil
	}

	if o.cfg.Endpoint != "" {
		client, err := minio.New(o.cfg.Endpoint, &minio.Options{
			Creds:        credentials.NewStaticV4(o.cfg.AccessKeyID, o.cfg.SecretAccessKey, ""),
			Secure:       !o.cfg.Insecure,
			Region:       o.cfg.Region,
			BucketLookup: minio.BucketLookupPath,
		})
		if err != nil {
			return nil, fmt.Errorf("creating minio client: %w", err)
		}
		o.remote = minioBackend{client: client}
		return o.remote, nil
	}

	var loadOpts []func(*config.LoadOptions) error
	if o.cfg.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(o.cfg.Region))
	}
	if o.cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			awscreds.NewStaticCredentialsProvider(o.cfg.AccessKeyID, o.cfg.SecretAccessKey, "")))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}
	o.remote = s3Backend{client: s3.NewFromConfig(awsCfg)}
	return o.remote, nil
}
