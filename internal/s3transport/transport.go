// Package s3transport adapts one bucket of an S3-compatible object store to
// the transport contract. Objects move as whole files through a private local
// staging directory: downloaded on a read Open, uploaded on Close after a
// write Open.
package s3transport

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.uber.org/zap"

	"github.com/yourorg/imagedata-s3/internal/metrics"
	"github.com/yourorg/imagedata-s3/internal/storage"
	"github.com/yourorg/imagedata-s3/internal/transport"
)

type state int

const (
	stateUnopened state = iota
	stateStagedRead
	stateStagedWrite
	stateClosed
)

func (s state) String() string {
	switch s {
	case stateUnopened:
		return "unopened"
	case stateStagedRead:
		return "staged for read"
	case stateStagedWrite:
		return "staged for write"
	default:
		return "closed"
	}
}

// Transport is bound to one bucket for its whole life. It is not safe for
// concurrent use; run one instance per goroutine.
type Transport struct {
	client storage.API
	log    *zap.Logger

	host     string
	username string
	password string
	region   string
	secure   bool

	bucket string
	prefix string
	mode   transport.Mode

	contentType string
	stagingRoot string

	state      state
	stagingDir string
	stagedPath string
	// stagedKey is the download source when staged for read and the upload
	// target when staged for write.
	stagedKey string
	handles   []transport.File
}

var _ transport.Transport = (*Transport)(nil)

// Option customizes a Transport built by New.
type Option func(*Transport)

// WithClient makes the transport use c instead of connecting itself.
func WithClient(c storage.API) Option {
	return func(t *Transport) { t.client = c }
}

// WithLogger sets the logger; the default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(t *Transport) {
		if l != nil {
			t.log = l
		}
	}
}

// New resolves credentials and bucket from cfg, connects, and makes sure the
// bucket exists: a missing bucket is ErrNotFound in read mode and is created
// in write mode.
func New(ctx context.Context, cfg Config, opts ...Option) (*Transport, error) {
	if cfg.Mode != transport.ModeRead && cfg.Mode != transport.ModeWrite {
		return nil, fmt.Errorf("%w: mode %v", transport.ErrInvalidArgument, cfg.Mode)
	}
	bucket, prefix, err := splitRoot(cfg.Root)
	if err != nil {
		return nil, err
	}
	t := &Transport{
		log:         zap.NewNop(),
		username:    cfg.Username,
		password:    cfg.Password,
		region:      cfg.Region,
		secure:      cfg.Secure,
		bucket:      bucket,
		prefix:      prefix,
		mode:        cfg.Mode,
		contentType: cfg.ContentType,
		stagingRoot: cfg.StagingRoot,
	}
	if t.contentType == "" {
		t.contentType = DefaultContentType
	}
	for _, o := range opts {
		o(t)
	}

	host, user, pass, ok := transport.SplitNetloc(cfg.Netloc)
	t.host = host
	if ok {
		t.username, t.password = user, pass
	}

	if t.client == nil {
		c, err := storage.NewS3(ctx, storage.Config{
			Endpoint:  t.host,
			AccessKey: t.username,
			SecretKey: t.password,
			Region:    t.region,
			Secure:    t.secure,
		})
		if err != nil {
			return nil, fmt.Errorf("connect %s: %w", t.host, err)
		}
		t.client = c
	}
	if err := t.ensureBucket(ctx); err != nil {
		return nil, err
	}
	return t, nil
}

// Bucket returns the bucket this transport is bound to.
func (t *Transport) Bucket() string { return t.bucket }

// Prefix returns the part of the root after the bucket; relative paths resolve under it.
func (t *Transport) Prefix() string { return t.prefix }

// Host returns the endpoint host[:port] without credentials.
func (t *Transport) Host() string { return t.host }

// Credentials returns the access and secret key in use.
func (t *Transport) Credentials() (username, password string) { return t.username, t.password }

func (t *Transport) ensureBucket(ctx context.Context) error {
	_, err := t.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(t.bucket)})
	if err == nil {
		metrics.Transfers.WithLabelValues(metrics.OpBucket).Inc()
		return nil
	}
	if !storage.IsNotFound(err) {
		// Any failure counts as absent; the create/fail branch below decides.
		t.log.Warn("bucket check failed", zap.String("bucket", t.bucket), zap.Error(err))
	}
	if t.mode == transport.ModeRead {
		metrics.Errors.WithLabelValues(metrics.OpBucket).Inc()
		return fmt.Errorf("%w: bucket %q: %w", transport.ErrNotFound, t.bucket, err)
	}

	in := &s3.CreateBucketInput{Bucket: aws.String(t.bucket)}
	if t.region != "" && t.region != storage.DefaultRegion {
		in.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(t.region),
		}
	}
	if _, err := t.client.CreateBucket(ctx, in); err != nil && !storage.IsBucketOwned(err) {
		metrics.Errors.WithLabelValues(metrics.OpBucket).Inc()
		return fmt.Errorf("create bucket %q: %w", t.bucket, err)
	}
	metrics.Transfers.WithLabelValues(metrics.OpBucket).Inc()
	t.log.Info("bucket created", zap.String("bucket", t.bucket), zap.String("host", t.host))
	return nil
}

// splitRoot parses "/<bucket>[/<prefix>]".
func splitRoot(root string) (bucket, prefix string, err error) {
	bucket, prefix, _ = strings.Cut(strings.TrimPrefix(root, "/"), "/")
	if bucket == "" {
		return "", "", fmt.Errorf("%w: root %q names no bucket", transport.ErrInvalidArgument, root)
	}
	return bucket, strings.Trim(prefix, "/"), nil
}

// resolve maps "/<bucket>/<key...>" to the object key. Paths without a
// leading slash are taken relative to the root.
func (t *Transport) resolve(p string) (string, error) {
	if !strings.HasPrefix(p, "/") {
		p = "/" + path.Join(t.bucket, t.prefix, p)
	}
	bucket, key, _ := strings.Cut(p[1:], "/")
	if bucket != t.bucket {
		return "", fmt.Errorf("%w: bucket %q (transport is bound to %q)", transport.ErrNotFound, bucket, t.bucket)
	}
	return key, nil
}

func (t *Transport) url(key string) string {
	return "s3://" + t.bucket + "/" + key
}
