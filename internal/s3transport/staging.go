package s3transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/yourorg/imagedata-s3/internal/metrics"
	"github.com/yourorg/imagedata-s3/internal/storage"
	"github.com/yourorg/imagedata-s3/internal/transport"
)

// uploadName is the staged file name for a pending upload.
const uploadName = "upload.zip"

// Open stages the object at p and returns a local handle on the staged file.
// The first Open downloads (read) or prepares an empty upload file (write);
// later Opens of the same path reuse it. A read Open of a path staged for
// write reads the pending upload.
func (t *Transport) Open(ctx context.Context, p, mode string) (transport.File, error) {
	m, err := transport.ParseMode(mode)
	if err != nil {
		return nil, err
	}
	key, err := t.resolve(p)
	if err != nil {
		return nil, err
	}
	if m == transport.ModeWrite && t.mode != transport.ModeWrite {
		return nil, fmt.Errorf("%w: transport for %q is read-only", transport.ErrInvalidState, t.bucket)
	}

	switch t.state {
	case stateClosed:
		return nil, fmt.Errorf("%w: transport is closed", transport.ErrInvalidState)
	case stateUnopened:
		if err := t.stage(ctx, key, m); err != nil {
			return nil, err
		}
	default:
		if key != t.stagedKey {
			return nil, fmt.Errorf("%w: %s is %v, cannot open %s", transport.ErrInvalidState, t.url(t.stagedKey), t.state, t.url(key))
		}
		if t.state == stateStagedRead && m == transport.ModeWrite {
			return nil, fmt.Errorf("%w: %s is %v", transport.ErrInvalidState, t.url(key), t.state)
		}
	}

	flag := os.O_RDONLY
	if m == transport.ModeWrite {
		flag = os.O_RDWR | os.O_CREATE | os.O_TRUNC
	}
	f, err := os.OpenFile(t.stagedPath, flag, 0o600)
	if err != nil {
		return nil, fmt.Errorf("%w: staged file for bucket %q: %w", transport.ErrIO, t.bucket, err)
	}
	t.handles = append(t.handles, f)
	return f, nil
}

func (t *Transport) stage(ctx context.Context, key string, m transport.Mode) error {
	if key == "" {
		if m == transport.ModeRead {
			return fmt.Errorf("%w: no object key under bucket %q", transport.ErrNotFound, t.bucket)
		}
		return fmt.Errorf("%w: no object key under bucket %q", transport.ErrInvalidArgument, t.bucket)
	}
	dir, err := t.makeStagingDir()
	if err != nil {
		return err
	}

	if m == transport.ModeWrite {
		t.stagedPath = filepath.Join(dir, uploadName)
		t.stagedKey = key
		t.state = stateStagedWrite
		t.log.Debug("staged for upload", zap.String("url", t.url(key)), zap.String("local", t.stagedPath))
		return nil
	}

	local := filepath.Join(dir, localName(key))
	if err := t.download(ctx, key, local); err != nil {
		_ = t.removeStaging()
		return err
	}
	t.stagedPath = local
	t.stagedKey = key
	t.state = stateStagedRead
	return nil
}

func (t *Transport) makeStagingDir() (string, error) {
	root := t.stagingRoot
	if root == "" {
		root = os.TempDir()
	}
	dir := filepath.Join(root, "imagedata-s3-"+uuid.NewString())
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("%w: staging directory for bucket %q: %w", transport.ErrIO, t.bucket, err)
	}
	t.stagingDir = dir
	metrics.StagingDirs.Inc()
	return dir, nil
}

func (t *Transport) removeStaging() error {
	if t.stagingDir == "" {
		return nil
	}
	dir := t.stagingDir
	t.stagingDir = ""
	metrics.StagingDirs.Dec()
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("%w: remove staging directory %s: %w", transport.ErrIO, dir, err)
	}
	return nil
}

// localName keeps the object's base name so the host can sniff the format
// from the extension.
func localName(key string) string {
	b := path.Base(key)
	if b == "." || b == "/" {
		return "object"
	}
	return b
}

func (t *Transport) download(ctx context.Context, key, local string) error {
	out, err := t.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(t.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		metrics.Errors.WithLabelValues(metrics.OpDownload).Inc()
		if storage.IsNotFound(err) {
			return fmt.Errorf("%w: %s: %w", transport.ErrNotFound, t.url(key), err)
		}
		return fmt.Errorf("%w: download %s: %w", transport.ErrIO, t.url(key), err)
	}
	defer out.Body.Close()

	f, err := os.OpenFile(local, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("%w: staged file for bucket %q: %w", transport.ErrIO, t.bucket, err)
	}
	n, err := io.Copy(f, out.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		metrics.Errors.WithLabelValues(metrics.OpDownload).Inc()
		return fmt.Errorf("%w: download %s: %w", transport.ErrIO, t.url(key), err)
	}
	metrics.Transfers.WithLabelValues(metrics.OpDownload).Inc()
	metrics.TransferBytes.WithLabelValues(metrics.OpDownload).Add(float64(n))
	t.log.Debug("downloaded", zap.String("url", t.url(key)), zap.Int64("bytes", n), zap.String("local", local))
	return nil
}

// Close releases open handles, uploads a pending write, and removes the
// staging directory. The directory is removed even when the upload fails;
// the upload error is still returned. Closing twice is a no-op.
func (t *Transport) Close(ctx context.Context) (err error) {
	if t.state == stateClosed {
		return nil
	}
	defer func() {
		if rerr := t.removeStaging(); rerr != nil {
			t.log.Warn("staging cleanup failed", zap.Error(rerr))
			err = errors.Join(err, rerr)
		}
		t.state = stateClosed
	}()

	t.closeHandles()
	if t.state != stateStagedWrite {
		return nil
	}
	if err := t.upload(ctx); err != nil {
		t.log.Error("upload failed", zap.String("url", t.url(t.stagedKey)), zap.Error(err))
		return err
	}
	return nil
}

func (t *Transport) closeHandles() {
	for _, h := range t.handles {
		if err := h.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
			t.log.Warn("closing staged file", zap.String("name", h.Name()), zap.Error(err))
		}
	}
	t.handles = nil
}

func (t *Transport) upload(ctx context.Context) error {
	f, err := os.Open(t.stagedPath)
	if err != nil {
		return fmt.Errorf("%w: staged file for bucket %q: %w", transport.ErrIO, t.bucket, err)
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		return fmt.Errorf("%w: staged file for bucket %q: %w", transport.ErrIO, t.bucket, err)
	}

	_, err = t.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(t.bucket),
		Key:           aws.String(t.stagedKey),
		Body:          f,
		ContentLength: aws.Int64(st.Size()),
		ContentType:   aws.String(t.contentType),
	})
	if err != nil {
		metrics.Errors.WithLabelValues(metrics.OpUpload).Inc()
		return fmt.Errorf("%w: upload %s: %w", transport.ErrIO, t.url(t.stagedKey), err)
	}
	metrics.Transfers.WithLabelValues(metrics.OpUpload).Inc()
	metrics.TransferBytes.WithLabelValues(metrics.OpUpload).Add(float64(st.Size()))
	t.log.Info("uploaded", zap.String("url", t.url(t.stagedKey)), zap.Int64("bytes", st.Size()))
	return nil
}
