package s3transport

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/yourorg/imagedata-s3/internal/metrics"
	"github.com/yourorg/imagedata-s3/internal/storage"
	"github.com/yourorg/imagedata-s3/internal/transport"
)

// Exists reports whether p names an object or a virtual directory (a key
// prefix ending in "/") in the bound bucket. Only a not-found answer from the
// store becomes false; any other storage error is returned.
func (t *Transport) Exists(ctx context.Context, p string) (bool, error) {
	key, err := t.resolve(p)
	if err != nil {
		if errors.Is(err, transport.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if key == "" {
		return true, nil
	}
	_, err = t.stat(ctx, key)
	switch {
	case err == nil:
		return true, nil
	case !storage.IsNotFound(err):
		return false, err
	}
	return t.isDir(ctx, key)
}

// IsFile reports whether p names an object that is not a directory marker.
func (t *Transport) IsFile(ctx context.Context, p string) (bool, error) {
	key, err := t.resolve(p)
	if err != nil {
		if errors.Is(err, transport.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if key == "" || strings.HasSuffix(key, "/") {
		return false, nil
	}
	_, err = t.stat(ctx, key)
	if err != nil {
		if storage.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Info describes the object at p on one line.
func (t *Transport) Info(ctx context.Context, p string) (string, error) {
	key, err := t.resolve(p)
	if err != nil {
		return "", err
	}
	if key == "" {
		return fmt.Sprintf("s3://%s bucket host=%s", t.bucket, t.host), nil
	}
	out, err := t.stat(ctx, key)
	if err != nil {
		if storage.IsNotFound(err) {
			return "", fmt.Errorf("%w: %s: %w", transport.ErrNotFound, t.url(key), err)
		}
		return "", err
	}
	modified := ""
	if out.LastModified != nil {
		modified = out.LastModified.UTC().Format(time.RFC3339)
	}
	return fmt.Sprintf("%s size=%d type=%s modified=%s etag=%s",
		t.url(key),
		aws.ToInt64(out.ContentLength),
		aws.ToString(out.ContentType),
		modified,
		strings.Trim(aws.ToString(out.ETag), `"`),
	), nil
}

func (t *Transport) stat(ctx context.Context, key string) (*s3.HeadObjectOutput, error) {
	out, err := t.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(t.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if !storage.IsNotFound(err) {
			metrics.Errors.WithLabelValues(metrics.OpStat).Inc()
		}
		return nil, err
	}
	metrics.Transfers.WithLabelValues(metrics.OpStat).Inc()
	return out, nil
}

func (t *Transport) isDir(ctx context.Context, key string) (bool, error) {
	out, err := t.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(t.bucket),
		Prefix:  aws.String(strings.TrimSuffix(key, "/") + "/"),
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		if storage.IsNotFound(err) {
			return false, nil
		}
		metrics.Errors.WithLabelValues(metrics.OpList).Inc()
		return false, err
	}
	metrics.Transfers.WithLabelValues(metrics.OpList).Inc()
	return len(out.Contents) > 0 || len(out.CommonPrefixes) > 0, nil
}

// Walk lists the bucket top-down from top, one directory per step, treating
// "/" in keys as the directory separator. Subdirectories are visited in
// lexical order after their parent. A top that names no directory yields
// nothing.
func (t *Transport) Walk(ctx context.Context, top string) iter.Seq2[transport.WalkStep, error] {
	return func(yield func(transport.WalkStep, error) bool) {
		key, err := t.resolve(top)
		if err != nil {
			yield(transport.WalkStep{}, err)
			return
		}
		t.walkDir(ctx, strings.Trim(key, "/"), true, yield)
	}
}

func (t *Transport) walkDir(ctx context.Context, dir string, top bool, yield func(transport.WalkStep, error) bool) bool {
	step, err := t.listDir(ctx, dir)
	if err != nil {
		yield(transport.WalkStep{}, err)
		return false
	}
	if top && dir != "" && len(step.Dirs) == 0 && len(step.Files) == 0 {
		return true
	}
	if !yield(step, nil) {
		return false
	}
	for _, d := range step.Dirs {
		if !t.walkDir(ctx, path.Join(dir, d), false, yield) {
			return false
		}
	}
	return true
}

func (t *Transport) listDir(ctx context.Context, dir string) (transport.WalkStep, error) {
	prefix := ""
	if dir != "" {
		prefix = dir + "/"
	}
	step := transport.WalkStep{Root: "/" + path.Join(t.bucket, dir)}
	pages := s3.NewListObjectsV2Paginator(t.client, &s3.ListObjectsV2Input{
		Bucket:    aws.String(t.bucket),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String("/"),
	})
	for pages.HasMorePages() {
		out, err := pages.NextPage(ctx)
		if err != nil {
			metrics.Errors.WithLabelValues(metrics.OpList).Inc()
			return transport.WalkStep{}, fmt.Errorf("list %s: %w", t.url(prefix), err)
		}
		metrics.Transfers.WithLabelValues(metrics.OpList).Inc()
		for _, cp := range out.CommonPrefixes {
			name := strings.TrimSuffix(strings.TrimPrefix(aws.ToString(cp.Prefix), prefix), "/")
			if name != "" {
				step.Dirs = append(step.Dirs, name)
			}
		}
		for _, o := range out.Contents {
			k := aws.ToString(o.Key)
			if k == prefix || strings.HasSuffix(k, "/") {
				continue
			}
			step.Files = append(step.Files, strings.TrimPrefix(k, prefix))
		}
	}
	return step, nil
}
