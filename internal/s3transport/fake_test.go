package s3transport

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

type fakeObject struct {
	data        []byte
	contentType string
	modified    time.Time
}

// fakeS3 is an in-memory object store. pageSize > 0 caps list pages.
type fakeS3 struct {
	buckets  map[string]map[string]fakeObject
	pageSize int

	headBucketErr   error
	createBucketErr error
	headObjectErr   error
	getErr          error
	putErr          error
	listErr         error

	creates    int
	gets       int
	puts       int
	lists      int
	lastCreate *s3.CreateBucketInput
}

func newFakeS3(buckets ...string) *fakeS3 {
	f := &fakeS3{buckets: make(map[string]map[string]fakeObject)}
	for _, b := range buckets {
		f.buckets[b] = make(map[string]fakeObject)
	}
	return f
}

func (f *fakeS3) put(bucket, key string, data []byte) {
	f.buckets[bucket][key] = fakeObject{data: data, contentType: "application/octet-stream", modified: time.Unix(0, 0)}
}

func (f *fakeS3) HeadBucket(_ context.Context, in *s3.HeadBucketInput, _ ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	if f.headBucketErr != nil {
		return nil, f.headBucketErr
	}
	if _, ok := f.buckets[aws.ToString(in.Bucket)]; !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadBucketOutput{}, nil
}

func (f *fakeS3) CreateBucket(_ context.Context, in *s3.CreateBucketInput, _ ...func(*s3.Options)) (*s3.CreateBucketOutput, error) {
	f.lastCreate = in
	if f.createBucketErr != nil {
		return nil, f.createBucketErr
	}
	b := aws.ToString(in.Bucket)
	if _, ok := f.buckets[b]; ok {
		return nil, &types.BucketAlreadyOwnedByYou{}
	}
	f.creates++
	f.buckets[b] = make(map[string]fakeObject)
	return &s3.CreateBucketOutput{}, nil
}

func (f *fakeS3) object(bucket, key *string) (fakeObject, bool) {
	objs, ok := f.buckets[aws.ToString(bucket)]
	if !ok {
		return fakeObject{}, false
	}
	o, ok := objs[aws.ToString(key)]
	return o, ok
}

func (f *fakeS3) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	if f.headObjectErr != nil {
		return nil, f.headObjectErr
	}
	o, ok := f.object(in.Bucket, in.Key)
	if !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{
		ContentLength: aws.Int64(int64(len(o.data))),
		ContentType:   aws.String(o.contentType),
		ETag:          aws.String(`"` + strconv.Itoa(len(o.data)) + `"`),
		LastModified:  aws.Time(o.modified),
	}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.gets++
	if f.getErr != nil {
		return nil, f.getErr
	}
	o, ok := f.object(in.Bucket, in.Key)
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	body := append([]byte(nil), o.data...)
	return &s3.GetObjectOutput{
		Body:          io.NopCloser(bytes.NewReader(body)),
		ContentLength: aws.Int64(int64(len(body))),
	}, nil
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	objs, ok := f.buckets[aws.ToString(in.Bucket)]
	if !ok {
		return nil, &types.NoSuchBucket{}
	}
	b, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.puts++
	objs[aws.ToString(in.Key)] = fakeObject{data: b, contentType: aws.ToString(in.ContentType), modified: time.Now()}
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.lists++
	if f.listErr != nil {
		return nil, f.listErr
	}
	objs, ok := f.buckets[aws.ToString(in.Bucket)]
	if !ok {
		return nil, &types.NoSuchBucket{}
	}
	prefix, delim := aws.ToString(in.Prefix), aws.ToString(in.Delimiter)

	// entries holds keys and common prefixes in lexical order.
	rolled := make(map[string]bool)
	seen := make(map[string]bool)
	var entries []string
	for k := range objs {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		e := k
		if delim != "" {
			if i := strings.Index(k[len(prefix):], delim); i >= 0 {
				e = k[:len(prefix)+i+len(delim)]
				rolled[e] = true
			}
		}
		if !seen[e] {
			seen[e] = true
			entries = append(entries, e)
		}
	}
	sort.Strings(entries)

	start := 0
	if in.ContinuationToken != nil {
		start, _ = strconv.Atoi(*in.ContinuationToken)
	}
	end := len(entries)
	limit := f.pageSize
	if in.MaxKeys != nil && (limit == 0 || int(*in.MaxKeys) < limit) {
		limit = int(*in.MaxKeys)
	}
	if limit > 0 && start+limit < end {
		end = start + limit
	}

	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(end < len(entries))}
	if end < len(entries) {
		out.NextContinuationToken = aws.String(strconv.Itoa(end))
	}
	for _, e := range entries[start:end] {
		if !rolled[e] {
			out.Contents = append(out.Contents, types.Object{Key: aws.String(e), Size: aws.Int64(int64(len(objs[e].data)))})
			continue
		}
		out.CommonPrefixes = append(out.CommonPrefixes, types.CommonPrefix{Prefix: aws.String(e)})
	}
	return out, nil
}
