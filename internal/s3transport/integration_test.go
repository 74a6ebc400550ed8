package s3transport

import (
	"bytes"
	"context"
	"crypto/rand"
	"io"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/imagedata-s3/internal/transport"
)

// Runs against a live endpoint, e.g. a local MinIO:
//
//	IMAGEDATA_S3_INTEGRATION_TEST=on IMAGEDATA_S3_NETLOC=minioadmin:minioadmin@localhost:9000 go test ./internal/s3transport
func TestIntegrationRoundTrip(t *testing.T) {
	if os.Getenv("IMAGEDATA_S3_INTEGRATION_TEST") != "on" {
		t.Skipf("IMAGEDATA_S3_INTEGRATION_TEST is not 'on', skipped")
	}
	netloc := os.Getenv("IMAGEDATA_S3_NETLOC")
	if netloc == "" {
		t.Skipf("IMAGEDATA_S3_NETLOC is not set, skipped")
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	root := "/imagedata-s3-" + uuid.NewString()[:8]
	payload := make([]byte, 1024)
	_, err := rand.Read(payload)
	require.NoError(t, err)

	_, err = New(ctx, ConfigFromOptions(netloc, root, transport.ModeRead, nil))
	require.ErrorIs(t, err, transport.ErrNotFound)

	w, err := New(ctx, ConfigFromOptions(netloc, root, transport.ModeWrite, nil))
	require.NoError(t, err)
	fh, err := w.Open(ctx, root+"/obj.zip", "w")
	require.NoError(t, err)
	_, err = fh.Write(payload)
	require.NoError(t, err)
	require.NoError(t, w.Close(ctx))

	r, err := New(ctx, ConfigFromOptions(netloc, root, transport.ModeRead, nil))
	require.NoError(t, err)
	ok, err := r.Exists(ctx, root+"/obj.zip")
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = r.Exists(ctx, root+"/missing")
	require.NoError(t, err)
	require.False(t, ok)

	fh, err = r.Open(ctx, root+"/obj.zip", "r")
	require.NoError(t, err)
	got, err := io.ReadAll(fh)
	require.NoError(t, err)
	require.True(t, bytes.Equal(payload, got))
	require.NoError(t, r.Close(ctx))
}
