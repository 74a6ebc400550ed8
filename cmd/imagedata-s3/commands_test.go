package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestPutGetListThroughFileTransport(t *testing.T) {
	registry = newRegistry(zap.NewNop())
	ctx := context.Background()
	dir := t.TempDir()

	src := filepath.Join(dir, "in.zip")
	require.NoError(t, os.WriteFile(src, []byte("archive"), 0o644))

	store := filepath.ToSlash(filepath.Join(dir, "store"))
	require.NoError(t, runPut(ctx, src, "file://"+store+"/series/time00.zip"))

	out := filepath.Join(dir, "out.zip")
	require.NoError(t, runGet(ctx, "file://"+store+"/series/time00.zip", out))
	b, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "archive", string(b))

	var buf bytes.Buffer
	require.NoError(t, runList(ctx, "file://"+store, &buf))
	assert.Equal(t, []string{store + "/series/time00.zip"}, strings.Fields(buf.String()))
}

func TestGetUnknownScheme(t *testing.T) {
	registry = newRegistry(zap.NewNop())
	err := runGet(context.Background(), "gs://host/bucket/x.zip", filepath.Join(t.TempDir(), "x"))
	assert.ErrorContains(t, err, "no transport")
}

func TestOptionsSkipsEmptyFlags(t *testing.T) {
	username, password, region, tmpDir, secure = "ak", "", "", "/tmp/stage", true
	defer func() { username, tmpDir, secure = "", "", false }()
	o := options()
	assert.Equal(t, "ak", o["username"])
	assert.NotContains(t, o, "password")
	assert.Equal(t, "/tmp/stage", o["tmpdir"])
	assert.Equal(t, "true", o["secure"])
}
