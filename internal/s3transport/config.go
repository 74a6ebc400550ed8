package s3transport

import (
	"context"
	"os"
	"strconv"

	"github.com/yourorg/imagedata-s3/internal/transport"
)

// DefaultContentType is sent with every upload; archives are zip-compressed series.
const DefaultContentType = "application/zip"

// Plugin describes this transport to the host.
var Plugin = transport.Plugin{
	Name:        "s3",
	Description: "Read and write image archives in S3/MinIO object storage.",
	Authors:     "imagedata-s3 contributors",
	Version:     "1.0.0",
	URL:         "https://github.com/yourorg/imagedata-s3",
	Schemes:     []string{"s3"},
	MIMEType:    DefaultContentType,
}

// Config holds everything New needs to bind a transport to one bucket.
type Config struct {
	// Netloc is host[:port], optionally prefixed by "access:secret@".
	Netloc string
	// Root is "/<bucket>[/<prefix>]".
	Root string
	Mode transport.Mode
	// Username and Password are the access and secret key. Credentials
	// embedded in Netloc take precedence.
	Username string
	Password string
	Region   string
	Secure   bool
	// StagingRoot is the parent of the per-transport staging directory;
	// empty means os.TempDir().
	StagingRoot string
	ContentType string
}

// ConfigFromOptions builds a Config from the host's options mapping.
// Recognized keys: username, password, region, secure, tmpdir. Env
// IMAGEDATA_S3_REGION, IMAGEDATA_S3_SECURE and IMAGEDATA_S3_TMPDIR supply
// defaults.
func ConfigFromOptions(netloc, root string, mode transport.Mode, opts transport.Options) Config {
	cfg := Config{
		Netloc:      netloc,
		Root:        root,
		Mode:        mode,
		Username:    opts["username"],
		Password:    opts["password"],
		Region:      getenv("IMAGEDATA_S3_REGION", ""),
		Secure:      getenvBool("IMAGEDATA_S3_SECURE", false),
		StagingRoot: getenv("IMAGEDATA_S3_TMPDIR", ""),
		ContentType: DefaultContentType,
	}
	if v := opts["region"]; v != "" {
		cfg.Region = v
	}
	if b, err := strconv.ParseBool(opts["secure"]); err == nil {
		cfg.Secure = b
	}
	if v := opts["tmpdir"]; v != "" {
		cfg.StagingRoot = v
	}
	return cfg
}

// Factory adapts New to the registry's constructor signature. opts apply to
// every transport it builds.
func Factory(opts ...Option) transport.Factory {
	return func(ctx context.Context, netloc, root string, mode transport.Mode, o transport.Options) (transport.Transport, error) {
		return New(ctx, ConfigFromOptions(netloc, root, mode, o), opts...)
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvBool(k string, def bool) bool {
	if b, err := strconv.ParseBool(os.Getenv(k)); err == nil {
		return b
	}
	return def
}
