package storage

import (
	"context"
	"errors"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// DefaultRegion is used when no region is configured; MinIO accepts any.
const DefaultRegion = "us-east-1"

// Config describes one S3-compatible endpoint.
type Config struct {
	// Endpoint is host[:port] or a full URL. Empty means AWS itself.
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
	// Secure selects https for an Endpoint given without a scheme.
	Secure bool
}

// EndpointURL returns the base URL for the configured endpoint, or "" when
// the SDK should resolve AWS endpoints itself.
func (c Config) EndpointURL() string {
	if c.Endpoint == "" {
		return ""
	}
	if strings.Contains(c.Endpoint, "://") {
		return c.Endpoint
	}
	if c.Secure {
		return "https://" + c.Endpoint
	}
	return "http://" + c.Endpoint
}

// NewS3 creates an S3 client for cfg. Without static keys the default AWS
// credential chain applies. Env support: AWS_S3_FORCE_PATH_STYLE for AWS
// endpoints; custom endpoints always use path-style addressing.
func NewS3(ctx context.Context, cfg Config) (*s3.Client, error) {
	region := cfg.Region
	if region == "" {
		region = DefaultRegion
	}
	opts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}
	endpoint := cfg.EndpointURL()
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
		if strings.EqualFold(os.Getenv("AWS_S3_FORCE_PATH_STYLE"), "true") {
			o.UsePathStyle = true
		}
	})
	return client, nil
}

// IsNotFound reports whether err is the store saying a bucket or key does not exist.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	var (
		nf *types.NotFound
		nk *types.NoSuchKey
		nb *types.NoSuchBucket
	)
	if errors.As(err, &nf) || errors.As(err, &nk) || errors.As(err, &nb) {
		return true
	}
	var ae smithy.APIError
	if errors.As(err, &ae) {
		switch ae.ErrorCode() {
		case "NotFound", "NoSuchKey", "NoSuchBucket":
			return true
		}
	}
	return false
}

// IsBucketOwned reports whether a CreateBucket failure means the bucket
// already exists and belongs to the caller.
func IsBucketOwned(err error) bool {
	var owned *types.BucketAlreadyOwnedByYou
	if errors.As(err, &owned) {
		return true
	}
	var ae smithy.APIError
	return errors.As(err, &ae) && ae.ErrorCode() == "BucketAlreadyOwnedByYou"
}
