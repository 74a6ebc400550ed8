package storage

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(&types.NotFound{}))
	assert.True(t, IsNotFound(fmt.Errorf("head: %w", &types.NoSuchKey{})))
	assert.True(t, IsNotFound(&types.NoSuchBucket{}))
	assert.True(t, IsNotFound(&smithy.GenericAPIError{Code: "NoSuchKey"}))
	assert.False(t, IsNotFound(&smithy.GenericAPIError{Code: "AccessDenied"}))
	assert.False(t, IsNotFound(errors.New("connection refused")))
	assert.False(t, IsNotFound(nil))
}

func TestIsBucketOwned(t *testing.T) {
	assert.True(t, IsBucketOwned(&types.BucketAlreadyOwnedByYou{}))
	assert.True(t, IsBucketOwned(&smithy.GenericAPIError{Code: "BucketAlreadyOwnedByYou"}))
	assert.False(t, IsBucketOwned(&types.BucketAlreadyExists{}))
}

func TestEndpointURL(t *testing.T) {
	assert.Equal(t, "", Config{}.EndpointURL())
	assert.Equal(t, "http://host:9000", Config{Endpoint: "host:9000"}.EndpointURL())
	assert.Equal(t, "https://play.min.io", Config{Endpoint: "play.min.io", Secure: true}.EndpointURL())
	assert.Equal(t, "http://x:1", Config{Endpoint: "http://x:1", Secure: true}.EndpointURL())
}

func TestNewS3UsesEndpointAndStaticKeys(t *testing.T) {
	c, err := NewS3(context.Background(), Config{
		Endpoint:  "localhost:9000",
		AccessKey: "ak",
		SecretKey: "sk",
	})
	require.NoError(t, err)
	o := c.Options()
	assert.Equal(t, "http://localhost:9000", aws.ToString(o.BaseEndpoint))
	assert.True(t, o.UsePathStyle)
	assert.Equal(t, DefaultRegion, o.Region)

	creds, err := o.Credentials.Retrieve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ak", creds.AccessKeyID)
	assert.Equal(t, "sk", creds.SecretAccessKey)
}
