package r2client

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

func TestNew_RequiresAllFields(t *testing.T) {
	t.Parallel()

	full := Config{
		Endpoint:    "https://acct.r2.cloudflarestorage.com",
		AccessKeyID: "ak",
		SecretKey:   "sk",
		BucketName:  "bucket",
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing endpoint", func(c *Config) { c.Endpoint = "" }},
		{"missing access key", func(c *Config) { c.AccessKeyID = "" }},
		{"missing secret", func(c *Config) { c.SecretKey = "" }},
		{"missing bucket", func(c *Config) { c.BucketName = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := full
			tt.mutate(&cfg)
			_, err := New(context.Background(), cfg)
			assert.Error(t, err)
		})
	}

	client, err := New(context.Background(), full)
	require.NoError(t, err)
	assert.Equal(t, "bucket", client.bucket)
}

func TestIsNotFound(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"no such key", &types.NoSuchKey{}, true},
		{"not found", fmt.Errorf("wrapped: %w", &types.NotFound{}), true},
		{"api error code", &smithy.GenericAPIError{Code: "NoSuchKey"}, true},
		{"access denied", &smithy.GenericAPIError{Code: "AccessDenied"}, false},
		{"plain error", errors.New("timeout"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, isNotFound(tt.err))
		})
	}
}

func TestTrimETag(t *testing.T) {
	t.Parallel()
	assert.Empty(t, trimETag(nil))
	assert.Equal(t, "abc123", trimETag(aws.String(`"abc123"`)))
}
