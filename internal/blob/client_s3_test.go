package blob

import (
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
)

func TestNormalizeETag(t *testing.T) {
	assert.Equal(t, "abc123", normalizeETag(`"abc123"`))
	assert.Equal(t, "abc-2", normalizeETag(`"abc-2"`))
	assert.Equal(t, "", normalizeETag(""))
}

func TestHasOpaqueETag(t *testing.T) {
	assert.False(t, hasOpaqueETag("", nil))
	assert.False(t, hasOpaqueETag(types.ServerSideEncryptionAes256, nil))
	assert.True(t, hasOpaqueETag(types.ServerSideEncryptionAwsKms, nil))
	assert.True(t, hasOpaqueETag(types.ServerSideEncryptionAwsKmsDsse, nil))
	assert.True(t, hasOpaqueETag("", aws.String("AES256")))
}

func TestClassifyError(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		notFound bool
	}{
		{"no such key", &types.NoSuchKey{}, true},
		{"head not found", &types.NotFound{}, true},
		{"generic not found code", &smithy.GenericAPIError{Code: "NotFound"}, true},
		{"access denied", &smithy.GenericAPIError{Code: "AccessDenied"}, false},
		{"plain error", errors.New("connection reset"), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := classifyError("get object", "k", tc.err)
			assert.Equal(t, tc.notFound, errors.Is(err, ErrObjectNotFound))
			assert.Contains(t, err.Error(), `get object "k"`)
		})
	}
}

func TestS3BlobConfig_Validate(t *testing.T) {
	assert.Error(t, (*S3BlobConfig)(nil).Validate())
	assert.Error(t, (&S3BlobConfig{}).Validate())
	assert.NoError(t, WithS3Config("bucket", "", "", "", false).Validate())
	assert.NoError(t, WithMinioConfig("http://localhost:9000", "bucket", "k", "s").Validate())

	cfg := WithMinioConfig("http://localhost:9000", "bucket", "k", "s")
	cfg.UseAccelerate = true
	assert.Error(t, cfg.Validate())
}
