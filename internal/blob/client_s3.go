package blob

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

type S3Client struct {
	s3Client *s3.Client
	config   *S3BlobConfig
}

func NewS3Client(s3Client *s3.Client, config *S3BlobConfig) *S3Client {
	return &S3Client{
		s3Client: s3Client,
		config:   config,
	}
}

// NewS3ClientWithConfig builds an S3 client from the given config. Empty region and credentials
// defer to the AWS SDK default resolution chain (environment, shared profile, instance role).
func NewS3ClientWithConfig(ctx context.Context, cfg *S3BlobConfig) (*S3Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	httpClient := &http.Client{
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			MaxIdleConns:          200,
			MaxIdleConnsPerHost:   100, // matches the default download concurrency with headroom
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
			ForceAttemptHTTP2:     true,
		},
	}

	opts := []func(*config.LoadOptions) error{
		config.WithHTTPClient(httpClient),
	}
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	awsClient := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
		if cfg.UseAccelerate {
			o.UseAccelerate = true
		}
	})

	return NewS3Client(awsClient, cfg), nil
}

// ===================================================================================================

func (s *S3Client) ListObjects(ctx context.Context, prefix string, continuationToken string) (*ListObjectsPage, error) {
	input := &s3.ListObjectsV2Input{
		Bucket: &s.config.BucketName,
		Prefix: aws.String(prefix),
	}
	if continuationToken != "" {
		input.ContinuationToken = aws.String(continuationToken)
	}

	resp, err := s.s3Client.ListObjectsV2(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("list objects %q: %w", prefix, err)
	}

	page := &ListObjectsPage{
		Objects: make([]*ObjectInfo, 0, len(resp.Contents)),
	}
	for _, obj := range resp.Contents {
		page.Objects = append(page.Objects, &ObjectInfo{
			Key:          aws.ToString(obj.Key),
			ETag:         normalizeETag(aws.ToString(obj.ETag)),
			Size:         aws.ToInt64(obj.Size),
			LastModified: aws.ToTime(obj.LastModified),
		})
	}
	if aws.ToBool(resp.IsTruncated) {
		page.NextToken = aws.ToString(resp.NextContinuationToken)
	}

	return page, nil
}

// ===================================================================================================

func (s *S3Client) HeadObject(ctx context.Context, key string) (*ObjectInfo, error) {
	resp, err := s.s3Client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: &s.config.BucketName,
		Key:    &key,
	})
	if err != nil {
		return nil, classifyError("head object", key, err)
	}

	return &ObjectInfo{
		Key:          key,
		ETag:         normalizeETag(aws.ToString(resp.ETag)),
		Size:         aws.ToInt64(resp.ContentLength),
		ContentType:  aws.ToString(resp.ContentType),
		LastModified: aws.ToTime(resp.LastModified),
		Metadata:     resp.Metadata,
		Encrypted:    hasOpaqueETag(resp.ServerSideEncryption, resp.SSECustomerAlgorithm),
	}, nil
}

// ===================================================================================================

func (s *S3Client) GetObject(ctx context.Context, key string) (*GetObjectResponse, error) {
	resp, err := s.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &s.config.BucketName,
		Key:    &key,
	})
	if err != nil {
		return nil, classifyError("get object", key, err)
	}

	return &GetObjectResponse{
		Body:         resp.Body,
		Size:         aws.ToInt64(resp.ContentLength),
		ETag:         normalizeETag(aws.ToString(resp.ETag)),
		ContentType:  aws.ToString(resp.ContentType),
		LastModified: aws.ToTime(resp.LastModified),
		Metadata:     resp.Metadata,
		Encrypted:    hasOpaqueETag(resp.ServerSideEncryption, resp.SSECustomerAlgorithm),
	}, nil
}

// ===================================================================================================

func (s *S3Client) PutObject(ctx context.Context, params *PutObjectParams) (*PutObjectResponse, error) {
	s3Params := &s3.PutObjectInput{
		Bucket:        &s.config.BucketName,
		Key:           &params.Key,
		Body:          params.Body,
		ContentLength: aws.Int64(params.Size),
		Metadata:      params.Metadata,
	}
	if params.ContentType != "" {
		s3Params.ContentType = aws.String(params.ContentType)
	}

	resp, err := s.s3Client.PutObject(ctx, s3Params)
	if err != nil {
		return nil, classifyError("put object", params.Key, err)
	}

	// s3.PutObjectOutput does not have LastModified
	return &PutObjectResponse{
		Key:          params.Key,
		Size:         params.Size,
		Version:      aws.ToString(resp.VersionId),
		ETag:         normalizeETag(aws.ToString(resp.ETag)),
		LastModified: time.Now().UTC(),
	}, nil
}

// ===================================================================================================

func (s *S3Client) DeleteObject(ctx context.Context, key string) error {
	_, err := s.s3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: &s.config.BucketName,
		Key:    &key,
	})
	if err != nil {
		return classifyError("delete object", key, err)
	}
	return nil
}

// ===================================================================================================

func normalizeETag(etag string) string {
	return strings.ReplaceAll(etag, "\"", "")
}

// hasOpaqueETag reports whether the object's encryption mode makes its ETag something other than an MD5.
// SSE-S3 (AES256) keeps MD5 ETags.
func hasOpaqueETag(sse types.ServerSideEncryption, sseCustomerAlgorithm *string) bool {
	switch sse {
	case types.ServerSideEncryptionAwsKms, types.ServerSideEncryptionAwsKmsDsse:
		return true
	}
	return aws.ToString(sseCustomerAlgorithm) != ""
}

func classifyError(op, key string, err error) error {
	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	if errors.As(err, &noSuchKey) || errors.As(err, &notFound) {
		return fmt.Errorf("%s %q: %w", op, key, ErrObjectNotFound)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && (apiErr.ErrorCode() == "NotFound" || apiErr.ErrorCode() == "NoSuchKey") {
		return fmt.Errorf("%s %q: %w", op, key, ErrObjectNotFound)
	}

	return fmt.Errorf("%s %q: %w", op, key, err)
}

// check if S3Client implements ObjectStore interface
var _ ObjectStore = (*S3Client)(nil)
