package blob

import (
	"errors"
)

type S3BlobConfig struct {
	BucketName    string
	Region        string
	AccessKey     string
	SecretKey     string
	Endpoint      string
	UseAccelerate bool
}

// WithS3Config creates a configuration for an AWS S3 bucket
func WithS3Config(bucketName, region, accessKey, secretKey string, accelerate bool) *S3BlobConfig {
	return &S3BlobConfig{
		BucketName:    bucketName,
		Region:        region,
		AccessKey:     accessKey,
		SecretKey:     secretKey,
		UseAccelerate: accelerate,
	}
}

// WithMinioConfig creates a configuration for an S3-compatible endpoint such as Minio
func WithMinioConfig(url, bucketName, accessKey, secretKey string) *S3BlobConfig {
	return &S3BlobConfig{
		BucketName: bucketName,
		Endpoint:   url,
		Region:     "us-east-1",
		AccessKey:  accessKey,
		SecretKey:  secretKey,
	}
}

func (c *S3BlobConfig) Validate() error {
	if c == nil {
		return errors.New("s3 config is nil")
	}
	if c.BucketName == "" {
		return errors.New("s3 bucket name is required")
	}
	if c.UseAccelerate && c.Endpoint != "" {
		return errors.New("s3 transfer acceleration cannot be combined with a custom endpoint")
	}
	return nil
}
