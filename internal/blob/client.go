package blob

import (
	"context"
	"errors"
	"io"
	"time"
)

var (
	ErrObjectNotFound = errors.New("object not found")
)

// ObjectStore is the object-store surface the sync engine consumes.
// Implementations are bound to a single bucket at construction.
type ObjectStore interface {
	ListObjects(ctx context.Context, prefix string, continuationToken string) (*ListObjectsPage, error)
	HeadObject(ctx context.Context, key string) (*ObjectInfo, error)
	GetObject(ctx context.Context, key string) (*GetObjectResponse, error)
	PutObject(ctx context.Context, params *PutObjectParams) (*PutObjectResponse, error)
	DeleteObject(ctx context.Context, key string) error
}

// ===================================================================================================

type ObjectInfo struct {
	Key          string            `json:"key"`
	ETag         string            `json:"etag"`
	Size         int64             `json:"size"`
	ContentType  string            `json:"contentType,omitempty"`
	LastModified time.Time         `json:"lastModified"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	// Encrypted is set for SSE-KMS and SSE-C objects, whose ETag is not an MD5 of the bytes.
	Encrypted bool `json:"encrypted,omitempty"`
}

type ListObjectsPage struct {
	Objects   []*ObjectInfo
	NextToken string
}

// ===================================================================================================

type GetObjectResponse struct {
	Body         io.ReadCloser
	ETag         string
	Size         int64
	ContentType  string
	LastModified time.Time
	Metadata     map[string]string
	Encrypted    bool
}

// ===================================================================================================

type PutObjectParams struct {
	Key         string
	Size        int64
	ContentType string
	Body        io.Reader
	Metadata    map[string]string
}

type PutObjectResponse struct {
	Key          string
	Version      string
	ETag         string
	Size         int64
	LastModified time.Time
}
