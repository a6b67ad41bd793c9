package blob

import (
	"bytes"
	"context"
	"crypto/md5"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

const defaultMemoryPageSize = 1000

type memoryObject struct {
	info *ObjectInfo
	data []byte
}

// MemoryHooks lets callers inject faults or latency into a MemoryClient.
// A non-nil error returned by a hook fails the call before any state changes.
type MemoryHooks struct {
	BeforeList   func(ctx context.Context, prefix string) error
	BeforeGet    func(ctx context.Context, key string) error
	BeforePut    func(ctx context.Context, key string) error
	BeforeDelete func(ctx context.Context, key string) error
}

// MemoryClient is an in-process ObjectStore. ETags mirror S3 single-part semantics (hex MD5).
type MemoryClient struct {
	objects  map[string]*memoryObject
	mu       sync.RWMutex
	pageSize int
	hooks    MemoryHooks

	listCalls atomic.Int64
	getCalls  atomic.Int64
	putCalls  atomic.Int64
}

func NewMemoryClient() *MemoryClient {
	return &MemoryClient{
		objects:  make(map[string]*memoryObject),
		pageSize: defaultMemoryPageSize,
	}
}

// SetPageSize changes how many objects a single ListObjects call returns.
func (m *MemoryClient) SetPageSize(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n > 0 {
		m.pageSize = n
	}
}

func (m *MemoryClient) SetHooks(hooks MemoryHooks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hooks = hooks
}

// SetObjectETag overrides the stored ETag, e.g. to emulate multipart or KMS-encrypted uploads.
func (m *MemoryClient) SetObjectETag(key, etag string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if obj, ok := m.objects[key]; ok {
		obj.info.ETag = etag
	}
}

// SetObjectEncrypted marks key as SSE-KMS encrypted. Its ETag becomes 32 hex characters that are
// not the MD5 of the stored bytes, as S3 reports for such objects.
func (m *MemoryClient) SetObjectEncrypted(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if obj, ok := m.objects[key]; ok {
		obj.info.Encrypted = true
		obj.info.ETag = fmt.Sprintf("%x", md5.Sum(append([]byte("sse-kms:"), obj.data...)))
	}
}

func (m *MemoryClient) ListCalls() int64 { return m.listCalls.Load() }
func (m *MemoryClient) GetCalls() int64  { return m.getCalls.Load() }
func (m *MemoryClient) PutCalls() int64  { return m.putCalls.Load() }

// Keys returns all stored keys in lexical order.
func (m *MemoryClient) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Sorted(maps.Keys(m.objects))
}

// Content returns a copy of the stored bytes for key.
func (m *MemoryClient) Content(key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[key]
	if !ok {
		return nil, false
	}
	return bytes.Clone(obj.data), true
}

func (m *MemoryClient) currentHooks() MemoryHooks {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.hooks
}

// ===================================================================================================

func (m *MemoryClient) ListObjects(ctx context.Context, prefix string, continuationToken string) (*ListObjectsPage, error) {
	m.listCalls.Add(1)
	if hook := m.currentHooks().BeforeList; hook != nil {
		if err := hook(ctx, prefix); err != nil {
			return nil, err
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.objects))
	for key := range m.objects {
		if strings.HasPrefix(key, prefix) && key > continuationToken {
			keys = append(keys, key)
		}
	}
	slices.Sort(keys)

	page := &ListObjectsPage{}
	for i, key := range keys {
		if i == m.pageSize {
			page.NextToken = keys[i-1]
			break
		}
		info := *m.objects[key].info
		// S3 listings carry neither user metadata nor encryption details
		info.Metadata = nil
		info.Encrypted = false
		page.Objects = append(page.Objects, &info)
	}
	return page, nil
}

func (m *MemoryClient) HeadObject(ctx context.Context, key string) (*ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	obj, ok := m.objects[key]
	if !ok {
		return nil, fmt.Errorf("head object %q: %w", key, ErrObjectNotFound)
	}
	info := *obj.info
	info.Metadata = maps.Clone(obj.info.Metadata)
	return &info, nil
}

func (m *MemoryClient) GetObject(ctx context.Context, key string) (*GetObjectResponse, error) {
	m.getCalls.Add(1)
	if hook := m.currentHooks().BeforeGet; hook != nil {
		if err := hook(ctx, key); err != nil {
			return nil, err
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	obj, ok := m.objects[key]
	if !ok {
		return nil, fmt.Errorf("get object %q: %w", key, ErrObjectNotFound)
	}

	return &GetObjectResponse{
		Body:         io.NopCloser(bytes.NewReader(bytes.Clone(obj.data))),
		ETag:         obj.info.ETag,
		Size:         obj.info.Size,
		ContentType:  obj.info.ContentType,
		LastModified: obj.info.LastModified,
		Metadata:     maps.Clone(obj.info.Metadata),
		Encrypted:    obj.info.Encrypted,
	}, nil
}

func (m *MemoryClient) PutObject(ctx context.Context, params *PutObjectParams) (*PutObjectResponse, error) {
	m.putCalls.Add(1)
	if hook := m.currentHooks().BeforePut; hook != nil {
		if err := hook(ctx, params.Key); err != nil {
			return nil, err
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, fmt.Errorf("put object %q: read body: %w", params.Key, err)
	}

	now := time.Now().UTC()
	etag := fmt.Sprintf("%x", md5.Sum(data))

	m.mu.Lock()
	defer m.mu.Unlock()

	m.objects[params.Key] = &memoryObject{
		info: &ObjectInfo{
			Key:          params.Key,
			ETag:         etag,
			Size:         int64(len(data)),
			ContentType:  params.ContentType,
			LastModified: now,
			Metadata:     maps.Clone(params.Metadata),
		},
		data: data,
	}

	return &PutObjectResponse{
		Key:          params.Key,
		ETag:         etag,
		Size:         int64(len(data)),
		LastModified: now,
	}, nil
}

func (m *MemoryClient) DeleteObject(ctx context.Context, key string) error {
	if hook := m.currentHooks().BeforeDelete; hook != nil {
		if err := hook(ctx, key); err != nil {
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// S3 semantics: deleting a missing key succeeds
	delete(m.objects, key)
	return nil
}

var _ ObjectStore = (*MemoryClient)(nil)
