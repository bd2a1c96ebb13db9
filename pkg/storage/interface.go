package storage

import (
	"context"
	"time"
)

// ObjectStore is the wire-level surface the upload pipeline needs from the
// object storage provider. Implementations must be safe for concurrent use.
type ObjectStore interface {
	Put(ctx context.Context, request *PutObjectRequest) error
	Exists(ctx context.Context, key string) (bool, error)
	Stat(ctx context.Context, key string) (*ObjectInfo, error)
	URL(key string) string
}

type PutObjectRequest struct {
	Key         string `json:"key"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"-"`
}

type ObjectInfo struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	ContentType  string    `json:"content_type"`
	LastModified time.Time `json:"last_modified"`
	ETag         string    `json:"etag"`
	URL          string    `json:"url"`
}
