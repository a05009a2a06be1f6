package storage

import (
	"context"
	"io"
)

// ObjectStorage defines the operations the upload adapter needs from a bucket backend.
// Implementations must be safe for concurrent use.
type ObjectStorage interface {
	// PutStream uploads a single-pass stream of unknown length under key
	PutStream(ctx context.Context, key string, body io.Reader, params Params) (*Result, error)

	// Delete removes the object stored under key
	Delete(ctx context.Context, key string, opts Params) (*Result, error)

	// Download opens the object stored under key
	Download(ctx context.Context, key string) (io.ReadCloser, error)

	// BaseURL returns the public URL prefix objects of this bucket are served from
	BaseURL() string

	// Bucket returns the bucket name the client is bound to
	Bucket() string
}

// Result is the raw backend response of an upload or delete.
// The adapter treats it as opaque metadata.
type Result struct {
	Bucket       string `json:"bucket"`
	Key          string `json:"key"`
	ETag         string `json:"etag,omitempty"`
	VersionID    string `json:"version_id,omitempty"`
	Location     string `json:"location,omitempty"`
	UploadID     string `json:"upload_id,omitempty"`
	DeleteMarker bool   `json:"delete_marker,omitempty"`
}
