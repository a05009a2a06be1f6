// Package ossadapter stores uploaded files in an object-storage bucket. It
// translates the save, delete and public URL hooks of an upload host into calls
// against a storage.ObjectStorage client.
package ossadapter

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/timmy/ossadapter/internal/logger"
	"github.com/timmy/ossadapter/pkg/storage"
)

// Config holds the adapter configuration. It is copied by New and never changed
// afterwards.
type Config struct {
	Bucket       string           // Required
	Storage      storage.Config   // Backend connection options; Bucket above overrides Storage.Bucket
	Folder       string           // Key prefix, default none
	Filename     FilenameStrategy // Defaults to DefaultFilename
	URL          URLStrategy      // Defaults to DefaultURL
	UploadParams UploadParams     // StaticParams or ParamsResolver, default empty
}

// Adapter persists uploads to one bucket. It holds no mutable state and is safe
// for concurrent use as long as the backend client is.
type Adapter struct {
	client    storage.ObjectStorage
	bucket    string
	folder    string
	filenames FilenameStrategy
	urls      URLStrategy
	params    UploadParams
}

// New validates cfg and builds the backend client eagerly. Credentials are not
// checked here; bad ones surface on the first request.
// Parameters:
//   - cfg: adapter configuration.
//
// Returns:
//   - *Adapter: ready-to-use adapter bound to cfg.Bucket.
//   - error: ErrConfiguration when the bucket is missing, or the backend construction error.
func New(cfg Config) (*Adapter, error) {
	if cfg.Bucket == "" {
		return nil, newError(ErrConfiguration, "adapter requires a bucket name")
	}

	storageCfg := cfg.Storage
	storageCfg.Bucket = cfg.Bucket
	client, err := storage.NewStorage(&storageCfg)
	if err != nil {
		return nil, err
	}

	return NewWithStorage(cfg, client)
}

// NewWithStorage builds an adapter around an existing backend client.
// cfg.Storage is ignored.
func NewWithStorage(cfg Config, client storage.ObjectStorage) (*Adapter, error) {
	if cfg.Bucket == "" {
		return nil, newError(ErrConfiguration, "adapter requires a bucket name")
	}
	if client == nil {
		return nil, newError(ErrConfiguration, "adapter requires a storage client")
	}

	a := &Adapter{
		client:    client,
		bucket:    cfg.Bucket,
		folder:    strings.Trim(cfg.Folder, "/"),
		filenames: cfg.Filename,
		urls:      cfg.URL,
		params:    cfg.UploadParams,
	}
	if a.filenames == nil {
		a.filenames = DefaultFilename
	}
	if a.urls == nil {
		a.urls = DefaultURL
	}
	if a.params == nil {
		a.params = StaticParams{}
	}
	return a, nil
}

// Bucket returns the bucket the adapter writes to.
func (a *Adapter) Bucket() string { return a.bucket }

// Folder returns the normalized key prefix.
func (a *Adapter) Folder() string { return a.folder }

// Filename returns the stored filename for an upload.
func (a *Adapter) Filename(id, originalFilename string) string {
	return a.filenames.Filename(id, originalFilename)
}

// Key returns the storage key of a stored filename. Save and Delete both use it,
// so a persisted filename always maps back to the uploaded object.
func (a *Adapter) Key(filename string) string {
	filename = strings.TrimLeft(filename, "/")
	if a.folder == "" {
		return filename
	}
	return a.folder + "/" + filename
}

// PublicURL returns the public URL of a stored file.
func (a *Adapter) PublicURL(file FileData) string {
	return a.urls.PublicURL(Location{
		BaseURL: a.client.BaseURL(),
		Bucket:  a.bucket,
		Folder:  a.folder,
		Key:     a.Key(file.Filename),
	}, file)
}

// Save streams in.Stream to the bucket and returns the file descriptor.
// The stream is closed on every return path. Backend errors are returned as-is;
// no retry is attempted.
// Parameters:
//   - ctx: context for cancellation and deadlines of the backend call.
//   - in: upload stream and its metadata.
//
// Returns:
//   - *FileData: descriptor including the backend response, nil on failure.
//   - error: ErrInvalidArgument for missing input, otherwise the backend error.
func (a *Adapter) Save(ctx context.Context, in SaveInput) (*FileData, error) {
	if in.Stream == nil {
		return nil, newError(ErrInvalidArgument, "missing required argument 'stream'")
	}
	defer in.Stream.Close()

	if in.ID == "" {
		return nil, newError(ErrInvalidArgument, "missing required argument 'id'")
	}
	if in.Filename == "" {
		return nil, newError(ErrInvalidArgument, "missing required argument 'filename'")
	}

	file := FileData{
		ID:               in.ID,
		OriginalFilename: in.Filename,
		Filename:         a.Filename(in.ID, in.Filename),
		MimeType:         in.MimeType,
		Encoding:         in.Encoding,
	}

	params := storage.Params{}
	if file.MimeType != "" {
		params[storage.ParamContentType] = file.MimeType
	}
	params = params.Merge(a.params.resolve(file))

	key := a.Key(file.Filename)
	ctx = logger.WithFields(ctx, logger.Fields{
		logger.FieldBucket: a.bucket,
		logger.FieldKey:    key,
	})

	start := time.Now()
	meta, err := a.client.PutStream(ctx, key, in.Stream, params)
	if err != nil {
		logger.CtxDebug(ctx, "Object upload failed: %v", err)
		return nil, err
	}

	logger.With(logger.Fields{
		logger.FieldDurationMs: time.Since(start).Milliseconds(),
	}).Debug(ctx, "Object uploaded")

	file.Meta = meta
	return &file, nil
}

// Delete removes a stored file. opts are passed to the backend unchanged and its
// response is returned unmodified. Deleting a missing object behaves however the
// backend defines it.
// Parameters:
//   - ctx: context for cancellation and deadlines of the backend call.
//   - file: descriptor returned by Save (or rebuilt from the persisted filename).
//   - opts: backend-specific delete options, may be nil.
//
// Returns:
//   - *storage.Result: raw backend response.
//   - error: ErrInvalidArgument when file is nil, otherwise the backend error.
func (a *Adapter) Delete(ctx context.Context, file *FileData, opts storage.Params) (*storage.Result, error) {
	if file == nil {
		return nil, newError(ErrInvalidArgument, "missing required argument 'file'")
	}
	if file.Filename == "" {
		return nil, newError(ErrInvalidArgument, "missing required argument 'file.filename'")
	}
	if opts == nil {
		opts = storage.Params{}
	}

	key := a.Key(file.Filename)
	res, err := a.client.Delete(ctx, key, opts)
	if err != nil {
		logger.FromContext(ctx).WithError(err).WithField(logger.FieldKey, key).Debug("Object delete failed")
		return nil, err
	}

	logger.CtxDebug(ctx, "Object deleted: bucket=%s, key=%s", a.bucket, key)
	return res, nil
}

// Open reads a stored file back through the backend client, for buckets that are
// not publicly readable. The caller closes the returned reader.
func (a *Adapter) Open(ctx context.Context, file *FileData) (io.ReadCloser, error) {
	if file == nil || file.Filename == "" {
		return nil, newError(ErrInvalidArgument, "missing required argument 'file'")
	}
	return a.client.Download(ctx, a.Key(file.Filename))
}
