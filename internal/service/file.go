package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/timmy/ossadapter/internal/domain"
	"github.com/timmy/ossadapter/internal/logger"
	"github.com/timmy/ossadapter/pkg/ossadapter"
	"gorm.io/gorm"
)

var (
	// ErrFileNotFound is returned when no record exists for an ID
	ErrFileNotFound = errors.New("file not found")

	// ErrTooLarge is returned when an upload exceeds the configured size limit
	ErrTooLarge = errors.New("file exceeds size limit")
)

// FileStore persists stored file records.
type FileStore interface {
	Create(ctx context.Context, file *domain.StoredFile) error
	GetByID(ctx context.Context, id string) (*domain.StoredFile, error)
	List(ctx context.Context, limit, offset int) ([]domain.StoredFile, error)
	Count(ctx context.Context) (int64, error)
	Delete(ctx context.Context, id string) error
}

// FileService stores uploads through the adapter and keeps a record of each one
// so they can be listed and deleted later.
type FileService struct {
	adapter  *ossadapter.Adapter
	files    FileStore
	fetcher  *RemoteFetcher
	maxBytes int64
}

// FileServiceConfig holds configuration for the file service
type FileServiceConfig struct {
	MaxBytes int64 // 0 disables the limit
}

// NewFileService creates a new file service.
// Parameters:
//   - adapter: upload adapter bound to the target bucket.
//   - files: record store.
//   - fetcher: remote fetcher for URL uploads, may be nil.
//   - cfg: service configuration.
//
// Returns:
//   - *FileService: initialized service.
func NewFileService(adapter *ossadapter.Adapter, files FileStore, fetcher *RemoteFetcher, cfg *FileServiceConfig) *FileService {
	s := &FileService{
		adapter: adapter,
		files:   files,
		fetcher: fetcher,
	}
	if cfg != nil {
		s.maxBytes = cfg.MaxBytes
	}
	return s
}

// UploadRequest is a single file handed to Upload.
type UploadRequest struct {
	Body     io.ReadCloser // Closed by Upload
	Filename string
	MimeType string
	Encoding string
	MaxBytes int64 // Overrides the service limit when > 0
}

// ListResult is one page of stored files.
type ListResult struct {
	Files  []domain.StoredFile `json:"files"`
	Total  int64               `json:"total"`
	Limit  int                 `json:"limit"`
	Offset int                 `json:"offset"`
}

// Upload saves the body under a fresh ID and records the result.
// Parameters:
//   - ctx: request context.
//   - req: file body and metadata.
//
// Returns:
//   - *domain.StoredFile: persisted record including the public URL.
//   - error: ErrTooLarge, an adapter error, or a persistence error.
func (s *FileService) Upload(ctx context.Context, req UploadRequest) (*domain.StoredFile, error) {
	id := uuid.New().String()
	ctx = logger.SetFileID(ctx, id)

	limit := s.maxBytes
	if req.MaxBytes > 0 {
		limit = req.MaxBytes
	}
	body := newCountingStream(req.Body, limit)

	start := time.Now()
	file, err := s.adapter.Save(ctx, ossadapter.SaveInput{
		Stream:   body,
		Filename: req.Filename,
		ID:       id,
		MimeType: req.MimeType,
		Encoding: req.Encoding,
	})
	if body.exceeded {
		return nil, ErrTooLarge
	}
	if err != nil {
		return nil, fmt.Errorf("failed to store file: %w", err)
	}

	key := s.adapter.Key(file.Filename)
	record := domain.NewStoredFile(file, s.adapter.Bucket(), key, s.adapter.PublicURL(*file), body.n)
	if err := s.files.Create(ctx, record); err != nil {
		// Without a record nothing could ever delete the object again
		if _, delErr := s.adapter.Delete(ctx, file, nil); delErr != nil {
			logger.CtxWarn(ctx, "Failed to remove orphaned object: key=%s, error=%v", key, delErr)
		}
		return nil, fmt.Errorf("failed to save file record: %w", err)
	}

	logger.With(logger.Fields{
		logger.FieldKey: key,
	}).WithSize(body.n).WithDuration(time.Since(start).Milliseconds()).
		Info(ctx, "File stored: original=%s, mimetype=%s", req.Filename, req.MimeType)

	return record, nil
}

// UploadFromURL fetches a remote file and uploads it.
func (s *FileService) UploadFromURL(ctx context.Context, rawURL string) (*domain.StoredFile, error) {
	if s.fetcher == nil {
		return nil, fmt.Errorf("remote uploads are disabled")
	}

	remote, err := s.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	return s.Upload(ctx, UploadRequest{
		Body:     remote.Body,
		Filename: remote.Filename,
		MimeType: remote.MimeType,
		MaxBytes: s.fetcher.maxBytes,
	})
}

// Get returns the record of a stored file.
func (s *FileService) Get(ctx context.Context, id string) (*domain.StoredFile, error) {
	file, err := s.files.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrFileNotFound
		}
		return nil, fmt.Errorf("failed to get file: %w", err)
	}
	return file, nil
}

// List returns a page of stored files, newest first.
func (s *FileService) List(ctx context.Context, limit, offset int) (*ListResult, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	files, err := s.files.List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	total, err := s.files.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count files: %w", err)
	}

	return &ListResult{Files: files, Total: total, Limit: limit, Offset: offset}, nil
}

// Open streams a stored file back from the bucket. The caller closes the reader.
func (s *FileService) Open(ctx context.Context, id string) (*domain.StoredFile, io.ReadCloser, error) {
	file, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	rc, err := s.adapter.Open(ctx, file.Descriptor())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open file: %w", err)
	}
	return file, rc, nil
}

// Delete removes the object from the bucket, then its record. When the bucket
// delete fails the record is kept so the delete can be retried.
func (s *FileService) Delete(ctx context.Context, id string) error {
	ctx = logger.SetFileID(ctx, id)

	file, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if _, err := s.adapter.Delete(ctx, file.Descriptor(), nil); err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}

	if err := s.files.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete file record: %w", err)
	}

	logger.CtxInfo(ctx, "File deleted: key=%s", file.StorageKey)
	return nil
}

// countingStream counts bytes read and fails once the limit is passed.
type countingStream struct {
	io.ReadCloser
	n        int64
	limit    int64
	exceeded bool
}

func newCountingStream(rc io.ReadCloser, limit int64) *countingStream {
	return &countingStream{ReadCloser: rc, limit: limit}
}

func (c *countingStream) Read(p []byte) (int, error) {
	n, err := c.ReadCloser.Read(p)
	c.n += int64(n)
	if c.limit > 0 && c.n > c.limit {
		c.exceeded = true
		return n, ErrTooLarge
	}
	return n, err
}
