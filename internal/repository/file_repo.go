package repository

import (
	"context"

	"github.com/timmy/ossadapter/internal/domain"
	"gorm.io/gorm"
)

// FileRepository handles stored file records.
type FileRepository struct {
	db *gorm.DB
}

// NewFileRepository creates a new FileRepository.
// Parameters:
//   - db: GORM database handle used for queries.
//
// Returns:
//   - *FileRepository: repository instance bound to db.
func NewFileRepository(db *gorm.DB) *FileRepository {
	return &FileRepository{db: db}
}

// Create inserts a new file record.
func (r *FileRepository) Create(ctx context.Context, file *domain.StoredFile) error {
	return r.db.WithContext(ctx).Create(file).Error
}

// GetByID retrieves a file by its ID.
// Returns gorm.ErrRecordNotFound when no record matches.
func (r *FileRepository) GetByID(ctx context.Context, id string) (*domain.StoredFile, error) {
	var file domain.StoredFile
	if err := r.db.WithContext(ctx).First(&file, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &file, nil
}

// List retrieves files, newest first.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - limit: maximum number of records to return.
//   - offset: number of records to skip.
//
// Returns:
//   - []domain.StoredFile: matching records.
//   - error: non-nil if the query fails.
func (r *FileRepository) List(ctx context.Context, limit, offset int) ([]domain.StoredFile, error) {
	var files []domain.StoredFile
	if err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&files).Error; err != nil {
		return nil, err
	}
	return files, nil
}

// Count returns the number of stored files.
func (r *FileRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.StoredFile{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Delete removes a file record by ID.
func (r *FileRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Delete(&domain.StoredFile{}, "id = ?", id).Error
}
