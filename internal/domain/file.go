package domain

import (
	"time"

	"github.com/timmy/ossadapter/pkg/ossadapter"
)

// StoredFile is the host-side record of an uploaded file. Filename is what the
// adapter needs to rebuild the storage key on delete.
type StoredFile struct {
	ID               string    `gorm:"type:text;primaryKey" json:"id"`
	OriginalFilename string    `gorm:"type:text;not null" json:"original_filename"`
	Filename         string    `gorm:"type:text;not null" json:"filename"`
	Bucket           string    `gorm:"type:text;not null" json:"bucket"`
	StorageKey       string    `gorm:"type:text;not null;uniqueIndex:idx_stored_files_key" json:"key"`
	MimeType         string    `gorm:"type:text" json:"mimetype"`
	Encoding         string    `gorm:"type:text" json:"encoding"`
	Size             int64     `json:"size"`
	ETag             string    `gorm:"type:text" json:"etag,omitempty"`
	VersionID        string    `gorm:"type:text" json:"version_id,omitempty"`
	URL              string    `gorm:"type:text" json:"url"`
	CreatedAt        time.Time `gorm:"index:idx_stored_files_created" json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// TableName returns the database table name for StoredFile.
func (StoredFile) TableName() string {
	return "stored_files"
}

// NewStoredFile builds the record persisted after a successful save.
func NewStoredFile(file *ossadapter.FileData, bucket, key, url string, size int64) *StoredFile {
	f := &StoredFile{
		ID:               file.ID,
		OriginalFilename: file.OriginalFilename,
		Filename:         file.Filename,
		Bucket:           bucket,
		StorageKey:       key,
		MimeType:         file.MimeType,
		Encoding:         file.Encoding,
		Size:             size,
		URL:              url,
	}
	if file.Meta != nil {
		f.ETag = file.Meta.ETag
		f.VersionID = file.Meta.VersionID
	}
	return f
}

// Descriptor rebuilds the adapter descriptor from the stored record.
func (f *StoredFile) Descriptor() *ossadapter.FileData {
	return &ossadapter.FileData{
		ID:               f.ID,
		OriginalFilename: f.OriginalFilename,
		Filename:         f.Filename,
		MimeType:         f.MimeType,
		Encoding:         f.Encoding,
	}
}
