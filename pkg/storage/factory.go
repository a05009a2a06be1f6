package storage

import "strings"

// StorageType defines the kind of bucket service behind a client
type StorageType string

const (
	StorageTypeOSS          StorageType = "oss"
	StorageTypeS3           StorageType = "s3"
	StorageTypeR2           StorageType = "r2"
	StorageTypeMinIO        StorageType = "minio"
	StorageTypeS3Compatible StorageType = "s3compatible"
)

const ossDomain = "aliyuncs.com"

// isCloud reports whether the service is only reachable over TLS
func (t StorageType) isCloud() bool {
	return t == StorageTypeOSS || t == StorageTypeS3 || t == StorageTypeR2
}

// Config holds the connection options of a bucket backend
type Config struct {
	Type      StorageType
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
	PublicURL string // Public URL prefix for a CDN or custom domain
}

// NewStorage creates an ObjectStorage instance based on the configuration.
// Parameters:
//   - cfg: storage configuration including endpoint, credentials, and bucket.
//
// Returns:
//   - ObjectStorage: initialized storage client implementation.
//   - error: non-nil if the storage client cannot be created.
func NewStorage(cfg *Config) (ObjectStorage, error) {
	c := *cfg
	if c.Type == "" {
		c.Type = DetectStorageType(c.Endpoint)
	}

	if c.Type == StorageTypeMinIO {
		return NewMinIOStorage(&c)
	}
	return NewS3Storage(&c)
}

// DetectStorageType attempts to detect the storage type from the endpoint
func DetectStorageType(endpoint string) StorageType {
	endpoint = strings.ToLower(endpoint)

	switch {
	case strings.Contains(endpoint, ossDomain):
		return StorageTypeOSS
	case strings.Contains(endpoint, "r2.cloudflarestorage.com"):
		return StorageTypeR2
	case endpoint == "", strings.Contains(endpoint, "amazonaws.com"):
		return StorageTypeS3
	default:
		return StorageTypeS3Compatible
	}
}
