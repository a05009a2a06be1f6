package storage

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinIOStorage implements ObjectStorage using MinIO
type MinIOStorage struct {
	client    *minio.Client
	bucket    string
	endpoint  string
	useSSL    bool
	publicURL string
}

// NewMinIOStorage creates a new MinIO storage client
func NewMinIOStorage(cfg *Config) (*MinIOStorage, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("storage bucket is required")
	}

	endpoint := normalizeEndpoint(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("minio storage requires an endpoint")
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return &MinIOStorage{
		client:    client,
		bucket:    cfg.Bucket,
		endpoint:  endpoint,
		useSSL:    cfg.UseSSL,
		publicURL: strings.TrimSuffix(cfg.PublicURL, "/"),
	}, nil
}

// PutStream uploads a stream of unknown size; minio-go buffers it into parts
func (s *MinIOStorage) PutStream(ctx context.Context, key string, body io.Reader, params Params) (*Result, error) {
	opts, err := putObjectOptions(params)
	if err != nil {
		return nil, err
	}

	info, err := s.client.PutObject(ctx, s.bucket, key, body, -1, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to upload object: %w", err)
	}

	return &Result{
		Bucket:    info.Bucket,
		Key:       info.Key,
		ETag:      info.ETag,
		VersionID: info.VersionID,
		Location:  info.Location,
	}, nil
}

func putObjectOptions(params Params) (minio.PutObjectOptions, error) {
	var opts minio.PutObjectOptions
	for k, v := range params {
		if name, ok := metaName(k); ok {
			if opts.UserMetadata == nil {
				opts.UserMetadata = make(map[string]string)
			}
			opts.UserMetadata[name] = v
			continue
		}

		switch strings.ToLower(k) {
		case "content-type":
			opts.ContentType = v
		case "cache-control":
			opts.CacheControl = v
		case "content-disposition":
			opts.ContentDisposition = v
		case "content-encoding":
			opts.ContentEncoding = v
		case "content-language":
			opts.ContentLanguage = v
		case "acl":
			// amz headers in UserMetadata are sent verbatim
			if opts.UserMetadata == nil {
				opts.UserMetadata = make(map[string]string)
			}
			opts.UserMetadata["x-amz-acl"] = v
		case "storage-class":
			opts.StorageClass = v
		default:
			return opts, unsupported(k)
		}
	}
	return opts, nil
}

// Delete deletes an object from MinIO. MinIO reports no payload, so the result
// only echoes the addressed object.
func (s *MinIOStorage) Delete(ctx context.Context, key string, opts Params) (*Result, error) {
	removeOpts, err := removeObjectOptions(opts)
	if err != nil {
		return nil, err
	}

	if err := s.client.RemoveObject(ctx, s.bucket, key, removeOpts); err != nil {
		return nil, fmt.Errorf("failed to delete object: %w", err)
	}

	return &Result{
		Bucket:    s.bucket,
		Key:       key,
		VersionID: removeOpts.VersionID,
	}, nil
}

func removeObjectOptions(opts Params) (minio.RemoveObjectOptions, error) {
	var out minio.RemoveObjectOptions
	for k, v := range opts {
		switch strings.ToLower(k) {
		case "version-id":
			out.VersionID = v
		case "bypass-governance":
			bypass, err := strconv.ParseBool(v)
			if err != nil {
				return out, fmt.Errorf("invalid %s value %q: %w", ParamBypassGovernance, v, err)
			}
			out.GovernanceBypass = bypass
		default:
			return out, unsupported(k)
		}
	}
	return out, nil
}

// Download downloads an object from MinIO
func (s *MinIOStorage) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to download object: %w", err)
	}

	// GetObject is lazy; Stat sends the request so a missing key fails here
	// instead of on the caller's first Read
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		return nil, fmt.Errorf("failed to download object: %w", err)
	}

	return obj, nil
}

// BaseURL returns the path-style URL prefix of the bucket
func (s *MinIOStorage) BaseURL() string {
	if s.publicURL != "" {
		return s.publicURL
	}
	return fmt.Sprintf("%s://%s/%s", schemeFor(s.useSSL), s.endpoint, s.bucket)
}

// Bucket returns the bucket name
func (s *MinIOStorage) Bucket() string {
	return s.bucket
}
