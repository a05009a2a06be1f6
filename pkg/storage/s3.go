package storage

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Storage implements ObjectStorage for Aliyun OSS, AWS S3, R2 and other S3-compatible services
type S3Storage struct {
	client    *s3.Client
	uploader  *manager.Uploader
	bucket    string
	endpoint  string
	useSSL    bool
	storeType StorageType
	publicURL string
	region    string
}

// NewS3Storage creates a new S3-compatible storage client
func NewS3Storage(cfg *Config) (*S3Storage, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("storage bucket is required")
	}

	endpoint := normalizeEndpoint(cfg.Endpoint)
	region := resolveRegion(cfg.Type, cfg.Region)

	// OSS endpoints are derived from the region, e.g. oss-cn-hangzhou.aliyuncs.com
	if cfg.Type == StorageTypeOSS && endpoint == "" {
		if region == "" {
			return nil, fmt.Errorf("oss storage requires a region or an endpoint")
		}
		endpoint = region + "." + ossDomain
	}
	if cfg.Type == StorageTypeOSS && region == "" {
		region = strings.TrimSuffix(strings.TrimSuffix(endpoint, "."+ossDomain), "-internal")
	}
	if endpoint == "" && cfg.Type != StorageTypeS3 {
		return nil, fmt.Errorf("%s storage requires an endpoint", cfg.Type)
	}

	useSSL := cfg.UseSSL || cfg.Type.isCloud()

	opts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)))
	}

	awsCfg, err := config.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(schemeFor(useSSL) + "://" + endpoint)
		}
		// OSS only accepts virtual-hosted addressing
		o.UsePathStyle = cfg.Type == StorageTypeR2 || cfg.Type == StorageTypeS3Compatible
		if cfg.Type != StorageTypeS3 {
			// Third-party services reject the SDK's default trailing checksums
			o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
			o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
		}
	})

	return &S3Storage{
		client:    client,
		uploader:  manager.NewUploader(client),
		bucket:    cfg.Bucket,
		endpoint:  endpoint,
		useSSL:    useSSL,
		storeType: cfg.Type,
		publicURL: strings.TrimSuffix(cfg.PublicURL, "/"),
		region:    region,
	}, nil
}

// resolveRegion fills in the region each service expects when none is configured
func resolveRegion(t StorageType, region string) string {
	if region != "" {
		return region
	}
	switch t {
	case StorageTypeR2:
		return "auto"
	case StorageTypeOSS:
		return ""
	default:
		return "us-east-1"
	}
}

// normalizeEndpoint removes protocol prefix and path from endpoint
func normalizeEndpoint(endpoint string) string {
	endpoint = strings.TrimPrefix(endpoint, "https://")
	endpoint = strings.TrimPrefix(endpoint, "http://")

	if idx := strings.Index(endpoint, "/"); idx != -1 {
		endpoint = endpoint[:idx]
	}

	return endpoint
}

func schemeFor(useSSL bool) string {
	if useSSL {
		return "https"
	}
	return "http"
}

// PutStream uploads a stream through the transfer manager, which switches to a
// multipart upload when the body is larger than one part.
func (s *S3Storage) PutStream(ctx context.Context, key string, body io.Reader, params Params) (*Result, error) {
	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   body,
	}
	if err := applyPutParams(input, params); err != nil {
		return nil, err
	}

	out, err := s.uploader.Upload(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to upload object: %w", err)
	}

	return &Result{
		Bucket:    s.bucket,
		Key:       key,
		ETag:      aws.ToString(out.ETag),
		VersionID: aws.ToString(out.VersionID),
		Location:  out.Location,
		UploadID:  out.UploadID,
	}, nil
}

func applyPutParams(input *s3.PutObjectInput, params Params) error {
	for k, v := range params {
		if name, ok := metaName(k); ok {
			if input.Metadata == nil {
				input.Metadata = make(map[string]string)
			}
			input.Metadata[name] = v
			continue
		}

		switch strings.ToLower(k) {
		case "content-type":
			input.ContentType = aws.String(v)
		case "cache-control":
			input.CacheControl = aws.String(v)
		case "content-disposition":
			input.ContentDisposition = aws.String(v)
		case "content-encoding":
			input.ContentEncoding = aws.String(v)
		case "content-language":
			input.ContentLanguage = aws.String(v)
		case "acl":
			input.ACL = types.ObjectCannedACL(v)
		case "storage-class":
			input.StorageClass = types.StorageClass(v)
		default:
			return unsupported(k)
		}
	}
	return nil
}

// Delete deletes an object from storage
func (s *S3Storage) Delete(ctx context.Context, key string, opts Params) (*Result, error) {
	input := &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}
	if err := applyDeleteOpts(input, opts); err != nil {
		return nil, err
	}

	out, err := s.client.DeleteObject(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to delete object: %w", err)
	}

	return &Result{
		Bucket:       s.bucket,
		Key:          key,
		VersionID:    aws.ToString(out.VersionId),
		DeleteMarker: aws.ToBool(out.DeleteMarker),
	}, nil
}

func applyDeleteOpts(input *s3.DeleteObjectInput, opts Params) error {
	for k, v := range opts {
		switch strings.ToLower(k) {
		case "version-id":
			input.VersionId = aws.String(v)
		case "expected-bucket-owner":
			input.ExpectedBucketOwner = aws.String(v)
		case "request-payer":
			input.RequestPayer = types.RequestPayer(v)
		case "bypass-governance":
			bypass, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid %s value %q: %w", ParamBypassGovernance, v, err)
			}
			input.BypassGovernanceRetention = aws.Bool(bypass)
		default:
			return unsupported(k)
		}
	}
	return nil
}

// Download downloads an object from storage
func (s *S3Storage) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to download object: %w", err)
	}

	return result.Body, nil
}

// BaseURL returns the public URL prefix following each vendor's addressing convention
func (s *S3Storage) BaseURL() string {
	if s.publicURL != "" {
		return s.publicURL
	}

	switch s.storeType {
	case StorageTypeOSS:
		// Built from the region so internal endpoints never reach public URLs
		return fmt.Sprintf("https://%s.%s.%s", s.bucket, s.region, ossDomain)
	case StorageTypeS3:
		if s.endpoint == "" {
			return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", s.bucket, s.region)
		}
	}
	return fmt.Sprintf("%s://%s/%s", schemeFor(s.useSSL), s.endpoint, s.bucket)
}

// Bucket returns the bucket name
func (s *S3Storage) Bucket() string {
	return s.bucket
}
