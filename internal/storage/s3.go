// Package storage uploads rendered spectrograms to S3-compatible object
// storage (AWS S3 or MinIO).
package storage

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"os"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ErrInvalidURL is returned for object URLs that are not s3://bucket/key.
var ErrInvalidURL = errors.New("invalid s3 url")

// ObjectURL is a parsed s3://bucket/key location.
type ObjectURL struct {
	Bucket string
	Key    string
}

func (u ObjectURL) String() string {
	return "s3://" + u.Bucket + "/" + u.Key
}

// IsS3URL reports whether s names an S3 object.
func IsS3URL(s string) bool {
	return strings.HasPrefix(s, "s3://")
}

// ParseURL splits s3://bucket/key.
func ParseURL(s string) (ObjectURL, error) {
	if !IsS3URL(s) {
		return ObjectURL{}, fmt.Errorf("%w: %q", ErrInvalidURL, s)
	}
	bucket, key, ok := strings.Cut(strings.TrimPrefix(s, "s3://"), "/")
	if !ok || bucket == "" || key == "" || strings.HasSuffix(key, "/") {
		return ObjectURL{}, fmt.Errorf("%w: %q (want s3://bucket/key)", ErrInvalidURL, s)
	}
	return ObjectURL{Bucket: bucket, Key: key}, nil
}

// S3Config holds configuration for the uploader.
type S3Config struct {
	Endpoint  string // Non-empty selects MinIO-style path addressing
	Region    string
	AccessKey string
	SecretKey string
}

// Uploader puts local files into object storage.
type Uploader interface {
	Upload(ctx context.Context, localPath string, dst ObjectURL) error
}

type s3Uploader struct {
	client *s3.Client
}

// NewS3Uploader creates an uploader from the default AWS credential chain,
// or from static keys when both are set.
func NewS3Uploader(ctx context.Context, cfg S3Config) (Uploader, error) {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	opts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var client *s3.Client
	if cfg.Endpoint != "" {
		endpoint := cfg.Endpoint
		if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
			endpoint = "http://" + endpoint
		}
		client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true // MinIO requires path-style URLs
		})
	} else {
		client = s3.NewFromConfig(awsCfg)
	}

	return &s3Uploader{client: client}, nil
}

// Upload streams localPath to dst with a content type from its extension.
func (u *s3Uploader) Upload(ctx context.Context, localPath string, dst ObjectURL) error {
	f, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(dst.Bucket),
		Key:           aws.String(dst.Key),
		Body:          f,
		ContentLength: aws.Int64(info.Size()),
		ContentType:   aws.String(ContentType(dst.Key)),
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", dst, err)
	}
	return nil
}

// ContentType returns the MIME type for an object key.
func ContentType(key string) string {
	switch strings.ToLower(path.Ext(key)) {
	case ".eps":
		return "application/postscript"
	case ".tif", ".tiff":
		return "image/tiff"
	}
	if t := mime.TypeByExtension(path.Ext(key)); t != "" {
		return t
	}
	return "application/octet-stream"
}
