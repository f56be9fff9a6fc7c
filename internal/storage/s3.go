package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/google/uuid"
)

// S3Config carries the settings for an object-storage backed blob store.
// BaseEndpoint is optional and mainly useful for MinIO-style deployments.
type S3Config struct {
	Region       string
	Bucket       string
	AccessKey    string
	SecretKey    string
	BaseEndpoint string
}

// S3Store implements BlobStore against an S3 bucket. Handles are object keys
// of the form "subfolder/name"; the same sanitization as the local store
// applies even though key traversal is structurally impossible.
type S3Store struct {
	client *s3.Client
	bucket string
}

func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("storage: S3 bucket not configured")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.BaseEndpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Store{client: client, bucket: cfg.Bucket}, nil
}

func (s *S3Store) Save(r io.Reader, originalName, subfolder, prefix string) (string, error) {
	if r == nil || originalName == "" {
		return "", ErrInvalidInput
	}

	namePart := SanitizeFilename(originalName)
	if namePart == "" {
		namePart = "untitled"
	}
	ext := filepath.Ext(namePart)
	if ext == "" {
		ext = ".dat"
	}

	safePrefix := SanitizeFilename(prefix)
	if safePrefix == "" {
		safePrefix = "file"
	}

	safeSubfolder := SanitizeFilename(subfolder)
	if safeSubfolder == "" {
		safeSubfolder = "default"
	}

	token := strings.ReplaceAll(uuid.NewString(), "-", "")
	key := fmt.Sprintf("%s/%s_%s%s", safeSubfolder, safePrefix, token, ext)

	_, err := s.client.PutObject(context.Background(), &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   r,
	})
	if err != nil {
		return "", err
	}

	return key, nil
}

func (s *S3Store) Open(handle string) (io.ReadCloser, error) {
	if handle == "" {
		return nil, ErrNotFound
	}

	out, err := s.client.GetObject(context.Background(), &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(handle),
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "NoSuchKey" {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return out.Body, nil
}

func (s *S3Store) Delete(handle string) bool {
	if handle == "" {
		return false
	}

	if _, err := s.client.HeadObject(context.Background(), &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(handle),
	}); err != nil {
		return false
	}

	if _, err := s.client.DeleteObject(context.Background(), &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(handle),
	}); err != nil {
		log.Printf("storage: failed to delete s3 object %s: %v", handle, err)
		return false
	}

	return true
}

// FullPath has no meaning for object storage; keys are never filesystem
// paths.
func (s *S3Store) FullPath(handle string) string {
	return ""
}
