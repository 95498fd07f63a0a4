package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"

	"github.com/javajoker/bulkwear-backend/internal/config"
)

type S3Storage struct {
	client        s3iface.S3API
	bucket        string
	region        string
	cloudFrontURL string
}

func NewS3Storage(cfg config.AWSConfig) (*S3Storage, error) {
	awsConfig := &aws.Config{Region: aws.String(cfg.Region)}
	if cfg.AccessKeyID != "" {
		awsConfig.Credentials = credentials.NewStaticCredentials(cfg.AccessKeyID, cfg.SecretAccessKey, "")
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return NewS3StorageWithClient(s3.New(sess), cfg), nil
}

func NewS3StorageWithClient(client s3iface.S3API, cfg config.AWSConfig) *S3Storage {
	return &S3Storage{
		client:        client,
		bucket:        cfg.S3Bucket,
		region:        cfg.Region,
		cloudFrontURL: cfg.CloudFrontURL,
	}
}

func (s *S3Storage) Store(ctx context.Context, file File, folder string) (string, error) {
	body, err := io.ReadAll(file.Reader)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	key := generateFileName(file.Name, folder, time.Now())
	input := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentLength: aws.Int64(int64(len(body))),
	}
	if file.ContentType != "" {
		input.ContentType = aws.String(file.ContentType)
	}

	if _, err := s.client.PutObjectWithContext(ctx, input); err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}
	return key, nil
}

func (s *S3Storage) Delete(ctx context.Context, path string) error {
	_, err := s.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(path),
	})
	if err != nil {
		return fmt.Errorf("failed to delete file from S3: %w", err)
	}
	return nil
}

func (s *S3Storage) Exists(ctx context.Context, path string) (bool, error) {
	_, err := s.client.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(path),
	})
	if err == nil {
		return true, nil
	}
	if isS3NotFound(err) {
		return false, nil
	}
	return false, fmt.Errorf("failed to stat S3 object: %w", err)
}

func (s *S3Storage) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	out, err := s.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(path),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, ErrNotExist
		}
		return nil, fmt.Errorf("failed to read S3 object: %w", err)
	}
	return out.Body, nil
}

func (s *S3Storage) URL(path string) string {
	if s.cloudFrontURL != "" {
		return fmt.Sprintf("%s/%s", s.cloudFrontURL, path)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, path)
}

func isS3NotFound(err error) bool {
	var reqErr awserr.RequestFailure
	if errors.As(err, &reqErr) && reqErr.StatusCode() == http.StatusNotFound {
		return true
	}
	var aerr awserr.Error
	if errors.As(err, &aerr) {
		return aerr.Code() == s3.ErrCodeNoSuchKey || aerr.Code() == "NotFound"
	}
	return false
}
