// Package storage resolves download links for ticket attachments.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// URLSigner returns the link clients should use to download an attachment.
type URLSigner interface {
	AttachmentURL(ctx context.Context, attachment domain.Attachment) (string, error)
}

// NewSigner returns an S3 signer when storage is configured, else a NoopSigner.
func NewSigner(ctx context.Context, cfg config.StorageConfig) (URLSigner, error) {
	if !cfg.Configured() {
		return NoopSigner{}, nil
	}
	return NewS3Signer(ctx, cfg)
}

// S3Signer presigns GET requests for attachment storage keys.
type S3Signer struct {
	presigner *s3.PresignClient
	bucket    string
	ttl       time.Duration
}

// NewS3Signer builds a presigner for an S3 compatible bucket.
func NewS3Signer(ctx context.Context, cfg config.StorageConfig) (*S3Signer, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("storage bucket not configured")
	}
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3Signer{
		presigner: s3.NewPresignClient(client),
		bucket:    cfg.Bucket,
		ttl:       cfg.URLTTL(),
	}, nil
}

// AttachmentURL presigns the attachment's storage key. Attachments stored
// only as external URLs are returned unchanged.
func (s *S3Signer) AttachmentURL(ctx context.Context, attachment domain.Attachment) (string, error) {
	if attachment.StorageKey == "" {
		return attachment.URL, nil
	}
	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(attachment.StorageKey),
	}, s3.WithPresignExpires(s.ttl))
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", attachment.StorageKey, err)
	}
	return req.URL, nil
}

// NoopSigner returns the stored URL.
type NoopSigner struct{}

func (NoopSigner) AttachmentURL(_ context.Context, attachment domain.Attachment) (string, error) {
	return attachment.URL, nil
}
