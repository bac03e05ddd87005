package storage

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"artmarket/internal/config"
	"artmarket/internal/domain"
)

// S3AssetStore keeps listing images in an S3 bucket. The core persists only
// the public reference and the object key; releasing an object is best-effort.
type S3AssetStore struct {
	cfg    config.AssetsConfig
	client *s3.Client
}

func NewS3AssetStore(ctx context.Context, cfg config.AssetsConfig) (*S3AssetStore, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &S3AssetStore{
		cfg:    cfg,
		client: s3.NewFromConfig(awsCfg),
	}, nil
}

func (s *S3AssetStore) Store(ctx context.Context, raw []byte, contentType string) (*domain.StoredAsset, error) {
	key := fmt.Sprintf("listings/%s", uuid.NewString())

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(raw),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store asset: %w", err)
	}

	reference := fmt.Sprintf("s3://%s/%s", s.cfg.Bucket, key)
	if s.cfg.PublicBaseURL != "" {
		reference = fmt.Sprintf("%s/%s", s.cfg.PublicBaseURL, key)
	}

	return &domain.StoredAsset{
		Reference:  reference,
		ExternalID: key,
	}, nil
}

func (s *S3AssetStore) Release(ctx context.Context, externalID string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(externalID),
	})
	if err != nil {
		return fmt.Errorf("failed to release asset %s: %w", externalID, err)
	}
	return nil
}
