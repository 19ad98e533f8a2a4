package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/ignite/adaptive-core/internal/domain"
	"github.com/ignite/adaptive-core/internal/learning"
)

// S3API is the slice of the S3 client used for profile snapshots.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3ProfileStore stores each profile as <prefix><userID>.json.
type S3ProfileStore struct {
	client S3API
	bucket string
	prefix string
}

func NewS3ProfileStore(client S3API, bucket, prefix string) *S3ProfileStore {
	return &S3ProfileStore{client: client, bucket: bucket, prefix: prefix}
}

func (s *S3ProfileStore) key(userID string) string {
	return s.prefix + userID + ".json"
}

func (s *S3ProfileStore) LoadProfile(ctx context.Context, userID string) (*domain.UserLearningProfile, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(userID)),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		var notFound *types.NotFound
		if errors.As(err, &noKey) || errors.As(err, &notFound) {
			return nil, learning.ErrProfileNotFound
		}
		return nil, fmt.Errorf("getting profile %s from S3: %w", userID, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("reading S3 profile %s: %w", userID, err)
	}
	return learning.DecodeProfile(userID, data)
}

func (s *S3ProfileStore) SaveProfile(ctx context.Context, p *domain.UserLearningProfile) error {
	data, err := learning.EncodeProfile(p)
	if err != nil {
		return fmt.Errorf("encode profile %s: %w", p.UserID, err)
	}
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key(p.UserID)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("putting profile %s to S3: %w", p.UserID, err)
	}
	return nil
}
