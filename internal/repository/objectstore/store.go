package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go-panel-backend/internal/domain"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// presignTTL is the longest lifetime SigV4 allows.
const presignTTL = 7 * 24 * time.Hour

var ErrNotConfigured = errors.New("blob storage not configured")

type putAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type presignAPI interface {
	PresignGetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

type s3Store struct {
	api        putAPI
	presigner  presignAPI
	bucket     string
	publicBase string
}

// NewS3Store returns a BlobStore over an S3 bucket. When publicBase is set,
// public URLs are built from it; otherwise they are presigned.
func NewS3Store(client *s3.Client, bucket, publicBase string) domain.BlobStore {
	return &s3Store{
		api:        client,
		presigner:  s3.NewPresignClient(client),
		bucket:     bucket,
		publicBase: strings.TrimRight(publicBase, "/"),
	}
}

// Put stores data under key. The returned reference is the key itself.
func (s *s3Store) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	_, err := s.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType),
		CacheControl:  aws.String("public, max-age=31536000, immutable"),
	})
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}
	return key, nil
}

func (s *s3Store) PublicURL(ctx context.Context, ref string) (string, error) {
	if s.publicBase != "" {
		return s.publicBase + "/" + escapeKey(ref), nil
	}
	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(ref),
	}, s3.WithPresignExpires(presignTTL))
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", ref, err)
	}
	return req.URL, nil
}

func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}

type unconfigured struct{}

// Unconfigured is the BlobStore used when no bucket is set. Every call fails.
func Unconfigured() domain.BlobStore {
	return unconfigured{}
}

func (unconfigured) Put(context.Context, string, []byte, string) (string, error) {
	return "", ErrNotConfigured
}

func (unconfigured) PublicURL(context.Context, string) (string, error) {
	return "", ErrNotConfigured
}
