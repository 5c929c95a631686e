package objectstore

import (
	"context"
	"errors"
	"io"
	"testing"

	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockS3 struct {
	mock.Mock
}

func (m *mockS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*s3.PutObjectOutput), args.Error(1)
}

func (m *mockS3) PresignGetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*v4.PresignedHTTPRequest), args.Error(1)
}

func TestS3Store_Put(t *testing.T) {
	t.Run("uploads bytes under key", func(t *testing.T) {
		m := new(mockS3)
		store := &s3Store{api: m, presigner: m, bucket: "panel"}

		m.On("PutObject", mock.Anything, mock.MatchedBy(func(in *s3.PutObjectInput) bool {
			body, _ := io.ReadAll(in.Body)
			return *in.Bucket == "panel" &&
				*in.Key == "productos/1700000000000-mesa.png" &&
				*in.ContentType == "image/png" &&
				string(body) == "png-bytes"
		})).Return(&s3.PutObjectOutput{}, nil)

		ref, err := store.Put(context.Background(), "productos/1700000000000-mesa.png", []byte("png-bytes"), "image/png")
		require.NoError(t, err)
		assert.Equal(t, "productos/1700000000000-mesa.png", ref)
		m.AssertExpectations(t)
	})

	t.Run("wraps provider errors", func(t *testing.T) {
		m := new(mockS3)
		store := &s3Store{api: m, presigner: m, bucket: "panel"}

		m.On("PutObject", mock.Anything, mock.Anything).Return(nil, errors.New("access denied"))

		_, err := store.Put(context.Background(), "avatars/1-a.png", []byte("x"), "image/png")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "access denied")
	})
}

func TestS3Store_PublicURL(t *testing.T) {
	t.Run("public base", func(t *testing.T) {
		store := &s3Store{bucket: "panel", publicBase: "https://cdn.example.com"}

		u, err := store.PublicURL(context.Background(), "avatars/1-mi foto.png")
		require.NoError(t, err)
		assert.Equal(t, "https://cdn.example.com/avatars/1-mi%20foto.png", u)
	})

	t.Run("presigned", func(t *testing.T) {
		m := new(mockS3)
		store := &s3Store{api: m, presigner: m, bucket: "panel"}

		m.On("PresignGetObject", mock.Anything, mock.MatchedBy(func(in *s3.GetObjectInput) bool {
			return *in.Key == "avatars/1-a.png"
		})).Return(&v4.PresignedHTTPRequest{URL: "https://panel.s3.amazonaws.com/avatars/1-a.png?X-Amz-Signature=abc"}, nil)

		u, err := store.PublicURL(context.Background(), "avatars/1-a.png")
		require.NoError(t, err)
		assert.Contains(t, u, "X-Amz-Signature")
	})
}

func TestUnconfigured(t *testing.T) {
	_, err := Unconfigured().Put(context.Background(), "k", nil, "image/png")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestClientConfigEndpoint(t *testing.T) {
	assert.Equal(t, "", ClientConfig{Provider: ProviderAWS}.endpoint())
	assert.Equal(t, "https://s3.eu-central-1.wasabisys.com", ClientConfig{Provider: ProviderWasabi, Region: "eu-central-1"}.endpoint())
	assert.Equal(t, "http://localhost:9000", ClientConfig{Provider: ProviderMinIO, Endpoint: "http://localhost:9000"}.endpoint())
}
