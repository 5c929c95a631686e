package usecase_test

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"

	"go-panel-backend/internal/domain"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// Mock collaborators

type MockDocumentStore struct {
	mock.Mock
}

func (m *MockDocumentStore) Add(ctx context.Context, collection string, fields domain.Fields) (string, error) {
	args := m.Called(ctx, collection, fields)
	return args.String(0), args.Error(1)
}

func (m *MockDocumentStore) Get(ctx context.Context, collection, id string) (*domain.Document, error) {
	args := m.Called(ctx, collection, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Document), args.Error(1)
}

func (m *MockDocumentStore) Update(ctx context.Context, collection, id string, fields domain.Fields) error {
	return m.Called(ctx, collection, id, fields).Error(0)
}

func (m *MockDocumentStore) Delete(ctx context.Context, collection, id string) error {
	return m.Called(ctx, collection, id).Error(0)
}

func (m *MockDocumentStore) List(ctx context.Context, collection string, order domain.OrderBy) ([]domain.Document, error) {
	args := m.Called(ctx, collection, order)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Document), args.Error(1)
}

type MockProfileRepo struct {
	mock.Mock
}

func (m *MockProfileRepo) GetByUID(ctx context.Context, uid string) (*domain.Profile, error) {
	args := m.Called(ctx, uid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Profile), args.Error(1)
}

func (m *MockProfileRepo) Create(ctx context.Context, profile *domain.Profile) error {
	return m.Called(ctx, profile).Error(0)
}

type MockBlobStore struct {
	mock.Mock
}

func (m *MockBlobStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	args := m.Called(ctx, key, data, contentType)
	return args.String(0), args.Error(1)
}

func (m *MockBlobStore) PublicURL(ctx context.Context, ref string) (string, error) {
	args := m.Called(ctx, ref)
	return args.String(0), args.Error(1)
}

type MockIdentityProvider struct {
	mock.Mock
}

func (m *MockIdentityProvider) identity(args mock.Arguments) (*domain.Identity, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Identity), args.Error(1)
}

func (m *MockIdentityProvider) CreateUser(ctx context.Context, cs domain.ClientSession, email, password string) (*domain.Identity, error) {
	return m.identity(m.Called(ctx, cs, email, password))
}

func (m *MockIdentityProvider) SignIn(ctx context.Context, cs domain.ClientSession, email, password string) (*domain.Identity, error) {
	return m.identity(m.Called(ctx, cs, email, password))
}

func (m *MockIdentityProvider) GoogleConsentURL(state string) (string, error) {
	args := m.Called(state)
	return args.String(0), args.Error(1)
}

func (m *MockIdentityProvider) SignInWithGoogle(ctx context.Context, cs domain.ClientSession, code string) (*domain.Identity, error) {
	return m.identity(m.Called(ctx, cs, code))
}

func (m *MockIdentityProvider) SendPasswordResetEmail(ctx context.Context, email string) error {
	return m.Called(ctx, email).Error(0)
}

func (m *MockIdentityProvider) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	return m.Called(ctx, token, newPassword).Error(0)
}

func (m *MockIdentityProvider) SignOut(ctx context.Context, cs domain.ClientSession) error {
	return m.Called(ctx, cs).Error(0)
}

func (m *MockIdentityProvider) CurrentUser(ctx context.Context, cs domain.ClientSession) (*domain.Identity, error) {
	return m.identity(m.Called(ctx, cs))
}

func (m *MockIdentityProvider) OnAuthStateChanged(ctx context.Context, cs domain.ClientSession, fn func(*domain.Identity)) domain.Unsubscribe {
	return m.Called(ctx, cs, fn).Get(0).(domain.Unsubscribe)
}

// pngUpload returns a small, valid PNG upload.
func pngUpload(t *testing.T, name string) *domain.Upload {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return &domain.Upload{Filename: name, ContentType: "application/octet-stream", Data: buf.Bytes()}
}
