package identity

import (
	"context"
	"time"

	"go-panel-backend/internal/domain"
	"go-panel-backend/pkg/auth"
	"go-panel-backend/pkg/email"

	"github.com/stretchr/testify/mock"
)

type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) Create(ctx context.Context, a *domain.Account) error {
	return m.Called(ctx, a).Error(0)
}

func (m *MockAccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *MockAccountRepository) GetByEmail(ctx context.Context, e string) (*domain.Account, error) {
	args := m.Called(ctx, e)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *MockAccountRepository) GetByGoogleSubject(ctx context.Context, s string) (*domain.Account, error) {
	args := m.Called(ctx, s)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *MockAccountRepository) LinkGoogle(ctx context.Context, id, subject, name, photo string) error {
	return m.Called(ctx, id, subject, name, photo).Error(0)
}

func (m *MockAccountRepository) UpdatePassword(ctx context.Context, id, hash string) error {
	return m.Called(ctx, id, hash).Error(0)
}

func (m *MockAccountRepository) CreatePasswordReset(ctx context.Context, tokenHash, accountID string, expiresAt time.Time) error {
	return m.Called(ctx, tokenHash, accountID, expiresAt).Error(0)
}

func (m *MockAccountRepository) ConsumePasswordReset(ctx context.Context, tokenHash string, now time.Time) (string, error) {
	args := m.Called(ctx, tokenHash, now)
	return args.String(0), args.Error(1)
}

type MockSessionRepository struct {
	mock.Mock
}

func (m *MockSessionRepository) Bind(ctx context.Context, sid, accountID string, expiresAt time.Time) error {
	return m.Called(ctx, sid, accountID, expiresAt).Error(0)
}

func (m *MockSessionRepository) AccountID(ctx context.Context, sid string, now time.Time) (string, error) {
	args := m.Called(ctx, sid, now)
	return args.String(0), args.Error(1)
}

func (m *MockSessionRepository) Unbind(ctx context.Context, sid string) error {
	return m.Called(ctx, sid).Error(0)
}

type MockGoogle struct {
	mock.Mock
}

func (m *MockGoogle) ConsentURL(state string) (string, error) {
	args := m.Called(state)
	return args.String(0), args.Error(1)
}

func (m *MockGoogle) Exchange(ctx context.Context, code string) (*auth.GoogleUser, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.GoogleUser), args.Error(1)
}

type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) SendPasswordReset(data email.PasswordResetData) error {
	return m.Called(data).Error(0)
}

type MockGuard struct {
	mock.Mock
}

func (m *MockGuard) IsBlocked(ctx context.Context, e, ip string) (bool, error) {
	args := m.Called(ctx, e, ip)
	return args.Bool(0), args.Error(1)
}

func (m *MockGuard) RecordFailedAttempt(ctx context.Context, e, ip, ua, reason string) (bool, int, error) {
	args := m.Called(ctx, e, ip, ua, reason)
	return args.Bool(0), args.Int(1), args.Error(2)
}

func (m *MockGuard) ClearAttempts(ctx context.Context, e, ip string) error {
	return m.Called(ctx, e, ip).Error(0)
}
