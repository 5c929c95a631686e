package v1

import (
	"context"

	"go-panel-backend/internal/domain"

	"github.com/stretchr/testify/mock"
)

type MockSessionUsecase struct {
	mock.Mock
}

func (m *MockSessionUsecase) ObserveSession(ctx context.Context, cs domain.ClientSession, fn func(*domain.Session)) domain.Unsubscribe {
	args := m.Called(ctx, cs, fn)
	return args.Get(0).(domain.Unsubscribe)
}

func (m *MockSessionUsecase) Register(ctx context.Context, cs domain.ClientSession, input domain.RegisterInput) (*domain.Session, error) {
	args := m.Called(ctx, cs, input)
	s, _ := args.Get(0).(*domain.Session)
	return s, args.Error(1)
}

func (m *MockSessionUsecase) Login(ctx context.Context, cs domain.ClientSession, email, password string) (*domain.Session, error) {
	args := m.Called(ctx, cs, email, password)
	s, _ := args.Get(0).(*domain.Session)
	return s, args.Error(1)
}

func (m *MockSessionUsecase) GoogleConsentURL(state string) (string, error) {
	args := m.Called(state)
	return args.String(0), args.Error(1)
}

func (m *MockSessionUsecase) LoginWithGoogle(ctx context.Context, cs domain.ClientSession, code string) (*domain.Session, error) {
	args := m.Called(ctx, cs, code)
	s, _ := args.Get(0).(*domain.Session)
	return s, args.Error(1)
}

func (m *MockSessionUsecase) ResetPassword(ctx context.Context, email string) error {
	return m.Called(ctx, email).Error(0)
}

func (m *MockSessionUsecase) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	return m.Called(ctx, token, newPassword).Error(0)
}

func (m *MockSessionUsecase) Logout(ctx context.Context, cs domain.ClientSession) error {
	return m.Called(ctx, cs).Error(0)
}

func (m *MockSessionUsecase) CurrentSession(ctx context.Context, cs domain.ClientSession) (*domain.Session, error) {
	args := m.Called(ctx, cs)
	s, _ := args.Get(0).(*domain.Session)
	return s, args.Error(1)
}

func (m *MockSessionUsecase) LoadFullSession(ctx context.Context, id *domain.Identity) *domain.Session {
	s, _ := m.Called(ctx, id).Get(0).(*domain.Session)
	return s
}

func (m *MockSessionUsecase) Shell(ctx context.Context, cs domain.ClientSession) *domain.Shell {
	s, _ := m.Called(ctx, cs).Get(0).(*domain.Shell)
	return s
}

type MockPostUsecase struct {
	mock.Mock
}

func (m *MockPostUsecase) Subscribe(ctx context.Context) *domain.Subscription[domain.Post] {
	return m.Called(ctx).Get(0).(*domain.Subscription[domain.Post])
}

func (m *MockPostUsecase) List(ctx context.Context) ([]domain.Post, error) {
	args := m.Called(ctx)
	items, _ := args.Get(0).([]domain.Post)
	return items, args.Error(1)
}

func (m *MockPostUsecase) Create(ctx context.Context, input domain.PostInput) (*domain.Post, error) {
	args := m.Called(ctx, input)
	p, _ := args.Get(0).(*domain.Post)
	return p, args.Error(1)
}

func (m *MockPostUsecase) Update(ctx context.Context, id string, input domain.PostInput) error {
	return m.Called(ctx, id, input).Error(0)
}

func (m *MockPostUsecase) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockPostUsecase) Export(ctx context.Context, format string) ([]byte, string, error) {
	args := m.Called(ctx, format)
	data, _ := args.Get(0).([]byte)
	return data, args.String(1), args.Error(2)
}

type MockProductUsecase struct {
	mock.Mock
}

func (m *MockProductUsecase) Subscribe(ctx context.Context) *domain.Subscription[domain.Product] {
	return m.Called(ctx).Get(0).(*domain.Subscription[domain.Product])
}

func (m *MockProductUsecase) List(ctx context.Context) ([]domain.Product, error) {
	args := m.Called(ctx)
	items, _ := args.Get(0).([]domain.Product)
	return items, args.Error(1)
}

func (m *MockProductUsecase) Create(ctx context.Context, input domain.ProductInput, image *domain.Upload) (*domain.Product, error) {
	args := m.Called(ctx, input, image)
	p, _ := args.Get(0).(*domain.Product)
	return p, args.Error(1)
}

func (m *MockProductUsecase) Update(ctx context.Context, id string, input domain.ProductInput, image *domain.Upload) error {
	return m.Called(ctx, id, input, image).Error(0)
}

func (m *MockProductUsecase) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockProductUsecase) Export(ctx context.Context, format string) ([]byte, string, error) {
	args := m.Called(ctx, format)
	data, _ := args.Get(0).([]byte)
	return data, args.String(1), args.Error(2)
}

type MockContactUsecase struct {
	mock.Mock
}

func (m *MockContactUsecase) Subscribe(ctx context.Context) *domain.Subscription[domain.Contact] {
	return m.Called(ctx).Get(0).(*domain.Subscription[domain.Contact])
}

func (m *MockContactUsecase) List(ctx context.Context) ([]domain.Contact, error) {
	args := m.Called(ctx)
	items, _ := args.Get(0).([]domain.Contact)
	return items, args.Error(1)
}

func (m *MockContactUsecase) Create(ctx context.Context, input domain.ContactInput) (*domain.Contact, error) {
	args := m.Called(ctx, input)
	p, _ := args.Get(0).(*domain.Contact)
	return p, args.Error(1)
}

func (m *MockContactUsecase) Update(ctx context.Context, id string, input domain.ContactInput) error {
	return m.Called(ctx, id, input).Error(0)
}

func (m *MockContactUsecase) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockContactUsecase) Export(ctx context.Context, format string) ([]byte, string, error) {
	args := m.Called(ctx, format)
	data, _ := args.Get(0).([]byte)
	return data, args.String(1), args.Error(2)
}
