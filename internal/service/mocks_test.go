package service

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/yourusername/marketplace-api/internal/domain/entity"
	"github.com/yourusername/marketplace-api/internal/domain/repository"
	"github.com/yourusername/marketplace-api/pkg/auth/manager"
)

// ============================================================================
// Моки для тестирования сервисов
// ============================================================================

// MockUserRepository реализует repository.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *entity.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uint) (*entity.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

func (m *MockUserRepository) GetByAuthUserID(ctx context.Context, subject string) (*entity.User, error) {
	args := m.Called(ctx, subject)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

func (m *MockUserRepository) LinkAuthUser(ctx context.Context, id uint, subject string) error {
	return m.Called(ctx, id, subject).Error(0)
}

func (m *MockUserRepository) UpdateEmail(ctx context.Context, id uint, email string) error {
	return m.Called(ctx, id, email).Error(0)
}

func (m *MockUserRepository) List(ctx context.Context, limit, offset int) ([]entity.User, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.User), args.Error(1)
}

// MockAdminRepository реализует repository.AdminRepository
type MockAdminRepository struct {
	mock.Mock
}

func (m *MockAdminRepository) Create(ctx context.Context, grant *entity.AdminGrant) error {
	return m.Called(ctx, grant).Error(0)
}

func (m *MockAdminRepository) GetByID(ctx context.Context, id string) (*entity.AdminGrant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.AdminGrant), args.Error(1)
}

func (m *MockAdminRepository) GetBySubject(ctx context.Context, subject string) (*entity.AdminGrant, error) {
	args := m.Called(ctx, subject)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.AdminGrant), args.Error(1)
}

func (m *MockAdminRepository) List(ctx context.Context) ([]entity.AdminGrant, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.AdminGrant), args.Error(1)
}

func (m *MockAdminRepository) UpdateRole(ctx context.Context, id, role string) (*entity.AdminGrant, error) {
	args := m.Called(ctx, id, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.AdminGrant), args.Error(1)
}

func (m *MockAdminRepository) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

// MockIdentityProvider реализует IdentityProvider
type MockIdentityProvider struct {
	mock.Mock
}

func identityResult(args mock.Arguments) (*Identity, *manager.Session, error) {
	var identity *Identity
	var session *manager.Session
	if v := args.Get(0); v != nil {
		identity = v.(*Identity)
	}
	if v := args.Get(1); v != nil {
		session = v.(*manager.Session)
	}
	return identity, session, args.Error(2)
}

func (m *MockIdentityProvider) SignUp(ctx context.Context, email, password string, client manager.ClientInfo) (*Identity, *manager.Session, error) {
	return identityResult(m.Called(ctx, email, password, client))
}

func (m *MockIdentityProvider) SignInWithPassword(ctx context.Context, email, password string, client manager.ClientInfo) (*Identity, *manager.Session, error) {
	return identityResult(m.Called(ctx, email, password, client))
}

func (m *MockIdentityProvider) GetUser(ctx context.Context, accessToken string) (*Identity, error) {
	args := m.Called(ctx, accessToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Identity), args.Error(1)
}

func (m *MockIdentityProvider) RefreshSession(ctx context.Context, refreshToken string, client manager.ClientInfo) (*Identity, *manager.Session, error) {
	return identityResult(m.Called(ctx, refreshToken, client))
}

func (m *MockIdentityProvider) SignOut(ctx context.Context, refreshToken string) error {
	return m.Called(ctx, refreshToken).Error(0)
}

func (m *MockIdentityProvider) DeleteUser(ctx context.Context, subject string) error {
	return m.Called(ctx, subject).Error(0)
}

func (m *MockIdentityProvider) GetUserByEmail(ctx context.Context, email string) (*Identity, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Identity), args.Error(1)
}

func (m *MockIdentityProvider) ConfirmEmail(ctx context.Context, subject string) (*Identity, error) {
	args := m.Called(ctx, subject)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Identity), args.Error(1)
}

func (m *MockIdentityProvider) UpdateEmail(ctx context.Context, subject, email string) error {
	return m.Called(ctx, subject, email).Error(0)
}

// MockEmailVerificationRepository реализует repository.EmailVerificationRepository
type MockEmailVerificationRepository struct {
	mock.Mock
}

func (m *MockEmailVerificationRepository) Create(ctx context.Context, code *entity.EmailVerificationCode) error {
	return m.Called(ctx, code).Error(0)
}

func (m *MockEmailVerificationRepository) GetLatestActiveBySubject(ctx context.Context, subject string) (*entity.EmailVerificationCode, error) {
	args := m.Called(ctx, subject)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.EmailVerificationCode), args.Error(1)
}

func (m *MockEmailVerificationRepository) IncrementAttempts(ctx context.Context, id uint) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockEmailVerificationRepository) MarkConsumed(ctx context.Context, id uint) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockEmailVerificationRepository) DeleteBySubject(ctx context.Context, subject string) error {
	return m.Called(ctx, subject).Error(0)
}

func (m *MockEmailVerificationRepository) DeleteExpiredBefore(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)
	return args.Get(0).(int64), args.Error(1)
}

// MockEmailService реализует EmailService
type MockEmailService struct {
	mock.Mock
}

func (m *MockEmailService) SendVerificationCode(ctx context.Context, toEmail, code, idempotencyKey string) error {
	return m.Called(ctx, toEmail, code, idempotencyKey).Error(0)
}

// MockCacheRepository реализует repository.CacheRepository
type MockCacheRepository struct {
	mock.Mock
}

func (m *MockCacheRepository) Get(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func (m *MockCacheRepository) Increment(ctx context.Context, key string) (int64, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCacheRepository) SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return m.Called(ctx, key, value, expiration).Error(0)
}

func (m *MockCacheRepository) GetJSON(ctx context.Context, key string, dest interface{}) error {
	return m.Called(ctx, key, dest).Error(0)
}

func (m *MockCacheRepository) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	args := m.Called(ctx, key, value, expiration)
	return args.Bool(0), args.Error(1)
}

// MockResourceRepository реализует repository.ResourceRepository[T]
type MockResourceRepository[T any] struct {
	mock.Mock
}

func (m *MockResourceRepository[T]) List(ctx context.Context, q repository.ListQuery) ([]T, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]T), args.Error(1)
}

func (m *MockResourceRepository[T]) Get(ctx context.Context, key map[string]interface{}) (*T, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*T), args.Error(1)
}

func (m *MockResourceRepository[T]) Create(ctx context.Context, record *T) error {
	return m.Called(ctx, record).Error(0)
}

func (m *MockResourceRepository[T]) Update(ctx context.Context, key, changes map[string]interface{}) (*T, error) {
	args := m.Called(ctx, key, changes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*T), args.Error(1)
}

func (m *MockResourceRepository[T]) Delete(ctx context.Context, key map[string]interface{}) error {
	return m.Called(ctx, key).Error(0)
}
