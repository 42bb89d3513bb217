package manager

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/marketplace-api/internal/domain/entity"
	apperrors "github.com/yourusername/marketplace-api/internal/pkg/errors"
	"github.com/yourusername/marketplace-api/pkg/auth"
)

type MockRefreshTokenRepository struct {
	mock.Mock
}

func (m *MockRefreshTokenRepository) CreateToken(ctx context.Context, token *entity.RefreshToken) (uint, error) {
	args := m.Called(ctx, token)
	return args.Get(0).(uint), args.Error(1)
}

func (m *MockRefreshTokenRepository) GetTokenByHash(ctx context.Context, tokenHash string) (*entity.RefreshToken, error) {
	args := m.Called(ctx, tokenHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.RefreshToken), args.Error(1)
}

func (m *MockRefreshTokenRepository) RevokeByHash(ctx context.Context, tokenHash, reason string) error {
	return m.Called(ctx, tokenHash, reason).Error(0)
}

func (m *MockRefreshTokenRepository) RevokeAllForSubject(ctx context.Context, subject, reason string) error {
	return m.Called(ctx, subject, reason).Error(0)
}

func (m *MockRefreshTokenRepository) CountActiveForSubject(ctx context.Context, subject string) (int, error) {
	args := m.Called(ctx, subject)
	return args.Int(0), args.Error(1)
}

func (m *MockRefreshTokenRepository) RevokeOldestForSubject(ctx context.Context, subject string, keep int) error {
	return m.Called(ctx, subject, keep).Error(0)
}

func (m *MockRefreshTokenRepository) CleanupExpiredTokens(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func newTestManager(t *testing.T, repo *MockRefreshTokenRepository, limit int) *TokenManager {
	t.Helper()
	jwtSvc, err := auth.NewJWTService("0123456789abcdef0123456789abcdef", "k1", "", time.Hour, time.Minute)
	require.NoError(t, err)
	m, err := NewTokenManager(jwtSvc, repo, time.Hour, limit)
	require.NoError(t, err)
	return m
}

func TestIssueSession_StoresOnlyHash(t *testing.T) {
	repo := new(MockRefreshTokenRepository)
	var stored *entity.RefreshToken
	repo.On("CreateToken", mock.Anything, mock.AnythingOfType("*entity.RefreshToken")).
		Run(func(args mock.Arguments) { stored = args.Get(1).(*entity.RefreshToken) }).
		Return(uint(1), nil)
	repo.On("CountActiveForSubject", mock.Anything, "sub-1").Return(1, nil)

	m := newTestManager(t, repo, 10)
	session, err := m.IssueSession(context.Background(), "sub-1", "a@b.c", ClientInfo{IPAddress: "127.0.0.1"})

	require.NoError(t, err)
	assert.Equal(t, TokenTypeBearer, session.TokenType)
	assert.Equal(t, 3600, session.ExpiresIn)
	assert.InDelta(t, time.Now().Add(time.Hour).Unix(), session.ExpiresAt, 5)
	require.NotNil(t, stored)
	assert.Equal(t, HashToken(session.RefreshToken), stored.TokenHash)
	assert.NotEqual(t, session.RefreshToken, stored.TokenHash)
	repo.AssertNotCalled(t, "RevokeOldestForSubject", mock.Anything, mock.Anything, mock.Anything)
}

func TestSession_ExpiresAtIsUnixSeconds(t *testing.T) {
	data, err := json.Marshal(Session{AccessToken: "a", ExpiresAt: 1700000000})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"expires_at":1700000000`)
}

func TestIssueSession_EnforcesSessionLimit(t *testing.T) {
	repo := new(MockRefreshTokenRepository)
	repo.On("CreateToken", mock.Anything, mock.Anything).Return(uint(1), nil)
	repo.On("CountActiveForSubject", mock.Anything, "sub-1").Return(3, nil)
	repo.On("RevokeOldestForSubject", mock.Anything, "sub-1", 2).Return(nil)

	m := newTestManager(t, repo, 2)
	_, err := m.IssueSession(context.Background(), "sub-1", "a@b.c", ClientInfo{})

	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestRotate(t *testing.T) {
	past := time.Now().Add(-time.Minute)
	tests := []struct {
		name        string
		token       string
		stored      *entity.RefreshToken
		getErr      error
		revokeErr   error
		wantSubject string
		wantType    TokenErrorType
	}{
		{
			name:        "valid token rotates",
			token:       "tok",
			stored:      &entity.RefreshToken{Subject: "sub-1", ExpiresAt: time.Now().Add(time.Hour)},
			wantSubject: "sub-1",
		},
		{name: "empty token", token: "", wantType: InvalidRefreshToken},
		{name: "unknown token", token: "tok", getErr: apperrors.ErrNotFound, wantType: InvalidRefreshToken},
		{name: "db failure", token: "tok", getErr: errors.New("db down"), wantType: DatabaseError},
		{
			name:     "expired token",
			token:    "tok",
			stored:   &entity.RefreshToken{Subject: "sub-1", ExpiresAt: past},
			wantType: ExpiredRefreshToken,
		},
		{
			name:      "concurrent rotation loses",
			token:     "tok",
			stored:    &entity.RefreshToken{Subject: "sub-1", ExpiresAt: time.Now().Add(time.Hour)},
			revokeErr: apperrors.ErrNotFound,
			wantType:  TokenRevoked,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockRefreshTokenRepository)
			if tt.token != "" {
				if tt.getErr != nil {
					repo.On("GetTokenByHash", mock.Anything, HashToken(tt.token)).Return(nil, tt.getErr)
				} else {
					repo.On("GetTokenByHash", mock.Anything, HashToken(tt.token)).Return(tt.stored, nil)
				}
				repo.On("RevokeByHash", mock.Anything, HashToken(tt.token), "rotated").Return(tt.revokeErr)
			}
			m := newTestManager(t, repo, 10)

			subject, err := m.Rotate(context.Background(), tt.token)

			if tt.wantType != "" {
				var te *TokenError
				require.True(t, errors.As(err, &te), "got %v", err)
				assert.Equal(t, tt.wantType, te.Type)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantSubject, subject)
		})
	}
}

func TestRotate_ReuseRevokesAllSessions(t *testing.T) {
	revokedAt := time.Now().Add(-time.Minute)
	repo := new(MockRefreshTokenRepository)
	repo.On("GetTokenByHash", mock.Anything, HashToken("tok")).
		Return(&entity.RefreshToken{Subject: "sub-1", ExpiresAt: time.Now().Add(time.Hour), IsExpired: true, RevokedAt: &revokedAt}, nil)
	repo.On("RevokeAllForSubject", mock.Anything, "sub-1", "reuse_detected").Return(nil)

	m := newTestManager(t, repo, 10)
	_, err := m.Rotate(context.Background(), "tok")

	assert.True(t, IsRefreshRejected(err))
	repo.AssertExpectations(t)
}

func TestRevokeRefreshToken_UnknownIsNotAnError(t *testing.T) {
	repo := new(MockRefreshTokenRepository)
	repo.On("RevokeByHash", mock.Anything, HashToken("tok"), "logout").Return(apperrors.ErrNotFound)

	m := newTestManager(t, repo, 10)

	assert.NoError(t, m.RevokeRefreshToken(context.Background(), "tok"))
	assert.NoError(t, m.RevokeRefreshToken(context.Background(), ""))
}
