package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/marketplace-api/internal/domain/entity"
	apperrors "github.com/yourusername/marketplace-api/internal/pkg/errors"
	"github.com/yourusername/marketplace-api/pkg/auth"
	"github.com/yourusername/marketplace-api/pkg/auth/manager"
)

type authFixture struct {
	svc      *AuthService
	provider *MockIdentityProvider
	users    *MockUserRepository
	admins   *MockAdminRepository
	codes    *MockEmailVerificationRepository
	mailer   *MockEmailService
	cache    *MockCacheRepository
	jwt      *auth.JWTService
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	f := &authFixture{
		provider: new(MockIdentityProvider),
		users:    new(MockUserRepository),
		admins:   new(MockAdminRepository),
		codes:    new(MockEmailVerificationRepository),
		mailer:   new(MockEmailService),
		cache:    new(MockCacheRepository),
	}
	var err error
	f.jwt, err = auth.NewJWTService("0123456789abcdef0123456789abcdef", "k1", "", time.Hour, time.Minute)
	require.NoError(t, err)
	reconciler, err := NewProfileReconciler(f.users, f.admins)
	require.NoError(t, err)
	verification, err := NewEmailVerificationService(f.codes, f.mailer, 15*time.Minute, time.Minute, 5, "pepper")
	require.NoError(t, err)
	f.svc, err = NewAuthService(f.provider, f.users, reconciler, verification, f.jwt, f.cache)
	require.NoError(t, err)
	return f
}

var testSession = &manager.Session{AccessToken: "at", RefreshToken: "rt", TokenType: "bearer", ExpiresIn: 3600}

func TestNewAuthService_RequiresDependencies(t *testing.T) {
	_, err := NewAuthService(nil, new(MockUserRepository), &ProfileReconciler{}, nil, &auth.JWTService{}, nil)
	assert.Error(t, err)
}

func TestRegister_Success(t *testing.T) {
	// Arrange
	f := newAuthFixture(t)
	ctx := context.Background()
	f.provider.On("SignUp", ctx, "new@x.io", "secret1", manager.ClientInfo{}).
		Return(&Identity{Subject: subjectA, Email: "new@x.io", EmailConfirmed: true}, testSession, nil)
	f.users.On("Create", ctx, mock.MatchedBy(func(u *entity.User) bool {
		return u.IsLinkedTo(subjectA) && u.Username == "new" && u.Rating == entity.DefaultRating && u.FullName == "New Person"
	})).Return(nil)

	// Act
	res, err := f.svc.Register(ctx, RegisterInput{Email: "  New@X.io ", Password: "secret1", DisplayName: "New Person"})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, testSession, res.Session)
	assert.False(t, res.RequiresVerification)
	assert.Empty(t, res.Message)
	assert.False(t, res.User.IsAdmin)
	f.provider.AssertNotCalled(t, "DeleteUser", mock.Anything, mock.Anything)
}

func TestRegister_PendingVerificationSendsCode(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	f.provider.On("SignUp", ctx, "new@x.io", "secret1", manager.ClientInfo{}).
		Return(&Identity{Subject: subjectA, Email: "new@x.io"}, nil, nil)
	f.users.On("Create", ctx, mock.Anything).Return(nil)
	f.codes.On("GetLatestActiveBySubject", ctx, subjectA).Return(nil, apperrors.ErrNotFound)
	f.codes.On("Create", ctx, mock.AnythingOfType("*entity.EmailVerificationCode")).Return(nil)
	f.mailer.On("SendVerificationCode", ctx, "new@x.io", mock.AnythingOfType("string"), mock.AnythingOfType("string")).Return(nil)

	res, err := f.svc.Register(ctx, RegisterInput{Email: "new@x.io", Password: "secret1"})

	require.NoError(t, err)
	assert.Nil(t, res.Session)
	assert.True(t, res.RequiresVerification)
	assert.Equal(t, pendingVerificationMessage, res.Message)
	f.mailer.AssertExpectations(t)
}

func TestRegister_VerificationEmailFailureDoesNotFailSignup(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	f.provider.On("SignUp", ctx, "new@x.io", "secret1", manager.ClientInfo{}).
		Return(&Identity{Subject: subjectA, Email: "new@x.io"}, nil, nil)
	f.users.On("Create", ctx, mock.Anything).Return(nil)
	f.codes.On("GetLatestActiveBySubject", ctx, subjectA).Return(nil, apperrors.ErrNotFound)
	f.codes.On("Create", ctx, mock.Anything).Return(nil)
	f.mailer.On("SendVerificationCode", ctx, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("smtp down"))

	res, err := f.svc.Register(ctx, RegisterInput{Email: "new@x.io", Password: "secret1"})

	require.NoError(t, err)
	assert.True(t, res.RequiresVerification)
}

func TestRegister_DirectoryFailureCompensates(t *testing.T) {
	tests := []struct {
		name      string
		createErr error
		deleteErr error
		wantIs    error
	}{
		{name: "duplicate directory row", createErr: apperrors.ErrConflict, wantIs: apperrors.ErrConflict},
		{name: "database failure", createErr: errors.New("insert failed")},
		{name: "compensation also fails", createErr: apperrors.ErrConflict, deleteErr: errors.New("provider down"), wantIs: apperrors.ErrConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAuthFixture(t)
			ctx := context.Background()
			f.provider.On("SignUp", ctx, "new@x.io", "secret1", manager.ClientInfo{}).
				Return(&Identity{Subject: subjectA, Email: "new@x.io"}, testSession, nil)
			f.users.On("Create", ctx, mock.Anything).Return(tt.createErr)
			f.provider.On("DeleteUser", ctx, subjectA).Return(tt.deleteErr)

			_, err := f.svc.Register(ctx, RegisterInput{Email: "new@x.io", Password: "secret1"})

			require.Error(t, err)
			if tt.wantIs != nil {
				assert.ErrorIs(t, err, tt.wantIs)
			}
			f.provider.AssertCalled(t, "DeleteUser", ctx, subjectA)
		})
	}
}

func TestRegister_Validation(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.svc.Register(context.Background(), RegisterInput{Email: " ", Password: "secret1"})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = f.svc.Register(context.Background(), RegisterInput{Email: "a@x.io", Password: "  "})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	f.provider.AssertNotCalled(t, "SignUp", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRegister_ProviderRejectionPassesThrough(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	f.provider.On("SignUp", ctx, "a@x.io", "abc", manager.ClientInfo{}).
		Return(nil, nil, apperrors.NewProviderError(apperrors.CodeWeakPassword, "Password should be at least 6 characters", ""))

	_, err := f.svc.Register(ctx, RegisterInput{Email: "a@x.io", Password: "abc"})

	assert.ErrorIs(t, err, apperrors.ErrProvider)
	assert.Equal(t, apperrors.CodeWeakPassword, apperrors.CodeOf(err))
	f.users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestLogin_Failures(t *testing.T) {
	tests := []struct {
		name     string
		provErr  error
		wantCode string
	}{
		{"wrong password", apperrors.NewAuthError(apperrors.CodeInvalidCredentials, "Invalid login credentials", nil), apperrors.CodeInvalidCredentials},
		{"unconfirmed email", apperrors.NewAuthError(apperrors.CodeEmailNotConfirmed, "Email not confirmed", nil), apperrors.CodeEmailNotConfirmed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAuthFixture(t)
			ctx := context.Background()
			f.provider.On("SignInWithPassword", ctx, "a@x.io", "pw", manager.ClientInfo{}).Return(nil, nil, tt.provErr)

			_, err := f.svc.Login(ctx, "a@x.io", "pw", manager.ClientInfo{})

			assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
			assert.Equal(t, tt.wantCode, apperrors.CodeOf(err))
		})
	}
}

func TestLogin_MissingFields(t *testing.T) {
	f := newAuthFixture(t)
	_, err := f.svc.Login(context.Background(), "a@x.io", "", manager.ClientInfo{})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestRegisterThenLogin_ResolveSameDirectoryRow(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	identity := &Identity{Subject: subjectA, Email: "a@x.io", EmailConfirmed: true}

	var stored *entity.User
	f.provider.On("SignUp", ctx, "a@x.io", "secret1", manager.ClientInfo{}).Return(identity, testSession, nil)
	f.users.On("Create", ctx, mock.Anything).Run(func(args mock.Arguments) {
		stored = args.Get(1).(*entity.User)
		stored.ID = 42
	}).Return(nil)

	reg, err := f.svc.Register(ctx, RegisterInput{Email: "a@x.io", Password: "secret1"})
	require.NoError(t, err)

	f.provider.On("SignInWithPassword", ctx, "a@x.io", "secret1", manager.ClientInfo{}).Return(identity, testSession, nil)
	f.users.On("GetByAuthUserID", ctx, subjectA).Return(stored, nil)
	f.admins.On("GetBySubject", ctx, subjectA).Return(nil, apperrors.ErrNotFound)

	login, err := f.svc.Login(ctx, "a@x.io", "secret1", manager.ClientInfo{})

	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, login.User.ID)
	assert.Equal(t, uint(42), login.User.ID)
}

func TestCurrentSubject_FailsOpen(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	f.provider.On("GetUser", ctx, "bad").Return(nil, errors.New("anything"))
	f.provider.On("GetUser", ctx, "good").Return(&Identity{Subject: subjectA}, nil)

	assert.Nil(t, f.svc.CurrentSubject(ctx, ""))
	assert.Nil(t, f.svc.CurrentSubject(ctx, "bad"))
	require.NotNil(t, f.svc.CurrentSubject(ctx, "good"))
	assert.Equal(t, subjectA, f.svc.CurrentSubject(ctx, "good").Subject)
}

func TestRefresh(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, err := f.svc.Refresh(ctx, "", manager.ClientInfo{})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	f.provider.On("RefreshSession", ctx, "stale", manager.ClientInfo{}).
		Return(nil, nil, apperrors.NewAuthError(apperrors.CodeInvalidRefreshToken, "Invalid refresh token", nil))
	_, err = f.svc.Refresh(ctx, "stale", manager.ClientInfo{})
	assert.Equal(t, apperrors.CodeInvalidRefreshToken, apperrors.CodeOf(err))

	f.provider.On("RefreshSession", ctx, "rt", manager.ClientInfo{}).Return(&Identity{Subject: subjectA}, testSession, nil)
	session, err := f.svc.Refresh(ctx, "rt", manager.ClientInfo{})
	require.NoError(t, err)
	assert.Equal(t, testSession, session)
}

func TestLogout_SwallowsErrors(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	f.provider.On("SignOut", ctx, "rt").Return(errors.New("db down"))

	assert.NotPanics(t, func() { f.svc.Logout(ctx, "rt") })
	f.provider.AssertExpectations(t)
}

func TestVerifyEmail_ConfirmsIdentity(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	salt := "abcd"
	record := &entity.EmailVerificationCode{
		ID:          9,
		Subject:     subjectA,
		CodeHash:    hashVerificationCode("123456", salt, "pepper"),
		CodeSalt:    salt,
		ExpiresAt:   time.Now().Add(time.Minute),
		MaxAttempts: 5,
	}
	f.provider.On("GetUserByEmail", ctx, "a@x.io").Return(&Identity{Subject: subjectA, Email: "a@x.io"}, nil)
	f.codes.On("GetLatestActiveBySubject", ctx, subjectA).Return(record, nil)
	f.codes.On("MarkConsumed", ctx, uint(9)).Return(nil)
	f.provider.On("ConfirmEmail", ctx, subjectA).Return(&Identity{Subject: subjectA, EmailConfirmed: true}, nil)

	err := f.svc.VerifyEmail(ctx, "A@x.io", "123456")

	require.NoError(t, err)
	f.provider.AssertExpectations(t)
}

func TestVerifyEmail_UnknownEmail(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	f.provider.On("GetUserByEmail", ctx, "nobody@x.io").Return(nil, apperrors.ErrNotFound)

	err := f.svc.VerifyEmail(ctx, "nobody@x.io", "123456")

	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestChangeEmail_RevertsProviderOnDirectoryConflict(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	identity := &Identity{Subject: subjectA, Email: "old@x.io"}
	f.users.On("GetByAuthUserID", ctx, subjectA).Return(&entity.User{ID: 5, AuthUserID: strPtr(subjectA)}, nil)
	f.provider.On("UpdateEmail", ctx, subjectA, "new@x.io").Return(nil)
	f.users.On("UpdateEmail", ctx, uint(5), "new@x.io").Return(apperrors.ErrConflict)
	f.provider.On("UpdateEmail", ctx, subjectA, "old@x.io").Return(nil)

	_, err := f.svc.ChangeEmail(ctx, identity, "new@x.io")

	assert.ErrorIs(t, err, apperrors.ErrConflict)
	f.provider.AssertCalled(t, "UpdateEmail", ctx, subjectA, "old@x.io")
}

func TestChangeEmail_KeepsAdminStatus(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	identity := &Identity{Subject: subjectA, Email: "old@x.io"}
	user := &entity.User{ID: 5, AuthUserID: strPtr(subjectA), Email: "old@x.io"}
	f.users.On("GetByAuthUserID", ctx, subjectA).Return(user, nil)
	f.provider.On("UpdateEmail", ctx, subjectA, "new@x.io").Return(nil)
	f.users.On("UpdateEmail", ctx, uint(5), "new@x.io").Return(nil)
	f.admins.On("GetBySubject", ctx, subjectA).Return(&entity.AdminGrant{UserID: subjectA, Role: entity.RoleAdmin}, nil)

	profile, err := f.svc.ChangeEmail(ctx, identity, "new@x.io")

	require.NoError(t, err)
	assert.True(t, profile.IsAdmin)
}

func TestWSTicket_SingleUse(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	ticket, expiresAt, err := f.svc.IssueWSTicket(ctx, &Identity{Subject: subjectA, Email: "a@x.io"})
	require.NoError(t, err)
	assert.True(t, expiresAt.After(time.Now()))

	f.cache.On("SetNX", ctx, mock.AnythingOfType("string"), subjectA, mock.AnythingOfType("time.Duration")).Return(true, nil).Once()
	f.cache.On("SetNX", ctx, mock.AnythingOfType("string"), subjectA, mock.AnythingOfType("time.Duration")).Return(false, nil).Once()

	identity, err := f.svc.ConsumeWSTicket(ctx, ticket)
	require.NoError(t, err)
	assert.Equal(t, subjectA, identity.Subject)

	_, err = f.svc.ConsumeWSTicket(ctx, ticket)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestWSTicket_AccessTokenRejected(t *testing.T) {
	f := newAuthFixture(t)
	token, _, err := f.jwt.GenerateAccessToken(subjectA, "a@x.io")
	require.NoError(t, err)

	_, err = f.svc.ConsumeWSTicket(context.Background(), token)

	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}
