package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/marketplace-api/internal/domain/entity"
	apperrors "github.com/yourusername/marketplace-api/internal/pkg/errors"
)

const (
	subjectA = "5d6c1b8e-2f0a-4c53-9d7e-1a2b3c4d5e6f"
	subjectB = "9a8b7c6d-5e4f-4a3b-8c2d-1e0f9a8b7c6d"
)

func strPtr(s string) *string { return &s }

func newTestReconciler(t *testing.T) (*ProfileReconciler, *MockUserRepository, *MockAdminRepository) {
	t.Helper()
	users := new(MockUserRepository)
	admins := new(MockAdminRepository)
	r, err := NewProfileReconciler(users, admins)
	require.NoError(t, err)
	return r, users, admins
}

func TestReconcile_AdminBySubject(t *testing.T) {
	// Arrange
	r, users, admins := newTestReconciler(t)
	ctx := context.Background()
	user := &entity.User{ID: 7, AuthUserID: strPtr(subjectA), Email: "a@x.io"}
	users.On("GetByAuthUserID", ctx, subjectA).Return(user, nil)
	admins.On("GetBySubject", ctx, subjectA).Return(&entity.AdminGrant{ID: "g", UserID: subjectA, Role: entity.RoleSuperAdmin}, nil)

	// Act
	profile, err := r.Reconcile(ctx, &Identity{Subject: subjectA, Email: "a@x.io"})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, uint(7), profile.ID)
	assert.True(t, profile.IsAdmin)
	require.NotNil(t, profile.AdminRole)
	assert.Equal(t, entity.RoleSuperAdmin, *profile.AdminRole)
}

func TestReconcile_NoGrant(t *testing.T) {
	r, users, admins := newTestReconciler(t)
	ctx := context.Background()
	users.On("GetByAuthUserID", ctx, subjectA).Return(&entity.User{ID: 7, AuthUserID: strPtr(subjectA)}, nil)
	admins.On("GetBySubject", ctx, subjectA).Return(nil, apperrors.ErrNotFound)

	profile, err := r.Reconcile(ctx, &Identity{Subject: subjectA})

	require.NoError(t, err)
	assert.False(t, profile.IsAdmin)
	assert.Nil(t, profile.AdminRole)
}

func TestReconcile_RegistryFailureMeansNotAdmin(t *testing.T) {
	r, users, admins := newTestReconciler(t)
	ctx := context.Background()
	users.On("GetByAuthUserID", ctx, subjectA).Return(&entity.User{ID: 7, AuthUserID: strPtr(subjectA)}, nil)
	admins.On("GetBySubject", ctx, subjectA).Return(nil, errors.New("connection reset"))

	profile, err := r.Reconcile(ctx, &Identity{Subject: subjectA})

	require.NoError(t, err)
	assert.False(t, profile.IsAdmin)
	assert.Nil(t, profile.AdminRole)
}

func TestReconcile_MissingDirectoryRow(t *testing.T) {
	r, users, admins := newTestReconciler(t)
	ctx := context.Background()
	users.On("GetByAuthUserID", ctx, subjectA).Return(nil, apperrors.ErrNotFound)
	users.On("GetByEmail", ctx, "ghost@x.io").Return(nil, apperrors.ErrNotFound)

	_, err := r.Reconcile(ctx, &Identity{Subject: subjectA, Email: "ghost@x.io"})

	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	admins.AssertNotCalled(t, "GetBySubject", mock.Anything, mock.Anything)
}

func TestReconcile_LegacyRowIsBackfilled(t *testing.T) {
	r, users, admins := newTestReconciler(t)
	ctx := context.Background()
	legacy := &entity.User{ID: 3, Email: "old@x.io"}
	users.On("GetByAuthUserID", ctx, subjectA).Return(nil, apperrors.ErrNotFound)
	users.On("GetByEmail", ctx, "old@x.io").Return(legacy, nil)
	users.On("LinkAuthUser", ctx, uint(3), subjectA).Return(nil)
	admins.On("GetBySubject", ctx, subjectA).Return(nil, apperrors.ErrNotFound)

	profile, err := r.Reconcile(ctx, &Identity{Subject: subjectA, Email: "old@x.io"})

	require.NoError(t, err)
	assert.Equal(t, subjectA, profile.Subject())
	users.AssertExpectations(t)
}

func TestReconcile_BackfillFailureIsNotFatal(t *testing.T) {
	r, users, admins := newTestReconciler(t)
	ctx := context.Background()
	users.On("GetByAuthUserID", ctx, subjectA).Return(nil, apperrors.ErrNotFound)
	users.On("GetByEmail", ctx, "old@x.io").Return(&entity.User{ID: 3, Email: "old@x.io"}, nil)
	users.On("LinkAuthUser", ctx, uint(3), subjectA).Return(errors.New("timeout"))
	admins.On("GetBySubject", ctx, subjectA).Return(nil, apperrors.ErrNotFound)

	profile, err := r.Reconcile(ctx, &Identity{Subject: subjectA, Email: "old@x.io"})

	require.NoError(t, err)
	assert.Equal(t, uint(3), profile.ID)
}

func TestReconcile_EmailRowOwnedByOtherSubject(t *testing.T) {
	r, users, _ := newTestReconciler(t)
	ctx := context.Background()
	users.On("GetByAuthUserID", ctx, subjectA).Return(nil, apperrors.ErrNotFound)
	users.On("GetByEmail", ctx, "a@x.io").Return(&entity.User{ID: 3, AuthUserID: strPtr(subjectB)}, nil)

	_, err := r.Reconcile(ctx, &Identity{Subject: subjectA, Email: "a@x.io"})

	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	users.AssertNotCalled(t, "LinkAuthUser", mock.Anything, mock.Anything, mock.Anything)
}

func TestReconcile_DirectoryErrorPropagates(t *testing.T) {
	r, users, _ := newTestReconciler(t)
	ctx := context.Background()
	dbErr := errors.New("db down")
	users.On("GetByAuthUserID", ctx, subjectA).Return(nil, dbErr)

	_, err := r.Reconcile(ctx, &Identity{Subject: subjectA})

	assert.ErrorIs(t, err, dbErr)
	assert.NotErrorIs(t, err, apperrors.ErrNotFound)
}
