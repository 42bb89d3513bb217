package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// hooks don't touch tx, nil is enough
var mockTx *gorm.DB = nil

func TestAuthIdentity_BeforeSave_HashesPassword(t *testing.T) {
	// Arrange
	plainPassword := "mySecretPassword123"
	identity := &AuthIdentity{Email: "test@example.com", Password: plainPassword}

	// Act
	err := identity.BeforeSave(mockTx)

	// Assert
	require.NoError(t, err)
	assert.NotEqual(t, plainPassword, identity.Password)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(identity.Password), []byte(plainPassword)))
}

func TestAuthIdentity_BeforeSave_SkipsAlreadyHashedPassword(t *testing.T) {
	// Arrange
	hashed, err := bcrypt.GenerateFromPassword([]byte("alreadyHashed"), bcrypt.MinCost)
	require.NoError(t, err)
	identity := &AuthIdentity{Email: "test@example.com", Password: string(hashed)}

	// Act
	err = identity.BeforeSave(mockTx)

	// Assert: no double hashing
	require.NoError(t, err)
	assert.Equal(t, string(hashed), identity.Password)
}

func TestAuthIdentity_BeforeSave_SkipsEmptyPassword(t *testing.T) {
	identity := &AuthIdentity{Email: "test@example.com"}

	require.NoError(t, identity.BeforeSave(mockTx))
	assert.Equal(t, "", identity.Password)
}

func TestAuthIdentity_CheckPassword(t *testing.T) {
	hashed, err := bcrypt.GenerateFromPassword([]byte("correctPassword123"), bcrypt.MinCost)
	require.NoError(t, err)
	identity := &AuthIdentity{Password: string(hashed)}

	assert.True(t, identity.CheckPassword("correctPassword123"))
	assert.False(t, identity.CheckPassword("wrongPassword456"))
	assert.False(t, identity.CheckPassword(""))
}

func TestAuthIdentity_BeforeCreate_AssignsSubject(t *testing.T) {
	identity := &AuthIdentity{Email: "a@example.com"}
	require.NoError(t, identity.BeforeCreate(mockTx))
	assert.Len(t, identity.ID, 36)

	fixed := &AuthIdentity{ID: "11111111-1111-1111-1111-111111111111"}
	require.NoError(t, fixed.BeforeCreate(mockTx))
	assert.Equal(t, "11111111-1111-1111-1111-111111111111", fixed.ID)
}

func TestAuthIdentity_IsConfirmed(t *testing.T) {
	identity := &AuthIdentity{}
	assert.False(t, identity.IsConfirmed())

	now := time.Now()
	identity.EmailConfirmedAt = &now
	assert.True(t, identity.IsConfirmed())
}
