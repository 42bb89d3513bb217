package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// AuthIdentity is the credential record owned by the identity provider.
// Its ID is the subject identifier handed out in tokens.
type AuthIdentity struct {
	ID               string     `gorm:"type:uuid;primaryKey" json:"id"`
	Email            string     `gorm:"size:255;not null;uniqueIndex" json:"email"`
	Password         string     `gorm:"column:password_hash;size:100;not null" json:"-"`
	EmailConfirmedAt *time.Time `json:"email_confirmed_at,omitempty"`
	LastSignInAt     *time.Time `json:"last_sign_in_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

func (AuthIdentity) TableName() string {
	return "auth_identities"
}

// BeforeCreate assigns the subject identifier.
func (a *AuthIdentity) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

// BeforeSave хеширует пароль перед сохранением, только если он не является bcrypt-хешем
func (a *AuthIdentity) BeforeSave(tx *gorm.DB) error {
	if len(a.Password) > 0 && !isBcryptHash(a.Password) {
		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(a.Password), bcrypt.DefaultCost)
		if err != nil {
			log.Error().Err(err).Str("email", a.Email).Msg("[AuthIdentity.BeforeSave] password hashing failed")
			return err
		}
		a.Password = string(hashedPassword)
	}
	return nil
}

// CheckPassword проверяет, соответствует ли переданный пароль хешу
func (a *AuthIdentity) CheckPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(a.Password), []byte(password))
	return err == nil
}

// IsConfirmed reports whether the email confirmation step is done.
func (a *AuthIdentity) IsConfirmed() bool {
	return a.EmailConfirmedAt != nil
}

func isBcryptHash(s string) bool {
	return strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$")
}
