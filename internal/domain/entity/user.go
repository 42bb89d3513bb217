package entity

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// DefaultRating is the rating a new directory row starts with.
const DefaultRating = 5

// User is a row of the user directory.
// AuthUserID links the row to the identity provider subject; rows created
// before the link existed are backfilled on first reconciliation.
type User struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	AuthUserID *string   `gorm:"column:auth_user_id;type:uuid;uniqueIndex" json:"auth_user_id,omitempty"`
	FullName   string    `gorm:"size:255;not null;default:''" json:"full_name"`
	Username   string    `gorm:"size:100;not null;default:''" json:"username"`
	Email      string    `gorm:"size:255;not null;uniqueIndex" json:"email" binding:"required,email"`
	AvatarURL  string    `gorm:"type:text;not null;default:''" json:"avatar_url"`
	Bio        string    `gorm:"type:text;not null;default:''" json:"bio"`
	Rating     int       `gorm:"not null;default:5" json:"rating"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName определяет имя таблицы для GORM
func (User) TableName() string {
	return "users"
}

// Subject returns the linked provider subject or "".
func (u *User) Subject() string {
	if u.AuthUserID == nil {
		return ""
	}
	return *u.AuthUserID
}

// IsLinkedTo reports whether the row belongs to the given subject.
func (u *User) IsLinkedTo(subject string) bool {
	return u.AuthUserID != nil && *u.AuthUserID == subject
}

// NewDirectoryUser builds the directory row created at registration.
func NewDirectoryUser(subject, email, fullName, username string) *User {
	if strings.TrimSpace(username) == "" {
		username = strings.SplitN(email, "@", 2)[0]
	}
	sub := subject
	return &User{
		AuthUserID: &sub,
		FullName:   strings.TrimSpace(fullName),
		Username:   strings.TrimSpace(username),
		Email:      email,
		AvatarURL:  DefaultAvatarURL(email),
		Rating:     DefaultRating,
	}
}

// DefaultAvatarURL returns the generated identicon for an email.
func DefaultAvatarURL(email string) string {
	return fmt.Sprintf("https://api.dicebear.com/6.x/identicon/svg?seed=%s", url.QueryEscape(email))
}
