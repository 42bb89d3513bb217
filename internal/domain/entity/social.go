package entity

import (
	"time"

	"gorm.io/gorm"
)

// Favorite marks an item as liked by a user.
type Favorite struct {
	UserID uint   `gorm:"primaryKey" json:"user_id" binding:"required"`
	ItemID string `gorm:"type:uuid;primaryKey" json:"item_id" binding:"required"`
}

func (Favorite) TableName() string { return "favorites" }

// Message is a direct message between two users, optionally about an item.
type Message struct {
	ID         string    `gorm:"type:uuid;primaryKey" json:"id"`
	SenderID   uint      `gorm:"not null;index" json:"sender_id" binding:"required"`
	ReceiverID uint      `gorm:"not null;index" json:"receiver_id" binding:"required"`
	ItemID     *string   `gorm:"type:uuid;index" json:"item_id"`
	Content    string    `gorm:"type:text;not null" json:"content" binding:"required"`
	CreatedAt  time.Time `json:"created_at"`
}

func (Message) TableName() string { return "messages" }

func (m *Message) BeforeCreate(tx *gorm.DB) error { assignID(&m.ID); return nil }

// Review is feedback left by one user about another.
type Review struct {
	ID         string    `gorm:"type:uuid;primaryKey" json:"id"`
	ReviewerID uint      `gorm:"not null;index" json:"reviewer_id" binding:"required"`
	ReviewedID uint      `gorm:"not null;index" json:"reviewed_id" binding:"required"`
	OrderID    *string   `gorm:"type:uuid;index" json:"order_id"`
	Rating     int       `gorm:"not null" json:"rating" binding:"required,min=1,max=5"`
	Comment    string    `gorm:"type:text;not null;default:''" json:"comment"`
	CreatedAt  time.Time `json:"created_at"`
}

func (Review) TableName() string { return "reviews" }

func (r *Review) BeforeCreate(tx *gorm.DB) error { assignID(&r.ID); return nil }

// Notification is an in-app notice for a user.
type Notification struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id" binding:"required"`
	Type      string    `gorm:"size:50;not null" json:"type" binding:"required"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	IsRead    bool      `gorm:"not null;default:false" json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

func (Notification) TableName() string { return "notifications" }

func (n *Notification) BeforeCreate(tx *gorm.DB) error { assignID(&n.ID); return nil }
