package entity

import (
	"time"

	"gorm.io/gorm"
)

// Order is a purchase of one item.
type Order struct {
	ID         string    `gorm:"type:uuid;primaryKey" json:"id"`
	BuyerID    uint      `gorm:"not null;index" json:"buyer_id" binding:"required"`
	SellerID   uint      `gorm:"not null;index" json:"seller_id" binding:"required"`
	ItemID     string    `gorm:"type:uuid;not null;index" json:"item_id" binding:"required"`
	TotalPrice float64   `gorm:"type:numeric(12,2);not null" json:"total_price" binding:"gte=0"`
	Status     string    `gorm:"size:30;not null;default:'pending'" json:"status"`
	CreateAt   time.Time `gorm:"column:create_at;autoCreateTime" json:"create_at"`
}

func (Order) TableName() string { return "orders" }

func (o *Order) BeforeCreate(tx *gorm.DB) error { assignID(&o.ID); return nil }

// Payment records a payment attempt for an order.
type Payment struct {
	ID            string    `gorm:"type:uuid;primaryKey" json:"id"`
	OrderID       string    `gorm:"type:uuid;not null;index" json:"order_id" binding:"required"`
	PaymentMethod string    `gorm:"size:50;not null" json:"payment_method" binding:"required"`
	PaymentStatus string    `gorm:"size:30;not null;default:'pending'" json:"payment_status"`
	TransactionID string    `gorm:"size:255;not null;default:''" json:"transaction_id"`
	CreatedAt     time.Time `json:"created_at"`
}

func (Payment) TableName() string { return "payments" }

func (p *Payment) BeforeCreate(tx *gorm.DB) error { assignID(&p.ID); return nil }

// Wallet holds a user's balance. One wallet per user.
type Wallet struct {
	UserID    uint      `gorm:"primaryKey;autoIncrement:false" json:"user_id" binding:"required"`
	Balance   float64   `gorm:"type:numeric(12,2);not null;default:0" json:"balance"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Wallet) TableName() string { return "wallets" }

// Address is a shipping address.
type Address struct {
	ID            string    `gorm:"type:uuid;primaryKey" json:"id"`
	UserID        uint      `gorm:"not null;index" json:"user_id" binding:"required"`
	FullName      string    `gorm:"size:255;not null" json:"full_name" binding:"required"`
	PhoneNumber   string    `gorm:"size:50;not null;default:''" json:"phone_number"`
	StreetAddress string    `gorm:"type:text;not null" json:"street_address" binding:"required"`
	City          string    `gorm:"size:100;not null" json:"city" binding:"required"`
	PostalCode    string    `gorm:"size:20;not null;default:''" json:"postal_code"`
	CreatedAt     time.Time `json:"created_at"`
}

func (Address) TableName() string { return "addresses" }

func (a *Address) BeforeCreate(tx *gorm.DB) error { assignID(&a.ID); return nil }
