package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// assignID fills a client-omitted UUID primary key.
func assignID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}

// Item is a listing.
type Item struct {
	ID          string    `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      uint      `gorm:"not null;index" json:"user_id" binding:"required"`
	CategoryID  *string   `gorm:"type:uuid;index" json:"category_id"`
	Title       string    `gorm:"size:255;not null" json:"title" binding:"required"`
	Description string    `gorm:"type:text;not null;default:''" json:"description"`
	Price       float64   `gorm:"type:numeric(12,2);not null;default:0" json:"price" binding:"gte=0"`
	Condition   string    `gorm:"size:50;not null;default:''" json:"condition"`
	Brand       string    `gorm:"size:100;not null;default:''" json:"brand"`
	Size        string    `gorm:"size:50;not null;default:''" json:"size"`
	Status      string    `gorm:"size:30;not null;default:'available'" json:"status"`
	CreateAt    time.Time `gorm:"column:create_at;autoCreateTime" json:"create_at"`
}

func (Item) TableName() string { return "items" }

func (i *Item) BeforeCreate(tx *gorm.DB) error { assignID(&i.ID); return nil }

// Category groups items.
type Category struct {
	ID   string `gorm:"type:uuid;primaryKey" json:"id"`
	Name string `gorm:"size:100;not null;uniqueIndex" json:"name" binding:"required"`
}

func (Category) TableName() string { return "categories" }

func (c *Category) BeforeCreate(tx *gorm.DB) error { assignID(&c.ID); return nil }

// Image is a picture attached to an item.
type Image struct {
	ID       string `gorm:"type:uuid;primaryKey" json:"id"`
	ItemID   string `gorm:"type:uuid;not null;index" json:"item_id" binding:"required"`
	ImageURL string `gorm:"column:image_url;type:text;not null" json:"image_url" binding:"required"`
}

func (Image) TableName() string { return "images" }

func (i *Image) BeforeCreate(tx *gorm.DB) error { assignID(&i.ID); return nil }

// Tag is a free-form label. Its key is a serial integer.
type Tag struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"size:100;not null;uniqueIndex" json:"name" binding:"required"`
}

func (Tag) TableName() string { return "tags" }

// ItemTag links an item to a tag.
type ItemTag struct {
	ItemID string `gorm:"type:uuid;primaryKey" json:"item_id" binding:"required"`
	TagID  uint   `gorm:"primaryKey" json:"tag_id" binding:"required"`
}

func (ItemTag) TableName() string { return "item_tags" }
