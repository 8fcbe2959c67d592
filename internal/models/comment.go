package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Comment is stored flat; the reply tree is rebuilt on every read.
// DeletedAt is a plain pointer on purpose: rows stay visible to queries after a soft delete.
type Comment struct {
	ID        string     `gorm:"primaryKey;size:36" json:"id"`
	PostID    string     `gorm:"size:36;not null;index" json:"postId"`
	Post      Post       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	ParentID  *string    `gorm:"size:36;index" json:"parentId"` // nil for top-level comments
	Content   string     `gorm:"type:text;not null" json:"content"`
	IsDeleted bool       `gorm:"default:false;not null" json:"isDeleted"`
	DeletedAt *time.Time `json:"deletedAt"`
	AuthorID  string     `gorm:"size:64;not null;index" json:"authorId"`
	Author    User       `gorm:"foreignKey:AuthorID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

func (c *Comment) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}
