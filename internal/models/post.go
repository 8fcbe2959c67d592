package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Categories 固定分类
var Categories = []string{
	"about",
	"debates",
	"reading-notes",
	"class-seminars",
	"concepts",
	"news",
}

func IsCategory(s string) bool {
	for _, c := range Categories {
		if c == s {
			return true
		}
	}
	return false
}

type Post struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	AuthorID  string    `gorm:"size:64;not null;index" json:"authorId"`
	Author    User      `gorm:"foreignKey:AuthorID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Title     string    `gorm:"not null" json:"title"`
	Content   string    `gorm:"type:text" json:"content"`
	Category  string    `gorm:"size:32;not null;index" json:"category"`
	Views     int       `gorm:"default:0" json:"views"`
	Score     int       `gorm:"default:0;index" json:"score"` // 热度, 由 RankingService 异步计算
	CreatedAt time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	// 非数据库字段，用于查询时填充
	CommentCount int `gorm:"-" json:"commentCount"`
}

func (p *Post) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}
