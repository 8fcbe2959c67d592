package gormstore

import (
	"context"

	"gorm.io/gorm"

	"lyceum/internal/models"
	"lyceum/internal/store"
)

type PostStore struct {
	db *gorm.DB
}

func NewPostStore(db *gorm.DB) *PostStore {
	return &PostStore{db: db}
}

func (s *PostStore) List(ctx context.Context, f store.PostFilter) ([]models.Post, error) {
	q := s.db.WithContext(ctx).Model(&models.Post{}).
		Select("id", "author_id", "title", "category", "views", "score", "created_at", "updated_at")
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.Hot {
		q = q.Order("score DESC, created_at DESC")
	} else {
		q = q.Order("created_at DESC")
	}

	var posts []models.Post
	err := q.Find(&posts).Error
	return posts, err
}

func (s *PostStore) Get(ctx context.Context, id string) (*models.Post, error) {
	var post models.Post
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&post).Error; err != nil {
		return nil, notFound(err)
	}
	return &post, nil
}

func (s *PostStore) Create(ctx context.Context, p *models.Post) error {
	return s.db.WithContext(ctx).Omit("Author").Create(p).Error
}

func (s *PostStore) Update(ctx context.Context, id, title, content string) error {
	res := s.db.WithContext(ctx).Model(&models.Post{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"title": title, "content": content})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// Delete hard-deletes the post. Comments go through the FK cascade; votes reference
// targets by id only and are removed here.
func (s *PostStore) Delete(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		commentIDs := tx.Model(&models.Comment{}).Select("id").Where("post_id = ?", id)
		if err := tx.Where("target_type = ? AND target_id IN (?)", models.TargetComment, commentIDs).
			Delete(&models.Vote{}).Error; err != nil {
			return err
		}
		if err := tx.Where("target_type = ? AND target_id = ?", models.TargetPost, id).
			Delete(&models.Vote{}).Error; err != nil {
			return err
		}

		res := tx.Where("id = ?", id).Delete(&models.Post{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return store.ErrNotFound
		}
		return nil
	})
}

func (s *PostStore) IncrementViews(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Model(&models.Post{}).
		Where("id = ?", id).
		UpdateColumn("views", gorm.Expr("views + ?", 1))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *PostStore) UpdateScore(ctx context.Context, id string, score int) error {
	return s.db.WithContext(ctx).Model(&models.Post{}).
		Where("id = ?", id).
		UpdateColumn("score", score).Error
}
