package gormstore

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"lyceum/internal/models"
	"lyceum/internal/store"
)

type CommentStore struct {
	db *gorm.DB
}

func NewCommentStore(db *gorm.DB) *CommentStore {
	return &CommentStore{db: db}
}

func (s *CommentStore) ListByPost(ctx context.Context, postID string) ([]models.Comment, error) {
	var comments []models.Comment
	err := s.db.WithContext(ctx).
		Preload("Author").Preload("Author.Profile").
		Where("post_id = ?", postID).
		Order("created_at ASC").
		Find(&comments).Error
	return comments, err
}

func (s *CommentStore) Get(ctx context.Context, id string) (*models.Comment, error) {
	var comment models.Comment
	err := s.db.WithContext(ctx).
		Preload("Author").Preload("Author.Profile").
		Where("id = ?", id).
		First(&comment).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &comment, nil
}

func (s *CommentStore) Create(ctx context.Context, c *models.Comment) error {
	// Author 和 Post 只用于读取, 不随评论写入
	return s.db.WithContext(ctx).Omit("Author", "Post").Create(c).Error
}

func (s *CommentStore) UpdateContent(ctx context.Context, id, content string, at time.Time) error {
	res := s.db.WithContext(ctx).Model(&models.Comment{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"content":    content,
			"updated_at": at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// SoftDelete clears the content and flags the row; parent_id and replies are untouched.
func (s *CommentStore) SoftDelete(ctx context.Context, id string, at time.Time) error {
	res := s.db.WithContext(ctx).Model(&models.Comment{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"is_deleted": true,
			"deleted_at": at,
			"content":    "",
			"updated_at": at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *CommentStore) CountByPosts(ctx context.Context, postIDs []string) (map[string]int, error) {
	counts := make(map[string]int, len(postIDs))
	if len(postIDs) == 0 {
		return counts, nil
	}

	type countResult struct {
		PostID string
		Count  int
	}
	var results []countResult
	err := s.db.WithContext(ctx).Model(&models.Comment{}).
		Select("post_id, COUNT(*) as count").
		Where("post_id IN ?", postIDs).
		Group("post_id").
		Scan(&results).Error
	if err != nil {
		return nil, err
	}

	for _, r := range results {
		counts[r.PostID] = r.Count
	}
	return counts, nil
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return store.ErrNotFound
	}
	return err
}
