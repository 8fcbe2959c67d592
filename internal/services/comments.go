package services

import (
	"context"
	"errors"
	"strings"

	"lyceum/internal/apperr"
	"lyceum/internal/events"
	"lyceum/internal/identity"
	"lyceum/internal/metrics"
	"lyceum/internal/models"
	"lyceum/internal/store"
)

// CommentService owns threaded discussion under posts: listing a post's comment forest and
// creating, editing and soft-deleting comments.
type CommentService struct {
	d Deps
}

func NewCommentService(d Deps) *CommentService {
	return &CommentService{d: d.withDefaults()}
}

type CreateCommentInput struct {
	PostID   string
	ParentID *string
	Content  string
}

// Thread returns the post's comments as a forest. Deleted comments stay in place as
// tombstones so their replies keep their position.
func (s *CommentService) Thread(ctx context.Context, postID string) ([]*CommentNode, error) {
	postID = strings.TrimSpace(postID)
	if postID == "" {
		return nil, apperr.BadRequest("postId is required")
	}
	flat, err := s.d.Comments.ListByPost(ctx, postID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return BuildTree(flat), nil
}

func (s *CommentService) Get(ctx context.Context, id string) (*CommentView, error) {
	c, err := s.d.Comments.Get(ctx, strings.TrimSpace(id))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("Not found")
		}
		return nil, apperr.Internal(err)
	}
	v := commentView(*c)
	return &v, nil
}

func (s *CommentService) Create(ctx context.Context, caller identity.Caller, in CreateCommentInput) (*CommentView, error) {
	if !caller.Authenticated() {
		return nil, apperr.Unauthorized()
	}
	postID := strings.TrimSpace(in.PostID)
	if postID == "" {
		return nil, apperr.BadRequest("postId is required")
	}
	if strings.TrimSpace(in.Content) == "" {
		return nil, apperr.BadRequest("content is required")
	}
	var parentID *string
	if in.ParentID != nil {
		if p := strings.TrimSpace(*in.ParentID); p != "" {
			parentID = &p
		}
	}

	post, err := s.d.Posts.Get(ctx, postID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("Post not found")
		}
		return nil, apperr.Internal(err)
	}

	var parent *models.Comment
	if parentID != nil {
		parent, err = s.d.Comments.Get(ctx, *parentID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, apperr.NotFound("Parent comment not found")
			}
			return nil, apperr.Internal(err)
		}
		if parent.PostID != postID {
			return nil, apperr.BadRequest("parentId does not belong to postId")
		}
	}

	now := s.d.Now()
	c := &models.Comment{
		PostID:    postID,
		ParentID:  parentID,
		Content:   in.Content,
		AuthorID:  caller.UserID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.d.Comments.Create(ctx, c); err != nil {
		return nil, apperr.Internal(err)
	}
	created, err := s.d.Comments.Get(ctx, c.ID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	metrics.Comments.WithLabelValues("create").Inc()
	s.d.invalidateListings()

	// 回复通知父评论作者，顶层评论通知帖子作者，自己不通知自己
	recipient := post.AuthorID
	e := events.Event{
		Type:       events.CommentCreated,
		PostID:     postID,
		CommentID:  created.ID,
		ActorID:    caller.UserID,
		OccurredAt: now,
	}
	if parent != nil {
		recipient = parent.AuthorID
		e.ParentID = parent.ID
	}
	if recipient != caller.UserID {
		e.Recipient = recipient
	}
	s.d.Events.Publish(ctx, e)
	s.d.schedule(postID)

	v := commentView(*created)
	return &v, nil
}

// Update replaces the content of a live comment. Only its author may edit it.
func (s *CommentService) Update(ctx context.Context, caller identity.Caller, id, content string) (*CommentView, error) {
	if !caller.Authenticated() {
		return nil, apperr.Unauthorized()
	}
	existing, err := s.d.Comments.Get(ctx, strings.TrimSpace(id))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("Not found")
		}
		return nil, apperr.Internal(err)
	}
	if existing.AuthorID != caller.UserID {
		return nil, apperr.Forbidden()
	}
	if existing.IsDeleted {
		return nil, apperr.BadRequest("Already deleted")
	}
	if strings.TrimSpace(content) == "" {
		return nil, apperr.BadRequest("content is required")
	}

	if err := s.d.Comments.UpdateContent(ctx, existing.ID, content, s.d.Now()); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("Not found")
		}
		return nil, apperr.Internal(err)
	}
	updated, err := s.d.Comments.Get(ctx, existing.ID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	metrics.Comments.WithLabelValues("update").Inc()

	v := commentView(*updated)
	return &v, nil
}

// Delete soft-deletes a comment. The author or an administrator may delete; deleting an
// already deleted comment succeeds without changes.
func (s *CommentService) Delete(ctx context.Context, caller identity.Caller, id string) error {
	if !caller.Authenticated() {
		return apperr.Unauthorized()
	}
	existing, err := s.d.Comments.Get(ctx, strings.TrimSpace(id))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound("Not found")
		}
		return apperr.Internal(err)
	}
	if existing.IsDeleted {
		return nil
	}
	if existing.AuthorID != caller.UserID {
		admin, err := s.isAdmin(ctx, caller.UserID)
		if err != nil {
			return apperr.Internal(err)
		}
		if !admin {
			return apperr.Forbidden()
		}
	}

	now := s.d.Now()
	if err := s.d.Comments.SoftDelete(ctx, existing.ID, now); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound("Not found")
		}
		return apperr.Internal(err)
	}
	metrics.Comments.WithLabelValues("delete").Inc()
	s.d.invalidateListings()
	s.d.Events.Publish(ctx, events.Event{
		Type:       events.CommentDeleted,
		PostID:     existing.PostID,
		CommentID:  existing.ID,
		ActorID:    caller.UserID,
		OccurredAt: now,
	})
	return nil
}

func (s *CommentService) isAdmin(ctx context.Context, userID string) (bool, error) {
	p, err := s.d.Users.Profile(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return p.IsAdmin(), nil
}
