package services

import (
	"context"
	"errors"
	"strings"

	"lyceum/internal/apperr"
	"lyceum/internal/identity"
	"lyceum/internal/models"
	"lyceum/internal/store"
	"lyceum/internal/utils"

	log "github.com/sirupsen/logrus"
)

const (
	SortNew = "new"
	SortHot = "hot"
)

// PostService manages the posts comments and votes hang off. Listings are served from
// Deps.Listings until a post, comment or score write purges it.
type PostService struct {
	d Deps
}

func NewPostService(d Deps) *PostService {
	return &PostService{d: d.withDefaults()}
}

type PostInput struct {
	Title    string
	Content  string
	Category string
}

func (s *PostService) List(ctx context.Context, category, sortBy string) ([]models.Post, error) {
	category = strings.TrimSpace(category)
	if category != "" && !models.IsCategory(category) {
		return nil, apperr.BadRequest("Invalid category")
	}
	switch sortBy {
	case "":
		sortBy = SortNew
	case SortNew, SortHot:
	default:
		return nil, apperr.BadRequest("Invalid sort (new|hot)")
	}

	key := "posts:" + category + ":" + sortBy
	if s.d.Listings != nil {
		if posts, ok := s.d.Listings.Get(key); ok {
			return posts, nil
		}
	}

	posts, err := s.d.Posts.List(ctx, store.PostFilter{Category: category, Hot: sortBy == SortHot})
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if err := s.fillCommentCounts(ctx, posts); err != nil {
		return nil, apperr.Internal(err)
	}
	if posts == nil {
		posts = []models.Post{}
	}
	if s.d.Listings != nil {
		s.d.Listings.Set(key, posts)
	}
	return posts, nil
}

// fillCommentCounts 批量填充评论数
func (s *PostService) fillCommentCounts(ctx context.Context, posts []models.Post) error {
	if len(posts) == 0 {
		return nil
	}
	ids := make([]string, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}
	counts, err := s.d.Comments.CountByPosts(ctx, ids)
	if err != nil {
		return err
	}
	for i := range posts {
		posts[i].CommentCount = counts[posts[i].ID]
	}
	return nil
}

func (s *PostService) Get(ctx context.Context, id string) (*PostView, error) {
	p, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	counts, err := s.d.Comments.CountByPosts(ctx, []string{p.ID})
	if err != nil {
		return nil, apperr.Internal(err)
	}
	p.CommentCount = counts[p.ID]
	return &PostView{Post: *p, ContentHTML: utils.RenderMarkdown(p.Content)}, nil
}

func (s *PostService) find(ctx context.Context, id string) (*models.Post, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperr.NotFound("Not found")
	}
	p, err := s.d.Posts.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("Not found")
		}
		return nil, apperr.Internal(err)
	}
	return p, nil
}

func (s *PostService) Create(ctx context.Context, caller identity.Caller, in PostInput) (*models.Post, error) {
	if !caller.Authenticated() {
		return nil, apperr.Unauthorized()
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, apperr.BadRequest("title is required")
	}
	category := strings.TrimSpace(in.Category)
	if !models.IsCategory(category) {
		return nil, apperr.BadRequest("Invalid category")
	}

	now := s.d.Now()
	p := &models.Post{
		AuthorID:  caller.UserID,
		Title:     title,
		Content:   in.Content,
		Category:  category,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.d.Posts.Create(ctx, p); err != nil {
		return nil, apperr.Internal(err)
	}
	s.d.invalidateListings()
	s.d.schedule(p.ID)
	log.WithFields(log.Fields{"post": p.ID, "category": category}).Info("[posts] created")
	return p, nil
}

// Update edits title and content. Only the author may edit.
func (s *PostService) Update(ctx context.Context, caller identity.Caller, id string, in PostInput) (*models.Post, error) {
	if !caller.Authenticated() {
		return nil, apperr.Unauthorized()
	}
	p, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.AuthorID != caller.UserID {
		return nil, apperr.Forbidden()
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, apperr.BadRequest("title is required")
	}
	if err := s.d.Posts.Update(ctx, p.ID, title, in.Content); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("Not found")
		}
		return nil, apperr.Internal(err)
	}
	s.d.invalidateListings()
	return s.find(ctx, p.ID)
}

// Delete hard-deletes the post together with its comments and votes. It returns the
// category the post lived in.
func (s *PostService) Delete(ctx context.Context, caller identity.Caller, id string) (string, error) {
	if !caller.Authenticated() {
		return "", apperr.Unauthorized()
	}
	p, err := s.find(ctx, id)
	if err != nil {
		return "", err
	}
	if p.AuthorID != caller.UserID {
		return "", apperr.Forbidden()
	}
	if err := s.d.Posts.Delete(ctx, p.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", apperr.NotFound("Not found")
		}
		return "", apperr.Internal(err)
	}
	s.d.invalidateListings()
	log.WithField("post", p.ID).Info("[posts] deleted")
	return p.Category, nil
}

func (s *PostService) RecordView(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if err := s.d.Posts.IncrementViews(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound("Not found")
		}
		return apperr.Internal(err)
	}
	s.d.schedule(id)
	return nil
}
