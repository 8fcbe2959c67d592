// Package store declares the persistence contracts used by the services. Implementations
// live in gormstore (PostgreSQL) and memdb (in-process).
package store

import (
	"context"
	"errors"
	"time"

	"lyceum/internal/models"
)

var ErrNotFound = errors.New("record not found")

// Counts is the raw up/down tally for one target.
type Counts struct {
	Up   int64
	Down int64
}

type Comments interface {
	// ListByPost returns every comment of the post, deleted ones included, oldest first,
	// with Author (and Author.Profile) populated.
	ListByPost(ctx context.Context, postID string) ([]models.Comment, error)
	// Get returns ErrNotFound when the id does not resolve. Author is populated.
	Get(ctx context.Context, id string) (*models.Comment, error)
	Create(ctx context.Context, c *models.Comment) error
	UpdateContent(ctx context.Context, id, content string, at time.Time) error
	SoftDelete(ctx context.Context, id string, at time.Time) error
	CountByPosts(ctx context.Context, postIDs []string) (map[string]int, error)
}

type Votes interface {
	// Set inserts or updates the caller's vote keyed by (user, target) in one statement and
	// returns the target's counts read in the same transaction. vote is refreshed with the
	// stored row.
	Set(ctx context.Context, vote *models.Vote) (Counts, error)
	// Clear deletes the caller's vote, if any, and returns the fresh counts.
	Clear(ctx context.Context, userID string, target models.Target) (Counts, error)
	Counts(ctx context.Context, target models.Target) (Counts, error)
	// Find returns ErrNotFound when the user has not voted on the target.
	Find(ctx context.Context, userID string, target models.Target) (*models.Vote, error)
}

type Users interface {
	// Profile returns ErrNotFound when the user has no profile.
	Profile(ctx context.Context, userID string) (*models.Profile, error)
	Get(ctx context.Context, id string) (*models.User, error)
	// Upsert creates the user or refreshes name/email/image, and creates a default
	// profile when none exists.
	Upsert(ctx context.Context, u *models.User) error
}

type PostFilter struct {
	Category string
	Hot      bool // order by score instead of creation time
}

type Posts interface {
	List(ctx context.Context, f PostFilter) ([]models.Post, error)
	Get(ctx context.Context, id string) (*models.Post, error)
	Create(ctx context.Context, p *models.Post) error
	Update(ctx context.Context, id, title, content string) error
	// Delete removes the post and everything attached to it.
	Delete(ctx context.Context, id string) error
	IncrementViews(ctx context.Context, id string) error
	UpdateScore(ctx context.Context, id string, score int) error
}
