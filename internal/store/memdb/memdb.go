// Package memdb is an in-process implementation of the store contracts, used by tests and
// by the "memory" storage mode.
package memdb

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"lyceum/internal/models"
	"lyceum/internal/store"
)

type voteKey struct {
	userID string
	target models.Target
}

type DB struct {
	mu       sync.RWMutex
	users    map[string]models.User
	profiles map[string]models.Profile
	posts    map[string]models.Post
	comments map[string]models.Comment
	votes    map[voteKey]models.Vote
	seq      map[string]int // insertion order, breaks created_at ties
	next     int
}

func New() *DB {
	return &DB{
		users:    make(map[string]models.User),
		profiles: make(map[string]models.Profile),
		posts:    make(map[string]models.Post),
		comments: make(map[string]models.Comment),
		votes:    make(map[voteKey]models.Vote),
		seq:      make(map[string]int),
	}
}

func (db *DB) Comments() store.Comments { return commentStore{db} }
func (db *DB) Votes() store.Votes       { return voteStore{db} }
func (db *DB) Users() store.Users       { return userStore{db} }
func (db *DB) Posts() store.Posts       { return postStore{db} }

func (db *DB) stamp(id string) {
	db.next++
	db.seq[id] = db.next
}

// withAuthor must be called with at least a read lock held.
func (db *DB) withAuthor(c models.Comment) models.Comment {
	if u, ok := db.users[c.AuthorID]; ok {
		if p, ok := db.profiles[u.ID]; ok {
			u.Profile = &p
		}
		c.Author = u
	}
	return c
}

func timestamp(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now()
	}
	return t
}

type commentStore struct{ db *DB }

func (s commentStore) ListByPost(ctx context.Context, postID string) ([]models.Comment, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	comments := make([]models.Comment, 0)
	for _, c := range s.db.comments {
		if c.PostID == postID {
			comments = append(comments, s.db.withAuthor(c))
		}
	}
	sort.Slice(comments, func(i, j int) bool {
		if !comments[i].CreatedAt.Equal(comments[j].CreatedAt) {
			return comments[i].CreatedAt.Before(comments[j].CreatedAt)
		}
		return s.db.seq[comments[i].ID] < s.db.seq[comments[j].ID]
	})
	return comments, nil
}

func (s commentStore) Get(ctx context.Context, id string) (*models.Comment, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	c, ok := s.db.comments[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	c = s.db.withAuthor(c)
	return &c, nil
}

func (s commentStore) Create(ctx context.Context, c *models.Comment) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.CreatedAt = timestamp(c.CreatedAt)
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = c.CreatedAt
	}
	row := *c
	row.Author = models.User{}
	row.Post = models.Post{}
	s.db.comments[c.ID] = row
	s.db.stamp(c.ID)
	return nil
}

func (s commentStore) UpdateContent(ctx context.Context, id, content string, at time.Time) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	c, ok := s.db.comments[id]
	if !ok {
		return store.ErrNotFound
	}
	c.Content = content
	c.UpdatedAt = at
	s.db.comments[id] = c
	return nil
}

func (s commentStore) SoftDelete(ctx context.Context, id string, at time.Time) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	c, ok := s.db.comments[id]
	if !ok {
		return store.ErrNotFound
	}
	c.IsDeleted = true
	c.DeletedAt = &at
	c.Content = ""
	c.UpdatedAt = at
	s.db.comments[id] = c
	return nil
}

func (s commentStore) CountByPosts(ctx context.Context, postIDs []string) (map[string]int, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	wanted := make(map[string]bool, len(postIDs))
	for _, id := range postIDs {
		wanted[id] = true
	}
	counts := make(map[string]int, len(postIDs))
	for _, c := range s.db.comments {
		if wanted[c.PostID] {
			counts[c.PostID]++
		}
	}
	return counts, nil
}

type voteStore struct{ db *DB }

func (s voteStore) Set(ctx context.Context, vote *models.Vote) (store.Counts, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	key := voteKey{userID: vote.UserID, target: vote.Target}
	now := time.Now()
	if existing, ok := s.db.votes[key]; ok {
		existing.Value = vote.Value
		existing.UpdatedAt = now
		s.db.votes[key] = existing
		*vote = existing
	} else {
		if vote.ID == "" {
			vote.ID = uuid.NewString()
		}
		vote.CreatedAt = now
		vote.UpdatedAt = now
		s.db.votes[key] = *vote
	}
	return s.db.count(vote.Target), nil
}

func (s voteStore) Clear(ctx context.Context, userID string, target models.Target) (store.Counts, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	delete(s.db.votes, voteKey{userID: userID, target: target})
	return s.db.count(target), nil
}

func (s voteStore) Counts(ctx context.Context, target models.Target) (store.Counts, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	return s.db.count(target), nil
}

func (s voteStore) Find(ctx context.Context, userID string, target models.Target) (*models.Vote, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	v, ok := s.db.votes[voteKey{userID: userID, target: target}]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &v, nil
}

func (db *DB) count(target models.Target) store.Counts {
	var counts store.Counts
	for key, v := range db.votes {
		if key.target != target {
			continue
		}
		switch v.Value {
		case models.VoteUp:
			counts.Up++
		case models.VoteDown:
			counts.Down++
		}
	}
	return counts
}

// VoteRows returns the number of stored vote rows.
func (db *DB) VoteRows() int {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return len(db.votes)
}

type userStore struct{ db *DB }

func (s userStore) Profile(ctx context.Context, userID string) (*models.Profile, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	p, ok := s.db.profiles[userID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &p, nil
}

func (s userStore) Get(ctx context.Context, id string) (*models.User, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	u, ok := s.db.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if p, ok := s.db.profiles[id]; ok {
		u.Profile = &p
	}
	return &u, nil
}

func (s userStore) Upsert(ctx context.Context, u *models.User) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	now := time.Now()
	if existing, ok := s.db.users[u.ID]; ok {
		u.CreatedAt = existing.CreatedAt
	} else if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	row := *u
	row.Profile = nil
	s.db.users[u.ID] = row

	p, ok := s.db.profiles[u.ID]
	if !ok {
		p = models.Profile{UserID: u.ID, DisplayName: u.Name, Role: models.RoleUser, CreatedAt: now, UpdatedAt: now}
		if u.Profile != nil && u.Profile.Role != "" {
			p.Role = u.Profile.Role
			if u.Profile.DisplayName != "" {
				p.DisplayName = u.Profile.DisplayName
			}
		}
		s.db.profiles[u.ID] = p
	}
	u.Profile = &p
	return nil
}

type postStore struct{ db *DB }

func (s postStore) List(ctx context.Context, f store.PostFilter) ([]models.Post, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	posts := make([]models.Post, 0)
	for _, p := range s.db.posts {
		if f.Category != "" && p.Category != f.Category {
			continue
		}
		p.Content = ""
		posts = append(posts, p)
	}
	sort.Slice(posts, func(i, j int) bool {
		if f.Hot && posts[i].Score != posts[j].Score {
			return posts[i].Score > posts[j].Score
		}
		if !posts[i].CreatedAt.Equal(posts[j].CreatedAt) {
			return posts[i].CreatedAt.After(posts[j].CreatedAt)
		}
		return s.db.seq[posts[i].ID] > s.db.seq[posts[j].ID]
	})
	return posts, nil
}

func (s postStore) Get(ctx context.Context, id string) (*models.Post, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	p, ok := s.db.posts[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &p, nil
}

func (s postStore) Create(ctx context.Context, p *models.Post) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.CreatedAt = timestamp(p.CreatedAt)
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = p.CreatedAt
	}
	row := *p
	row.Author = models.User{}
	s.db.posts[p.ID] = row
	s.db.stamp(p.ID)
	return nil
}

func (s postStore) Update(ctx context.Context, id, title, content string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	p, ok := s.db.posts[id]
	if !ok {
		return store.ErrNotFound
	}
	p.Title = title
	p.Content = content
	p.UpdatedAt = time.Now()
	s.db.posts[id] = p
	return nil
}

func (s postStore) Delete(ctx context.Context, id string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, ok := s.db.posts[id]; !ok {
		return store.ErrNotFound
	}
	for cid, c := range s.db.comments {
		if c.PostID != id {
			continue
		}
		delete(s.db.comments, cid)
		for key := range s.db.votes {
			if key.target == (models.Target{Type: models.TargetComment, ID: cid}) {
				delete(s.db.votes, key)
			}
		}
	}
	for key := range s.db.votes {
		if key.target == (models.Target{Type: models.TargetPost, ID: id}) {
			delete(s.db.votes, key)
		}
	}
	delete(s.db.posts, id)
	return nil
}

func (s postStore) IncrementViews(ctx context.Context, id string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	p, ok := s.db.posts[id]
	if !ok {
		return store.ErrNotFound
	}
	p.Views++
	s.db.posts[id] = p
	return nil
}

func (s postStore) UpdateScore(ctx context.Context, id string, score int) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	p, ok := s.db.posts[id]
	if !ok {
		return nil
	}
	p.Score = score
	s.db.posts[id] = p
	return nil
}
