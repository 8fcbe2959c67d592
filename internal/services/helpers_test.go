package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"lyceum/internal/apperr"
	"lyceum/internal/events"
	"lyceum/internal/identity"
	"lyceum/internal/models"
	"lyceum/internal/store/memdb"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, e events.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) last() (events.Event, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.events) == 0 {
		return events.Event{}, false
	}
	return p.events[len(p.events)-1], true
}

type recordingScheduler struct {
	mu  sync.Mutex
	ids []string
}

func (s *recordingScheduler) ScheduleUpdate(postID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids = append(s.ids, postID)
}

// stepClock advances one second on every call, so creation order is also createdAt order.
type stepClock struct {
	mu  sync.Mutex
	cur time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cur = c.cur.Add(time.Second)
	return c.cur
}

type fixture struct {
	db        *memdb.DB
	pub       *recordingPublisher
	scheduler *recordingScheduler
	deps      Deps
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := memdb.New()
	pub := &recordingPublisher{}
	sched := &recordingScheduler{}
	clock := &stepClock{cur: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
	return &fixture{
		db:        db,
		pub:       pub,
		scheduler: sched,
		deps: Deps{
			Comments: db.Comments(),
			Votes:    db.Votes(),
			Users:    db.Users(),
			Posts:    db.Posts(),
			Events:   pub,
			Ranking:  sched,
			Now:      clock.Now,
		},
	}
}

func (f *fixture) user(t *testing.T, id string, role models.Role) identity.Caller {
	t.Helper()
	u := &models.User{ID: id, Name: id, Image: "https://img.example/" + id + ".png", Profile: &models.Profile{Role: role}}
	if err := f.db.Users().Upsert(context.Background(), u); err != nil {
		t.Fatalf("seed user %s: %v", id, err)
	}
	return identity.NewCaller(id)
}

func (f *fixture) post(t *testing.T, id, authorID string) {
	t.Helper()
	p := &models.Post{ID: id, AuthorID: authorID, Title: "Post " + id, Category: "debates"}
	if err := f.db.Posts().Create(context.Background(), p); err != nil {
		t.Fatalf("seed post %s: %v", id, err)
	}
}

func wantKind(t *testing.T, err error, want apperr.Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("want %s error, got nil", want)
	}
	if got := apperr.KindOf(err); got != want {
		t.Fatalf("want %s error, got %s (%v)", want, got, err)
	}
}

func strPtr(s string) *string { return &s }
