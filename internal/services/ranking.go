package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"lyceum/internal/models"
	"lyceum/internal/store"
	"lyceum/internal/utils"

	log "github.com/sirupsen/logrus"
)

// RankScheduler accepts posts whose hot score needs recomputing.
type RankScheduler interface {
	ScheduleUpdate(postID string)
}

const (
	rankQueueSize = 1000
	rankBatchSize = 50
)

// RankingService 异步计算并更新帖子 Score，同一帖子在队列中只保留一份
type RankingService struct {
	posts    store.Posts
	comments store.Comments
	votes    store.Votes
	listings *utils.Cache[[]models.Post]

	cfg      utils.RankConfig
	interval time.Duration
	now      func() time.Time

	queue   chan string
	pending map[string]bool
	mu      sync.Mutex
}

// NewRankingService; listings may be nil. It is purged after each batch so hot listings
// pick up the new scores.
func NewRankingService(posts store.Posts, comments store.Comments, votes store.Votes, listings *utils.Cache[[]models.Post], interval time.Duration) *RankingService {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	return &RankingService{
		posts:    posts,
		comments: comments,
		votes:    votes,
		listings: listings,
		cfg:      utils.DefaultConfig,
		interval: interval,
		now:      time.Now,
		queue:    make(chan string, rankQueueSize),
		pending:  make(map[string]bool),
	}
}

// ScheduleUpdate 将帖子加入更新队列（非阻塞）
func (s *RankingService) ScheduleUpdate(postID string) {
	s.mu.Lock()
	if s.pending[postID] {
		s.mu.Unlock()
		return
	}
	s.pending[postID] = true
	s.mu.Unlock()

	select {
	case s.queue <- postID:
	default:
		s.mu.Lock()
		delete(s.pending, postID)
		s.mu.Unlock()
		log.Warnf("[ranking] queue full, skipping post %s", postID)
	}
}

// Run processes the queue until ctx is cancelled. Requests are handled in batches of 50
// or once per interval, whichever comes first.
func (s *RankingService) Run(ctx context.Context) {
	batch := make([]string, 0, rankBatchSize)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if len(batch) > 0 {
				s.processBatch(context.Background(), batch)
			}
			return
		case id := <-s.queue:
			batch = append(batch, id)
			if len(batch) >= rankBatchSize {
				s.processBatch(ctx, batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				s.processBatch(ctx, batch)
				batch = batch[:0]
			}
		}
	}
}

func (s *RankingService) processBatch(ctx context.Context, ids []string) {
	updated := 0
	for _, id := range ids {
		err := s.UpdateNow(ctx, id)
		switch {
		case err == nil:
			updated++
		case !errors.Is(err, store.ErrNotFound):
			log.Errorf("[ranking] update post %s: %v", id, err)
		}
		s.mu.Lock()
		delete(s.pending, id)
		s.mu.Unlock()
	}
	if updated > 0 {
		s.purgeListings()
	}
}

func (s *RankingService) purgeListings() {
	if s.listings != nil {
		s.listings.Purge()
	}
}

// UpdateNow recomputes and stores the score of one post synchronously.
func (s *RankingService) UpdateNow(ctx context.Context, postID string) error {
	post, err := s.posts.Get(ctx, postID)
	if err != nil {
		return err
	}
	counts, err := s.votes.Counts(ctx, models.Target{Type: models.TargetPost, ID: postID})
	if err != nil {
		return err
	}
	comments, err := s.comments.CountByPosts(ctx, []string{postID})
	if err != nil {
		return err
	}

	score := utils.CalculateScore(s.cfg, s.now().Sub(post.CreatedAt),
		int(counts.Up), int(counts.Down), post.Views, comments[postID])
	return s.posts.UpdateScore(ctx, postID, int(score))
}

// RefreshRecent 更新最近 7 天和分数最高的 30 篇帖子，返回更新数量
func (s *RankingService) RefreshRecent(ctx context.Context) (int, error) {
	posts, err := s.posts.List(ctx, store.PostFilter{Hot: true})
	if err != nil {
		return 0, err
	}
	cutoff := s.now().AddDate(0, 0, -7)
	count := 0
	for i, p := range posts {
		if i >= 30 && p.CreatedAt.Before(cutoff) {
			continue
		}
		if err := s.UpdateNow(ctx, p.ID); err != nil {
			log.Errorf("[ranking] refresh post %s: %v", p.ID, err)
			continue
		}
		count++
	}
	if count > 0 {
		s.purgeListings()
	}
	return count, nil
}

// StartScheduledRefresh 每天凌晨 3 点执行一次 RefreshRecent，直到 ctx 结束
func (s *RankingService) StartScheduledRefresh(ctx context.Context) {
	go func() {
		for {
			now := s.now()
			next := time.Date(now.Year(), now.Month(), now.Day(), 3, 0, 0, 0, now.Location())
			if now.After(next) {
				next = next.Add(24 * time.Hour)
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Until(next)):
			}
			n, err := s.RefreshRecent(ctx)
			if err != nil {
				log.Errorf("[ranking] scheduled refresh: %v", err)
				continue
			}
			log.Infof("[ranking] scheduled refresh updated %d posts", n)
		}
	}()
}
