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

// Aggregate is the public tally of one target. MyVote is nil for anonymous callers and
// for callers who have not voted.
type Aggregate struct {
	Up     int64             `json:"up"`
	Down   int64             `json:"down"`
	Score  int64             `json:"score"`
	MyVote *models.VoteValue `json:"myVote"`
}

type VoteResult struct {
	OK   bool      `json:"ok"`
	Vote *VoteView `json:"vote,omitempty"`
	Aggregate
}

func aggregateOf(c store.Counts, mine *models.VoteValue) Aggregate {
	return Aggregate{Up: c.Up, Down: c.Down, Score: c.Up - c.Down, MyVote: mine}
}

// VoteService keeps at most one vote per (user, target) and reports tallies.
type VoteService struct {
	d Deps
}

func NewVoteService(d Deps) *VoteService {
	return &VoteService{d: d.withDefaults()}
}

func parseTarget(typ, targetID string) (models.Target, error) {
	t, ok := models.ParseTargetType(strings.TrimSpace(typ))
	if !ok {
		return models.Target{}, apperr.BadRequest("Invalid type (POST|COMMENT)")
	}
	id := strings.TrimSpace(targetID)
	if id == "" {
		return models.Target{}, apperr.BadRequest("targetId is required")
	}
	return models.Target{Type: t, ID: id}, nil
}

func (s *VoteService) Aggregate(ctx context.Context, caller identity.Caller, typ, targetID string) (*Aggregate, error) {
	target, err := parseTarget(typ, targetID)
	if err != nil {
		return nil, err
	}
	counts, err := s.d.Votes.Counts(ctx, target)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	var mine *models.VoteValue
	if caller.Authenticated() {
		v, err := s.d.Votes.Find(ctx, caller.UserID, target)
		switch {
		case err == nil:
			mine = &v.Value
		case !errors.Is(err, store.ErrNotFound):
			return nil, apperr.Internal(err)
		}
	}
	agg := aggregateOf(counts, mine)
	return &agg, nil
}

// Set records the caller's vote, replacing any previous value. Repeating the same value
// is a no-op.
func (s *VoteService) Set(ctx context.Context, caller identity.Caller, typ, targetID, value string) (*VoteResult, error) {
	if !caller.Authenticated() {
		return nil, apperr.Unauthorized()
	}
	target, err := parseTarget(typ, targetID)
	if err != nil {
		return nil, err
	}
	val, ok := models.ParseVoteValue(strings.TrimSpace(value))
	if !ok {
		return nil, apperr.BadRequest("Invalid value (UP|DOWN)")
	}

	vote := &models.Vote{UserID: caller.UserID, Target: target, Value: val}
	counts, err := s.d.Votes.Set(ctx, vote)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	metrics.Votes.WithLabelValues(string(target.Type), "set").Inc()
	s.publish(ctx, caller, target, string(val))

	mine := vote.Value
	return &VoteResult{OK: true, Vote: voteView(*vote), Aggregate: aggregateOf(counts, &mine)}, nil
}

// Clear removes the caller's vote. Clearing when no vote exists succeeds.
func (s *VoteService) Clear(ctx context.Context, caller identity.Caller, typ, targetID string) (*VoteResult, error) {
	if !caller.Authenticated() {
		return nil, apperr.Unauthorized()
	}
	target, err := parseTarget(typ, targetID)
	if err != nil {
		return nil, err
	}
	counts, err := s.d.Votes.Clear(ctx, caller.UserID, target)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	metrics.Votes.WithLabelValues(string(target.Type), "clear").Inc()
	s.publish(ctx, caller, target, "")

	return &VoteResult{OK: true, Aggregate: aggregateOf(counts, nil)}, nil
}

func (s *VoteService) publish(ctx context.Context, caller identity.Caller, target models.Target, value string) {
	e := events.Event{
		Type:       events.VoteChanged,
		ActorID:    caller.UserID,
		TargetType: string(target.Type),
		TargetID:   target.ID,
		Value:      value,
		OccurredAt: s.d.Now(),
	}
	if target.Type == models.TargetPost {
		e.PostID = target.ID
		s.d.schedule(target.ID)
	}
	s.d.Events.Publish(ctx, e)
}
