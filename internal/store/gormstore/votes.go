package gormstore

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"lyceum/internal/models"
	"lyceum/internal/store"
)

type VoteStore struct {
	db *gorm.DB
}

func NewVoteStore(db *gorm.DB) *VoteStore {
	return &VoteStore{db: db}
}

// Set relies on the (user_id, target_type, target_id) unique index: concurrent first votes
// from the same user collapse into one row instead of racing a read-then-insert.
func (s *VoteStore) Set(ctx context.Context, vote *models.Vote) (store.Counts, error) {
	var counts store.Counts
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "user_id"},
				{Name: "target_type"},
				{Name: "target_id"},
			},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"value":      vote.Value,
				"updated_at": time.Now(),
			}),
		}).Create(vote).Error
		if err != nil {
			return err
		}

		// on conflict the generated id was not stored; reload the persisted row
		var stored models.Vote
		if err := whereVoter(tx, vote.UserID, vote.Target).First(&stored).Error; err != nil {
			return err
		}
		*vote = stored

		counts, err = countVotes(tx, vote.Target)
		return err
	})
	return counts, err
}

func (s *VoteStore) Clear(ctx context.Context, userID string, target models.Target) (store.Counts, error) {
	var counts store.Counts
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := whereVoter(tx, userID, target).Delete(&models.Vote{}).Error; err != nil {
			return err
		}
		var err error
		counts, err = countVotes(tx, target)
		return err
	})
	return counts, err
}

func (s *VoteStore) Counts(ctx context.Context, target models.Target) (store.Counts, error) {
	return countVotes(s.db.WithContext(ctx), target)
}

func (s *VoteStore) Find(ctx context.Context, userID string, target models.Target) (*models.Vote, error) {
	var vote models.Vote
	if err := whereVoter(s.db.WithContext(ctx), userID, target).First(&vote).Error; err != nil {
		return nil, notFound(err)
	}
	return &vote, nil
}

func whereVoter(tx *gorm.DB, userID string, target models.Target) *gorm.DB {
	return tx.Where("user_id = ? AND target_type = ? AND target_id = ?", userID, target.Type, target.ID)
}

func countVotes(tx *gorm.DB, target models.Target) (store.Counts, error) {
	type valueCount struct {
		Value models.VoteValue
		N     int64
	}
	var rows []valueCount
	err := tx.Model(&models.Vote{}).
		Select("value, COUNT(*) as n").
		Where("target_type = ? AND target_id = ?", target.Type, target.ID).
		Group("value").
		Scan(&rows).Error
	if err != nil {
		return store.Counts{}, err
	}

	var counts store.Counts
	for _, r := range rows {
		switch r.Value {
		case models.VoteUp:
			counts.Up = r.N
		case models.VoteDown:
			counts.Down = r.N
		}
	}
	return counts, nil
}
