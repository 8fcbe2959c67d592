package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TargetType string

const (
	TargetPost    TargetType = "POST"
	TargetComment TargetType = "COMMENT"
)

func ParseTargetType(s string) (TargetType, bool) {
	switch TargetType(s) {
	case TargetPost, TargetComment:
		return TargetType(s), true
	}
	return "", false
}

type VoteValue string

const (
	VoteUp   VoteValue = "UP"
	VoteDown VoteValue = "DOWN"
)

func ParseVoteValue(s string) (VoteValue, bool) {
	switch VoteValue(s) {
	case VoteUp, VoteDown:
		return VoteValue(s), true
	}
	return "", false
}

// Target identifies what a vote applies to.
type Target struct {
	Type TargetType `gorm:"column:target_type;size:10;not null;uniqueIndex:idx_vote_user_target,priority:2;index:idx_vote_target,priority:1" json:"type"`
	ID   string     `gorm:"column:target_id;size:36;not null;uniqueIndex:idx_vote_user_target,priority:3;index:idx_vote_target,priority:2" json:"id"`
}

// One vote per user per target: (user_id, target_type, target_id) is the upsert key.
type Vote struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	UserID    string    `gorm:"size:64;not null;uniqueIndex:idx_vote_user_target,priority:1" json:"userId"`
	Target    Target    `gorm:"embedded" json:"target"`
	Value     VoteValue `gorm:"size:4;not null" json:"value"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (v *Vote) BeforeCreate(tx *gorm.DB) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	return nil
}
