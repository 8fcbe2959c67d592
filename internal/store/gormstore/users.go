package gormstore

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"lyceum/internal/models"
)

type UserStore struct {
	db *gorm.DB
}

func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) Profile(ctx context.Context, userID string) (*models.Profile, error) {
	var profile models.Profile
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error; err != nil {
		return nil, notFound(err)
	}
	return &profile, nil
}

func (s *UserStore) Get(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Preload("Profile").Where("id = ?", id).First(&user).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (s *UserStore) Upsert(ctx context.Context, u *models.User) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Omit("Profile").Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "email", "image", "updated_at"}),
		}).Create(u).Error
		if err != nil {
			return err
		}

		// 已有 profile 时保留原角色
		profile := models.Profile{UserID: u.ID, DisplayName: u.Name, Role: models.RoleUser}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&profile).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", u.ID).First(&profile).Error; err != nil {
			return err
		}
		u.Profile = &profile
		return nil
	})
}
