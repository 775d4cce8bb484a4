package profile

import (
	"context"
	"errors"

	"github.com/careloop/careloop/internal/shared"
	"gorm.io/gorm"
)

type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Migrate() error {
	return s.db.AutoMigrate(&Profile{})
}

func (s *Store) Create(ctx context.Context, p *Profile) error {
	if p.ID == "" {
		p.ID = shared.NewID("prof_")
	}
	if p.Details == nil {
		p.Details = shared.StringMap{}
	}
	return s.db.WithContext(ctx).Create(p).Error
}

func (s *Store) GetByUserID(ctx context.Context, userID string) (*Profile, error) {
	var p Profile
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, shared.ErrNotFound
	}
	return &p, err
}

// ApplyDetails merges the given keys into the user's remembered details,
// creating the profile on first write. The read-modify-write runs in one
// transaction so concurrent updates cannot drop each other's keys.
func (s *Store) ApplyDetails(ctx context.Context, userID string, details map[string]string) (*Profile, error) {
	if len(details) == 0 {
		return s.GetByUserID(ctx, userID)
	}

	var out *Profile
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p Profile
		err := tx.Where("user_id = ?", userID).First(&p).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			p = Profile{
				ID:      shared.NewID("prof_"),
				UserID:  userID,
				Details: shared.StringMap{},
			}
			if err := tx.Create(&p).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		}

		if p.Details == nil {
			p.Details = shared.StringMap{}
		}
		for key, value := range details {
			p.Details[key] = value
		}

		if err := tx.Save(&p).Error; err != nil {
			return err
		}
		out = &p
		return nil
	})
	return out, err
}

func (s *Store) Delete(ctx context.Context, userID string) error {
	result := s.db.WithContext(ctx).Delete(&Profile{}, "user_id = ?", userID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}
