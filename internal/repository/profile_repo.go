package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/wenqi/jobtailor/internal/domain"
)

// ErrNotFound is returned when a lookup matches no record.
var ErrNotFound = errors.New("record not found")

// ProfileRepository handles user profile storage.
type ProfileRepository struct {
	db *gorm.DB
}

// NewProfileRepository creates a new ProfileRepository.
func NewProfileRepository(db *gorm.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// GetByUserID retrieves the profile for a user.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - userID: profile owner.
//
// Returns:
//   - *domain.UserProfile: profile record if found.
//   - error: ErrNotFound when no profile exists, other errors on failure.
func (r *ProfileRepository) GetByUserID(ctx context.Context, userID string) (*domain.UserProfile, error) {
	var profile domain.UserProfile
	if err := r.db.WithContext(ctx).First(&profile, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &profile, nil
}

// Upsert creates or replaces a user's profile.
func (r *ProfileRepository) Upsert(ctx context.Context, profile *domain.UserProfile) error {
	return r.db.WithContext(ctx).Save(profile).Error
}
