package service

import (
	"context"
	"errors"

	"github.com/wenqi/jobtailor/internal/domain"
	"github.com/wenqi/jobtailor/internal/repository"
)

// ProfileService serves user profiles to the pipeline and the API.
type ProfileService struct {
	repo *repository.ProfileRepository
}

// NewProfileService creates a new profile service.
func NewProfileService(repo *repository.ProfileRepository) *ProfileService {
	return &ProfileService{repo: repo}
}

// FetchProfile returns the user's profile. A user without a stored profile
// gets the empty profile, not an error; only storage failures propagate.
func (s *ProfileService) FetchProfile(ctx context.Context, userID string) (*domain.UserProfile, error) {
	profile, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.EmptyProfile(userID), nil
		}
		return nil, err
	}
	return profile, nil
}

// SaveProfile stores or replaces a user's profile.
func (s *ProfileService) SaveProfile(ctx context.Context, profile *domain.UserProfile) error {
	return s.repo.Upsert(ctx, profile)
}
