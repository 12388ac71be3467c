package app

import (
	"context"
	"errors"

	"bodycomp/internal/domain"
)

// ProfileService reads and updates the age/sex profile used to pre-fill
// measurement workflows.
type ProfileService struct {
	repo domain.ProfileRepository
}

// NewProfileService creates a ProfileService backed by the given repository.
func NewProfileService(repo domain.ProfileRepository) *ProfileService {
	return &ProfileService{repo: repo}
}

// Get returns the user's profile, or nil if none is stored.
func (s *ProfileService) Get(ctx context.Context, userID int64) (*domain.Profile, error) {
	return s.repo.GetProfile(ctx, userID)
}

// Save validates and stores the profile.
func (s *ProfileService) Save(ctx context.Context, userID int64, age int, sex string) (*domain.Profile, error) {
	if age <= 0 || age > 130 {
		return nil, errors.New("age must be within [1, 130]")
	}
	x, err := domain.ParseSex(sex)
	if err != nil {
		return nil, err
	}
	p := domain.Profile{UserID: userID, Age: age, Sex: x}
	if err := s.repo.SaveProfile(ctx, p); err != nil {
		return nil, err
	}
	return &p, nil
}
