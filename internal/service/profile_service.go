package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/agrilink/messaging/internal/domain"
)

// ProfileService maintains the local copy of display identities sourced from
// the identity provider.
type ProfileService struct {
	profiles domain.ProfileRepository
}

func NewProfileService(profiles domain.ProfileRepository) *ProfileService {
	return &ProfileService{profiles: profiles}
}

type ProfileUpsertInput struct {
	DisplayName string
	AvatarURL   *string
}

// UpsertSelf creates or refreshes the caller's own profile row.
func (s *ProfileService) UpsertSelf(ctx context.Context, userID string, in ProfileUpsertInput) (*domain.Profile, error) {
	name := strings.TrimSpace(in.DisplayName)
	if name == "" {
		return nil, fmt.Errorf("%w: display name is required", domain.ErrInvalidInput)
	}
	p := &domain.Profile{
		ID:          userID,
		DisplayName: name,
		AvatarURL:   in.AvatarURL,
		UpdatedAt:   time.Now().UTC(),
	}
	if err := s.profiles.Upsert(ctx, p); err != nil {
		return nil, fmt.Errorf("upsert profile: %w", err)
	}
	return p, nil
}

// Get returns the profile for the given user id.
func (s *ProfileService) Get(ctx context.Context, userID string) (*domain.Profile, error) {
	p, err := s.profiles.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	if p == nil {
		return nil, domain.ErrNotFound
	}
	return p, nil
}
