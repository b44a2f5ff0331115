// Package usecase wires the domain services together behind the API
// surface.
package usecase

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/avalonlabs/vesper/domain/entities"
	"github.com/avalonlabs/vesper/domain/repositories"
	"github.com/avalonlabs/vesper/internal/session"
)

// AssistantService orchestrates profile management and the voice
// session lifecycle.
type AssistantService struct {
	profiles repositories.ProfileRepository
	manager  *session.Manager
	logger   *zap.Logger
}

// NewAssistantService creates the service.
func NewAssistantService(
	profiles repositories.ProfileRepository,
	manager *session.Manager,
	logger *zap.Logger,
) *AssistantService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssistantService{
		profiles: profiles,
		manager:  manager,
		logger:   logger,
	}
}

// Authenticate resolves a profile for login. The client shell has no
// password store; possession of a valid profile id is the credential.
func (s *AssistantService) Authenticate(ctx context.Context, profileID string) (*entities.UserProfile, error) {
	profile, err := s.profiles.GetByID(ctx, profileID)
	if err != nil {
		return nil, fmt.Errorf("failed to authenticate profile: %w", err)
	}
	return profile, nil
}

// Connect opens a voice session for the given profile. Profile edits
// made after this point do not affect the running session.
func (s *AssistantService) Connect(ctx context.Context, profileID string) error {
	profile, err := s.profiles.GetByID(ctx, profileID)
	if err != nil {
		return fmt.Errorf("failed to load profile: %w", err)
	}
	if err := profile.Validate(); err != nil {
		return fmt.Errorf("profile is not connectable: %w", err)
	}

	s.logger.Info("Starting voice session",
		zap.String("profileID", profile.ID),
		zap.String("persona", profile.AIName))
	return s.manager.Connect(profile)
}

// Disconnect tears down the active session, if any.
func (s *AssistantService) Disconnect() {
	s.manager.Disconnect()
}

// SessionState reports the connection state.
func (s *AssistantService) SessionState() entities.ConnectionState {
	return s.manager.State()
}

// CreateProfile validates and stores a new profile.
func (s *AssistantService) CreateProfile(ctx context.Context, profile *entities.UserProfile) error {
	return s.profiles.Create(ctx, profile)
}

// GetProfile fetches one profile.
func (s *AssistantService) GetProfile(ctx context.Context, id string) (*entities.UserProfile, error) {
	return s.profiles.GetByID(ctx, id)
}

// ListProfiles returns every stored profile.
func (s *AssistantService) ListProfiles(ctx context.Context) ([]*entities.UserProfile, error) {
	return s.profiles.List(ctx)
}

// UpdateProfile stores profile edits. A running session keeps its
// connect-time snapshot; the caller must reconnect for changes to take
// effect.
func (s *AssistantService) UpdateProfile(ctx context.Context, profile *entities.UserProfile) error {
	return s.profiles.Update(ctx, profile)
}

// DeleteProfile removes a profile. The active session, if it was opened
// from this profile, keeps running on its snapshot.
func (s *AssistantService) DeleteProfile(ctx context.Context, id string) error {
	return s.profiles.Delete(ctx, id)
}
