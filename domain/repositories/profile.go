package repositories

import (
	"context"

	"github.com/avalonlabs/vesper/domain/entities"
)

// ProfileRepository defines data access methods for user profiles.
type ProfileRepository interface {
	Create(ctx context.Context, profile *entities.UserProfile) error
	GetByID(ctx context.Context, id string) (*entities.UserProfile, error)
	List(ctx context.Context) ([]*entities.UserProfile, error)
	Update(ctx context.Context, profile *entities.UserProfile) error
	Delete(ctx context.Context, id string) error
}
