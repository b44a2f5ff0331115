// Package profilestore persists user profiles in a local JSON file.
package profilestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/avalonlabs/vesper/domain/entities"
	"github.com/avalonlabs/vesper/domain/repositories"
)

// ErrNotFound is returned when no profile matches the given id.
var ErrNotFound = errors.New("profile not found")

// FileStore implements repositories.ProfileRepository on top of a
// single JSON document. Every mutation rewrites the file atomically.
type FileStore struct {
	path   string
	logger *zap.Logger

	mu       sync.RWMutex
	profiles map[string]*entities.UserProfile
}

var _ repositories.ProfileRepository = (*FileStore)(nil)

// NewFileStore loads (or creates) the store at path. An empty store is
// seeded with one default profile so the client is usable out of the
// box.
func NewFileStore(path string, logger *zap.Logger) (*FileStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &FileStore{
		path:     path,
		logger:   logger,
		profiles: make(map[string]*entities.UserProfile),
	}

	if err := s.load(); err != nil {
		return nil, err
	}

	if len(s.profiles) == 0 {
		seed := DefaultProfile()
		s.profiles[seed.ID] = seed
		if err := s.save(); err != nil {
			return nil, err
		}
		logger.Info("Seeded default profile", zap.String("profileID", seed.ID))
	}

	return s, nil
}

// DefaultProfile is the out-of-the-box persona.
func DefaultProfile() *entities.UserProfile {
	return &entities.UserProfile{
		ID:             uuid.NewString(),
		Name:           "Operator",
		AIName:         "VESPER",
		Language:       "English",
		VoiceName:      entities.DefaultBaseVoice,
		ProcessingMode: entities.ProcessingModeCloud,
		Permissions: entities.Permissions{
			Diagnostics: true,
		},
	}
}

func (s *FileStore) Create(ctx context.Context, profile *entities.UserProfile) error {
	if profile.ID == "" {
		profile.ID = uuid.NewString()
	}
	if err := profile.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.profiles[profile.ID]; exists {
		return fmt.Errorf("profile %s already exists", profile.ID)
	}
	s.profiles[profile.ID] = cloneProfile(profile)
	return s.save()
}

func (s *FileStore) GetByID(ctx context.Context, id string) (*entities.UserProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	profile, ok := s.profiles[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneProfile(profile), nil
}

func (s *FileStore) List(ctx context.Context) ([]*entities.UserProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*entities.UserProfile, 0, len(s.profiles))
	for _, profile := range s.profiles {
		out = append(out, cloneProfile(profile))
	}
	return out, nil
}

func (s *FileStore) Update(ctx context.Context, profile *entities.UserProfile) error {
	if err := profile.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.profiles[profile.ID]; !ok {
		return ErrNotFound
	}
	s.profiles[profile.ID] = cloneProfile(profile)
	return s.save()
}

func (s *FileStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.profiles[id]; !ok {
		return ErrNotFound
	}
	delete(s.profiles, id)
	return s.save()
}

type storeDocument struct {
	Profiles []*entities.UserProfile `json:"profiles"`
}

func (s *FileStore) load() error {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read profile store: %w", err)
	}

	var doc storeDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to parse profile store: %w", err)
	}
	for _, profile := range doc.Profiles {
		s.profiles[profile.ID] = profile
	}
	return nil
}

// save writes the document to a temp file and renames it into place.
// Callers hold s.mu.
func (s *FileStore) save() error {
	doc := storeDocument{Profiles: make([]*entities.UserProfile, 0, len(s.profiles))}
	for _, profile := range s.profiles {
		doc.Profiles = append(doc.Profiles, profile)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode profile store: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".profiles-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp store file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write profile store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to close temp store file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to replace profile store: %w", err)
	}
	return nil
}

func cloneProfile(p *entities.UserProfile) *entities.UserProfile {
	out := *p
	out.CustomVoices = append([]entities.CustomVoice(nil), p.CustomVoices...)
	return &out
}
