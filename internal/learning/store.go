package learning

import (
	"context"
	"sync"

	"github.com/ignite/adaptive-core/internal/domain"
)

// ProfileStore persists learning profiles. Implementations must be safe for
// concurrent use; per-user serialisation is the caller's job (see Locker).
type ProfileStore interface {
	// LoadProfile returns ErrProfileNotFound for a user with no profile and a
	// *StateError when stored data cannot be recovered.
	LoadProfile(ctx context.Context, userID string) (*domain.UserLearningProfile, error)
	// SaveProfile replaces the stored profile. It is the commit point of an
	// analysis.
	SaveProfile(ctx context.Context, p *domain.UserLearningProfile) error
}

// ModelStore persists prediction models keyed by user and metric.
type ModelStore interface {
	// LoadModel returns ErrModelNotFound when no model exists yet.
	LoadModel(ctx context.Context, userID, modelType string) (*domain.PredictionModel, error)
	SaveModel(ctx context.Context, m *domain.PredictionModel) error
}

// Locker serialises read-modify-write cycles per key. Lock blocks until the
// key is free or ctx is done.
type Locker interface {
	Lock(ctx context.Context, key string) (func(), error)
}

// MemoryProfileStore keeps profiles in process memory.
type MemoryProfileStore struct {
	mu       sync.RWMutex
	profiles map[string]*domain.UserLearningProfile
}

// NewMemoryProfileStore creates an empty in-memory profile store.
func NewMemoryProfileStore() *MemoryProfileStore {
	return &MemoryProfileStore{profiles: make(map[string]*domain.UserLearningProfile)}
}

func (s *MemoryProfileStore) LoadProfile(_ context.Context, userID string) (*domain.UserLearningProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[userID]
	if !ok {
		return nil, ErrProfileNotFound
	}
	return p.Clone(), nil
}

func (s *MemoryProfileStore) SaveProfile(_ context.Context, p *domain.UserLearningProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.UserID] = p.Clone()
	return nil
}

// MemoryModelStore keeps prediction models in process memory.
type MemoryModelStore struct {
	mu     sync.RWMutex
	models map[string]*domain.PredictionModel
}

// NewMemoryModelStore creates an empty in-memory model store.
func NewMemoryModelStore() *MemoryModelStore {
	return &MemoryModelStore{models: make(map[string]*domain.PredictionModel)}
}

func modelKey(userID, modelType string) string { return userID + "/" + modelType }

func (s *MemoryModelStore) LoadModel(_ context.Context, userID, modelType string) (*domain.PredictionModel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.models[modelKey(userID, modelType)]
	if !ok {
		return nil, ErrModelNotFound
	}
	return m.Clone(), nil
}

func (s *MemoryModelStore) SaveModel(_ context.Context, m *domain.PredictionModel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.models[modelKey(m.UserID, m.ModelType)] = m.Clone()
	return nil
}
