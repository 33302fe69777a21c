// Package profile persists learner profiles and owns the mastery rules
// that keep them consistent.
package profile

import (
	"errors"
	"fmt"
	"sync"

	"github.com/sauravyadav1008/studybuddy/internal/domain"
	"github.com/sauravyadav1008/studybuddy/internal/storage/local"
)

const collectionProfiles = "profiles"

// Store persists one profile document per user. Read-modify-write cycles
// are serialized per user; different users never contend.
type Store struct {
	store *local.Store

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewStore(store *local.Store) *Store {
	return &Store{
		store: store,
		locks: make(map[string]*sync.Mutex),
	}
}

func (s *Store) userLock(userID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[userID] = l
	}
	return l
}

// Get loads a profile, returning domain.ErrProfileNotFound for users that
// have never been seen.
func (s *Store) Get(userID string) (*domain.UserProfile, error) {
	var p domain.UserProfile
	if err := s.store.Load(collectionProfiles, userID, &p); err != nil {
		if errors.Is(err, local.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", domain.ErrProfileNotFound, userID)
		}
		return nil, fmt.Errorf("load profile: %w", err)
	}
	if p.Topics == nil {
		p.Topics = make(map[string]*domain.TopicState)
	}
	return &p, nil
}

// GetOrCreate loads a profile, creating and persisting a fresh one on
// first contact.
func (s *Store) GetOrCreate(userID string) (*domain.UserProfile, error) {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	p, err := s.Get(userID)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, domain.ErrProfileNotFound) {
		return nil, err
	}

	p = domain.NewUserProfile(userID)
	if err := s.store.Save(collectionProfiles, userID, p); err != nil {
		return nil, fmt.Errorf("save profile: %w", err)
	}
	return p, nil
}

// Update runs fn on the user's profile under the per-user lock and
// persists the result. The profile is created if absent. Concurrent
// updates of the same user apply strictly one after another; the stored
// document always reflects a complete update, never an interleaving.
func (s *Store) Update(userID string, fn func(*domain.UserProfile) error) (*domain.UserProfile, error) {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	p, err := s.Get(userID)
	if err != nil {
		if !errors.Is(err, domain.ErrProfileNotFound) {
			return nil, err
		}
		p = domain.NewUserProfile(userID)
	}

	if err := fn(p); err != nil {
		return nil, err
	}

	if err := s.store.Save(collectionProfiles, userID, p); err != nil {
		return nil, fmt.Errorf("save profile: %w", err)
	}
	return p, nil
}

// Reset replaces the user's profile with a fresh one: new session id,
// no topics, defaults restored.
func (s *Store) Reset(userID string) (*domain.UserProfile, error) {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	p := domain.NewUserProfile(userID)
	if err := s.store.Save(collectionProfiles, userID, p); err != nil {
		return nil, fmt.Errorf("reset profile: %w", err)
	}
	return p, nil
}

// List returns the ids of all stored profiles.
func (s *Store) List() ([]string, error) {
	return s.store.List(collectionProfiles)
}
