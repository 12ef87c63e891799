package settings

import (
	"context"
	"sync"
	"time"
)

// InMemoryStore keeps preferences for the process lifetime only.
type InMemoryStore struct {
	mu    sync.RWMutex
	prefs map[string]VoicePrefs
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{prefs: make(map[string]VoicePrefs)}
}

func (s *InMemoryStore) Get(_ context.Context, userID string) (VoicePrefs, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.prefs[userID]; ok {
		return p, nil
	}
	return DefaultPrefs(userID), nil
}

func (s *InMemoryStore) Save(_ context.Context, prefs VoicePrefs) error {
	if prefs.UpdatedAt.IsZero() {
		prefs.UpdatedAt = time.Now().UTC()
	}
	s.mu.Lock()
	s.prefs[prefs.UserID] = prefs
	s.mu.Unlock()
	return nil
}

func (s *InMemoryStore) Close() error { return nil }
