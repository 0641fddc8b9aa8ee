package session

import (
	"context"
	"errors"
	"sync"

	"stringshare/internal/store/clientdb"
)

// storageKey is the fixed key the access token is persisted under.
const storageKey = "string-share"

// Store owns the session token for the process. It is the only writer of the
// token; every other component reads it through Token or a subscription.
type Store struct {
	db *clientdb.DB

	mu        sync.Mutex
	token     string
	loading   bool
	loaded    bool
	observers []func(token string)
}

func NewStore(db *clientdb.DB) *Store {
	return &Store{db: db, loading: true}
}

// Load reads the persisted token once. The loading flag flips to false exactly
// once, whether or not a token was found. Repeated calls are no-ops.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	if s.loaded {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	token, err := s.db.LoadSecret(ctx, storageKey)
	if err != nil && !errors.Is(err, clientdb.ErrNoValue) {
		s.finishLoad("")
		return err
	}
	s.finishLoad(token)
	return nil
}

func (s *Store) finishLoad(token string) {
	s.mu.Lock()
	if s.loaded {
		s.mu.Unlock()
		return
	}
	s.loaded = true
	s.loading = false
	s.token = token
	obs := append([]func(string){}, s.observers...)
	s.mu.Unlock()
	for _, fn := range obs {
		fn(token)
	}
}

// Set persists the token and publishes it to observers before returning.
func (s *Store) Set(ctx context.Context, token string) error {
	if token == "" {
		return errors.New("empty token")
	}
	if err := s.db.SaveSecret(ctx, storageKey, token); err != nil {
		return err
	}
	s.publish(token)
	return nil
}

// Clear removes the persisted token and publishes the absent session.
// Clearing an already-empty session is a no-op for observers.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.db.DeleteSecret(ctx, storageKey); err != nil {
		return err
	}
	s.mu.Lock()
	already := s.token == ""
	s.mu.Unlock()
	if already {
		return nil
	}
	s.publish("")
	return nil
}

func (s *Store) publish(token string) {
	s.mu.Lock()
	s.token = token
	obs := append([]func(string){}, s.observers...)
	s.mu.Unlock()
	for _, fn := range obs {
		fn(token)
	}
}

// Token returns the current token, empty when signed out.
func (s *Store) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// Loading reports whether the initial Load has not completed yet.
func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Subscribe registers an observer called synchronously on every token change.
func (s *Store) Subscribe(fn func(token string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}
