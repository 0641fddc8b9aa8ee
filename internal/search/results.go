package search

import (
	"sync"

	"stringshare/internal/model"
)

// Results holds the current search-result sequence and the locally mutated
// follow state.
type Results struct {
	mu        sync.RWMutex
	users     []model.UserSummary
	observers []func()
}

func NewResults() *Results { return &Results{} }

// SetResults installs a fresh result sequence, replacing the previous one.
func (r *Results) SetResults(users []model.UserSummary) {
	r.mu.Lock()
	r.users = append([]model.UserSummary(nil), users...)
	r.mu.Unlock()
	r.notify()
}

// Users returns a snapshot of the current results in order.
func (r *Results) Users() []model.UserSummary {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]model.UserSummary(nil), r.users...)
}

// Get returns the result with the given username.
func (r *Results) Get(username string) (model.UserSummary, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if u.Username == username {
			return u, true
		}
	}
	return model.UserSummary{}, false
}

// MarkFollowing flips isFollowing for one username, leaving the rest of the
// sequence untouched. A one-way transition: there is no unfollow.
func (r *Results) MarkFollowing(username string) bool {
	r.mu.Lock()
	changed := false
	for i := range r.users {
		if r.users[i].Username == username {
			changed = !r.users[i].IsFollowing
			r.users[i].IsFollowing = true
			break
		}
	}
	r.mu.Unlock()
	if changed {
		r.notify()
	}
	return changed
}

// Subscribe registers an observer called after every result change.
func (r *Results) Subscribe(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observers = append(r.observers, fn)
}

func (r *Results) notify() {
	r.mu.RLock()
	obs := append([]func(){}, r.observers...)
	r.mu.RUnlock()
	for _, fn := range obs {
		fn()
	}
}
