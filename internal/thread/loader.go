package thread

import (
	"context"
	"errors"
	"sync"

	"stringshare/internal/model"
)

// ErrNoOpenThread reports an operation that needs an open thread.
var ErrNoOpenThread = errors.New("no open thread")

// Fetcher produces comment threads; the API client implements it.
type Fetcher interface {
	Comments(ctx context.Context, postID string) ([]model.Comment, error)
}

// Loader holds the comment list for the one currently open post. Opening a new
// thread discards the previous one.
type Loader struct {
	api Fetcher

	mu        sync.Mutex
	postID    string
	comments  []model.Comment
	observers []func()
}

func NewLoader(api Fetcher) *Loader {
	return &Loader{api: api}
}

// Open fetches the full thread for postID and makes it the active context.
// On fetch failure the loader stays closed and the error is returned.
func (l *Loader) Open(ctx context.Context, postID string) error {
	if postID == "" {
		return errors.New("empty post id")
	}
	comments, err := l.api.Comments(ctx, postID)
	if err != nil {
		l.Close()
		return err
	}
	l.mu.Lock()
	l.postID = postID
	l.comments = comments
	l.mu.Unlock()
	l.notify()
	return nil
}

// Reload re-fetches the active thread wholesale. The held list is only
// replaced on success.
func (l *Loader) Reload(ctx context.Context) error {
	l.mu.Lock()
	postID := l.postID
	l.mu.Unlock()
	if postID == "" {
		return ErrNoOpenThread
	}
	comments, err := l.api.Comments(ctx, postID)
	if err != nil {
		return err
	}
	l.mu.Lock()
	// The thread may have been switched while the fetch was in flight.
	if l.postID != postID {
		l.mu.Unlock()
		return nil
	}
	l.comments = comments
	l.mu.Unlock()
	l.notify()
	return nil
}

// Close clears the held list and the active context.
func (l *Loader) Close() {
	l.mu.Lock()
	l.postID = ""
	l.comments = nil
	l.mu.Unlock()
	l.notify()
}

// ActivePost returns the id of the open thread, empty when closed.
func (l *Loader) ActivePost() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.postID
}

// Comments returns a snapshot of the held thread.
func (l *Loader) Comments() []model.Comment {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]model.Comment(nil), l.comments...)
}

// Subscribe registers an observer called after every thread change.
func (l *Loader) Subscribe(fn func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.observers = append(l.observers, fn)
}

func (l *Loader) notify() {
	l.mu.Lock()
	obs := append([]func(){}, l.observers...)
	l.mu.Unlock()
	for _, fn := range obs {
		fn()
	}
}
