package mutate

import (
	"context"
	"errors"
	"sync"
	"time"

	"stringshare/internal/feed"
	"stringshare/internal/logging"
	"stringshare/internal/metrics"
	"stringshare/internal/search"
	"stringshare/internal/store/clientdb"
	"stringshare/internal/thread"
)

// ErrEmptyComment reports a comment submission with no text. No request is
// issued and no state changes.
var ErrEmptyComment = errors.New("empty comment")

// API is what the coordinator needs from the REST client.
type API interface {
	Like(ctx context.Context, postID string) error
	CreateComment(ctx context.Context, postID, content string) error
	Follow(ctx context.Context, username string) error
}

// EventKind labels coordinator notifications.
type EventKind string

const (
	// LikePending is the non-authoritative visual hint emitted before the
	// like request resolves. Count and flag commit only on confirmation.
	LikePending   EventKind = "like_pending"
	LikeCommitted EventKind = "like_committed"
	LikeFailed    EventKind = "like_failed"
	CommentPosted EventKind = "comment_posted"
	Followed      EventKind = "followed"
)

// Event is a coordinator notification for the rendering layer.
type Event struct {
	Kind     EventKind
	PostID   string
	Username string
}

// Coordinator orchestrates optimistic like/comment/follow mutations against
// the local caches, reconciling each against server confirmation. Mutations on
// the same post are serialized so a toggle is always computed from the latest
// confirmed state.
type Coordinator struct {
	api     API
	cache   *feed.Cache
	threads *thread.Loader
	results *search.Results
	db      *clientdb.DB // optional action log

	mu        sync.Mutex
	postLocks map[string]*sync.Mutex
	observers []func(Event)
}

func NewCoordinator(api API, cache *feed.Cache, threads *thread.Loader, results *search.Results, db *clientdb.DB) *Coordinator {
	return &Coordinator{
		api:       api,
		cache:     cache,
		threads:   threads,
		results:   results,
		db:        db,
		postLocks: map[string]*sync.Mutex{},
	}
}

// Subscribe registers an observer for coordinator events.
func (c *Coordinator) Subscribe(fn func(Event)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, fn)
}

func (c *Coordinator) emit(ev Event) {
	c.mu.Lock()
	obs := append([]func(Event){}, c.observers...)
	c.mu.Unlock()
	for _, fn := range obs {
		fn(ev)
	}
}

func (c *Coordinator) postLock(postID string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.postLocks[postID]
	if !ok {
		l = &sync.Mutex{}
		c.postLocks[postID] = l
	}
	return l
}

// ToggleLike flips the like state of a post. The toggle is computed from the
// post's confirmed state read after the per-post lock is held, so a second tap
// queues behind the in-flight request instead of reading a stale snapshot.
// Count and flag change only after the server confirms; on failure the cache
// is untouched. An unknown post is a logged no-op.
func (c *Coordinator) ToggleLike(ctx context.Context, postID string) error {
	lock := c.postLock(postID)
	lock.Lock()
	defer lock.Unlock()

	prev, ok := c.cache.Get(postID)
	if !ok {
		logging.Warn("like_unknown_post", map[string]any{"post_id": postID})
		metrics.IncMutationReject("like")
		return nil
	}

	c.emit(Event{Kind: LikePending, PostID: postID})
	if err := c.api.Like(ctx, postID); err != nil {
		c.emit(Event{Kind: LikeFailed, PostID: postID})
		return err
	}

	next := prev
	next.LikedByUser = !prev.LikedByUser
	if prev.LikedByUser {
		next.LikeCount--
	} else {
		next.LikeCount++
	}
	if next.LikeCount < 0 {
		next.LikeCount = 0
	}
	c.cache.ReplaceOne(next)
	c.recordAction(ctx, "like", postID, map[string]any{"liked": next.LikedByUser})
	metrics.IncMutationCommit("like")
	c.emit(Event{Kind: LikeCommitted, PostID: postID})
	return nil
}

// PostComment submits a comment to the currently open thread. On confirmation
// the post's comment count goes up by one and the thread is re-fetched
// wholesale. On failure nothing changes, so the caller can keep the input for
// retry.
func (c *Coordinator) PostComment(ctx context.Context, content string) error {
	if content == "" {
		metrics.IncMutationReject("comment")
		return ErrEmptyComment
	}
	postID := c.threads.ActivePost()
	if postID == "" {
		metrics.IncMutationReject("comment")
		return thread.ErrNoOpenThread
	}

	// Same lock as ToggleLike: a like in flight on this post must not commit
	// a snapshot taken before the comment count moved.
	lock := c.postLock(postID)
	lock.Lock()
	defer lock.Unlock()

	if err := c.api.CreateComment(ctx, postID, content); err != nil {
		return err
	}

	if prev, ok := c.cache.Get(postID); ok {
		next := prev
		next.CommentCount++
		c.cache.ReplaceOne(next)
	} else {
		logging.Warn("comment_unknown_post", map[string]any{"post_id": postID})
	}
	c.recordAction(ctx, "comment", postID, map[string]any{"content": content})
	metrics.IncMutationCommit("comment")
	c.emit(Event{Kind: CommentPosted, PostID: postID})

	// Authoritative refresh, not an incremental append.
	return c.threads.Reload(ctx)
}

// Follow follows a user by username. Re-invoking on an already-followed user
// performs no request. On confirmation only the matching search result is
// marked as following.
func (c *Coordinator) Follow(ctx context.Context, username string) error {
	if username == "" {
		metrics.IncMutationReject("follow")
		return errors.New("empty username")
	}
	if u, ok := c.results.Get(username); ok && u.IsFollowing {
		logging.Info("follow_already_following", map[string]any{"username": username})
		metrics.IncMutationReject("follow")
		return nil
	}

	if err := c.api.Follow(ctx, username); err != nil {
		return err
	}

	if !c.results.MarkFollowing(username) {
		logging.Warn("follow_unknown_result", map[string]any{"username": username})
	}
	c.recordAction(ctx, "follow", username, nil)
	metrics.IncMutationCommit("follow")
	c.emit(Event{Kind: Followed, Username: username})
	return nil
}

func (c *Coordinator) recordAction(ctx context.Context, kind, target string, payload any) {
	if c.db == nil {
		return
	}
	if err := c.db.PutAction(ctx, time.Now().UTC(), kind, target, payload); err != nil {
		logging.Error("action_log_failed", map[string]any{"kind": kind, "error": err.Error()})
	}
}
