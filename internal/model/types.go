package model

import "time"

// Post is a feed entry as held by the client cache.
type Post struct {
	ID           string
	Author       string
	FullName     string
	Content      string
	ImageRef     string
	AvatarRef    string
	Latitude     float64
	Longitude    float64
	HasLocation  bool
	LikeCount    int
	LikedByUser  bool
	CommentCount int
	DatePosted   time.Time
}

// Comment belongs to exactly one post's thread.
type Comment struct {
	ID         string
	PostID     string
	Author     string
	Content    string
	AvatarRef  string
	DatePosted time.Time
}

// ActivityEvent is one row of the reverse-chronological activity feed.
// TargetPostID is empty for follow actions.
type ActivityEvent struct {
	Actor        string
	FullName     string
	ActionKind   string // like, comment, follow
	TargetPostID string
	AvatarRef    string
}

// UserSummary is a search or suggestion result.
type UserSummary struct {
	Username    string
	FullName    string
	AvatarRef   string
	IsFollowing bool
}

// Profile is a user page: bio, counts, and the user's own posts.
type Profile struct {
	Username  string
	FullName  string
	Bio       string
	AvatarRef string
	Followers int
	Following int
	Posts     []Post
}

// Token is the result of a successful sign-in.
type Token struct {
	AccessToken string
	TokenType   string
}
