package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"time"

	"stringshare/internal/model"
	"stringshare/internal/transport"
)

// Client maps the StringShare REST surface onto domain types. All calls go
// through the authenticated transport.
type Client struct {
	t *transport.Client
}

func New(t *transport.Client) *Client { return &Client{t: t} }

type postOut struct {
	PostID     string    `json:"post_id"`
	Username   string    `json:"username"`
	FullName   string    `json:"full_name"`
	Content    string    `json:"content"`
	DatePosted time.Time `json:"date_posted"`
	Latitude   *float64  `json:"latitude"`
	Longitude  *float64  `json:"longitude"`
	AvatarURL  string    `json:"avatar_url"`
	ImageURL   *string   `json:"image_url"`
	Comments   int       `json:"comments"`
	Likes      int       `json:"likes"`
	Liked      bool      `json:"liked"`
}

func (p postOut) toModel() model.Post {
	out := model.Post{
		ID:           p.PostID,
		Author:       p.Username,
		FullName:     p.FullName,
		Content:      p.Content,
		AvatarRef:    p.AvatarURL,
		LikeCount:    p.Likes,
		LikedByUser:  p.Liked,
		CommentCount: p.Comments,
		DatePosted:   p.DatePosted,
	}
	if p.ImageURL != nil {
		out.ImageRef = *p.ImageURL
	}
	if p.Latitude != nil && p.Longitude != nil {
		out.Latitude = *p.Latitude
		out.Longitude = *p.Longitude
		out.HasLocation = true
	}
	return out
}

// Login exchanges credentials for an access token (form-encoded, like the
// OAuth2 password flow).
func (c *Client) Login(ctx context.Context, username, password string) (model.Token, error) {
	if username == "" || password == "" {
		return model.Token{}, errors.New("username and password required")
	}
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)
	var raw struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	if err := c.t.PostForm(ctx, "/token", form, &raw); err != nil {
		return model.Token{}, err
	}
	return model.Token{AccessToken: raw.AccessToken, TokenType: raw.TokenType}, nil
}

// Signup registers a new account.
func (c *Client) Signup(ctx context.Context, username, fullName, password string) error {
	if username == "" || password == "" {
		return errors.New("username and password required")
	}
	body := map[string]string{
		"username":  username,
		"full_name": fullName,
		"password":  password,
	}
	return c.t.PostJSON(ctx, "/client/signup", body, nil)
}

// Feed returns the home feed, server-ordered.
func (c *Client) Feed(ctx context.Context) ([]model.Post, error) {
	var raw []postOut
	if err := c.t.GetJSON(ctx, "/client/posts", &raw); err != nil {
		return nil, err
	}
	out := make([]model.Post, 0, len(raw))
	for _, p := range raw {
		out = append(out, p.toModel())
	}
	return out, nil
}

// Me returns the signed-in user's profile with embedded posts.
func (c *Client) Me(ctx context.Context) (model.Profile, error) {
	return c.profile(ctx, "/client/me")
}

// UserProfile returns another user's profile by username.
func (c *Client) UserProfile(ctx context.Context, username string) (model.Profile, error) {
	if username == "" {
		return model.Profile{}, errors.New("empty username")
	}
	return c.profile(ctx, "/client/users?username="+url.QueryEscape(username))
}

func (c *Client) profile(ctx context.Context, path string) (model.Profile, error) {
	var raw struct {
		Username  string    `json:"username"`
		FullName  string    `json:"full_name"`
		Bio       *string   `json:"bio"`
		AvatarURL *string   `json:"avatar_url"`
		Followers int       `json:"followers"`
		Following int       `json:"following"`
		Posts     []postOut `json:"posts"`
	}
	if err := c.t.GetJSON(ctx, path, &raw); err != nil {
		return model.Profile{}, err
	}
	out := model.Profile{
		Username:  raw.Username,
		FullName:  raw.FullName,
		Followers: raw.Followers,
		Following: raw.Following,
	}
	if raw.Bio != nil {
		out.Bio = *raw.Bio
	}
	if raw.AvatarURL != nil {
		out.AvatarRef = *raw.AvatarURL
	}
	out.Posts = make([]model.Post, 0, len(raw.Posts))
	for _, p := range raw.Posts {
		out.Posts = append(out.Posts, p.toModel())
	}
	return out, nil
}

// Activity returns the activity feed, server-ordered.
func (c *Client) Activity(ctx context.Context) ([]model.ActivityEvent, error) {
	var raw []struct {
		ActionUser string  `json:"action_user"`
		Action     string  `json:"action"`
		FullName   string  `json:"full_name"`
		AvatarURL  string  `json:"avatar_url"`
		PostID     *string `json:"post_id"`
	}
	if err := c.t.GetJSON(ctx, "/client/activity", &raw); err != nil {
		return nil, err
	}
	out := make([]model.ActivityEvent, 0, len(raw))
	for _, a := range raw {
		ev := model.ActivityEvent{
			Actor:      a.ActionUser,
			FullName:   a.FullName,
			ActionKind: a.Action,
			AvatarRef:  a.AvatarURL,
		}
		if a.PostID != nil {
			ev.TargetPostID = *a.PostID
		}
		out = append(out, ev)
	}
	return out, nil
}

// SearchUsers searches accounts; an empty query returns suggestions.
func (c *Client) SearchUsers(ctx context.Context, query string) ([]model.UserSummary, error) {
	var raw []struct {
		Username    string `json:"username"`
		FullName    string `json:"full_name"`
		AvatarURL   string `json:"avatar_url"`
		IsFollowing bool   `json:"is_following"`
	}
	if err := c.t.GetJSON(ctx, "/client/search?search_query="+url.QueryEscape(query), &raw); err != nil {
		return nil, err
	}
	out := make([]model.UserSummary, 0, len(raw))
	for _, u := range raw {
		out = append(out, model.UserSummary{
			Username:    u.Username,
			FullName:    u.FullName,
			AvatarRef:   u.AvatarURL,
			IsFollowing: u.IsFollowing,
		})
	}
	return out, nil
}

// Follow marks the target as followed by the signed-in user.
func (c *Client) Follow(ctx context.Context, username string) error {
	if username == "" {
		return errors.New("empty username")
	}
	return c.t.PostJSON(ctx, "/client/follow?username="+url.QueryEscape(username), nil, nil)
}

// Comments returns the full thread for one post.
func (c *Client) Comments(ctx context.Context, postID string) ([]model.Comment, error) {
	if postID == "" {
		return nil, errors.New("empty post id")
	}
	var raw []struct {
		CommentID  string    `json:"comment_id"`
		Username   string    `json:"username"`
		Content    string    `json:"content"`
		AvatarURL  *string   `json:"avatar_url"`
		DatePosted time.Time `json:"date_posted"`
	}
	if err := c.t.GetJSON(ctx, "/client/comments?post_id="+url.QueryEscape(postID), &raw); err != nil {
		return nil, err
	}
	out := make([]model.Comment, 0, len(raw))
	for _, cm := range raw {
		m := model.Comment{
			ID:         cm.CommentID,
			PostID:     postID,
			Author:     cm.Username,
			Content:    cm.Content,
			DatePosted: cm.DatePosted,
		}
		if cm.AvatarURL != nil {
			m.AvatarRef = *cm.AvatarURL
		}
		out = append(out, m)
	}
	return out, nil
}

// CreateComment posts a comment. Callers re-fetch the thread for the
// authoritative list rather than trusting the response body.
func (c *Client) CreateComment(ctx context.Context, postID, content string) error {
	if postID == "" {
		return errors.New("empty post id")
	}
	body := map[string]string{"post_id": postID, "content": content}
	return c.t.PostJSON(ctx, "/client/comment", body, nil)
}

// Like toggles the like state of a post server-side.
func (c *Client) Like(ctx context.Context, postID string) error {
	if postID == "" {
		return errors.New("empty post id")
	}
	return c.t.PostJSON(ctx, "/client/like?post_id="+url.QueryEscape(postID), nil, nil)
}

// CreatePost publishes a new post with an optional photo.
func (c *Client) CreatePost(ctx context.Context, text string, lat, lng float64, photoName string, photo io.Reader) error {
	if text == "" {
		return errors.New("empty post text")
	}
	path := fmt.Sprintf("/client/post?post=%s&latitude=%f&longitude=%f",
		url.QueryEscape(text), lat, lng)
	if photo == nil {
		return c.t.PostJSON(ctx, path, nil, nil)
	}
	return c.t.PostMultipart(ctx, path, "photo", photoName, photo, nil)
}

// MediaURL resolves an opaque media reference to a fetchable URL.
func MediaURL(endpoint, ref string) string {
	if ref == "" {
		return ""
	}
	return endpoint + "/client/media/?url=" + url.QueryEscape(ref)
}
