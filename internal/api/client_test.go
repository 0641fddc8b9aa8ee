package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"stringshare/internal/session"
	"stringshare/internal/store/clientdb"
	"stringshare/internal/transport"
)

func newTestAPI(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	db, err := clientdb.Open(filepath.Join(t.TempDir(), "s.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	sess := session.NewStore(db)
	_ = sess.Load(context.Background())
	_ = sess.Set(context.Background(), "test-token")
	tr := transport.NewClient(transport.Options{
		Endpoint:    ts.URL,
		Timeout:     5 * time.Second,
		RPS:         1000,
		Burst:       1000,
		MaxAttempts: 2,
		BaseBackoff: 5 * time.Millisecond,
	}, sess, nil)
	return New(tr)
}

func TestLoginSendsFormAndDecodesToken(t *testing.T) {
	api := newTestAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/token" || r.Method != http.MethodPost {
			t.Errorf("unexpected route %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/x-www-form-urlencoded" {
			t.Errorf("unexpected content type %q", ct)
		}
		_ = r.ParseForm()
		if r.PostForm.Get("username") != "ada" || r.PostForm.Get("password") != "pw" {
			t.Errorf("unexpected form %v", r.PostForm)
		}
		json.NewEncoder(w).Encode(map[string]string{"access_token": "tok-xyz", "token_type": "bearer"})
	}))

	tok, err := api.Login(context.Background(), "ada", "pw")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if tok.AccessToken != "tok-xyz" || tok.TokenType != "bearer" {
		t.Fatalf("unexpected token %+v", tok)
	}
}

func TestLoginRequiresCredentials(t *testing.T) {
	api := newTestAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("no request expected")
	}))
	if _, err := api.Login(context.Background(), "", "pw"); err == nil {
		t.Fatalf("expected error for empty username")
	}
}

func TestSignupSendsJSON(t *testing.T) {
	api := newTestAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/client/signup" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["username"] != "ada" || body["full_name"] != "Ada L" || body["password"] != "pw" {
			t.Errorf("unexpected body %v", body)
		}
		w.WriteHeader(http.StatusCreated)
	}))
	if err := api.Signup(context.Background(), "ada", "Ada L", "pw"); err != nil {
		t.Fatalf("signup: %v", err)
	}
}

func TestFeedDecodesPosts(t *testing.T) {
	lat, lng := 40.7128, -74.006
	api := newTestAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/client/posts" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode([]map[string]any{
			{
				"post_id": "p1", "username": "ada", "full_name": "Ada L",
				"content": "hello", "date_posted": time.Now().UTC().Format(time.RFC3339),
				"latitude": lat, "longitude": lng,
				"avatar_url": "a.png", "image_url": "i.png",
				"comments": 2, "likes": 4, "liked": true,
			},
			{
				"post_id": "p2", "username": "bob", "full_name": "Bob",
				"content": "no location", "date_posted": time.Now().UTC().Format(time.RFC3339),
				"comments": 0, "likes": 0, "liked": false,
			},
		})
	}))

	posts, err := api.Feed(context.Background())
	if err != nil {
		t.Fatalf("feed: %v", err)
	}
	if len(posts) != 2 {
		t.Fatalf("expected 2 posts, got %d", len(posts))
	}
	p := posts[0]
	if p.ID != "p1" || p.Author != "ada" || !p.LikedByUser || p.LikeCount != 4 || p.CommentCount != 2 {
		t.Fatalf("unexpected post %+v", p)
	}
	if !p.HasLocation || p.Latitude != lat || p.Longitude != lng {
		t.Fatalf("expected location on p1: %+v", p)
	}
	if p.ImageRef != "i.png" {
		t.Fatalf("expected image ref, got %q", p.ImageRef)
	}
	if posts[1].HasLocation {
		t.Fatalf("p2 should have no location")
	}
}

func TestCommentsFillPostID(t *testing.T) {
	api := newTestAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("post_id"); got != "p1" {
			t.Errorf("unexpected post_id %q", got)
		}
		json.NewEncoder(w).Encode([]map[string]any{
			{"comment_id": uuid.NewString(), "username": "bob", "content": "hi",
				"date_posted": time.Now().UTC().Format(time.RFC3339)},
		})
	}))

	comments, err := api.Comments(context.Background(), "p1")
	if err != nil {
		t.Fatalf("comments: %v", err)
	}
	if len(comments) != 1 || comments[0].PostID != "p1" || comments[0].Content != "hi" {
		t.Fatalf("unexpected comments %+v", comments)
	}
}

func TestSearchAndFollowRoutes(t *testing.T) {
	var followed string
	api := newTestAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/client/search":
			if q := r.URL.Query().Get("search_query"); q != "ad" {
				t.Errorf("unexpected query %q", q)
			}
			json.NewEncoder(w).Encode([]map[string]any{
				{"username": "ada", "full_name": "Ada L", "avatar_url": "a.png", "is_following": false},
			})
		case "/client/follow":
			followed = r.URL.Query().Get("username")
			w.WriteHeader(http.StatusCreated)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))

	ctx := context.Background()
	users, err := api.SearchUsers(ctx, "ad")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(users) != 1 || users[0].Username != "ada" || users[0].IsFollowing {
		t.Fatalf("unexpected users %+v", users)
	}
	if err := api.Follow(ctx, "ada"); err != nil {
		t.Fatalf("follow: %v", err)
	}
	if followed != "ada" {
		t.Fatalf("expected follow request for ada, got %q", followed)
	}
}

func TestActivityDecodesOptionalPostID(t *testing.T) {
	api := newTestAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[
			{"action_user":"bob","action":"like","full_name":"Bob","avatar_url":"b.png","post_id":"p1"},
			{"action_user":"eve","action":"follow","full_name":"Eve","avatar_url":"e.png","post_id":null}
		]`)
	}))

	events, err := api.Activity(context.Background())
	if err != nil {
		t.Fatalf("activity: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].ActionKind != "like" || events[0].TargetPostID != "p1" {
		t.Fatalf("unexpected event %+v", events[0])
	}
	if events[1].ActionKind != "follow" || events[1].TargetPostID != "" {
		t.Fatalf("follow event should have no target: %+v", events[1])
	}
}

func TestCreatePostMultipart(t *testing.T) {
	api := newTestAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("post") != "sunset" || q.Get("latitude") == "" || q.Get("longitude") == "" {
			t.Errorf("unexpected query %v", q)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
			return
		}
		f, hdr, err := r.FormFile("photo")
		if err != nil {
			t.Errorf("photo field: %v", err)
			return
		}
		defer f.Close()
		b, _ := io.ReadAll(f)
		if string(b) != "jpegbytes" || hdr.Filename != "sunset.jpg" {
			t.Errorf("unexpected upload %q %q", hdr.Filename, b)
		}
		w.WriteHeader(http.StatusCreated)
	}))

	err := api.CreatePost(context.Background(), "sunset", 40.7, -74.0, "sunset.jpg", strings.NewReader("jpegbytes"))
	if err != nil {
		t.Fatalf("create post: %v", err)
	}
}

func TestProfileDecodesEmbeddedPosts(t *testing.T) {
	api := newTestAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/client/users" || r.URL.Query().Get("username") != "ada" {
			t.Errorf("unexpected request %s %v", r.URL.Path, r.URL.Query())
		}
		fmt.Fprint(w, `{
			"username":"ada","full_name":"Ada L","bio":"hi","avatar_url":"a.png",
			"followers":3,"following":2,
			"posts":[{"post_id":"p1","username":"ada","full_name":"Ada L","content":"x",
				"date_posted":"2024-03-01T10:00:00Z","comments":0,"likes":1,"liked":false}]
		}`)
	}))

	p, err := api.UserProfile(context.Background(), "ada")
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if p.Username != "ada" || p.Bio != "hi" || p.Followers != 3 || len(p.Posts) != 1 {
		t.Fatalf("unexpected profile %+v", p)
	}
	if p.Posts[0].ID != "p1" || p.Posts[0].LikeCount != 1 {
		t.Fatalf("unexpected embedded post %+v", p.Posts[0])
	}
}

func TestMediaURL(t *testing.T) {
	got := MediaURL("http://x", "pics/a b.png")
	if got != "http://x/client/media/?url=pics%2Fa+b.png" {
		t.Fatalf("unexpected media url %q", got)
	}
	if MediaURL("http://x", "") != "" {
		t.Fatalf("empty ref should yield empty url")
	}
}
