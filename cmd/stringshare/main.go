package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"stringshare/internal/api"
	"stringshare/internal/cmdlog"
	"stringshare/internal/config"
	"stringshare/internal/feed"
	"stringshare/internal/metrics"
	"stringshare/internal/model"
	"stringshare/internal/mutate"
	"stringshare/internal/search"
	"stringshare/internal/session"
	"stringshare/internal/store/clientdb"
	"stringshare/internal/theme"
	"stringshare/internal/thread"
	"stringshare/internal/transport"
)

const configPath = "./stringshare.yaml"

func main() {
	cmd := ""
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}
	switch cmd {
	case "init":
		cmdInit()
	case "signup":
		cmdSignup()
	case "login":
		cmdLogin()
	case "logout":
		cmdLogout()
	case "feed":
		cmdFeed()
	case "post":
		cmdPost()
	case "like":
		cmdLike()
	case "comments":
		cmdComments()
	case "comment":
		cmdComment()
	case "search":
		cmdSearch()
	case "follow":
		cmdFollow()
	case "activity":
		cmdActivity()
	case "me":
		cmdMe()
	case "profile":
		cmdProfile()
	case "monitor":
		cmdMonitor()
	default:
		printHelp()
	}
}

func printHelp() {
	theme.PrintBanner()
	fmt.Println("Usage: stringshare <command> [options]")
	fmt.Println("Commands:")
	fmt.Println("  init        Create a config file at ./stringshare.yaml")
	fmt.Println("  signup      Create an account")
	fmt.Println("  login       Sign in and store the session token")
	fmt.Println("  logout      Clear the stored session")
	fmt.Println("  feed        Fetch and print the home feed")
	fmt.Println("  post        Create a post (optional photo and location)")
	fmt.Println("  like        Toggle the like on a post")
	fmt.Println("  comments    Show the thread for a post")
	fmt.Println("  comment     Post a comment to a thread")
	fmt.Println("  search      Search accounts")
	fmt.Println("  follow      Follow an account")
	fmt.Println("  activity    Show the activity feed")
	fmt.Println("  me          Show your profile")
	fmt.Println("  profile     Show another user's profile")
	fmt.Println("  monitor     Show local action counts for the last day")
}

// app wires the engine together: one session store, one transport, one cache.
type app struct {
	cfg     config.Config
	db      *clientdb.DB
	sess    *session.Store
	api     *api.Client
	cache   *feed.Cache
	threads *thread.Loader
	results *search.Results
	coord   *mutate.Coordinator
}

// consoleNavigator is the CLI's stand-in for the sign-in screen.
type consoleNavigator struct{}

func (consoleNavigator) ShowSignIn() {
	fmt.Fprintln(os.Stderr, "session expired: run `stringshare login`")
}

func loadConfig() config.Config {
	cfg, err := config.Load(configPath)
	if err != nil {
		cfg = config.Default()
		cfg.ResolveEnv()
	}
	return cfg
}

func newApp(ctx context.Context) (*app, error) {
	cfg := loadConfig()
	db, err := clientdb.Open(cfg.Storage.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	sess := session.NewStore(db)
	if err := sess.Load(ctx); err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	t := transport.NewClient(transport.Options{
		Endpoint:    cfg.Server.Endpoint,
		Timeout:     time.Duration(cfg.Transport.TimeoutSeconds) * time.Second,
		RPS:         cfg.Transport.RPS,
		Burst:       cfg.Transport.Burst,
		MaxAttempts: cfg.Transport.MaxAttempts,
		BaseBackoff: time.Duration(cfg.Transport.BaseBackoffMS) * time.Millisecond,
	}, sess, consoleNavigator{})
	client := api.New(t)
	cache := feed.NewCache()
	threads := thread.NewLoader(client)
	results := search.NewResults()
	coord := mutate.NewCoordinator(client, cache, threads, results, db)
	metrics.StartServer(cfg.Metrics.Addr)
	return &app{
		cfg:     cfg,
		db:      db,
		sess:    sess,
		api:     client,
		cache:   cache,
		threads: threads,
		results: results,
		coord:   coord,
	}, nil
}

func (a *app) close() { _ = a.db.Close() }

func cmdInit() {
	_ = cmdlog.Run("init", func() error {
		if _, err := os.Stat(configPath); err == nil {
			return fmt.Errorf("%s already exists", configPath)
		}
		if err := config.Save(configPath, config.Default()); err != nil {
			return err
		}
		fmt.Println("wrote", configPath)
		return nil
	})
}

func cmdSignup() {
	fs := flag.NewFlagSet("signup", flag.ExitOnError)
	username := fs.String("user", "", "username")
	fullName := fs.String("name", "", "full name")
	password := fs.String("pass", "", "password")
	_ = fs.Parse(os.Args[2:])
	_ = cmdlog.Run("signup", func() error {
		ctx := context.Background()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()
		if err := a.api.Signup(ctx, *username, *fullName, *password); err != nil {
			return err
		}
		fmt.Println("account created; run `stringshare login`")
		return nil
	})
}

func cmdLogin() {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	username := fs.String("user", "", "username")
	password := fs.String("pass", "", "password")
	_ = fs.Parse(os.Args[2:])
	_ = cmdlog.Run("login", func() error {
		ctx := context.Background()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()
		tok, err := a.api.Login(ctx, *username, *password)
		if err != nil {
			return err
		}
		if err := a.sess.Set(ctx, tok.AccessToken); err != nil {
			return err
		}
		fmt.Println("signed in as", *username)
		return nil
	})
}

func cmdLogout() {
	_ = cmdlog.Run("logout", func() error {
		ctx := context.Background()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()
		if err := a.sess.Clear(ctx); err != nil {
			return err
		}
		fmt.Println("signed out")
		return nil
	})
}

func cmdFeed() {
	_ = cmdlog.Run("feed", func() error {
		ctx := context.Background()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()
		if err := feed.Refresh(ctx, a.api, a.cache); err != nil {
			return err
		}
		for _, p := range a.cache.Posts() {
			printPost(a.cfg.Server.Endpoint, p)
		}
		return nil
	})
}

func cmdPost() {
	fs := flag.NewFlagSet("post", flag.ExitOnError)
	text := fs.String("text", "", "post text")
	lat := fs.Float64("lat", 0, "latitude")
	lng := fs.Float64("lng", 0, "longitude")
	photo := fs.String("photo", "", "path to a photo to attach")
	_ = fs.Parse(os.Args[2:])
	_ = cmdlog.Run("post", func() error {
		ctx := context.Background()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()
		if *photo == "" {
			if err := a.api.CreatePost(ctx, *text, *lat, *lng, "", nil); err != nil {
				return err
			}
		} else {
			f, err := os.Open(*photo)
			if err != nil {
				return err
			}
			defer f.Close()
			if err := a.api.CreatePost(ctx, *text, *lat, *lng, f.Name(), f); err != nil {
				return err
			}
		}
		fmt.Println("posted")
		return nil
	})
}

func cmdLike() {
	fs := flag.NewFlagSet("like", flag.ExitOnError)
	postID := fs.String("post", "", "post id")
	_ = fs.Parse(os.Args[2:])
	_ = cmdlog.Run("like", func() error {
		ctx := context.Background()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()
		if err := feed.Refresh(ctx, a.api, a.cache); err != nil {
			return err
		}
		if err := a.coord.ToggleLike(ctx, *postID); err != nil {
			return err
		}
		if p, ok := a.cache.Get(*postID); ok {
			fmt.Printf("%s: liked=%v likes=%d\n", p.ID, p.LikedByUser, p.LikeCount)
		}
		return nil
	})
}

func cmdComments() {
	fs := flag.NewFlagSet("comments", flag.ExitOnError)
	postID := fs.String("post", "", "post id")
	_ = fs.Parse(os.Args[2:])
	_ = cmdlog.Run("comments", func() error {
		ctx := context.Background()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()
		if err := a.threads.Open(ctx, *postID); err != nil {
			return err
		}
		for _, cm := range a.threads.Comments() {
			fmt.Printf("%s  %s: %s\n", cm.DatePosted.Format(time.RFC822), cm.Author, cm.Content)
		}
		return nil
	})
}

func cmdComment() {
	fs := flag.NewFlagSet("comment", flag.ExitOnError)
	postID := fs.String("post", "", "post id")
	text := fs.String("text", "", "comment text")
	_ = fs.Parse(os.Args[2:])
	_ = cmdlog.Run("comment", func() error {
		ctx := context.Background()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()
		if err := feed.Refresh(ctx, a.api, a.cache); err != nil {
			return err
		}
		if err := a.threads.Open(ctx, *postID); err != nil {
			return err
		}
		if err := a.coord.PostComment(ctx, *text); err != nil {
			return err
		}
		for _, cm := range a.threads.Comments() {
			fmt.Printf("%s  %s: %s\n", cm.DatePosted.Format(time.RFC822), cm.Author, cm.Content)
		}
		return nil
	})
}

func cmdSearch() {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	query := fs.String("q", "", "search query")
	_ = fs.Parse(os.Args[2:])
	_ = cmdlog.Run("search", func() error {
		ctx := context.Background()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()
		users, err := a.api.SearchUsers(ctx, *query)
		if err != nil {
			return err
		}
		a.results.SetResults(users)
		for _, u := range a.results.Users() {
			mark := ""
			if u.IsFollowing {
				mark = " (following)"
			}
			fmt.Printf("%s  %s%s\n", u.Username, u.FullName, mark)
		}
		return nil
	})
}

func cmdFollow() {
	fs := flag.NewFlagSet("follow", flag.ExitOnError)
	username := fs.String("user", "", "username to follow")
	_ = fs.Parse(os.Args[2:])
	_ = cmdlog.Run("follow", func() error {
		ctx := context.Background()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()
		users, err := a.api.SearchUsers(ctx, *username)
		if err != nil {
			return err
		}
		a.results.SetResults(users)
		if err := a.coord.Follow(ctx, *username); err != nil {
			return err
		}
		fmt.Println("following", *username)
		return nil
	})
}

func cmdActivity() {
	_ = cmdlog.Run("activity", func() error {
		ctx := context.Background()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()
		events, err := a.api.Activity(ctx)
		if err != nil {
			return err
		}
		for _, ev := range events {
			switch ev.ActionKind {
			case "follow":
				fmt.Printf("%s followed you\n", ev.Actor)
			default:
				fmt.Printf("%s %sd your post %s\n", ev.Actor, ev.ActionKind, ev.TargetPostID)
			}
		}
		return nil
	})
}

func cmdMe() {
	_ = cmdlog.Run("me", func() error {
		ctx := context.Background()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()
		p, err := a.api.Me(ctx)
		if err != nil {
			return err
		}
		printProfile(a.cfg.Server.Endpoint, p)
		return nil
	})
}

func cmdProfile() {
	fs := flag.NewFlagSet("profile", flag.ExitOnError)
	username := fs.String("user", "", "username")
	_ = fs.Parse(os.Args[2:])
	_ = cmdlog.Run("profile", func() error {
		ctx := context.Background()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()
		p, err := a.api.UserProfile(ctx, *username)
		if err != nil {
			return err
		}
		printProfile(a.cfg.Server.Endpoint, p)
		return nil
	})
}

func cmdMonitor() {
	_ = cmdlog.Run("monitor", func() error {
		ctx := context.Background()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()
		now := time.Now().UTC()
		start := now.Add(-24 * time.Hour)
		for _, kind := range []string{"like", "comment", "follow"} {
			n, err := a.db.CountActionsWithin(ctx, start, now, kind)
			if err != nil {
				return err
			}
			fmt.Printf("%-8s %d\n", kind, n)
		}
		actions, err := a.db.LoadActionsRange(ctx, start, now, "")
		if err != nil {
			return err
		}
		for _, act := range actions {
			fmt.Printf("%s  %s %s\n", act.TS.Format(time.RFC822), act.Kind, act.Target)
		}
		return nil
	})
}

func printPost(endpoint string, p model.Post) {
	liked := " "
	if p.LikedByUser {
		liked = "*"
	}
	fmt.Printf("[%s] %s%s: %s\n", p.ID, liked, p.Author, p.Content)
	fmt.Printf("      %d replies · %d likes", p.CommentCount, p.LikeCount)
	if p.HasLocation {
		fmt.Printf(" · %.4f,%.4f", p.Latitude, p.Longitude)
	}
	fmt.Println()
	if p.ImageRef != "" {
		fmt.Println("      image:", api.MediaURL(endpoint, p.ImageRef))
	}
}

func printProfile(endpoint string, p model.Profile) {
	fmt.Printf("%s (%s)\n", p.Username, p.FullName)
	if p.Bio != "" {
		fmt.Println(p.Bio)
	}
	fmt.Printf("%d followers · %d following\n", p.Followers, p.Following)
	if p.AvatarRef != "" {
		fmt.Println("avatar:", api.MediaURL(endpoint, p.AvatarRef))
	}
	for _, post := range p.Posts {
		printPost(endpoint, post)
	}
}
