/*
Package main is the entry point for the miniblog command line client.

It is responsible for loading configuration, initializing the global logging
system, restoring the persisted session, and dispatching subcommands: the
authentication actions, the blog actions, the live feed watcher, and the
development backend with graceful handling of operating system interrupt
signals (SIGINT, SIGTERM).
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"miniblog/internal/app/blog"
	"miniblog/internal/app/feed"
	"miniblog/internal/app/session"
	"miniblog/internal/configs"
	"miniblog/internal/devserver"
	"miniblog/internal/pkg/errs"
	"miniblog/internal/pkg/logx"
)

const usage = `Usage: miniblog <command> [flags]

Commands:
  login       -email -password
  signup      -email -username -password -confirm [-first -last -bio -image <path>]
  logout
  whoami
  posts
  show        <post-id>
  create      -title -content [-status] [-categories id,id,...]
  comment     <post-id> -text
  delete      <post-id>
  categories
  summarize   <post-id>
  watch
  devserver
`

// pullRefreshInterval is the cadence the watch command re-fetches on when the
// push channel is unavailable. The synchronizer itself never schedules polls.
const pullRefreshInterval = 15 * time.Second

func main() {
	cfg, err := configs.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logx.InitGlobalLogger(cfg.Environment == "development")

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	command := os.Args[1]
	args := os.Args[2:]

	if command == "devserver" {
		runDevServer(cfg)
		return
	}

	store, err := session.NewFileStore(cfg.StateDir)
	if err != nil {
		logx.Fatal(err, "Failed to open session state directory")
	}

	api := blog.NewClient(cfg.APIBaseURL, cfg.HTTPTimeout)
	sess := session.New(api, store)
	sess.Restore()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &app{cfg: cfg, api: api, sess: sess}

	var customErr *errs.CustomError
	switch command {
	case "login":
		customErr = app.login(ctx, args)
	case "signup":
		customErr = app.signup(ctx, args)
	case "logout":
		sess.Logout()
		fmt.Println("Logged out.")
	case "whoami":
		app.whoami()
	case "posts":
		customErr = app.listPosts(ctx)
	case "show":
		customErr = app.showPost(ctx, args)
	case "create":
		customErr = app.createPost(ctx, args)
	case "comment":
		customErr = app.comment(ctx, args)
	case "delete":
		customErr = app.deletePost(ctx, args)
	case "categories":
		customErr = app.listCategories(ctx)
	case "summarize":
		customErr = app.summarize(ctx, args)
	case "watch":
		app.watch(ctx)
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	if customErr != nil {
		// A rejected credential means the persisted session is no longer
		// trustworthy; drop it so the next command starts clean.
		if customErr.Code == errs.ErrSessionExpired {
			sess.Logout()
		}
		fmt.Fprintln(os.Stderr, customErr.Message)
		os.Exit(1)
	}
}

type app struct {
	cfg  *configs.AppConfig
	api  *blog.Client
	sess *session.Session
}

func (a *app) login(ctx context.Context, args []string) *errs.CustomError {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	fs.Parse(args)

	if customErr := a.sess.Login(ctx, *email, *password); customErr != nil {
		return customErr
	}

	user, _ := a.sess.CurrentUser()
	fmt.Printf("Signed in as %s.\n", user.DisplayName())
	return nil
}

func (a *app) signup(ctx context.Context, args []string) *errs.CustomError {
	fs := flag.NewFlagSet("signup", flag.ExitOnError)
	first := fs.String("first", "", "first name")
	last := fs.String("last", "", "last name")
	username := fs.String("username", "", "account handle")
	email := fs.String("email", "", "account email")
	bio := fs.String("bio", "", "profile biography")
	password := fs.String("password", "", "account password")
	confirm := fs.String("confirm", "", "password confirmation")
	imagePath := fs.String("image", "", "path to an avatar image")
	fs.Parse(args)

	input := blog.SignupInput{
		FirstName:       *first,
		LastName:        *last,
		Username:        *username,
		Email:           *email,
		Bio:             *bio,
		Password:        *password,
		ConfirmPassword: *confirm,
	}

	if *imagePath != "" {
		data, err := os.ReadFile(*imagePath)
		if err != nil {
			return errs.Wrap(err, errs.ErrFormParseFailed)
		}
		input.Image = data
		input.ImageName = *imagePath
	}

	if customErr := a.sess.Signup(ctx, input); customErr != nil {
		return customErr
	}

	user, _ := a.sess.CurrentUser()
	fmt.Printf("Account created. Signed in as %s.\n", user.DisplayName())
	return nil
}

func (a *app) whoami() {
	user, ok := a.sess.CurrentUser()
	if !ok {
		fmt.Println("Not signed in.")
		return
	}
	fmt.Printf("%s (@%s) <%s>\n", user.DisplayName(), user.Username, user.Email)
	if user.Bio != "" {
		fmt.Println(user.Bio)
	}
}

func (a *app) listPosts(ctx context.Context) *errs.CustomError {
	posts, customErr := a.api.ListPosts(ctx)
	if customErr != nil {
		return customErr
	}

	if len(posts) == 0 {
		fmt.Println("No posts yet.")
		return nil
	}
	for _, post := range posts {
		printPostLine(post)
	}
	return nil
}

func (a *app) showPost(ctx context.Context, args []string) *errs.CustomError {
	if len(args) < 1 {
		return errs.NewError(errs.ErrInvalidParams)
	}

	post, customErr := a.api.GetPost(ctx, args[0])
	if customErr != nil {
		return customErr
	}

	fmt.Printf("%s\nby %s on %s [%s]\n\n%s\n", post.Title, post.Author.Name,
		post.CreatedAt.Format("January 2, 2006"), post.Status, post.Content)

	if len(post.Categories) > 0 {
		names := make([]string, len(post.Categories))
		for i, c := range post.Categories {
			names[i] = c.Name
		}
		fmt.Printf("\nCategories: %s\n", strings.Join(names, ", "))
	}

	if len(post.Comments) > 0 {
		fmt.Printf("\nComments (%d):\n", len(post.Comments))
		for _, c := range post.Comments {
			fmt.Printf("  %s: %s\n", c.Author.Name, c.Text)
		}
	}
	return nil
}

func (a *app) createPost(ctx context.Context, args []string) *errs.CustomError {
	fs := flag.NewFlagSet("create", flag.ExitOnError)
	title := fs.String("title", "", "post title")
	content := fs.String("content", "", "post body")
	status := fs.String("status", blog.StatusPublished, "post status")
	categories := fs.String("categories", "", "comma-separated category ids")
	fs.Parse(args)

	input := blog.CreatePostInput{
		Title:   *title,
		Content: *content,
		Status:  *status,
	}
	if *categories != "" {
		for _, id := range strings.Split(*categories, ",") {
			if trimmed := strings.TrimSpace(id); trimmed != "" {
				input.CategoryIDs = append(input.CategoryIDs, trimmed)
			}
		}
	}

	post, customErr := a.api.CreatePost(ctx, input)
	if customErr != nil {
		return customErr
	}

	fmt.Printf("Created post %s.\n", post.ID)
	return nil
}

func (a *app) comment(ctx context.Context, args []string) *errs.CustomError {
	if len(args) < 1 {
		return errs.NewError(errs.ErrInvalidParams)
	}
	postID := args[0]

	fs := flag.NewFlagSet("comment", flag.ExitOnError)
	text := fs.String("text", "", "comment text")
	fs.Parse(args[1:])

	comment, customErr := a.api.CreateComment(ctx, postID, *text)
	if customErr != nil {
		return customErr
	}

	fmt.Printf("Comment %s added.\n", comment.ID)
	return nil
}

func (a *app) deletePost(ctx context.Context, args []string) *errs.CustomError {
	if len(args) < 1 {
		return errs.NewError(errs.ErrInvalidParams)
	}

	if customErr := a.api.DeletePost(ctx, args[0]); customErr != nil {
		return customErr
	}

	fmt.Println("Post deleted.")
	return nil
}

func (a *app) listCategories(ctx context.Context) *errs.CustomError {
	categories, customErr := a.api.ListCategories(ctx)
	if customErr != nil {
		return customErr
	}

	for _, c := range categories {
		fmt.Printf("%s  %s\n", c.ID, c.Name)
	}
	return nil
}

func (a *app) summarize(ctx context.Context, args []string) *errs.CustomError {
	if len(args) < 1 {
		return errs.NewError(errs.ErrInvalidParams)
	}

	summary, customErr := a.api.Summarize(ctx, args[0])
	if customErr != nil {
		return customErr
	}

	fmt.Println(summary)
	return nil
}

// watch mirrors the post collection live until interrupted. In push mode the
// channel drives updates; after a fallback to pull it re-fetches on a fixed
// cadence, since the synchronizer deliberately leaves polling to its caller.
func (a *app) watch(ctx context.Context) {
	sync := feed.New(a.cfg.WSURL, a.api, func(customErr *errs.CustomError) {
		fmt.Fprintln(os.Stderr, customErr.Message)
	})
	defer sync.Close()

	go sync.Run(ctx)

	ticker := time.NewTicker(pullRefreshInterval)
	defer ticker.Stop()

	var lastShown time.Time
	for {
		select {
		case <-ctx.Done():
			fmt.Println("\nStopped watching.")
			return

		case <-ticker.C:
			if sync.Mode() == feed.Pull {
				if customErr := sync.Refresh(ctx); customErr != nil {
					fmt.Fprintln(os.Stderr, customErr.Message)
				}
			}
			if updated := sync.LastUpdate(); updated.After(lastShown) {
				lastShown = updated
				fmt.Printf("--- %s (%s) ---\n", updated.Format(time.Kitchen), sync.Mode())
				for _, post := range sync.Posts() {
					printPostLine(post)
				}
			}
		}
	}
}

func printPostLine(post blog.Post) {
	fmt.Printf("%s  %-40s  by %s  (%d comments)\n",
		post.ID, truncate(post.Title, 40), post.Author.Name, len(post.Comments))
}

func truncate(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max-3]) + "..."
}

// runDevServer starts the development backend and blocks until an interrupt
// signal arrives, then shuts the HTTP server down gracefully.
func runDevServer(cfg *configs.AppConfig) {
	deps, err := devserver.New(cfg)
	if err != nil {
		logx.Fatal(err, "Failed to initialize dev backend")
	}
	defer deps.Close()

	router := devserver.Router(deps)

	serverAddr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logx.Info(fmt.Sprintf("miniblog dev backend starting on http://localhost%s", serverAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logx.Fatal(err, "Server failed to start")
		}
	}()

	<-ctx.Done()
	logx.Info("Received shutdown signal. Starting graceful shutdown...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logx.Fatal(err, "Server forced to shutdown")
	}

	logx.Info("Server gracefully stopped.")
}
