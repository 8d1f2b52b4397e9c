/*
Package devserver is an in-process implementation of the blog backend contract.

This file wires the chi router: CORS, request-ID, request logging, recovery,
per-IP rate limiting on the authentication endpoints, the identity-extractor
middleware, and the WebSocket upgrade for the /update push endpoint.
*/
package devserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"
	"golang.org/x/time/rate"

	"miniblog/internal/app/feed"
	"miniblog/internal/configs"
	"miniblog/internal/pkg/auth/jwt"
	"miniblog/internal/pkg/limiter"
	"miniblog/internal/pkg/logx"
	"miniblog/internal/pkg/resp"
)

const (
	// AuthRate limits login/signup attempts per IP per second.
	AuthRate = 0.5

	// AuthBurst is the auth rate limiter's bucket size.
	AuthBurst = 5
)

// Deps bundles what the handlers need.
type Deps struct {
	Config *configs.AppConfig
	Store  *Store
	Hub    *Hub
}

// New opens the store and constructs the dependency bundle.
func New(cfg *configs.AppConfig) (*Deps, error) {
	store, err := OpenStore(cfg.DatabasePath)
	if err != nil {
		return nil, err
	}

	return &Deps{
		Config: cfg,
		Store:  store,
		Hub:    NewHub(),
	}, nil
}

// Close releases the store and disconnects all push subscribers.
func (d *Deps) Close() {
	d.Hub.Shutdown()
	if err := d.Store.Close(); err != nil {
		logx.Error(err, "Failed to close devserver store")
	}
}

// Router sets up the HTTP routing table for the dev backend.
func Router(deps *Deps) http.Handler {
	authLimiter := limiter.NewIPRateLimiter(rate.Limit(AuthRate), AuthBurst)

	r := chi.NewRouter()

	allowedOrigins := make(map[string]struct{})
	for _, origin := range deps.Config.AllowedOrigins {
		allowedOrigins[origin] = struct{}{}
	}

	wsUpgrader := websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if deps.Config.Environment == "development" {
				return true
			}

			origin := r.Header.Get("Origin")
			if origin == "" {
				// Non-browser clients (the CLI, the tests) send no Origin.
				return true
			}
			if _, ok := allowedOrigins[origin]; ok {
				return true
			}

			logx.Warn("WebSocket connection rejected: Origin not allowed.", "origin", origin)
			return false
		},
	}

	corsAllowedOrigins := []string{}
	if deps.Config.Environment == "development" {
		corsAllowedOrigins = []string{"*"}
	} else if len(deps.Config.AllowedOrigins) > 0 {
		corsAllowedOrigins = deps.Config.AllowedOrigins
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   corsAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	})
	r.Use(c.Handler)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logx.RequestLogger())
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		resp.RespondSuccess(w, r, "", map[string]string{
			"status":  "ok",
			"service": "miniblog dev backend",
		})
	})

	r.Route("/api", func(api chi.Router) {
		api.Use(jwt.IdentityExtractorMiddleware(deps.Config.JWTSecret))

		api.Route("/auth", func(auth chi.Router) {
			auth.Use(authLimiter.Middleware)
			auth.Post("/login", handleLogin(deps))
			auth.Post("/signup", handleSignup(deps))
		})

		api.Get("/post/getAllPost", handleListPosts(deps))
		api.Post("/post/create", handleCreatePost(deps))
		api.Delete("/post/{postID}", handleDeletePost(deps))

		api.Post("/comment/create/{postID}", handleCreateComment(deps))

		api.Get("/category/categories", handleListCategories(deps))

		api.Get("/{postID}/ai", handleSummarize(deps))
	})

	r.Get("/update", handleUpdateSocket(deps, wsUpgrader))

	return r
}

// handleUpdateSocket upgrades the connection and registers it with the hub,
// seeding it with the full post collection. The hub takes the snapshot itself
// so no mutation broadcast slips in between the store read and registration.
func handleUpdateSocket(deps *Deps, upgrader websocket.Upgrader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logx.Error(err, "Failed to upgrade connection to WebSocket")
			return
		}

		deps.Hub.Register(conn, func() (pushEnvelope, error) {
			posts, err := deps.Store.ListPosts()
			if err != nil {
				return pushEnvelope{}, err
			}
			return pushEnvelope{Type: feed.TypePosts, Data: posts}, nil
		})
	}
}
