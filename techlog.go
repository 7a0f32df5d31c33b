// Package techlog is a personal blog backend built with Go, Echo, and SQLite.
// It provides admin post authoring, public post reading, likes, comments,
// and session-based authentication against an external identity provider.
//
// Users provide a ProfileVerifier that resolves provider credentials into
// profiles, and techlog handles all the handler logic, middleware, and
// database operations.
package techlog

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/hwangharp/techlog/engage"
)

// App is the central techlog application. It wires together the store,
// engagement ledger, handlers, middleware, and the identity provider.
type App struct {
	Config SiteConfig
	Echo   *echo.Echo
	Store  *Store
	Engage *engage.Store

	verifier      ProfileVerifier
	signinLimiter *attemptLimiter
	customRoutes  []func(*App)
	staticDir     string
}

// New creates a new techlog App with the given configuration and
// identity-provider verifier.
func New(cfg SiteConfig, verifier ProfileVerifier, opts ...Option) *App {
	cfg.setDefaults()

	a := &App{
		Config:    cfg,
		Echo:      echo.New(),
		verifier:  verifier,
		staticDir: "public",
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Start initializes the database, middleware, routes, and starts the server.
func (a *App) Start() error {
	// Validate required config
	if a.Config.SessionSecret == "" {
		return fmt.Errorf("techlog: SessionSecret is required")
	}
	if a.verifier == nil {
		return fmt.Errorf("techlog: a ProfileVerifier is required")
	}
	if a.Config.TokenSecret == "" {
		a.Config.TokenSecret = a.Config.SessionSecret
	}

	// Initialize store
	store, err := NewStore(a.Config.DatabasePath)
	if err != nil {
		return fmt.Errorf("techlog: init store: %w", err)
	}
	a.Store = store

	// Initialize engagement ledger on the same database
	engageStore, err := engage.NewStore(store.DB())
	if err != nil {
		return fmt.Errorf("techlog: init engagement ledger: %w", err)
	}
	a.Engage = engageStore

	// Initialize sign-in limiter
	a.signinLimiter = newAttemptLimiter(5, time.Minute)

	// Setup middleware
	a.setupMiddleware()

	// Setup routes
	a.setupRoutes()

	// Apply custom routes
	for _, fn := range a.customRoutes {
		fn(a)
	}

	// Start server
	if err := a.Echo.Start(a.Config.Addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (a *App) setupRoutes() {
	e := a.Echo

	// User's static assets (uploaded images live under /public/uploads)
	e.Static("/public", a.staticDir)

	// Public feeds
	e.GET("/sitemap.xml", a.handleSitemap)
	e.GET("/feed.xml", a.handleFeed)

	api := e.Group("/api")

	// Auth routes
	api.POST("/auth/signin", a.handleSignIn)
	api.POST("/auth/signout", a.handleSignOut)
	api.POST("/auth/token", a.handleToken)
	api.GET("/auth/me", a.handleMe)

	// Post routes
	api.GET("/posts", a.handleListPosts)
	api.POST("/posts", a.handleCreatePost)
	api.GET("/posts/:id", a.handleGetPost)
	api.PUT("/posts/:id", a.handleUpdatePost)
	api.DELETE("/posts/:id", a.handleDeletePost)

	// Admin routes
	api.GET("/admin/posts", a.handleAdminPosts)
	api.GET("/admin/images", a.handleImageList)
	api.POST("/admin/images", a.handleImageUpload)
	api.DELETE("/admin/images/:filename", a.handleImageDelete)

	// Engagement routes (likes, comments)
	engageHandler := engage.NewHandler(a.Engage, func(c echo.Context) (engage.Viewer, bool) {
		ident := a.CurrentIdentity(c)
		if ident == nil {
			return engage.Viewer{}, false
		}
		return engage.Viewer{ID: ident.ID}, true
	})
	engageHandler.RegisterRoutes(api)
}

// Close cleans up resources. Call this when the app is shutting down.
func (a *App) Close() error {
	if a.Store != nil {
		a.Store.Close()
	}
	return nil
}

// EnvOr returns the value of the environment variable key, or fallback if empty.
func EnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// MustEnv returns the value of the environment variable key, or fatally exits if empty.
func MustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		log.Fatalf("techlog: required environment variable %s is not set", key)
	}
	return v
}
