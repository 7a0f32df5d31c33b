package techlog

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// PostInput is the payload for creating a post. Category is an optional,
// append-only classification tag stored as given. Published defaults to
// false; setting it true publishes the post immediately at creation, which
// is the only publish transition the contract exposes.
type PostInput struct {
	Title     string `json:"title"`
	Body      string `json:"body"`
	Category  string `json:"category"`
	Published bool   `json:"published"`
}

// PostUpdate is the payload for updating a post. Only title and body are
// mutable; category, published state, and authorship never change here.
type PostUpdate struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// CreatePost creates a post authored by ident. Only an admin identity may
// create posts; title and body must be non-empty after trimming.
func (a *App) CreatePost(ident *Identity, in PostInput) (Post, error) {
	admin, err := RequireAdmin(ident)
	if err != nil {
		return Post{}, err
	}
	title := strings.TrimSpace(in.Title)
	body := strings.TrimSpace(in.Body)
	if title == "" || body == "" {
		return Post{}, fmt.Errorf("%w: title and body are required", ErrInvalidInput)
	}
	p := Post{
		ID:        uuid.NewString(),
		Title:     title,
		Body:      body,
		Category:  strings.TrimSpace(in.Category),
		Published: in.Published,
		AuthorID:  admin.ID,
		CreatedAt: time.Now().UTC(),
	}
	if err := a.Store.CreatePost(p); err != nil {
		return Post{}, fmt.Errorf("create post: %w", err)
	}
	// Reload to attach the author summary.
	return a.Store.GetPostAny(p.ID)
}

// PublishedPost returns a post by id only when it is published. Drafts
// behave exactly like absent posts, for every caller including the author.
func (a *App) PublishedPost(id string) (Post, error) {
	p, err := a.Store.GetPublishedPost(id)
	if err == sql.ErrNoRows {
		return Post{}, ErrNotFound
	}
	return p, err
}

// PublishedPosts returns all published posts, newest first, optionally
// filtered by category. The full set is materialized per call.
func (a *App) PublishedPosts(category string) ([]Post, error) {
	return a.Store.ListPublishedPosts(strings.TrimSpace(category))
}

// UpdatePost rewrites a post's title and body. Any authenticated identity
// may attempt it; the store rejects non-authors with ErrForbidden after the
// existence check and before anything is written.
func (a *App) UpdatePost(ident *Identity, id string, in PostUpdate) (Post, error) {
	caller, err := RequireAuthenticated(ident)
	if err != nil {
		return Post{}, err
	}
	title := strings.TrimSpace(in.Title)
	body := strings.TrimSpace(in.Body)
	if err := a.Store.UpdatePostContent(id, caller.ID, title, body); err != nil {
		return Post{}, err
	}
	return a.Store.GetPostAny(id)
}

// DeletePost removes a post together with its likes and comments.
// Only the author may delete it.
func (a *App) DeletePost(ident *Identity, id string) error {
	caller, err := RequireAuthenticated(ident)
	if err != nil {
		return err
	}
	return a.Store.DeletePostOwned(id, caller.ID)
}

// AllPosts returns every post including drafts for the admin dashboard.
func (a *App) AllPosts(ident *Identity) ([]Post, error) {
	if _, err := RequireAdmin(ident); err != nil {
		return nil, err
	}
	return a.Store.ListAllPosts()
}
