package techlog

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/hwangharp/techlog/engage"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "test_blog.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	// The engagement tables are part of the same database in production;
	// the delete path touches them.
	if _, err := engage.NewStore(s.DB()); err != nil {
		t.Fatalf("failed to create engage store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func mustUser(t *testing.T, s *Store, p Profile, role Role) Identity {
	t.Helper()
	ident, err := s.UpsertUser(p)
	if err != nil {
		t.Fatalf("UpsertUser failed: %v", err)
	}
	if role != RoleUser {
		if err := s.SetUserRole(ident.ID, role); err != nil {
			t.Fatalf("SetUserRole failed: %v", err)
		}
		ident.Role = role
	}
	return ident
}

func mustPost(t *testing.T, s *Store, p Post) Post {
	t.Helper()
	if err := s.CreatePost(p); err != nil {
		t.Fatalf("CreatePost failed: %v", err)
	}
	saved, err := s.GetPostAny(p.ID)
	if err != nil {
		t.Fatalf("GetPostAny failed: %v", err)
	}
	return saved
}

func TestUpsertUserFirstSignIn(t *testing.T) {
	s := setupTestStore(t)

	ident, err := s.UpsertUser(Profile{ID: "prov-1", Name: "Ha", Email: "ha@example.com", Image: "https://img/ha.png"})
	if err != nil {
		t.Fatalf("UpsertUser failed: %v", err)
	}
	if ident.ID != "prov-1" {
		t.Errorf("ID = %q, want provider id", ident.ID)
	}
	if ident.Role != RoleUser {
		t.Errorf("Role = %q, want USER on first sign-in", ident.Role)
	}

	role, err := s.GetUserRole("prov-1")
	if err != nil {
		t.Fatalf("GetUserRole failed: %v", err)
	}
	if role != RoleUser {
		t.Errorf("stored role = %q, want USER", role)
	}
}

func TestUpsertUserKeepsRole(t *testing.T) {
	s := setupTestStore(t)

	admin := mustUser(t, s, Profile{ID: "prov-2", Name: "Admin", Email: "a@example.com"}, RoleAdmin)

	// A later sign-in refreshes name and image but never the role.
	again, err := s.UpsertUser(Profile{ID: admin.ID, Name: "Admin Renamed", Email: "a@example.com", Image: "new.png"})
	if err != nil {
		t.Fatalf("UpsertUser failed: %v", err)
	}
	if again.Role != RoleAdmin {
		t.Errorf("Role = %q, want ADMIN preserved", again.Role)
	}
	role, _ := s.GetUserRole(admin.ID)
	if role != RoleAdmin {
		t.Errorf("stored role = %q, want ADMIN", role)
	}
}

func TestUpsertUserMatchesByEmail(t *testing.T) {
	s := setupTestStore(t)

	first, err := s.UpsertUser(Profile{Name: "No Provider ID", Email: "same@example.com"})
	if err != nil {
		t.Fatalf("UpsertUser failed: %v", err)
	}
	second, err := s.UpsertUser(Profile{Name: "Still Me", Email: "same@example.com"})
	if err != nil {
		t.Fatalf("UpsertUser failed: %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("expected email match to reuse user, got %q vs %q", first.ID, second.ID)
	}
}

func TestGetUserRoleMissing(t *testing.T) {
	s := setupTestStore(t)

	_, err := s.GetUserRole("nobody")
	if err != sql.ErrNoRows {
		t.Errorf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestCreateAndGetPublishedPost(t *testing.T) {
	s := setupTestStore(t)
	author := mustUser(t, s, Profile{ID: "u1", Name: "Author", Image: "a.png"}, RoleAdmin)

	post := mustPost(t, s, Post{
		ID:        "p1",
		Title:     "Hello",
		Body:      "World",
		Category:  "cs",
		Published: true,
		AuthorID:  author.ID,
		CreatedAt: time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC),
	})

	got, err := s.GetPublishedPost("p1")
	if err != nil {
		t.Fatalf("GetPublishedPost failed: %v", err)
	}
	if got.Title != "Hello" || got.Body != "World" || got.Category != "cs" {
		t.Errorf("unexpected post fields: %+v", got)
	}
	if !got.Published {
		t.Error("Published should be true")
	}
	if got.AuthorID != author.ID {
		t.Errorf("AuthorID = %q, want %q", got.AuthorID, author.ID)
	}
	if got.Author.Name != "Author" || got.Author.Image != "a.png" {
		t.Errorf("author summary = %+v", got.Author)
	}
	if !got.CreatedAt.Equal(post.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, post.CreatedAt)
	}
}

func TestGetPublishedPostDraft(t *testing.T) {
	s := setupTestStore(t)
	author := mustUser(t, s, Profile{ID: "u1", Name: "Author"}, RoleAdmin)

	mustPost(t, s, Post{ID: "draft", Title: "T", Body: "B", AuthorID: author.ID, CreatedAt: time.Now().UTC()})

	// Published read treats drafts exactly like absent posts.
	if _, err := s.GetPublishedPost("draft"); err != sql.ErrNoRows {
		t.Errorf("expected sql.ErrNoRows for draft, got %v", err)
	}
	got, err := s.GetPostAny("draft")
	if err != nil {
		t.Fatalf("GetPostAny failed: %v", err)
	}
	if got.Published {
		t.Error("Published should be false")
	}
}

func TestListPublishedPosts(t *testing.T) {
	s := setupTestStore(t)
	author := mustUser(t, s, Profile{ID: "u1", Name: "Author"}, RoleAdmin)

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	posts := []Post{
		{ID: "p1", Title: "One", Body: "b", Category: "go", Published: true, AuthorID: author.ID, CreatedAt: base},
		{ID: "p2", Title: "Two", Body: "b", Category: "cs", Published: true, AuthorID: author.ID, CreatedAt: base.Add(24 * time.Hour)},
		{ID: "p3", Title: "Three", Body: "b", Category: "go", Published: true, AuthorID: author.ID, CreatedAt: base.Add(48 * time.Hour)},
		{ID: "p4", Title: "Draft", Body: "b", Published: false, AuthorID: author.ID, CreatedAt: base.Add(72 * time.Hour)},
	}
	for _, p := range posts {
		mustPost(t, s, p)
	}

	got, err := s.ListPublishedPosts("")
	if err != nil {
		t.Fatalf("ListPublishedPosts failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("count = %d, want 3 (excluding draft)", len(got))
	}
	if got[0].ID != "p3" || got[2].ID != "p1" {
		t.Errorf("expected newest-first order, got %s..%s", got[0].ID, got[2].ID)
	}

	byCategory, err := s.ListPublishedPosts("go")
	if err != nil {
		t.Fatalf("ListPublishedPosts(go) failed: %v", err)
	}
	if len(byCategory) != 2 {
		t.Errorf("category filter count = %d, want 2", len(byCategory))
	}
}

func TestUpdatePostContent(t *testing.T) {
	s := setupTestStore(t)
	author := mustUser(t, s, Profile{ID: "u1", Name: "Author"}, RoleAdmin)
	other := mustUser(t, s, Profile{ID: "u2", Name: "Other"}, RoleUser)

	mustPost(t, s, Post{ID: "p1", Title: "Old", Body: "Old body", AuthorID: author.ID, CreatedAt: time.Now().UTC()})

	if err := s.UpdatePostContent("missing", author.ID, "T", "B"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing post: got %v, want ErrNotFound", err)
	}
	if err := s.UpdatePostContent("p1", other.ID, "T", "B"); !errors.Is(err, ErrForbidden) {
		t.Errorf("non-author: got %v, want ErrForbidden", err)
	}
	if err := s.UpdatePostContent("p1", author.ID, "", "B"); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("empty title: got %v, want ErrInvalidInput", err)
	}

	// Failed attempts must leave the post untouched.
	got, _ := s.GetPostAny("p1")
	if got.Title != "Old" || got.Body != "Old body" {
		t.Errorf("post changed by failed updates: %+v", got)
	}

	if err := s.UpdatePostContent("p1", author.ID, "New", "New body"); err != nil {
		t.Fatalf("UpdatePostContent failed: %v", err)
	}
	got, _ = s.GetPostAny("p1")
	if got.Title != "New" || got.Body != "New body" {
		t.Errorf("update not applied: %+v", got)
	}
	if got.AuthorID != author.ID {
		t.Errorf("AuthorID changed to %q", got.AuthorID)
	}
}

func TestDeletePostOwned(t *testing.T) {
	s := setupTestStore(t)
	author := mustUser(t, s, Profile{ID: "u1", Name: "Author"}, RoleAdmin)
	other := mustUser(t, s, Profile{ID: "u2", Name: "Other"}, RoleUser)

	mustPost(t, s, Post{ID: "p1", Title: "T", Body: "B", Published: true, AuthorID: author.ID, CreatedAt: time.Now().UTC()})

	// Seed engagement rows so the delete has something to clean up.
	if _, err := s.DB().Exec(`INSERT INTO likes (id, post_id, user_id, created_at) VALUES ('l1', 'p1', 'u2', '2024-01-01T00:00:00Z')`); err != nil {
		t.Fatalf("seed like: %v", err)
	}
	if _, err := s.DB().Exec(`INSERT INTO comments (id, post_id, author_id, body, created_at) VALUES ('c1', 'p1', 'u2', 'hi', '2024-01-01T00:00:00Z')`); err != nil {
		t.Fatalf("seed comment: %v", err)
	}

	if err := s.DeletePostOwned("p1", other.ID); !errors.Is(err, ErrForbidden) {
		t.Errorf("non-author delete: got %v, want ErrForbidden", err)
	}
	if err := s.DeletePostOwned("p1", author.ID); err != nil {
		t.Fatalf("DeletePostOwned failed: %v", err)
	}
	if _, err := s.GetPostAny("p1"); err != sql.ErrNoRows {
		t.Errorf("post should be gone, got %v", err)
	}

	var likes, comments int
	s.DB().QueryRow(`SELECT COUNT(*) FROM likes WHERE post_id = 'p1'`).Scan(&likes)
	s.DB().QueryRow(`SELECT COUNT(*) FROM comments WHERE post_id = 'p1'`).Scan(&comments)
	if likes != 0 || comments != 0 {
		t.Errorf("engagement rows survived delete: likes=%d comments=%d", likes, comments)
	}

	if err := s.DeletePostOwned("p1", author.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete: got %v, want ErrNotFound", err)
	}
}
