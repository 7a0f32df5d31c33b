package techlog

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Store wraps a SQLite database and provides CRUD operations for users,
// posts, and uploaded images. Likes and comments live in the engage package
// against the same database.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the SQLite database at path, ensures the data
// directory exists, and runs schema migrations.
func NewStore(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	// PRAGMAs are connection-local, so they go in the DSN where every pooled
	// connection picks them up: WAL for concurrent read/write access, a busy
	// timeout so writers wait instead of returning SQLITE_BUSY, and enforced
	// foreign keys. _txlock=immediate takes the write lock at BEGIN, which
	// serializes the read-check-write transactions instead of failing them
	// at the first write after a stale read.
	dsn := "file:" + path +
		"?_txlock=immediate" +
		"&_pragma=journal_mode(WAL)" +
		"&_pragma=busy_timeout(5000)" +
		"&_pragma=synchronous(NORMAL)" +
		"&_pragma=foreign_keys(1)" +
		"&_pragma=cache_size(-8000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

// DB exposes the underlying connection so the engage store can share it.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL DEFAULT '',
    email TEXT NOT NULL DEFAULT '',
    image TEXT NOT NULL DEFAULT '',
    role TEXT NOT NULL DEFAULT 'USER',
    created_at TEXT NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email ON users(email) WHERE email != '';

CREATE TABLE IF NOT EXISTS posts (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    body TEXT NOT NULL,
    category TEXT NOT NULL DEFAULT '',
    published INTEGER NOT NULL DEFAULT 0,
    author_id TEXT NOT NULL REFERENCES users(id),
    created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_posts_created ON posts(created_at);

CREATE TABLE IF NOT EXISTS images (
    filename TEXT PRIMARY KEY,
    original_name TEXT NOT NULL,
    width INTEGER NOT NULL,
    height INTEGER NOT NULL,
    size INTEGER NOT NULL,
    uploaded_at TEXT NOT NULL
);
`)
	return err
}

// UpsertUser finds or creates the user for a provider profile. Matching is
// by provider id first, then by email; a first sign-in creates the row with
// role USER. Name and image are refreshed from the profile on every call.
func (s *Store) UpsertUser(p Profile) (Identity, error) {
	var id string
	var role Role

	lookup := `SELECT id, role FROM users WHERE id = ?`
	arg := p.ID
	if p.ID == "" {
		lookup = `SELECT id, role FROM users WHERE email = ? AND email != ''`
		arg = p.Email
	}
	err := s.db.QueryRow(lookup, arg).Scan(&id, &role)
	switch {
	case err == sql.ErrNoRows:
		id = p.ID
		if id == "" {
			id = uuid.NewString()
		}
		role = RoleUser
		_, err = s.db.Exec(`INSERT INTO users (id, name, email, image, role, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
			id, p.Name, p.Email, p.Image, role, time.Now().UTC().Format(time.RFC3339))
		if err != nil {
			return Identity{}, fmt.Errorf("create user: %w", err)
		}
	case err != nil:
		return Identity{}, err
	default:
		if _, err := s.db.Exec(`UPDATE users SET name = ?, image = ? WHERE id = ?`, p.Name, p.Image, id); err != nil {
			return Identity{}, err
		}
	}

	return Identity{ID: id, Name: p.Name, Email: p.Email, Image: p.Image, Role: role}, nil
}

// GetUserRole returns the stored role for a user id.
func (s *Store) GetUserRole(id string) (Role, error) {
	var role Role
	err := s.db.QueryRow(`SELECT role FROM users WHERE id = ?`, id).Scan(&role)
	if err != nil {
		return "", err
	}
	return role, nil
}

// SetUserRole updates a user's role. This is the out-of-band administrative
// action; no HTTP route exposes it.
func (s *Store) SetUserRole(id string, role Role) error {
	res, err := s.db.Exec(`UPDATE users SET role = ? WHERE id = ?`, role, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

const postColumns = `p.id, p.title, p.body, p.category, p.published, p.author_id, p.created_at, u.name, u.image`

func scanPost(row interface{ Scan(...any) error }) (Post, error) {
	var p Post
	var published int
	var created string
	if err := row.Scan(&p.ID, &p.Title, &p.Body, &p.Category, &published, &p.AuthorID, &created, &p.Author.Name, &p.Author.Image); err != nil {
		return Post{}, err
	}
	p.Published = published == 1
	p.Author.ID = p.AuthorID
	if t, err := time.Parse(time.RFC3339, created); err == nil {
		p.CreatedAt = t
	}
	return p, nil
}

// CreatePost persists a new post.
func (s *Store) CreatePost(p Post) error {
	published := 0
	if p.Published {
		published = 1
	}
	_, err := s.db.Exec(`INSERT INTO posts (id, title, body, category, published, author_id, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Title, p.Body, p.Category, published, p.AuthorID, p.CreatedAt.UTC().Format(time.RFC3339))
	return err
}

// GetPublishedPost returns a single post by id only if it is published.
// Drafts and absent posts are indistinguishable to the caller.
func (s *Store) GetPublishedPost(id string) (Post, error) {
	row := s.db.QueryRow(`SELECT `+postColumns+` FROM posts p JOIN users u ON u.id = p.author_id WHERE p.id = ? AND p.published = 1`, id)
	return scanPost(row)
}

// GetPostAny returns a post by id regardless of published status (for admin
// and ownership checks).
func (s *Store) GetPostAny(id string) (Post, error) {
	row := s.db.QueryRow(`SELECT `+postColumns+` FROM posts p JOIN users u ON u.id = p.author_id WHERE p.id = ?`, id)
	return scanPost(row)
}

// ListPublishedPosts returns all published posts ordered by creation time
// descending. If category is non-empty, results are filtered to it.
func (s *Store) ListPublishedPosts(category string) ([]Post, error) {
	var rows *sql.Rows
	var err error
	if category == "" {
		rows, err = s.db.Query(`SELECT ` + postColumns + ` FROM posts p JOIN users u ON u.id = p.author_id WHERE p.published = 1 ORDER BY p.created_at DESC`)
	} else {
		rows, err = s.db.Query(`SELECT `+postColumns+` FROM posts p JOIN users u ON u.id = p.author_id WHERE p.published = 1 AND p.category = ? ORDER BY p.created_at DESC`, category)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPosts(rows)
}

// ListAllPosts returns every post including drafts, newest first (for admin).
func (s *Store) ListAllPosts() ([]Post, error) {
	rows, err := s.db.Query(`SELECT ` + postColumns + ` FROM posts p JOIN users u ON u.id = p.author_id ORDER BY p.created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPosts(rows)
}

func collectPosts(rows *sql.Rows) ([]Post, error) {
	var posts []Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// UpdatePostContent rewrites a post's title and body on behalf of authorID.
// The existence check, the ownership check, and the write run inside one
// transaction so a concurrent update of the same post is serialized.
// Check order: existence, then ownership, then input validity.
func (s *Store) UpdatePostContent(id, authorID, title, body string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var owner string
	err = tx.QueryRow(`SELECT author_id FROM posts WHERE id = ?`, id).Scan(&owner)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if owner != authorID {
		return ErrForbidden
	}
	if title == "" || body == "" {
		return fmt.Errorf("%w: title and body are required", ErrInvalidInput)
	}
	if _, err := tx.Exec(`UPDATE posts SET title = ?, body = ? WHERE id = ?`, title, body, id); err != nil {
		return err
	}
	return tx.Commit()
}

// DeletePostOwned removes a post on behalf of authorID, with the same
// existence-then-ownership discipline as UpdatePostContent. Likes and
// comments are removed in the same transaction so no orphaned engagement
// rows survive the post.
func (s *Store) DeletePostOwned(id, authorID string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var owner string
	err = tx.QueryRow(`SELECT author_id FROM posts WHERE id = ?`, id).Scan(&owner)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if owner != authorID {
		return ErrForbidden
	}
	if _, err := tx.Exec(`DELETE FROM likes WHERE post_id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM comments WHERE post_id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM posts WHERE id = ?`, id); err != nil {
		return err
	}
	return tx.Commit()
}

// SaveImage stores metadata for an uploaded image.
func (s *Store) SaveImage(img Image) error {
	_, err := s.db.Exec(`INSERT OR REPLACE INTO images (filename, original_name, width, height, size, uploaded_at) VALUES (?, ?, ?, ?, ?, ?)`,
		img.Filename, img.OriginalName, img.Width, img.Height, img.Size, img.UploadedAt)
	return err
}

// ListImages returns all uploaded images, newest first.
func (s *Store) ListImages() ([]Image, error) {
	rows, err := s.db.Query(`SELECT filename, original_name, width, height, size, uploaded_at FROM images ORDER BY uploaded_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var images []Image
	for rows.Next() {
		var img Image
		if err := rows.Scan(&img.Filename, &img.OriginalName, &img.Width, &img.Height, &img.Size, &img.UploadedAt); err != nil {
			return nil, err
		}
		images = append(images, img)
	}
	return images, rows.Err()
}

// DeleteImage removes image metadata by filename.
func (s *Store) DeleteImage(filename string) error {
	_, err := s.db.Exec(`DELETE FROM images WHERE filename = ?`, filename)
	return err
}
