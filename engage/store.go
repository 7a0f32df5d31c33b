package engage

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Errors reported by the ledger. ErrConflict surfaces the duplicate-like
// race the toggle transaction normally prevents; callers treat it as a
// retryable no-op.
var (
	ErrPostNotFound = errors.New("post not found")
	ErrConflict     = errors.New("like already recorded")
)

// Store provides database operations for likes and comments. It shares the
// application database so likes and comments keep referential integrity
// with posts and users.
type Store struct {
	db *sql.DB
}

// NewStore creates the ledger store on an open database and ensures its
// schema. The posts and users tables must already exist.
func NewStore(db *sql.DB) (*Store, error) {
	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		return nil, fmt.Errorf("ensure engage schema: %w", err)
	}
	return s, nil
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS likes (
    id TEXT PRIMARY KEY,
    post_id TEXT NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
    user_id TEXT NOT NULL,
    created_at TEXT NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_likes_post_user ON likes(post_id, user_id);

CREATE TABLE IF NOT EXISTS comments (
    id TEXT PRIMARY KEY,
    post_id TEXT NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
    author_id TEXT NOT NULL REFERENCES users(id),
    body TEXT NOT NULL,
    created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_comments_post ON comments(post_id);
`)
	return err
}

// ToggleLike flips the like of userID on postID: an existing like is
// deleted, a missing one is created. The check-then-act sequence runs in a
// transaction so concurrent toggles by the same user on the same post are
// serialized; the unique index is the backstop if a duplicate insert slips
// through anyway.
func (s *Store) ToggleLike(postID, userID string) (ToggleResult, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return ToggleResult{}, err
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRow(`SELECT COUNT(*) FROM posts WHERE id = ?`, postID).Scan(&exists); err != nil {
		return ToggleResult{}, err
	}
	if exists == 0 {
		return ToggleResult{}, ErrPostNotFound
	}

	var result ToggleResult
	var likeID string
	err = tx.QueryRow(`SELECT id FROM likes WHERE post_id = ? AND user_id = ?`, postID, userID).Scan(&likeID)
	switch {
	case err == sql.ErrNoRows:
		_, err = tx.Exec(`INSERT INTO likes (id, post_id, user_id, created_at) VALUES (?, ?, ?, ?)`,
			uuid.NewString(), postID, userID, time.Now().UTC().Format(time.RFC3339))
		if err != nil {
			if isUniqueViolation(err) {
				return ToggleResult{}, ErrConflict
			}
			return ToggleResult{}, err
		}
		result.Liked = true
	case err != nil:
		return ToggleResult{}, err
	default:
		if _, err := tx.Exec(`DELETE FROM likes WHERE id = ?`, likeID); err != nil {
			return ToggleResult{}, err
		}
		result.Liked = false
	}

	if err := tx.QueryRow(`SELECT COUNT(*) FROM likes WHERE post_id = ?`, postID).Scan(&result.Likes); err != nil {
		return ToggleResult{}, err
	}
	if err := tx.Commit(); err != nil {
		return ToggleResult{}, err
	}
	return result, nil
}

// LikeStatus reports whether userID has liked postID. An empty userID is an
// anonymous viewer, whose status is defined as "not liked", not an error.
func (s *Store) LikeStatus(postID, userID string) (bool, error) {
	if userID == "" {
		return false, nil
	}
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM likes WHERE post_id = ? AND user_id = ?`, postID, userID).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// Counts returns like and comment cardinalities for one post.
func (s *Store) Counts(postID string) (Counts, error) {
	var c Counts
	err := s.db.QueryRow(`SELECT
		(SELECT COUNT(*) FROM likes WHERE post_id = ?),
		(SELECT COUNT(*) FROM comments WHERE post_id = ?)`, postID, postID).Scan(&c.Likes, &c.Comments)
	return c, err
}

// CountsFor returns counts for a set of posts in one pass. Posts without
// likes or comments are present in the map with zero counts.
func (s *Store) CountsFor(postIDs []string) (map[string]Counts, error) {
	counts := make(map[string]Counts, len(postIDs))
	if len(postIDs) == 0 {
		return counts, nil
	}
	for _, id := range postIDs {
		counts[id] = Counts{}
	}

	placeholders := strings.TrimRight(strings.Repeat("?,", len(postIDs)), ",")
	args := make([]any, len(postIDs))
	for i, id := range postIDs {
		args[i] = id
	}

	rows, err := s.db.Query(`SELECT post_id, COUNT(*) FROM likes WHERE post_id IN (`+placeholders+`) GROUP BY post_id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		c := counts[id]
		c.Likes = n
		counts[id] = c
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = s.db.Query(`SELECT post_id, COUNT(*) FROM comments WHERE post_id IN (`+placeholders+`) GROUP BY post_id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		c := counts[id]
		c.Comments = n
		counts[id] = c
	}
	return counts, rows.Err()
}

// AddComment stores a comment by authorID on postID.
func (s *Store) AddComment(postID, authorID, body string) (Comment, error) {
	var exists int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM posts WHERE id = ?`, postID).Scan(&exists); err != nil {
		return Comment{}, err
	}
	if exists == 0 {
		return Comment{}, ErrPostNotFound
	}
	c := Comment{
		ID:        uuid.NewString(),
		PostID:    postID,
		AuthorID:  authorID,
		Body:      body,
		CreatedAt: time.Now().UTC(),
	}
	_, err := s.db.Exec(`INSERT INTO comments (id, post_id, author_id, body, created_at) VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.PostID, c.AuthorID, c.Body, c.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return Comment{}, err
	}
	return c, nil
}

// CommentsFor returns a post's comments with author summaries, oldest first.
func (s *Store) CommentsFor(postID string) ([]Comment, error) {
	rows, err := s.db.Query(`SELECT c.id, c.post_id, c.author_id, c.body, c.created_at, u.name, u.image
		FROM comments c JOIN users u ON u.id = c.author_id
		WHERE c.post_id = ? ORDER BY c.created_at ASC`, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var comments []Comment
	for rows.Next() {
		var c Comment
		var created string
		if err := rows.Scan(&c.ID, &c.PostID, &c.AuthorID, &c.Body, &created, &c.AuthorName, &c.AuthorImage); err != nil {
			return nil, err
		}
		if t, err := time.Parse(time.RFC3339, created); err == nil {
			c.CreatedAt = t
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(strings.ToUpper(err.Error()), "UNIQUE")
}
