// Package engage owns the engagement ledger for blog posts: likes with
// one-per-user toggle semantics and comments. Aggregate counts are always
// computed from the current row set, never maintained as counters.
package engage

import "time"

// Counts holds the like and comment cardinalities for one post.
type Counts struct {
	Likes    int `json:"likes"`
	Comments int `json:"comments"`
}

// ToggleResult reports the state after a like toggle.
type ToggleResult struct {
	Liked bool `json:"liked"`
	Likes int  `json:"likes"`
}

// Comment belongs to exactly one post and one author.
type Comment struct {
	ID        string    `json:"id"`
	PostID    string    `json:"postId"`
	AuthorID  string    `json:"authorId"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"createdAt"`

	AuthorName  string `json:"authorName"`
	AuthorImage string `json:"authorImage,omitempty"`
}

// Viewer is the minimal identity the ledger needs: a resolved user id.
// The host application supplies it through an IdentityFunc so this package
// stays independent of the session layer.
type Viewer struct {
	ID string
}
