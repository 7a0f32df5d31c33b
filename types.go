package techlog

import "time"

// Post is the core content type stored in SQLite. AuthorID is set at
// creation and never changes; Published flips to true only at creation
// time (there is no standalone publish or unpublish transition).
type Post struct {
	ID        string
	Title     string
	Body      string
	Category  string
	Published bool
	AuthorID  string
	CreatedAt time.Time

	Author AuthorSummary
}

// AuthorSummary is the joined author data attached to a loaded post.
type AuthorSummary struct {
	ID    string
	Name  string
	Image string
}

// Image holds metadata for an uploaded image file.
type Image struct {
	Filename     string
	OriginalName string
	Width        int
	Height       int
	Size         int
	UploadedAt   string
}
