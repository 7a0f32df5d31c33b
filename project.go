package techlog

import (
	"time"

	"github.com/hwangharp/techlog/engage"
)

// PublicAuthor is the caller-facing author summary. The id is only present
// in detail projections so a client can adapt its UI to authorship; the
// server re-checks authorization regardless of what a client claims.
type PublicAuthor struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name"`
	Image string `json:"image,omitempty"`
}

// PublicCounts carries the like and comment cardinalities for a post.
type PublicCounts struct {
	Likes    int `json:"likes"`
	Comments int `json:"comments"`
}

// PublicPost is the projection of a post returned by the public API.
// It never includes fields that would reveal another author's draft state.
type PublicPost struct {
	ID        string       `json:"id"`
	Title     string       `json:"title"`
	Body      string       `json:"body"`
	Category  string       `json:"category,omitempty"`
	Author    PublicAuthor `json:"author"`
	CreatedAt time.Time    `json:"createdAt"`
	Counts    PublicCounts `json:"counts"`
}

const excerptLimit = 200

// ProjectForList strips a post down for the listing view: the body is
// truncated to an excerpt and the author id is withheld.
func ProjectForList(p Post, counts engage.Counts) PublicPost {
	return PublicPost{
		ID:        p.ID,
		Title:     p.Title,
		Body:      Excerpt(p.Body, excerptLimit),
		Category:  p.Category,
		Author:    PublicAuthor{Name: p.Author.Name, Image: p.Author.Image},
		CreatedAt: p.CreatedAt,
		Counts:    PublicCounts{Likes: counts.Likes, Comments: counts.Comments},
	}
}

// ProjectForDetail returns the full body and includes the author id.
func ProjectForDetail(p Post, counts engage.Counts) PublicPost {
	return PublicPost{
		ID:        p.ID,
		Title:     p.Title,
		Body:      p.Body,
		Category:  p.Category,
		Author:    PublicAuthor{ID: p.Author.ID, Name: p.Author.Name, Image: p.Author.Image},
		CreatedAt: p.CreatedAt,
		Counts:    PublicCounts{Likes: counts.Likes, Comments: counts.Comments},
	}
}
