package techlog

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hwangharp/techlog/engage"
)

func (a *App) handleListPosts(c echo.Context) error {
	posts, err := a.PublishedPosts(c.QueryParam("category"))
	if err != nil {
		return err
	}
	ids := make([]string, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}
	counts, err := a.Engage.CountsFor(ids)
	if err != nil {
		return err
	}
	projected := make([]PublicPost, 0, len(posts))
	for _, p := range posts {
		projected = append(projected, ProjectForList(p, counts[p.ID]))
	}
	return c.JSON(http.StatusOK, projected)
}

func (a *App) handleGetPost(c echo.Context) error {
	post, err := a.PublishedPost(c.Param("id"))
	if err != nil {
		return err
	}
	counts, err := a.Engage.Counts(post.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ProjectForDetail(post, counts))
}

func (a *App) handleCreatePost(c echo.Context) error {
	var in PostInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	post, err := a.CreatePost(a.CurrentIdentity(c), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, ProjectForDetail(post, engage.Counts{}))
}

func (a *App) handleUpdatePost(c echo.Context) error {
	var in PostUpdate
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	post, err := a.UpdatePost(a.CurrentIdentity(c), c.Param("id"), in)
	if err != nil {
		return err
	}
	counts, err := a.Engage.Counts(post.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ProjectForDetail(post, counts))
}

func (a *App) handleDeletePost(c echo.Context) error {
	if err := a.DeletePost(a.CurrentIdentity(c), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// adminPostView extends the detail projection with the draft state, which
// only the admin listing may reveal.
type adminPostView struct {
	PublicPost
	Published bool `json:"published"`
}

// handleAdminPosts lists every post including drafts. This is the only
// read path that can see unpublished posts.
func (a *App) handleAdminPosts(c echo.Context) error {
	posts, err := a.AllPosts(a.CurrentIdentity(c))
	if err != nil {
		return err
	}
	ids := make([]string, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}
	counts, err := a.Engage.CountsFor(ids)
	if err != nil {
		return err
	}
	projected := make([]adminPostView, 0, len(posts))
	for _, p := range posts {
		projected = append(projected, adminPostView{
			PublicPost: ProjectForDetail(p, counts[p.ID]),
			Published:  p.Published,
		})
	}
	return c.JSON(http.StatusOK, projected)
}
