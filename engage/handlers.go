package engage

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

// IdentityFunc resolves the viewer of a request. It reports false when the
// caller is anonymous. The host application injects it so the ledger never
// touches sessions or tokens itself.
type IdentityFunc func(echo.Context) (Viewer, bool)

// Handler handles engagement HTTP requests.
type Handler struct {
	store         *Store
	identity      IdentityFunc
	statusLimiter *rateLimiter
}

// NewHandler creates an engagement handler. The anonymous status endpoint
// is rate-limited to 120 requests per IP per minute.
func NewHandler(store *Store, identity IdentityFunc) *Handler {
	return &Handler{
		store:         store,
		identity:      identity,
		statusLimiter: newRateLimiter(120, time.Minute),
	}
}

// RegisterRoutes mounts the engagement endpoints on the given group.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/posts/:id/like", h.ToggleLike)
	g.GET("/posts/:id/like-status", h.LikeStatus)
	g.POST("/posts/:id/comments", h.AddComment)
	g.GET("/posts/:id/comments", h.ListComments)
}

// ToggleLike flips the caller's like on a post and returns the new state.
func (h *Handler) ToggleLike(c echo.Context) error {
	viewer, ok := h.identity(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthenticated"})
	}
	postID := c.Param("id")
	result, err := h.store.ToggleLike(postID, viewer.ID)
	if err == ErrConflict {
		// A concurrent toggle won the race; report the state as it stands.
		liked, serr := h.store.LikeStatus(postID, viewer.ID)
		if serr != nil {
			c.Logger().Errorf("like status after conflict: %v", serr)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		}
		counts, serr := h.store.Counts(postID)
		if serr != nil {
			c.Logger().Errorf("counts after conflict: %v", serr)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		}
		return c.JSON(http.StatusOK, ToggleResult{Liked: liked, Likes: counts.Likes})
	}
	if err == ErrPostNotFound {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "post not found"})
	}
	if err != nil {
		c.Logger().Errorf("toggle like: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
	return c.JSON(http.StatusOK, result)
}

// LikeStatus reports whether the caller has liked a post. Anonymous viewers
// get liked=false, never an error.
func (h *Handler) LikeStatus(c echo.Context) error {
	if !h.statusLimiter.allow(c.RealIP()) {
		return c.NoContent(http.StatusTooManyRequests)
	}
	var userID string
	if viewer, ok := h.identity(c); ok {
		userID = viewer.ID
	}
	liked, err := h.store.LikeStatus(c.Param("id"), userID)
	if err != nil {
		c.Logger().Errorf("like status: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
	return c.JSON(http.StatusOK, map[string]bool{"liked": liked})
}

// CommentRequest is the expected body for the comment endpoint.
type CommentRequest struct {
	Body string `json:"body"`
}

const maxCommentLen = 4000

// AddComment stores a comment by the authenticated caller.
func (h *Handler) AddComment(c echo.Context) error {
	viewer, ok := h.identity(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthenticated"})
	}
	var req CommentRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid body"})
	}
	body := strings.TrimSpace(req.Body)
	if body == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "comment body is required"})
	}
	if len(body) > maxCommentLen {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "comment too long"})
	}
	comment, err := h.store.AddComment(c.Param("id"), viewer.ID, body)
	if err == ErrPostNotFound {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "post not found"})
	}
	if err != nil {
		c.Logger().Errorf("add comment: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
	return c.JSON(http.StatusCreated, comment)
}

// ListComments returns a post's comments, oldest first.
func (h *Handler) ListComments(c echo.Context) error {
	comments, err := h.store.CommentsFor(c.Param("id"))
	if err != nil {
		c.Logger().Errorf("list comments: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
	if comments == nil {
		comments = []Comment{}
	}
	return c.JSON(http.StatusOK, comments)
}
