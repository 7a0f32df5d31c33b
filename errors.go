package techlog

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Error kinds returned by the lifecycle and authorization operations.
// Callers match with errors.Is; the HTTP error handler maps each kind
// to a stable status code so clients never parse error strings.
var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("not found")
	ErrInvalidInput    = errors.New("invalid input")
	ErrConflict        = errors.New("conflict")
)

func httpStatus(err error) int {
	switch {
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// httpErrorHandler renders every error as a JSON body with a stable status.
// Storage and unexpected failures surface as 500 without detail.
func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	if he, ok := err.(*echo.HTTPError); ok {
		msg, isStr := he.Message.(string)
		if !isStr {
			msg = http.StatusText(he.Code)
		}
		_ = c.JSON(he.Code, map[string]string{"error": msg})
		return
	}
	code := httpStatus(err)
	if code >= 500 {
		c.Logger().Errorf("server error: %v", err)
		_ = c.JSON(code, map[string]string{"error": "internal server error"})
		return
	}
	_ = c.JSON(code, map[string]string{"error": err.Error()})
}
