package techlog

import (
	"database/sql"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
)

// Role is the coarse authorization tier attached to an identity.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// Identity is a resolved, authenticated user with its role.
type Identity struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Image string `json:"image,omitempty"`
	Role  Role   `json:"role"`
}

// CurrentIdentity resolves the caller of the request, or nil when no valid
// credential is present. A bearer token takes precedence over the session
// cookie. The lookup is side-effect-free.
func (a *App) CurrentIdentity(c echo.Context) *Identity {
	if ident := a.identityFromBearer(c); ident != nil {
		return ident
	}
	return a.identityFromSession(c)
}

func (a *App) identityFromSession(c echo.Context) *Identity {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return nil
	}
	id, ok := sess.Values["user_id"].(string)
	if !ok || id == "" {
		return nil
	}
	ident := Identity{ID: id}
	ident.Name, _ = sess.Values["name"].(string)
	ident.Email, _ = sess.Values["email"].(string)
	ident.Image, _ = sess.Values["image"].(string)
	a.attachRole(c, &ident)
	return &ident
}

func (a *App) identityFromBearer(c echo.Context) *Identity {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if !strings.HasPrefix(header, "Bearer ") {
		return nil
	}
	raw := strings.TrimSpace(header[len("Bearer "):])
	if raw == "" {
		return nil
	}
	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		return []byte(a.Config.TokenSecret), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !token.Valid {
		return nil
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil
	}
	ident := Identity{ID: sub}
	ident.Name, _ = claims["name"].(string)
	ident.Email, _ = claims["email"].(string)
	ident.Image, _ = claims["image"].(string)
	a.attachRole(c, &ident)
	return &ident
}

// attachRole fills in the role from the backing store. A credential whose
// user row is missing keeps its identity but falls back to USER: role
// metadata fails open, identity existence fails closed at the credential
// check above.
func (a *App) attachRole(c echo.Context, ident *Identity) {
	role, err := a.Store.GetUserRole(ident.ID)
	if err != nil {
		if err != sql.ErrNoRows {
			c.Logger().Warnf("role lookup for %s: %v", ident.ID, err)
		}
		ident.Role = RoleUser
		return
	}
	ident.Role = role
}
