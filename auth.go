package techlog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// Profile is the resolved user record an identity provider hands back for a
// valid credential. The sign-in handshake itself happens out-of-band; this
// core only consumes its result.
type Profile struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Image string `json:"image"`
}

// ProfileVerifier turns a provider credential into a resolved profile.
// Implementations are injected into New; tests use a static verifier.
type ProfileVerifier interface {
	Verify(ctx context.Context, credential string) (Profile, error)
}

// HTTPProfileVerifier resolves credentials against a provider userinfo
// endpoint: the credential is forwarded as a bearer token and the response
// body is decoded as a profile.
type HTTPProfileVerifier struct {
	URL    string
	Client *http.Client
}

func (v *HTTPProfileVerifier) Verify(ctx context.Context, credential string) (Profile, error) {
	client := v.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.URL, nil)
	if err != nil {
		return Profile{}, err
	}
	req.Header.Set("Authorization", "Bearer "+credential)
	resp, err := client.Do(req)
	if err != nil {
		return Profile{}, fmt.Errorf("verify credential: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Profile{}, fmt.Errorf("provider rejected credential: status %d", resp.StatusCode)
	}
	var body struct {
		ID      string `json:"id"`
		Sub     string `json:"sub"`
		Name    string `json:"name"`
		Email   string `json:"email"`
		Image   string `json:"image"`
		Picture string `json:"picture"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Profile{}, fmt.Errorf("decode profile: %w", err)
	}
	p := Profile{ID: body.ID, Name: body.Name, Email: body.Email, Image: body.Image}
	if p.ID == "" {
		p.ID = body.Sub
	}
	if p.Image == "" {
		p.Image = body.Picture
	}
	if p.ID == "" && p.Email == "" {
		return Profile{}, fmt.Errorf("provider profile carries no id or email")
	}
	return p, nil
}

type signInRequest struct {
	Credential string `json:"credential"`
}

// handleSignIn exchanges a provider credential for a session. The first
// successful sign-in creates the user with role USER.
func (a *App) handleSignIn(c echo.Context) error {
	if !a.signinLimiter.Check(c.RealIP()) {
		return c.JSON(http.StatusTooManyRequests, map[string]string{"error": "too many sign-in attempts, try again later"})
	}
	var req signInRequest
	if err := c.Bind(&req); err != nil {
		return fmt.Errorf("%w: invalid body", ErrInvalidInput)
	}
	if strings.TrimSpace(req.Credential) == "" {
		return fmt.Errorf("%w: credential is required", ErrInvalidInput)
	}
	profile, err := a.verifier.Verify(c.Request().Context(), req.Credential)
	if err != nil {
		a.signinLimiter.Record(c.RealIP())
		c.Logger().Infof("sign-in rejected: %v", err)
		return fmt.Errorf("%w: credential rejected", ErrUnauthenticated)
	}
	ident, err := a.Store.UpsertUser(profile)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	if err := setUserSession(c, ident); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"user": ident})
}

func (a *App) handleSignOut(c echo.Context) error {
	if err := clearUserSession(c); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// handleToken mints a bearer token for an authenticated session so API
// clients can call without cookies. The token carries the same profile
// fields the session does; the role is still looked up per request.
func (a *App) handleToken(c echo.Context) error {
	ident, err := RequireAuthenticated(a.CurrentIdentity(c))
	if err != nil {
		return err
	}
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   ident.ID,
		"name":  ident.Name,
		"email": ident.Email,
		"image": ident.Image,
		"iat":   now.Unix(),
		"exp":   now.Add(24 * time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(a.Config.TokenSecret))
	if err != nil {
		return fmt.Errorf("sign token: %w", err)
	}
	return c.JSON(http.StatusOK, map[string]string{"token": signed})
}

// handleMe returns the caller's resolved identity.
func (a *App) handleMe(c echo.Context) error {
	ident, err := RequireAuthenticated(a.CurrentIdentity(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"user": ident})
}
