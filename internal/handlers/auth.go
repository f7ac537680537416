package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/anonto42/niche-communities/backend/internal/auth"
	"github.com/anonto42/niche-communities/backend/internal/middleware"
	"github.com/anonto42/niche-communities/backend/internal/models"
	"github.com/anonto42/niche-communities/backend/internal/repositories"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const tokenTTL = 72 * time.Hour

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	userRepository repositories.UserRepository
	provider       auth.Provider
	sessions       *auth.Sessions
	jwtSecret      string
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(userRepo repositories.UserRepository, provider auth.Provider, sessions *auth.Sessions, jwtSecret string) *AuthHandler {
	return &AuthHandler{
		userRepository: userRepo,
		provider:       provider,
		sessions:       sessions,
		jwtSecret:      jwtSecret,
	}
}

// RegisterAuthRoutes registers the public authentication routes
func (h *AuthHandler) RegisterAuthRoutes(g *echo.Group) {
	g.POST("/signup", h.Signup)
	g.POST("/signin", h.SignIn)
	g.POST("/firebase-login", h.FirebaseLogin, middleware.FirebaseAuthMiddleware(h.provider))
}

// RegisterSessionRoutes registers routes that need a signed-in caller
func (h *AuthHandler) RegisterSessionRoutes(g *echo.Group) {
	g.POST("/auth/signout", h.SignOut)
}

// Signup creates the provider account and its profile record
func (h *AuthHandler) Signup(c echo.Context) error {
	var req models.SignupRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	identity, err := h.provider.CreateAccount(ctx, req.Email, req.Password, req.DisplayName)
	if err != nil {
		return httpError(c, err)
	}
	user, err := h.ensureUser(ctx, identity)
	if err != nil {
		return httpError(c, err)
	}

	token, err := h.generateJWT(identity)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to generate token after signup")
	}
	return c.JSON(http.StatusCreated, echo.Map{"token": token, "user": user})
}

// SignIn authenticates with email and password
func (h *AuthHandler) SignIn(c echo.Context) error {
	var req models.SignInRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	identity, err := h.provider.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		return httpError(c, err)
	}
	user, err := h.ensureUser(ctx, identity)
	if err != nil {
		return httpError(c, err)
	}

	token, err := h.generateJWT(identity)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to generate token")
	}
	return c.JSON(http.StatusOK, echo.Map{"token": token, "user": user})
}

// FirebaseLogin exchanges a verified provider ID token for a local JWT
func (h *AuthHandler) FirebaseLogin(c echo.Context) error {
	identity, ok := c.Get("identity").(*auth.Identity)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired ID token")
	}

	user, err := h.ensureUser(c.Request().Context(), identity)
	if err != nil {
		return httpError(c, err)
	}

	token, err := h.generateJWT(identity)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to generate local JWT")
	}
	return c.JSON(http.StatusOK, echo.Map{"token": token, "user": user})
}

// SignOut ends the caller's sessions; open notification streams are closed
func (h *AuthHandler) SignOut(c echo.Context) error {
	userID := getUserIDFromContext(c)
	h.sessions.SignOut(userID, getSessionIDFromContext(c))
	if err := h.provider.SignOut(c.Request().Context(), userID); err != nil {
		return httpError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ensureUser returns the profile for identity, creating it on first sign-in
func (h *AuthHandler) ensureUser(ctx context.Context, identity *auth.Identity) (*models.User, error) {
	user, err := h.userRepository.GetUserByID(ctx, identity.UID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		return nil, err
	}

	user = &models.User{
		ID:          identity.UID,
		Email:       identity.Email,
		DisplayName: identity.DisplayName,
		PhotoURL:    identity.PhotoURL,
		Communities: []string{},
	}
	if err := h.userRepository.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// generateJWT issues a session token and announces the sign-in
func (h *AuthHandler) generateJWT(identity *auth.Identity) (string, error) {
	now := time.Now()
	claims := &models.JwtCustomClaims{
		UserID: identity.UID,
		Email:  identity.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	t, err := token.SignedString([]byte(h.jwtSecret))
	if err != nil {
		return "", err
	}
	h.sessions.SignIn(identity)
	return t, nil
}
