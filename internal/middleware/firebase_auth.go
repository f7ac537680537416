package middleware

import (
	"net/http"

	"github.com/anonto42/niche-communities/backend/internal/auth"
	"github.com/labstack/echo/v4"
)

// FirebaseAuthMiddleware verifies a provider ID token and stores the identity in the context
func FirebaseAuthMiddleware(provider auth.Provider) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			idToken, err := bearerToken(c)
			if err != nil {
				return err
			}

			identity, err := provider.VerifyIDToken(c.Request().Context(), idToken)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired ID token")
			}

			c.Set("firebaseUID", identity.UID)
			c.Set("identity", identity)

			return next(c)
		}
	}
}
