package auth

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/vibast-solutions/ms-go-billing/app/factory"
)

const principalContextKey = "principal"

// RequireUser rejects requests without a valid bearer token and stores the
// resulting Principal on both the echo and the request context.
func RequireUser(verifier *TokenVerifier) echo.MiddlewareFunc {
	logger := factory.NewModuleLogger("auth")

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			}

			p, err := verifier.Verify(strings.TrimSpace(token))
			if err != nil {
				factory.LoggerWithContext(logger, c).WithError(err).Debug("bearer token rejected")
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			}

			c.Set(principalContextKey, p)
			c.SetRequest(c.Request().WithContext(WithPrincipal(c.Request().Context(), p)))
			return next(c)
		}
	}
}

func PrincipalFromEcho(c echo.Context) *Principal {
	p, _ := c.Get(principalContextKey).(*Principal)
	return p
}
