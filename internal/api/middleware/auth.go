package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/syncroweb/launchpad/internal/core/domain"
	"github.com/syncroweb/launchpad/internal/core/ports"
)

// accessTokenParam carries the token for websocket upgrades, where browsers
// cannot set an Authorization header.
const accessTokenParam = "access_token"

// Auth validates the JWT and injects the subject as "user_id". Tokens are
// issued elsewhere; only their signature, expiry and subject matter here.
func Auth(jwtSecret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, err := bearerToken(c)
			if err != nil {
				return err
			}

			claims := jwt.MapClaims{}
			tkn, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
				if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
					return nil, jwt.ErrTokenSignatureInvalid
				}
				return []byte(jwtSecret), nil
			})
			if err != nil || !tkn.Valid {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			sub, err := claims.GetSubject()
			if err != nil || sub == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "token missing subject")
			}
			c.Set("user_id", sub)

			return next(c)
		}
	}
}

func bearerToken(c echo.Context) (string, error) {
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader == "" {
		if tok := c.QueryParam(accessTokenParam); tok != "" {
			return tok, nil
		}
		return "", echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
	}
	return parts[1], nil
}

// Identity resolves the authenticated user through the identity provider and
// injects "role" and "display_name". It must run after Auth. A user that no
// longer resolves has no access, whatever the token says.
func Identity(identity ports.IdentityProvider) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID, _ := c.Get("user_id").(string)
			if userID == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
			}

			user, err := identity.ResolveUser(c.Request().Context(), userID)
			switch {
			case errors.Is(err, domain.ErrNotFound):
				return echo.NewHTTPError(http.StatusUnauthorized, "user is not active")
			case errors.Is(err, domain.ErrInvalidRole):
				return echo.NewHTTPError(http.StatusForbidden, "user has no role")
			case err != nil:
				return err
			}

			c.Set("role", user.Role)
			c.Set("display_name", user.DisplayName)
			return next(c)
		}
	}
}
