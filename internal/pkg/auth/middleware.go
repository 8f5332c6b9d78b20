package auth

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/airenas/go-app/pkg/goapp"
)

const ownerIDKey = "owner_id"

// JWT creates echo middleware validating a HS256 bearer token
// the token subject becomes the owner id of the request
func JWT(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "No authorization header")
			}
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return echo.NewHTTPError(http.StatusUnauthorized, "Wrong authorization header")
			}

			claims := &jwt.RegisteredClaims{}
			token, err := jwt.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				goapp.Log.Warn().Err(err).Msg("token validation failed")
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token")
			}
			if claims.Subject == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token: no subject")
			}
			c.Set(ownerIDKey, claims.Subject)
			return next(c)
		}
	}
}

// OwnerID returns the authenticated owner id set by the JWT middleware
func OwnerID(c echo.Context) string {
	res, _ := c.Get(ownerIDKey).(string)
	return res
}
