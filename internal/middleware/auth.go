package middleware

import (
	"bookstore-payments/internal/apperr"
	"bookstore-payments/internal/model"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

const identityKey = "identity"

type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

// Auth resolves the bearer token, if any, into a model.Identity. Requests
// without a token pass through as anonymous; a bad token is rejected.
func Auth(secret []byte, issuer string) echo.MiddlewareFunc {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if header == "" {
				return next(c)
			}

			raw, ok := strings.CutPrefix(header, "Bearer ")
			if !ok {
				return errors.Join(apperr.ErrUnauthenticated, errors.New("expected bearer token"))
			}

			var claims Claims
			_, err := parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (interface{}, error) {
				return secret, nil
			})
			if err != nil {
				return errors.Join(apperr.ErrUnauthenticated, err)
			}

			role, err := model.ParseRole(claims.Role)
			if err != nil || claims.Subject == "" {
				return errors.Join(apperr.ErrUnauthenticated, errors.New("token carries no valid subject or role"))
			}

			c.Set(identityKey, &model.Identity{
				UserID: claims.Subject,
				Email:  claims.Email,
				Name:   claims.Name,
				Role:   role,
			})
			return next(c)
		}
	}
}

func RequireAuth() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if IdentityFrom(c) == nil {
				return apperr.ErrUnauthenticated
			}
			return next(c)
		}
	}
}

func RequireStaff() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			identity := IdentityFrom(c)
			if identity == nil {
				return apperr.ErrUnauthenticated
			}
			if !identity.Role.CanReviewPayments() {
				return apperr.ErrForbidden
			}
			return next(c)
		}
	}
}

// IdentityFrom returns nil for anonymous requests.
func IdentityFrom(c echo.Context) *model.Identity {
	identity, _ := c.Get(identityKey).(*model.Identity)
	return identity
}

func WithIdentity(c echo.Context, identity *model.Identity) {
	c.Set(identityKey, identity)
}

func IssueToken(secret []byte, issuer string, identity model.Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.UserID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Email: identity.Email,
		Name:  identity.Name,
		Role:  string(identity.Role),
	})
	return token.SignedString(secret)
}
