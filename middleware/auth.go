package middleware

import (
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/NomadCrew/oweather-bot/errors"
	"github.com/NomadCrew/oweather-bot/internal/settings"
	"github.com/NomadCrew/oweather-bot/logger"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrTokenMissing = errors.New("authorization token missing")
	ErrTokenInvalid = errors.New("invalid authorization token")
	ErrTokenExpired = errors.New("authorization token expired")
)

// Claims are the claims accepted on operator tokens. Role is an access level
// name: "all", "mod" or "admin".
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Validator checks a raw bearer token and returns its claims.
type Validator interface {
	Validate(tokenString string) (*Claims, error)
}

// JWTValidator validates HS256 tokens signed with a shared secret.
type JWTValidator struct {
	secret []byte
	leeway time.Duration
}

var _ Validator = (*JWTValidator)(nil)

func NewJWTValidator(secret string) (*JWTValidator, error) {
	if secret == "" {
		return nil, fmt.Errorf("JWT secret is empty")
	}
	return &JWTValidator{
		secret: []byte(secret),
		leeway: 30 * time.Second,
	}, nil
}

func (v *JWTValidator) Validate(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrTokenMissing
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(token *jwt.Token) (interface{}, error) {
			return v.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(v.leeway),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject claim", ErrTokenInvalid)
	}
	return claims, nil
}

// AuthMiddleware requires a valid bearer token and stores its subject and
// access level on the context.
func AuthMiddleware(validator Validator) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := logger.GetLogger()

		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			_ = c.Error(apperrors.Unauthorized("missing_token", "Authorization required"))
			c.Abort()
			return
		}

		claims, err := validator.Validate(token)
		if err != nil {
			log.Warnw("Rejected bearer token",
				"error", err,
				"token", logger.MaskJWT(token),
				"path", c.Request.URL.Path)

			if errors.Is(err, ErrTokenExpired) {
				_ = c.Error(apperrors.Unauthorized("token_expired", "Your session has expired"))
			} else {
				_ = c.Error(apperrors.Unauthorized("invalid_token", "Invalid authentication token"))
			}
			c.Abort()
			return
		}

		level := settings.AccessAll
		if claims.Role != "" {
			level, err = settings.ParseAccessLevel(claims.Role)
			if err != nil {
				_ = c.Error(apperrors.Forbidden("Unknown role", claims.Role))
				c.Abort()
				return
			}
		}

		c.Set(SubjectKey, claims.Subject)
		c.Set(AccessLevelKey, level)
		c.Next()
	}
}

// GetAccessLevel returns the access level stored by AuthMiddleware, or
// settings.AccessAll when the request was not authenticated.
func GetAccessLevel(c *gin.Context) settings.AccessLevel {
	if v, ok := c.Get(AccessLevelKey); ok {
		if level, ok := v.(settings.AccessLevel); ok {
			return level
		}
	}
	return settings.AccessAll
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
