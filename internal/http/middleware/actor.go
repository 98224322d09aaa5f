package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"
	"go.uber.org/zap"
)

const actorKey = "actor_id"

// ActorClaims identifies the caller; Subject is the user id.
type ActorClaims struct {
	jwt.StandardClaims
}

// Actor resolves the caller's id. With a secret, an HS256 bearer token
// (Authorization header or access_token query) is required to carry one.
// Without a secret the X-User-ID header or user_id query is trusted, which
// is meant for local development only.
func Actor(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			if id := c.GetHeader("X-User-ID"); id != "" {
				c.Set(actorKey, id)
			} else if id := c.Query("user_id"); id != "" {
				c.Set(actorKey, id)
			}
			c.Next()
			return
		}

		tok := bearerToken(c)
		if tok == "" {
			c.Next()
			return
		}
		sub, err := ParseToken(secret, tok)
		if err != nil {
			zap.L().Debug("auth.invalid_token", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set(actorKey, sub)
		c.Next()
	}
}

// RequireActor rejects requests that Actor could not identify.
func RequireActor() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := ActorID(c); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		c.Next()
	}
}

func ActorID(c *gin.Context) (string, bool) {
	id := c.GetString(actorKey)
	return id, id != ""
}

func ParseToken(secret, tok string) (string, error) {
	claims := &ActorClaims{}
	t, err := jwt.ParseWithClaims(tok, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return "", err
	}
	if !t.Valid || claims.Subject == "" {
		return "", fmt.Errorf("token has no subject")
	}
	return claims.Subject, nil
}

// IssueToken signs a token for userID. Used by tests and local tooling.
func IssueToken(secret, userID string, expiresAt int64) (string, error) {
	claims := &ActorClaims{StandardClaims: jwt.StandardClaims{Subject: userID, ExpiresAt: expiresAt}}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func bearerToken(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return c.Query("access_token")
}
