package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ─── JWT auth ─────────────────────────────────────────────────────────────────

const claimsKey = "claims"

// Claims is the payload embedded in every JWT issued by /api/login.
// SessionID keys the caller's terminal state; each login starts a new one.
type Claims struct {
	Username  string `json:"username"`
	Superuser bool   `json:"superuser"`
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// GenerateJWT creates a signed HS256 JWT for a fresh session.
func (s *Server) GenerateJWT(username string, superuser bool) (string, error) {
	now := time.Now()
	claims := Claims{
		Username:  username,
		Superuser: superuser,
		SessionID: uuid.NewString(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "hostdash",
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.opts.TokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.opts.JWTSecret))
}

// parseJWT validates a token string and returns the claims.
func (s *Server) parseJWT(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(s.opts.JWTSecret), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.SessionID == "" {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

// JWTMiddleware validates the bearer token and stores the claims in the Gin context.
// It expects the header:  Authorization: Bearer <jwt>
// Browsers cannot set headers on a websocket handshake, so a ?token= query
// parameter is accepted as well.
func (s *Server) JWTMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader("Authorization")
		var tokenStr string
		switch {
		case raw != "":
			parts := strings.SplitN(raw, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
					"error": "invalid Authorization format, expected: Bearer <token>",
				})
				return
			}
			tokenStr = parts[1]
		case c.Query("token") != "":
			tokenStr = c.Query("token")
		default:
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "missing Authorization header",
			})
			return
		}

		claims, err := s.parseJWT(tokenStr)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "invalid or expired token",
			})
			return
		}

		c.Set(claimsKey, claims)
		c.Next()
	}
}

// SuperuserOnly rejects callers whose token lacks the superuser flag.
// Must run after JWTMiddleware.
func SuperuserOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if cl := claimsFrom(c); cl == nil || !cl.Superuser {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "superuser required",
			})
			return
		}
		c.Next()
	}
}

func claimsFrom(c *gin.Context) *Claims {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil
	}
	cl, _ := v.(*Claims)
	return cl
}

// CORS allows the UI to be served from a different origin during development.
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
