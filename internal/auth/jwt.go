package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

const (
	kindUser  = "user"
	kindAdmin = "admin"
)

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid or expired token")
)

// Claims carried by checkout bearer tokens
type Claims struct {
	Kind string `json:"kind"`
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Authenticator verifies HMAC-signed bearer tokens with an injected secret
type Authenticator struct {
	secret []byte
}

// NewAuthenticator panics on an empty secret; config loading rejects it first.
func NewAuthenticator(secret string) *Authenticator {
	if secret == "" {
		panic("auth: empty signing secret")
	}
	return &Authenticator{secret: []byte(secret)}
}

// Issue signs a token for caller that expires after ttl
func (a *Authenticator) Issue(caller Caller, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   caller.CallerID().String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	switch c := caller.(type) {
	case User:
		claims.Kind = kindUser
	case Admin:
		claims.Kind = kindAdmin
		claims.Role = c.Role
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// Parse verifies tokenStr and resolves it to a Caller
func (a *Authenticator) Parse(tokenStr string) (Caller, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenStr, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil || token == nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, ErrInvalidToken
	}

	switch claims.Kind {
	case kindUser:
		return User{ID: id}, nil
	case kindAdmin:
		return Admin{ID: id, Role: claims.Role}, nil
	default:
		return nil, ErrInvalidToken
	}
}

// Middleware rejects requests without a valid bearer token with 401
func (a *Authenticator) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr, err := bearerToken(c.GetHeader("Authorization"))
		if err == nil {
			var caller Caller
			if caller, err = a.Parse(tokenStr); err == nil {
				SetCaller(c, caller)
				c.Next()
				return
			}
		}

		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"message": err.Error(),
		})
	}
}

// RequireAdmin rejects non-admin callers with 403. It must run after Middleware.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := CallerFrom(c)
		if !ok || !IsAdmin(caller) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success": false,
				"message": "admin access required",
			})
			return
		}
		c.Next()
	}
}

func bearerToken(header string) (string, error) {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", ErrMissingToken
	}
	return strings.TrimSpace(token), nil
}
