package webserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/votesnap/votesnap/src/api/polls"
	"gorm.io/gorm"
)

const tokenTTL = 7 * 24 * time.Hour

func issueJWT(userID string, secret []byte) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": userID,
		"exp": time.Now().Add(tokenTTL).Unix(),
	})
	return token.SignedString(secret)
}

func parseSubject(tokenStr string, secret []byte) (string, bool) {
	tok, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) { return secret, nil })
	if err != nil || !tok.Valid {
		return "", false
	}
	sub, ok := tok.Claims.(jwt.MapClaims)["sub"].(string)
	return sub, ok && sub != ""
}

// JWTMiddleware requires a valid bearer token and records the caller's
// identity. Only identity comes from the token; roles are re-read from
// the credential store per privileged request.
func JWTMiddleware(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		if !strings.HasPrefix(h, "Bearer ") {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		sub, ok := parseSubject(h[7:], secret)
		if !ok {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		c.Set("userID", sub)
		c.Next()
	}
}

// OptionalJWT records the caller when a valid token is present and lets
// anonymous requests through untouched.
func OptionalJWT(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		if strings.HasPrefix(h, "Bearer ") {
			if sub, ok := parseSubject(h[7:], secret); ok {
				c.Set("userID", sub)
			}
		}
		c.Next()
	}
}

// AdminMiddleware gates admin-only routes on the stored user role.
func AdminMiddleware(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !polls.IsAdmin(c, db, c.GetString("userID")) {
			c.JSON(http.StatusForbidden, gin.H{"err": "admin access required"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// callerFrom resolves the request identity into a domain caller,
// consulting the stored role rather than any token claim.
func callerFrom(c *gin.Context, db *gorm.DB) polls.Caller {
	id := c.GetString("userID")
	if id == "" {
		return polls.Caller{}
	}
	return polls.Caller{ID: id, Admin: polls.IsAdmin(c, db, id)}
}
