package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/auntor69/ewu-hub-3.0/internal/auth"
	"github.com/auntor69/ewu-hub-3.0/internal/calendar"
	"github.com/auntor69/ewu-hub-3.0/internal/logging"
)

const actorKey = "actor"

// JWTAuth resolves the bearer token into the stored account. The role comes
// from the account, not from the token.
func JWTAuth(tokens *auth.Tokens, accounts calendar.AccountStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		if !strings.HasPrefix(h, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		claims, err := tokens.ParseValidate(strings.TrimPrefix(h, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		id, err := claims.UserID()
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		actor, err := calendar.ValidateActor(c.Request.Context(), accounts, id)
		switch {
		case err == nil:
		case errors.Is(err, calendar.ErrUserNotFound), errors.Is(err, calendar.ErrInvalidUserID):
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		case errors.Is(err, calendar.ErrUserInactive):
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": err.Error()})
			return
		default:
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "resolve actor"})
			return
		}
		c.Set(actorKey, actor)
		c.Next()
	}
}

func RequireRole(roles ...calendar.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !actorOf(c).Is(roles...) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}

func actorOf(c *gin.Context) calendar.Actor {
	v, _ := c.Get(actorKey)
	a, _ := v.(calendar.Actor)
	return a
}

// RequestLog logs one line per request.
func RequestLog(log zerolog.Logger) gin.HandlerFunc {
	log = logging.For(log, "http")
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()

		status := c.Writer.Status()
		ev := log.Info()
		if status >= http.StatusInternalServerError {
			ev = log.Error()
		}
		ev.Str(logging.Method, c.Request.Method).
			Str("path", c.FullPath()).
			Int(logging.Status, status).
			Dur(logging.Duration, time.Since(started)).
			Msg("request")
	}
}
