package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"issue-service/internal/model"
	"issue-service/internal/ratelimit"
	"issue-service/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const identityKey = "identity"

// Authenticator turns bearer tokens issued by the auth service into an
// Identity on the request context.
type Authenticator struct {
	secret []byte
	log    zerolog.Logger
}

func NewAuthenticator(log zerolog.Logger, secret string) *Authenticator {
	return &Authenticator{
		secret: []byte(secret),
		log:    log.With().Str("component", "auth").Logger(),
	}
}

// Identify attaches the caller's identity. Requests without a token pass
// through as unauthenticated; a bad token is rejected.
func (a *Authenticator) Identify() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := model.Identity{Role: model.RoleCitizen, IP: c.ClientIP()}

		header := c.GetHeader("Authorization")
		if header != "" {
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok {
				a.reject(c, "malformed authorization header")
				return
			}
			claims, err := a.parse(token)
			if err != nil {
				a.log.Debug().Err(err).Str("ip", id.IP).Msg("rejected token")
				a.reject(c, "invalid token")
				return
			}
			applyClaims(&id, claims)
		}

		c.Set(identityKey, id)
		c.Next()
	}
}

func (a *Authenticator) reject(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg, "code": service.CodeUnauthorized})
}

func (a *Authenticator) parse(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return a.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid claims")
	}
	return claims, nil
}

func applyClaims(id *model.Identity, claims jwt.MapClaims) {
	if raw, ok := claims["user_id"].(string); ok {
		if uid, err := uuid.Parse(raw); err == nil {
			id.UserID = &uid
		}
	}
	if role, ok := claims["role"].(string); ok {
		switch model.Role(role) {
		case model.RoleOfficial, model.RoleAdmin:
			id.Role = model.Role(role)
		}
	}
	if name, ok := claims["name"].(string); ok {
		id.Name = strings.TrimSpace(name)
	}
	if anon, ok := claims["is_anonymous"].(bool); ok {
		id.Anonymous = anon
	}
	if raw, ok := claims["official_id"].(string); ok {
		if oid, err := uuid.Parse(raw); err == nil {
			id.OfficialID = &oid
		}
	}
}

// RequireAuth rejects callers without a signed-in or anonymous session.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !identity(c).Authenticated() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required", "code": service.CodeUnauthorized})
			return
		}
		c.Next()
	}
}

func identity(c *gin.Context) model.Identity {
	if v, ok := c.Get(identityKey); ok {
		if id, ok := v.(model.Identity); ok {
			return id
		}
	}
	return model.Identity{Role: model.RoleCitizen, IP: c.ClientIP()}
}

// RateLimit caps actions per voter key. Redis trouble lets the request
// through.
func RateLimit(log zerolog.Logger, limiter *ratelimit.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Enabled() {
			c.Next()
			return
		}
		key := identity(c).VoterKey()
		ok, retryAfter, err := limiter.Allow(c.Request.Context(), key)
		if err != nil {
			log.Warn().Err(err).Str("key", key).Msg("rate limiter unavailable")
			c.Next()
			return
		}
		if !ok {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate limit exceeded",
				"code":        service.CodeRateLimited,
				"retry_after": retryAfter.Seconds(),
			})
			return
		}
		c.Next()
	}
}

func RequestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		ev := log.Info()
		if status >= http.StatusInternalServerError {
			ev = log.Error()
		}
		ev.Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("ip", c.ClientIP()).
			Msg("request")
	}
}

func Recovery(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Error().Interface("panic", rec).Str("path", c.Request.URL.Path).Msg("panic")
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			}
		}()
		c.Next()
	}
}
