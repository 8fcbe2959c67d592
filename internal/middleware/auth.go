package middleware

import (
	"errors"
	"net/http"

	"lyceum/internal/apperr"
	"lyceum/internal/identity"
	"lyceum/internal/models"
	"lyceum/internal/store"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

const (
	CallerKey     = "caller"
	SessionUserID = "user_id"
)

// LoadCaller resolves the caller once per request: the cookie session first, then a bearer
// token. Requests with neither proceed anonymously. A bearer token for a user not seen
// before creates the user record so their comments have an author.
func LoadCaller(users store.Users, verifier *identity.TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller := identity.Anonymous()

		session := sessions.Default(c)
		if id, ok := session.Get(SessionUserID).(string); ok {
			caller = identity.NewCaller(id)
		}

		if !caller.Authenticated() && verifier != nil {
			if token := identity.BearerToken(c.GetHeader("Authorization")); token != "" {
				claims, err := verifier.Verify(token)
				if err != nil {
					log.WithError(err).Debug("[auth] bearer token rejected")
				} else if err := ensureUser(c, users, claims); err != nil {
					log.WithError(err).Error("[auth] failed to register token user")
				} else {
					caller = identity.NewCaller(claims.Subject)
				}
			}
		}

		c.Set(CallerKey, caller)
		c.Next()
	}
}

func ensureUser(c *gin.Context, users store.Users, claims *identity.Claims) error {
	if users == nil {
		return nil
	}
	_, err := users.Get(c.Request.Context(), claims.Subject)
	if err == nil || !errors.Is(err, store.ErrNotFound) {
		return err
	}
	return users.Upsert(c.Request.Context(), UserFromClaims(claims))
}

// UserFromClaims maps identity provider claims onto a user record.
func UserFromClaims(claims *identity.Claims) *models.User {
	return &models.User{
		ID:    claims.Subject,
		Name:  claims.Name,
		Email: claims.Email,
		Image: claims.Picture,
	}
}

// CurrentCaller returns the caller set by LoadCaller, anonymous if it did not run.
func CurrentCaller(c *gin.Context) identity.Caller {
	if v, ok := c.Get(CallerKey); ok {
		if caller, ok := v.(identity.Caller); ok {
			return caller
		}
	}
	return identity.Anonymous()
}

// AuthRequired rejects anonymous callers with 401 before any input is read.
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !CurrentCaller(c).Authenticated() {
			err := apperr.Unauthorized()
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": apperr.Message(err),
				"kind":  apperr.KindOf(err).String(),
			})
			return
		}
		c.Next()
	}
}
