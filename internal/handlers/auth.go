package handlers

import (
	"errors"
	"net/http"

	"lyceum/internal/apperr"
	"lyceum/internal/identity"
	"lyceum/internal/middleware"
	"lyceum/internal/models"
	"lyceum/internal/store"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// AuthHandler exchanges identity provider tokens for a cookie session.
type AuthHandler struct {
	users    store.Users
	verifier *identity.TokenVerifier
}

func NewAuthHandler(users store.Users, verifier *identity.TokenVerifier) *AuthHandler {
	return &AuthHandler{users: users, verifier: verifier}
}

type meResponse struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Email       string      `json:"email"`
	Image       string      `json:"image"`
	DisplayName string      `json:"displayName"`
	Role        models.Role `json:"role"`
}

func toMe(u *models.User) meResponse {
	me := meResponse{ID: u.ID, Name: u.Name, Email: u.Email, Image: u.Image, DisplayName: u.Name, Role: models.RoleUser}
	if u.Profile != nil {
		if u.Profile.DisplayName != "" {
			me.DisplayName = u.Profile.DisplayName
		}
		me.Role = u.Profile.Role
	}
	return me
}

// Login POST /api/auth/session with Authorization: Bearer <token>
func (h *AuthHandler) Login(c *gin.Context) {
	token := identity.BearerToken(c.GetHeader("Authorization"))
	if token == "" {
		respondError(c, apperr.Unauthorized())
		return
	}
	claims, err := h.verifier.Verify(token)
	if err != nil {
		log.WithError(err).Info("[auth] rejected session exchange")
		respondError(c, apperr.Unauthorized())
		return
	}

	user := middleware.UserFromClaims(claims)
	if err := h.users.Upsert(c.Request.Context(), user); err != nil {
		respondError(c, apperr.Internal(err))
		return
	}

	session := sessions.Default(c)
	session.Set(middleware.SessionUserID, user.ID)
	if err := session.Save(); err != nil {
		respondError(c, apperr.Internal(err))
		return
	}
	log.WithField("user", user.ID).Info("[auth] session started")
	ok(c, http.StatusOK, toMe(user))
}

// Logout DELETE /api/auth/session
func (h *AuthHandler) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	session.Options(sessions.Options{Path: "/", MaxAge: -1})
	if err := session.Save(); err != nil {
		respondError(c, apperr.Internal(err))
		return
	}
	ok(c, http.StatusOK, gin.H{"ok": true})
}

// Me GET /api/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	caller := middleware.CurrentCaller(c)
	u, err := h.users.Get(c.Request.Context(), caller.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// session outlived the user record
			respondError(c, apperr.Unauthorized())
			return
		}
		respondError(c, apperr.Internal(err))
		return
	}
	ok(c, http.StatusOK, toMe(u))
}
