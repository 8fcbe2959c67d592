package handlers

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"

	"lyceum/internal/apperr"
	"lyceum/internal/middleware"
	"lyceum/internal/models"
	"lyceum/internal/store"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	oauthStateKey      = "oauth_state"
	googleUserInfoURL  = "https://www.googleapis.com/oauth2/v2/userinfo"
	defaultLoginReturn = "/"
)

// GoogleUserInfo Google 用户信息结构
type GoogleUserInfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// GoogleAuthHandler signs users in with Google and stores their id in the cookie session.
type GoogleAuthHandler struct {
	users       store.Users
	config      *oauth2.Config
	userInfoURL string
	returnTo    string
}

func NewGoogleAuthHandler(users store.Users, clientID, clientSecret, siteURL string) *GoogleAuthHandler {
	if siteURL == "" {
		siteURL = "http://localhost:8080"
	}
	return &GoogleAuthHandler{
		users: users,
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  siteURL + "/api/auth/google/callback",
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
			Endpoint: google.Endpoint,
		},
		userInfoURL: googleUserInfoURL,
		returnTo:    defaultLoginReturn,
	}
}

// generateStateToken 生成随机 state token
func generateStateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// Login GET /api/auth/google
func (h *GoogleAuthHandler) Login(c *gin.Context) {
	state, err := generateStateToken()
	if err != nil {
		respondError(c, apperr.Internal(err))
		return
	}
	session := sessions.Default(c)
	session.Set(oauthStateKey, state)
	if err := session.Save(); err != nil {
		respondError(c, apperr.Internal(err))
		return
	}
	c.Redirect(http.StatusTemporaryRedirect, h.config.AuthCodeURL(state))
}

// Callback GET /api/auth/google/callback
func (h *GoogleAuthHandler) Callback(c *gin.Context) {
	session := sessions.Default(c)
	saved, _ := session.Get(oauthStateKey).(string)
	session.Delete(oauthStateKey)
	if saved == "" || c.Query("state") != saved {
		_ = session.Save()
		respondError(c, apperr.BadRequest("Invalid OAuth state"))
		return
	}
	code := c.Query("code")
	if code == "" {
		_ = session.Save()
		respondError(c, apperr.BadRequest("Missing authorization code"))
		return
	}

	ctx := c.Request.Context()
	token, err := h.config.Exchange(ctx, code)
	if err != nil {
		log.WithError(err).Warn("[auth] google code exchange failed")
		respondError(c, apperr.Unauthorized())
		return
	}
	info, err := h.userInfo(c, token)
	if err != nil {
		respondError(c, apperr.Internal(err))
		return
	}
	if !info.VerifiedEmail {
		respondError(c, apperr.Forbidden())
		return
	}

	user := &models.User{ID: info.ID, Name: info.Name, Email: info.Email, Image: info.Picture}
	if err := h.users.Upsert(ctx, user); err != nil {
		respondError(c, apperr.Internal(err))
		return
	}
	session.Set(middleware.SessionUserID, user.ID)
	if err := session.Save(); err != nil {
		respondError(c, apperr.Internal(err))
		return
	}
	log.WithField("user", user.ID).Info("[auth] google sign-in")
	c.Redirect(http.StatusFound, h.returnTo)
}

// userInfo 获取 Google 用户信息
func (h *GoogleAuthHandler) userInfo(c *gin.Context, token *oauth2.Token) (*GoogleUserInfo, error) {
	resp, err := h.config.Client(c.Request.Context(), token).Get(h.userInfoURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("google userinfo: status %d", resp.StatusCode)
	}
	var info GoogleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, err
	}
	if info.ID == "" {
		return nil, fmt.Errorf("google userinfo: empty id")
	}
	return &info, nil
}
