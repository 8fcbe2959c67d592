package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"lyceum/internal/store/memdb"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"golang.org/x/oauth2"
)

func fakeGoogle(t *testing.T, verified bool) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"access_token": "at-1", "token_type": "Bearer"})
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer at-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(GoogleUserInfo{ID: "g-42", Email: "eve@uni.example", VerifiedEmail: verified, Name: "Eve"})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func googleEngine(h *GoogleAuthHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(sessions.Sessions("test", cookie.NewStore([]byte("secret"))))
	r.GET("/api/auth/google", h.Login)
	r.GET("/api/auth/google/callback", h.Callback)
	return r
}

func TestGoogleAuth_RoundTrip(t *testing.T) {
	srv := fakeGoogle(t, true)
	db := memdb.New()
	h := NewGoogleAuthHandler(db.Users(), "client", "secret", "http://lyceum.test")
	h.config.Endpoint = oauth2.Endpoint{AuthURL: srv.URL + "/auth", TokenURL: srv.URL + "/token"}
	h.userInfoURL = srv.URL + "/userinfo"
	r := googleEngine(h)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/auth/google", nil))
	if w.Code != http.StatusTemporaryRedirect {
		t.Fatalf("want redirect, got %d", w.Code)
	}
	loc, err := url.Parse(w.Header().Get("Location"))
	if err != nil {
		t.Fatal(err)
	}
	state := loc.Query().Get("state")
	if state == "" {
		t.Fatal("want state in auth url")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/auth/google/callback?code=c-1&state="+url.QueryEscape(state), nil)
	for _, c := range w.Result().Cookies() {
		req.AddCookie(c)
	}
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusFound {
		t.Fatalf("want redirect after sign-in, got %d: %s", w.Code, w.Body.String())
	}
	u, err := db.Users().Get(context.Background(), "g-42")
	if err != nil {
		t.Fatalf("want google user stored: %v", err)
	}
	if u.Email != "eve@uni.example" || u.Profile == nil {
		t.Errorf("unexpected user %+v", u)
	}
}

func TestGoogleAuth_StateMismatch(t *testing.T) {
	db := memdb.New()
	r := googleEngine(NewGoogleAuthHandler(db.Users(), "client", "secret", ""))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/auth/google/callback?code=x&state=forged", nil))

	if w.Code != http.StatusBadRequest {
		t.Errorf("want 400 for forged state, got %d", w.Code)
	}
}
