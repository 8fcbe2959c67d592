package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"lyceum/internal/identity"
	"lyceum/internal/models"
	"lyceum/internal/services"
	"lyceum/internal/store/memdb"
	"lyceum/internal/utils"

	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
)

type testServer struct {
	engine   *gin.Engine
	db       *memdb.DB
	verifier *identity.TokenVerifier
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := memdb.New()
	deps := services.Deps{
		Comments: db.Comments(),
		Votes:    db.Votes(),
		Users:    db.Users(),
		Posts:    db.Posts(),
	}
	cache, err := utils.NewCache[[]models.Post](8, time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	deps.Listings = cache
	verifier := identity.NewTokenVerifier("test-jwt-secret")
	engine := New(cookie.NewStore([]byte("test-session-secret")), Services{
		Comments: services.NewCommentService(deps),
		Votes:    services.NewVoteService(deps),
		Posts:    services.NewPostService(deps),
		Users:    db.Users(),
		Verifier: verifier,
	})
	return &testServer{engine: engine, db: db, verifier: verifier}
}

func (s *testServer) token(t *testing.T, userID string) string {
	t.Helper()
	tok, err := s.verifier.Issue(userID, identity.Claims{Name: userID, Email: userID + "@uni.example"}, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	return tok
}

func (s *testServer) post(t *testing.T, id, authorID string) {
	t.Helper()
	if err := s.db.Users().Upsert(context.Background(), &models.User{ID: authorID, Name: authorID}); err != nil {
		t.Fatal(err)
	}
	if err := s.db.Posts().Create(context.Background(), &models.Post{ID: id, AuthorID: authorID, Title: "t", Category: "news"}); err != nil {
		t.Fatal(err)
	}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}, token string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
}

func wantStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("want status %d, got %d: %s", want, w.Code, w.Body.String())
	}
}

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

type node struct {
	ID        string  `json:"id"`
	ParentID  *string `json:"parentId"`
	Content   string  `json:"content"`
	IsDeleted bool    `json:"isDeleted"`
	Author    struct {
		ID          string `json:"id"`
		DisplayName string `json:"displayName"`
		Role        string `json:"role"`
	} `json:"author"`
	Replies []node `json:"replies"`
}

func TestCommentThreadOverHTTP(t *testing.T) {
	s := newTestServer(t)
	s.post(t, "P1", "prof")
	alice := s.token(t, "alice")

	w := s.do(t, http.MethodGet, "/api/comments?postId=P1", nil, "")
	wantStatus(t, w, http.StatusOK)
	if got := w.Body.String(); got != "[]" {
		t.Fatalf("want empty forest [], got %s", got)
	}

	var c1, c2, c3 node
	w = s.do(t, http.MethodPost, "/api/comments", map[string]interface{}{"postId": "P1", "content": "root"}, alice)
	wantStatus(t, w, http.StatusCreated)
	decode(t, w, &c1)
	if c1.Author.ID != "alice" || c1.Author.Role != "USER" {
		t.Errorf("want author projection for alice, got %+v", c1.Author)
	}

	// replies are created a moment apart so creation order is createdAt order
	time.Sleep(2 * time.Millisecond)
	w = s.do(t, http.MethodPost, "/api/comments", map[string]interface{}{"postId": "P1", "parentId": c1.ID, "content": "r1"}, alice)
	wantStatus(t, w, http.StatusCreated)
	decode(t, w, &c2)
	time.Sleep(2 * time.Millisecond)
	w = s.do(t, http.MethodPost, "/api/comments", map[string]interface{}{"postId": "P1", "parentId": c1.ID, "content": "r2"}, alice)
	wantStatus(t, w, http.StatusCreated)
	decode(t, w, &c3)

	var forest []node
	w = s.do(t, http.MethodGet, "/api/comments?postId=P1", nil, "")
	wantStatus(t, w, http.StatusOK)
	decode(t, w, &forest)
	if len(forest) != 1 || forest[0].ID != c1.ID {
		t.Fatalf("want single root %s, got %+v", c1.ID, forest)
	}
	if r := forest[0].Replies; len(r) != 2 || r[0].ID != c2.ID || r[1].ID != c3.ID {
		t.Errorf("want replies [%s %s], got %+v", c2.ID, c3.ID, r)
	}
}

func TestCommentErrorsOverHTTP(t *testing.T) {
	s := newTestServer(t)
	s.post(t, "P1", "prof")
	alice := s.token(t, "alice")
	bob := s.token(t, "bob")

	var created node
	w := s.do(t, http.MethodPost, "/api/comments", map[string]interface{}{"postId": "P1", "content": "mine"}, alice)
	wantStatus(t, w, http.StatusCreated)
	decode(t, w, &created)

	tests := []struct {
		name       string
		method     string
		path       string
		body       interface{}
		token      string
		wantStatus int
		wantKind   string
	}{
		{"list without post id", http.MethodGet, "/api/comments", nil, "", http.StatusBadRequest, "BAD_REQUEST"},
		{"create anonymous", http.MethodPost, "/api/comments", map[string]string{"postId": "P1", "content": "x"}, "", http.StatusUnauthorized, "UNAUTHORIZED"},
		{"create anonymous with bad body", http.MethodPost, "/api/comments", "{", "", http.StatusUnauthorized, "UNAUTHORIZED"},
		{"create malformed body", http.MethodPost, "/api/comments", "{", alice, http.StatusBadRequest, "BAD_REQUEST"},
		{"create missing content", http.MethodPost, "/api/comments", map[string]string{"postId": "P1"}, alice, http.StatusBadRequest, "BAD_REQUEST"},
		{"create unknown parent", http.MethodPost, "/api/comments", map[string]string{"postId": "P1", "parentId": "nope", "content": "x"}, alice, http.StatusNotFound, "NOT_FOUND"},
		{"get unknown", http.MethodGet, "/api/comments/nope", nil, "", http.StatusNotFound, "NOT_FOUND"},
		{"update by other user", http.MethodPut, "/api/comments/" + created.ID, map[string]string{"content": "hijack"}, bob, http.StatusForbidden, "FORBIDDEN"},
		{"update blank", http.MethodPut, "/api/comments/" + created.ID, map[string]string{"content": "  "}, alice, http.StatusBadRequest, "BAD_REQUEST"},
		{"update empty by owner", http.MethodPut, "/api/comments/" + created.ID, map[string]string{"content": ""}, alice, http.StatusBadRequest, "BAD_REQUEST"},
		{"update empty on unknown comment", http.MethodPut, "/api/comments/nope", map[string]string{"content": ""}, bob, http.StatusNotFound, "NOT_FOUND"},
		{"update empty by other user", http.MethodPut, "/api/comments/" + created.ID, map[string]string{"content": ""}, bob, http.StatusForbidden, "FORBIDDEN"},
		{"update without content by other user", http.MethodPut, "/api/comments/" + created.ID, map[string]string{}, bob, http.StatusForbidden, "FORBIDDEN"},
		{"update too long", http.MethodPut, "/api/comments/" + created.ID, map[string]string{"content": strings.Repeat("a", 20001)}, alice, http.StatusBadRequest, "BAD_REQUEST"},
		{"delete by other user", http.MethodDelete, "/api/comments/" + created.ID, nil, bob, http.StatusForbidden, "FORBIDDEN"},
		{"invalid token is anonymous", http.MethodDelete, "/api/comments/" + created.ID, nil, "not-a-jwt", http.StatusUnauthorized, "UNAUTHORIZED"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, tt.method, tt.path, tt.body, tt.token)
			wantStatus(t, w, tt.wantStatus)
			var body errorBody
			decode(t, w, &body)
			if body.Kind != tt.wantKind || body.Error == "" {
				t.Errorf("want kind %s with message, got %+v", tt.wantKind, body)
			}
		})
	}

	w = s.do(t, http.MethodPut, "/api/comments/"+created.ID, map[string]string{"content": "edited"}, alice)
	wantStatus(t, w, http.StatusOK)
	var updated node
	decode(t, w, &updated)
	if updated.Content != "edited" {
		t.Errorf("want edited content, got %q", updated.Content)
	}
}

func TestCommentDeleteTwiceOverHTTP(t *testing.T) {
	s := newTestServer(t)
	s.post(t, "P1", "prof")
	alice := s.token(t, "alice")

	var created node
	w := s.do(t, http.MethodPost, "/api/comments", map[string]string{"postId": "P1", "content": "bye"}, alice)
	wantStatus(t, w, http.StatusCreated)
	decode(t, w, &created)

	for i := 0; i < 2; i++ {
		w = s.do(t, http.MethodDelete, "/api/comments/"+created.ID, nil, alice)
		wantStatus(t, w, http.StatusOK)
		var body struct {
			OK bool `json:"ok"`
		}
		decode(t, w, &body)
		if !body.OK {
			t.Errorf("delete #%d: want ok true, got %s", i+1, w.Body.String())
		}
	}

	var got node
	w = s.do(t, http.MethodGet, "/api/comments/"+created.ID, nil, "")
	wantStatus(t, w, http.StatusOK)
	decode(t, w, &got)
	if !got.IsDeleted || got.Content != "" {
		t.Errorf("want tombstone, got %+v", got)
	}
}

type aggregateBody struct {
	OK     bool    `json:"ok"`
	Up     int     `json:"up"`
	Down   int     `json:"down"`
	Score  int     `json:"score"`
	MyVote *string `json:"myVote"`
	Vote   *struct {
		PostID    *string `json:"postId"`
		CommentID *string `json:"commentId"`
		Value     string  `json:"value"`
	} `json:"vote"`
}

func TestVotesOverHTTP(t *testing.T) {
	s := newTestServer(t)
	alice := s.token(t, "alice")
	body := map[string]string{"type": "POST", "targetId": "X", "value": "UP"}

	w := s.do(t, http.MethodPost, "/api/votes", body, "")
	wantStatus(t, w, http.StatusUnauthorized)

	w = s.do(t, http.MethodPost, "/api/votes", body, alice)
	wantStatus(t, w, http.StatusOK)
	var res aggregateBody
	decode(t, w, &res)
	if !res.OK || res.Up != 1 || res.Down != 0 || res.Score != 1 || res.MyVote == nil || *res.MyVote != "UP" {
		t.Errorf("want ok 1/0 score 1 myVote UP, got %s", w.Body.String())
	}
	if res.Vote == nil || res.Vote.PostID == nil || *res.Vote.PostID != "X" || res.Vote.CommentID != nil {
		t.Errorf("want vote on post X, got %s", w.Body.String())
	}

	var agg aggregateBody
	w = s.do(t, http.MethodGet, "/api/votes?type=POST&targetId=X", nil, "")
	wantStatus(t, w, http.StatusOK)
	decode(t, w, &agg)
	if agg.Up != 1 || agg.MyVote != nil {
		t.Errorf("want anonymous aggregate without myVote, got %s", w.Body.String())
	}

	w = s.do(t, http.MethodDelete, "/api/votes", map[string]string{"type": "POST", "targetId": "X"}, alice)
	wantStatus(t, w, http.StatusOK)
	decode(t, w, &agg)
	if agg.Up != 0 || agg.Score != 0 || agg.MyVote != nil {
		t.Errorf("want cleared aggregate, got %s", w.Body.String())
	}

	// clearing again is not an error
	w = s.do(t, http.MethodDelete, "/api/votes?type=POST&targetId=X", nil, alice)
	wantStatus(t, w, http.StatusOK)

	w = s.do(t, http.MethodGet, "/api/votes?type=STORY&targetId=X", nil, "")
	wantStatus(t, w, http.StatusBadRequest)
	var e errorBody
	decode(t, w, &e)
	if e.Error != "Invalid type (POST|COMMENT)" {
		t.Errorf("unexpected message %q", e.Error)
	}
	w = s.do(t, http.MethodPost, "/api/votes", map[string]string{"type": "COMMENT", "targetId": "c1", "value": "MAYBE"}, alice)
	wantStatus(t, w, http.StatusBadRequest)
}

func TestSessionExchange(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/api/auth/me", nil, "")
	wantStatus(t, w, http.StatusUnauthorized)

	w = s.do(t, http.MethodPost, "/api/auth/session", nil, "")
	wantStatus(t, w, http.StatusUnauthorized)

	w = s.do(t, http.MethodPost, "/api/auth/session", nil, s.token(t, "carol"))
	wantStatus(t, w, http.StatusOK)
	cookies := w.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatal("want session cookie")
	}

	// the cookie alone identifies the caller
	w = s.do(t, http.MethodGet, "/api/auth/me", nil, "", cookies...)
	wantStatus(t, w, http.StatusOK)
	var me struct {
		ID   string `json:"id"`
		Role string `json:"role"`
	}
	decode(t, w, &me)
	if me.ID != "carol" || me.Role != "USER" {
		t.Errorf("unexpected me %+v", me)
	}

	w = s.do(t, http.MethodPost, "/api/votes", map[string]string{"type": "COMMENT", "targetId": "c9", "value": "DOWN"}, "", cookies...)
	wantStatus(t, w, http.StatusOK)
}

func TestPostsOverHTTP(t *testing.T) {
	s := newTestServer(t)
	alice := s.token(t, "alice")

	w := s.do(t, http.MethodPost, "/api/posts", map[string]string{"title": "Meno", "content": "virtue", "category": "class-seminars"}, alice)
	wantStatus(t, w, http.StatusCreated)
	var p struct {
		ID       string `json:"id"`
		Category string `json:"category"`
	}
	decode(t, w, &p)

	w = s.do(t, http.MethodPost, "/api/posts/"+p.ID+"/view", nil, "")
	wantStatus(t, w, http.StatusOK)

	w = s.do(t, http.MethodGet, "/api/posts?category=class-seminars", nil, "")
	wantStatus(t, w, http.StatusOK)
	var list []struct {
		ID    string `json:"id"`
		Views int    `json:"views"`
	}
	decode(t, w, &list)
	if len(list) != 1 || list[0].ID != p.ID || list[0].Views != 1 {
		t.Errorf("unexpected listing %s", w.Body.String())
	}

	w = s.do(t, http.MethodGet, "/api/posts?category=gossip", nil, "")
	wantStatus(t, w, http.StatusBadRequest)

	w = s.do(t, http.MethodDelete, "/api/posts/"+p.ID, nil, s.token(t, "bob"))
	wantStatus(t, w, http.StatusForbidden)
	w = s.do(t, http.MethodDelete, "/api/posts/"+p.ID, nil, alice)
	wantStatus(t, w, http.StatusOK)
	var del struct {
		OK       bool   `json:"ok"`
		Category string `json:"category"`
	}
	decode(t, w, &del)
	if !del.OK || del.Category != "class-seminars" {
		t.Errorf("unexpected delete body %s", w.Body.String())
	}

	w = s.do(t, http.MethodGet, "/api/posts/"+p.ID, nil, "")
	wantStatus(t, w, http.StatusNotFound)
}

func TestRequestIDEchoed(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodGet, "/healthz", nil, "")
	wantStatus(t, w, http.StatusOK)
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("want X-Request-ID header")
	}
}
