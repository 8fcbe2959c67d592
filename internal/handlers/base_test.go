package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"lyceum/internal/apperr"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

func TestRespondError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantKind   string
		wantMsg    string
	}{
		{"not found", apperr.NotFound("Parent comment not found"), http.StatusNotFound, "NOT_FOUND", "Parent comment not found"},
		{"forbidden", apperr.Forbidden(), http.StatusForbidden, "FORBIDDEN", "Forbidden"},
		{"internal hides cause", apperr.Internal(errors.New("pq: connection refused")), http.StatusInternalServerError, "INTERNAL", "Internal error"},
		{"plain error is internal", errors.New("boom"), http.StatusInternalServerError, "INTERNAL", "Internal error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			respondError(c, tt.err)

			if w.Code != tt.wantStatus {
				t.Errorf("want status %d, got %d", tt.wantStatus, w.Code)
			}
			var body map[string]string
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatal(err)
			}
			if body["kind"] != tt.wantKind || body["error"] != tt.wantMsg {
				t.Errorf("unexpected body %v", body)
			}
		})
	}
}

func TestBindErrorNamesJSONField(t *testing.T) {
	req := createCommentRequest{Content: "hello"}
	err := binding.Validator.ValidateStruct(&req)
	if err == nil {
		t.Fatal("want validation error for missing postId")
	}

	got := bindError(err)
	if apperr.KindOf(got) != apperr.KindBadRequest {
		t.Fatalf("want bad request, got %v", got)
	}
	if msg := apperr.Message(got); msg != "postId is required" {
		t.Errorf("want %q, got %q", "postId is required", msg)
	}

	if msg := apperr.Message(bindError(errors.New("unexpected EOF"))); msg != "Invalid request body" {
		t.Errorf("unexpected message %q", msg)
	}
}
