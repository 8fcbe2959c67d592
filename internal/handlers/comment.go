package handlers

import (
	"net/http"

	"lyceum/internal/middleware"
	"lyceum/internal/services"

	"github.com/gin-gonic/gin"
)

type CommentHandler struct {
	comments *services.CommentService
}

func NewCommentHandler(comments *services.CommentService) *CommentHandler {
	return &CommentHandler{comments: comments}
}

type createCommentRequest struct {
	PostID   string  `json:"postId" binding:"required"`
	ParentID *string `json:"parentId"`
	Content  string  `json:"content" binding:"required,max=20000"`
}

// content emptiness is checked by the service after the existence and ownership checks
type updateCommentRequest struct {
	Content string `json:"content" binding:"max=20000"`
}

// List GET /api/comments?postId=
func (h *CommentHandler) List(c *gin.Context) {
	forest, err := h.comments.Thread(c.Request.Context(), c.Query("postId"))
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, http.StatusOK, forest)
}

// Create POST /api/comments
func (h *CommentHandler) Create(c *gin.Context) {
	var req createCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, bindError(err))
		return
	}
	created, err := h.comments.Create(c.Request.Context(), middleware.CurrentCaller(c), services.CreateCommentInput{
		PostID:   req.PostID,
		ParentID: req.ParentID,
		Content:  req.Content,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, http.StatusCreated, created)
}

// Get GET /api/comments/:id
func (h *CommentHandler) Get(c *gin.Context) {
	comment, err := h.comments.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, http.StatusOK, comment)
}

// Update PUT /api/comments/:id
func (h *CommentHandler) Update(c *gin.Context) {
	var req updateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, bindError(err))
		return
	}
	updated, err := h.comments.Update(c.Request.Context(), middleware.CurrentCaller(c), c.Param("id"), req.Content)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, http.StatusOK, updated)
}

// Delete DELETE /api/comments/:id
func (h *CommentHandler) Delete(c *gin.Context) {
	if err := h.comments.Delete(c.Request.Context(), middleware.CurrentCaller(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"ok": true})
}
