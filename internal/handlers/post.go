package handlers

import (
	"net/http"

	"lyceum/internal/middleware"
	"lyceum/internal/services"

	"github.com/gin-gonic/gin"
)

type PostHandler struct {
	posts *services.PostService
}

func NewPostHandler(posts *services.PostService) *PostHandler {
	return &PostHandler{posts: posts}
}

type postRequest struct {
	Title    string `json:"title" binding:"required,max=200"`
	Content  string `json:"content" binding:"max=100000"`
	Category string `json:"category"`
}

// List GET /api/posts?category=&sort=new|hot
func (h *PostHandler) List(c *gin.Context) {
	posts, err := h.posts.List(c.Request.Context(), c.Query("category"), c.Query("sort"))
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, http.StatusOK, posts)
}

// Get GET /api/posts/:id
func (h *PostHandler) Get(c *gin.Context) {
	post, err := h.posts.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, http.StatusOK, post)
}

// Create POST /api/posts
func (h *PostHandler) Create(c *gin.Context) {
	var req postRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, bindError(err))
		return
	}
	post, err := h.posts.Create(c.Request.Context(), middleware.CurrentCaller(c), services.PostInput{
		Title:    req.Title,
		Content:  req.Content,
		Category: req.Category,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, http.StatusCreated, post)
}

// Update PUT /api/posts/:id
func (h *PostHandler) Update(c *gin.Context) {
	var req postRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, bindError(err))
		return
	}
	post, err := h.posts.Update(c.Request.Context(), middleware.CurrentCaller(c), c.Param("id"), services.PostInput{
		Title:   req.Title,
		Content: req.Content,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, http.StatusOK, post)
}

// Delete DELETE /api/posts/:id
func (h *PostHandler) Delete(c *gin.Context) {
	category, err := h.posts.Delete(c.Request.Context(), middleware.CurrentCaller(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"ok": true, "category": category})
}

// View POST /api/posts/:id/view
func (h *PostHandler) View(c *gin.Context) {
	if err := h.posts.RecordView(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"ok": true})
}
