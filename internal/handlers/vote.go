package handlers

import (
	"net/http"

	"lyceum/internal/middleware"
	"lyceum/internal/services"

	"github.com/gin-gonic/gin"
)

type VoteHandler struct {
	votes *services.VoteService
}

func NewVoteHandler(votes *services.VoteService) *VoteHandler {
	return &VoteHandler{votes: votes}
}

// type/targetId/value are validated by the service so the messages name the allowed values
type voteRequest struct {
	Type     string `json:"type"`
	TargetID string `json:"targetId"`
	Value    string `json:"value"`
}

// Aggregate GET /api/votes?type=&targetId=
func (h *VoteHandler) Aggregate(c *gin.Context) {
	agg, err := h.votes.Aggregate(c.Request.Context(), middleware.CurrentCaller(c), c.Query("type"), c.Query("targetId"))
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, http.StatusOK, agg)
}

// Set POST /api/votes
func (h *VoteHandler) Set(c *gin.Context) {
	var req voteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, bindError(err))
		return
	}
	res, err := h.votes.Set(c.Request.Context(), middleware.CurrentCaller(c), req.Type, req.TargetID, req.Value)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, http.StatusOK, res)
}

// Clear DELETE /api/votes, target in the body or, failing that, the query string
func (h *VoteHandler) Clear(c *gin.Context) {
	var req voteRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, bindError(err))
			return
		}
	}
	if req.Type == "" {
		req.Type = c.Query("type")
	}
	if req.TargetID == "" {
		req.TargetID = c.Query("targetId")
	}
	res, err := h.votes.Clear(c.Request.Context(), middleware.CurrentCaller(c), req.Type, req.TargetID)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, http.StatusOK, res)
}
