package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-evote-api/internal/service"
	appErrors "github.com/noah-isme/sma-evote-api/pkg/errors"
	"github.com/noah-isme/sma-evote-api/pkg/response"
)

// BallotHandler exposes the authoritative commit endpoint.
type BallotHandler struct {
	ballots *service.BallotService
}

// NewBallotHandler constructs BallotHandler.
func NewBallotHandler(ballots *service.BallotService) *BallotHandler {
	return &BallotHandler{ballots: ballots}
}

// CommitBallotRequest is the submitted ballot payload.
type CommitBallotRequest struct {
	Votes map[string][]string `json:"votes" binding:"required"`
}

// Commit godoc
// @Summary Cast the voter's ballot
// @Description Commits the complete ballot exactly once per voter and election. Every failure kind carries its own error code.
// @Tags Ballot
// @Accept json
// @Produce json
// @Param id path string true "Election ID"
// @Param X-CSRF-Token header string true "CSRF token issued at login"
// @Param payload body CommitBallotRequest true "Ballot"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /elections/{id}/ballot [post]
func (h *BallotHandler) Commit(c *gin.Context) {
	var req CommitBallotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	result, err := h.ballots.Commit(c.Request.Context(), service.CommitRequest{
		Claims:     claimsFromContext(c),
		CSRFToken:  c.GetHeader("X-CSRF-Token"),
		ElectionID: c.Param("id"),
		Votes:      req.Votes,
		IP:         c.ClientIP(),
		UserAgent:  c.GetHeader("User-Agent"),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
