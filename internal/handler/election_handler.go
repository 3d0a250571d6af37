package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-evote-api/internal/service"
	appErrors "github.com/noah-isme/sma-evote-api/pkg/errors"
	"github.com/noah-isme/sma-evote-api/pkg/response"
)

// ElectionHandler exposes the read paths the voting UI renders from.
type ElectionHandler struct {
	registry *service.RegistryService
	ballots  *service.BallotService
}

// NewElectionHandler constructs ElectionHandler.
func NewElectionHandler(registry *service.RegistryService, ballots *service.BallotService) *ElectionHandler {
	return &ElectionHandler{registry: registry, ballots: ballots}
}

// List godoc
// @Summary List elections open for voting
// @Tags Elections
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /elections [get]
func (h *ElectionHandler) List(c *gin.Context) {
	elections, err := h.registry.ListVotable(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, elections, nil)
}

// BallotPaper godoc
// @Summary Get the ballot paper for an election
// @Tags Elections
// @Produce json
// @Param id path string true "Election ID"
// @Success 200 {object} response.Envelope
// @Router /elections/{id}/ballot [get]
func (h *ElectionHandler) BallotPaper(c *gin.Context) {
	paper, err := h.registry.BallotPaper(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, paper, nil)
}

// Constraints godoc
// @Summary Get capacity constraints for one position
// @Tags Elections
// @Produce json
// @Param id path string true "Election ID"
// @Param positionId path string true "Position ID"
// @Success 200 {object} response.Envelope
// @Router /elections/{id}/positions/{positionId}/constraints [get]
func (h *ElectionHandler) Constraints(c *gin.Context) {
	constraints, err := h.registry.LoadBallotConstraints(c.Request.Context(), c.Param("id"), c.Param("positionId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{
		"position_id":         constraints.PositionID,
		"max_votes_per_voter": constraints.MaxVotesPerVoter,
		"is_required":         constraints.IsRequired,
		"candidate_ids":       constraints.CandidateIDs(),
	}, nil)
}

// Status godoc
// @Summary Get the effective voting status for the authenticated voter
// @Tags Elections
// @Produce json
// @Param id path string true "Election ID"
// @Success 200 {object} response.Envelope
// @Router /elections/{id}/status [get]
func (h *ElectionHandler) Status(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	status, err := h.ballots.Status(c.Request.Context(), claims.VoterID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status, nil)
}
