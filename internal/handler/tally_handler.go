package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-evote-api/internal/service"
	"github.com/noah-isme/sma-evote-api/pkg/response"
)

// TallyHandler exposes the read-only results endpoints.
type TallyHandler struct {
	tallies *service.TallyService
}

// NewTallyHandler constructs TallyHandler.
func NewTallyHandler(tallies *service.TallyService) *TallyHandler {
	return &TallyHandler{tallies: tallies}
}

// Results godoc
// @Summary Get per-position results for an election
// @Tags Results
// @Produce json
// @Param id path string true "Election ID"
// @Success 200 {object} response.Envelope
// @Router /elections/{id}/results [get]
func (h *TallyHandler) Results(c *gin.Context) {
	results, err := h.tallies.Results(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, results, nil)
}

// PositionTally godoc
// @Summary Get vote counts for one position
// @Tags Results
// @Produce json
// @Param id path string true "Election ID"
// @Param positionId path string true "Position ID"
// @Success 200 {object} response.Envelope
// @Router /elections/{id}/positions/{positionId}/tally [get]
func (h *TallyHandler) PositionTally(c *gin.Context) {
	counts, err := h.tallies.CountVotes(c.Request.Context(), c.Param("id"), c.Param("positionId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, counts, nil)
}
