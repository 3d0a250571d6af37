package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-evote-api/internal/service"
	appErrors "github.com/noah-isme/sma-evote-api/pkg/errors"
	"github.com/noah-isme/sma-evote-api/pkg/response"
)

// DraftHandler exposes the in-progress ballot draft endpoints. Everything
// here is advisory per-voter state; the commit endpoint re-validates from
// scratch.
type DraftHandler struct {
	drafts *service.DraftService
}

// NewDraftHandler constructs DraftHandler.
func NewDraftHandler(drafts *service.DraftService) *DraftHandler {
	return &DraftHandler{drafts: drafts}
}

// SelectionRequest is a single select/deselect action.
type SelectionRequest struct {
	PositionID  string `json:"position_id" binding:"required"`
	CandidateID string `json:"candidate_id" binding:"required"`
}

// PageRequest remembers the voter's position in the paged flow.
type PageRequest struct {
	Page int `json:"page"`
}

// Get godoc
// @Summary Recover the voter's in-progress draft
// @Tags Draft
// @Produce json
// @Param id path string true "Election ID"
// @Success 200 {object} response.Envelope
// @Router /elections/{id}/draft [get]
func (h *DraftHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	draft, err := h.drafts.Get(c.Request.Context(), claims.VoterID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, draft, nil)
}

// Select godoc
// @Summary Add a candidate selection to the draft
// @Tags Draft
// @Accept json
// @Produce json
// @Param id path string true "Election ID"
// @Param payload body SelectionRequest true "Selection"
// @Success 200 {object} response.Envelope
// @Router /elections/{id}/draft/selections [post]
func (h *DraftHandler) Select(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req SelectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	draft, err := h.drafts.Select(c.Request.Context(), claims.VoterID, c.Param("id"), req.PositionID, req.CandidateID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, draft, nil)
}

// Deselect godoc
// @Summary Remove a candidate selection from the draft
// @Tags Draft
// @Accept json
// @Produce json
// @Param id path string true "Election ID"
// @Param payload body SelectionRequest true "Selection"
// @Success 200 {object} response.Envelope
// @Router /elections/{id}/draft/selections [delete]
func (h *DraftHandler) Deselect(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req SelectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	draft, err := h.drafts.Deselect(c.Request.Context(), claims.VoterID, c.Param("id"), req.PositionID, req.CandidateID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, draft, nil)
}

// SetPage godoc
// @Summary Remember the voter's current ballot page
// @Tags Draft
// @Accept json
// @Produce json
// @Param id path string true "Election ID"
// @Param payload body PageRequest true "Page"
// @Success 200 {object} response.Envelope
// @Router /elections/{id}/draft/page [put]
func (h *DraftHandler) SetPage(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req PageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	draft, err := h.drafts.SetPage(c.Request.Context(), claims.VoterID, c.Param("id"), req.Page)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, draft, nil)
}
