package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-evote-api/internal/middleware"
	"github.com/noah-isme/sma-evote-api/internal/models"
	"github.com/noah-isme/sma-evote-api/internal/repository"
	"github.com/noah-isme/sma-evote-api/internal/service"
)

type stubElectionRepo struct {
	election *models.Election
}

func (s *stubElectionRepo) FindByID(ctx context.Context, id string) (*models.Election, error) {
	if s.election == nil || s.election.ID != id {
		return nil, sql.ErrNoRows
	}
	return s.election, nil
}

func (s *stubElectionRepo) ListVotable(ctx context.Context) ([]models.Election, error) {
	return []models.Election{*s.election}, nil
}

type stubVoterRepo struct {
	voter *models.Voter
}

func (s *stubVoterRepo) FindByID(ctx context.Context, id string) (*models.Voter, error) {
	if s.voter == nil || s.voter.ID != id {
		return nil, sql.ErrNoRows
	}
	return s.voter, nil
}

type stubCommitter struct {
	err error
}

func (s *stubCommitter) Commit(ctx context.Context, voterID, electionID string, ballot models.Ballot, now time.Time) (*models.VotingSession, int, error) {
	if s.err != nil {
		return nil, 0, s.err
	}
	return &models.VotingSession{ID: "session-1", VoterID: voterID, ElectionID: electionID, Status: models.SessionStatusCompleted}, ballot.TotalSelections(), nil
}

func (s *stubCommitter) HasCompletedSession(ctx context.Context, voterID, electionID string) (bool, error) {
	return false, nil
}

type stubCSRF struct{}

func (s *stubCSRF) ValidateCSRF(sessionID, token string) bool {
	return token == "valid-token"
}

func newBallotRouter(t *testing.T, committer *stubCommitter, authenticated bool) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	now := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)

	elections := &stubElectionRepo{election: &models.Election{
		ID:        "election-1",
		Status:    models.ElectionStatusActive,
		StartTime: now.Add(-time.Hour),
		EndTime:   now.Add(time.Hour),
	}}
	voters := &stubVoterRepo{voter: &models.Voter{ID: "voter-1", Verified: true, Active: true}}
	svc := service.NewBallotService(committer, elections, voters, nil, &stubCSRF{}, nil, nil, nil, func() time.Time { return now }, zap.NewNop())
	h := NewBallotHandler(svc)

	r := gin.New()
	r.POST("/elections/:id/ballot", func(c *gin.Context) {
		if authenticated {
			c.Set(middleware.ContextVoterKey, &models.JWTClaims{VoterID: "voter-1", SessionID: "sess-1"})
		}
		h.Commit(c)
	})
	return r
}

func castBallot(t *testing.T, r *gin.Engine, csrfToken string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/elections/election-1/ballot", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if csrfToken != "" {
		req.Header.Set("X-CSRF-Token", csrfToken)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestBallotHandlerCommitSuccess(t *testing.T) {
	r := newBallotRouter(t, &stubCommitter{}, true)

	w := castBallot(t, r, "valid-token", gin.H{"votes": gin.H{"president": []string{"cand-a"}}})
	assert.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data struct {
			SessionID     string `json:"session_id"`
			VotesRecorded int    `json:"votes_recorded"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, "session-1", envelope.Data.SessionID)
	assert.Equal(t, 1, envelope.Data.VotesRecorded)
}

func TestBallotHandlerCommitWithoutSession(t *testing.T) {
	r := newBallotRouter(t, &stubCommitter{}, false)

	w := castBallot(t, r, "valid-token", gin.H{"votes": gin.H{"president": []string{"cand-a"}}})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestBallotHandlerCommitBadCSRF(t *testing.T) {
	r := newBallotRouter(t, &stubCommitter{}, true)

	w := castBallot(t, r, "forged", gin.H{"votes": gin.H{"president": []string{"cand-a"}}})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestBallotHandlerCommitAlreadyVoted(t *testing.T) {
	r := newBallotRouter(t, &stubCommitter{err: repository.ErrDuplicateSession}, true)

	w := castBallot(t, r, "valid-token", gin.H{"votes": gin.H{"president": []string{"cand-a"}}})
	assert.Equal(t, http.StatusConflict, w.Code)

	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, "ALREADY_VOTED", envelope.Error.Code)
}

func TestBallotHandlerCommitInvalidSelection(t *testing.T) {
	committer := &stubCommitter{err: &repository.InvalidSelectionError{PositionID: "president", Reason: "candidate cand-z is not on the roster"}}
	r := newBallotRouter(t, committer, true)

	w := castBallot(t, r, "valid-token", gin.H{"votes": gin.H{"president": []string{"cand-z"}}})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestBallotHandlerCommitMalformedPayload(t *testing.T) {
	r := newBallotRouter(t, &stubCommitter{}, true)

	w := castBallot(t, r, "valid-token", gin.H{"selections": "nope"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
