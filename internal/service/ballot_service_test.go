package service

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-evote-api/internal/models"
	"github.com/noah-isme/sma-evote-api/internal/repository"
	appErrors "github.com/noah-isme/sma-evote-api/pkg/errors"
)

type mockElectionRepo struct {
	election *models.Election
	list     []models.Election
	err      error
}

func (m *mockElectionRepo) FindByID(ctx context.Context, id string) (*models.Election, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.election == nil || m.election.ID != id {
		return nil, sql.ErrNoRows
	}
	return m.election, nil
}

func (m *mockElectionRepo) ListVotable(ctx context.Context) ([]models.Election, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.list, nil
}

type mockVoterRepo struct {
	voter *models.Voter
	err   error
}

func (m *mockVoterRepo) FindByID(ctx context.Context, id string) (*models.Voter, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.voter == nil || m.voter.ID != id {
		return nil, sql.ErrNoRows
	}
	return m.voter, nil
}

// mockCommitter emulates the partial unique index: the first commit for a
// (voter, election) pair wins, every later one fails with ErrDuplicateSession.
type mockCommitter struct {
	mu        sync.Mutex
	err       error
	completed map[string]bool
	commits   int
}

func (m *mockCommitter) Commit(ctx context.Context, voterID, electionID string, ballot models.Ballot, now time.Time) (*models.VotingSession, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, 0, m.err
	}
	key := voterID + "|" + electionID
	if m.completed[key] {
		return nil, 0, repository.ErrDuplicateSession
	}
	if m.completed == nil {
		m.completed = make(map[string]bool)
	}
	m.completed[key] = true
	m.commits++
	return &models.VotingSession{
		ID:          "session-1",
		VoterID:     voterID,
		ElectionID:  electionID,
		Status:      models.SessionStatusCompleted,
		CreatedAt:   now,
		CompletedAt: &now,
	}, ballot.TotalSelections(), nil
}

func (m *mockCommitter) HasCompletedSession(ctx context.Context, voterID, electionID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.completed[voterID+"|"+electionID], nil
}

type mockAuditWriter struct {
	mu     sync.Mutex
	events []*models.BallotAuditEvent
	err    error
}

func (m *mockAuditWriter) Create(ctx context.Context, event *models.BallotAuditEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, event)
	return nil
}

func (m *mockAuditWriter) outcomes() []models.BallotAuditOutcome {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.BallotAuditOutcome, 0, len(m.events))
	for _, e := range m.events {
		out = append(out, e.Outcome)
	}
	return out
}

type mockCSRF struct {
	valid bool
}

func (m *mockCSRF) ValidateCSRF(sessionID, token string) bool {
	return m.valid
}

type mockDraftDiscarder struct {
	mu        sync.Mutex
	discarded []string
}

func (m *mockDraftDiscarder) Discard(ctx context.Context, voterID, electionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.discarded = append(m.discarded, voterID+"|"+electionID)
	return nil
}

type ballotFixture struct {
	elections *mockElectionRepo
	voters    *mockVoterRepo
	committer *mockCommitter
	audit     *mockAuditWriter
	csrf      *mockCSRF
	drafts    *mockDraftDiscarder
	now       time.Time
	svc       *BallotService
}

func newBallotFixture(t *testing.T) *ballotFixture {
	t.Helper()
	now := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	f := &ballotFixture{
		elections: &mockElectionRepo{election: &models.Election{
			ID:        "election-1",
			Title:     "Student Council 2026",
			Status:    models.ElectionStatusActive,
			StartTime: now.Add(-time.Hour),
			EndTime:   now.Add(time.Hour),
		}},
		voters:    &mockVoterRepo{voter: &models.Voter{ID: "voter-1", Verified: true, Active: true}},
		committer: &mockCommitter{},
		audit:     &mockAuditWriter{},
		csrf:      &mockCSRF{valid: true},
		drafts:    &mockDraftDiscarder{},
		now:       now,
	}
	f.svc = NewBallotService(f.committer, f.elections, f.voters, f.audit, f.csrf, f.drafts, nil, nil, func() time.Time { return f.now }, zap.NewNop())
	return f
}

func validCommitRequest() CommitRequest {
	return CommitRequest{
		Claims:     &models.JWTClaims{VoterID: "voter-1", SessionID: "sess-1"},
		CSRFToken:  "token",
		ElectionID: "election-1",
		Votes:      map[string][]string{"pos-1": {"cand-1"}},
	}
}

func TestBallotServiceCommitSuccess(t *testing.T) {
	f := newBallotFixture(t)

	result, err := f.svc.Commit(context.Background(), validCommitRequest())
	require.NoError(t, err)
	assert.Equal(t, "session-1", result.SessionID)
	assert.Equal(t, 1, result.VotesRecorded)
	assert.Equal(t, f.now, result.CompletedAt)
	assert.Equal(t, []models.BallotAuditOutcome{models.AuditOutcomeSuccess}, f.audit.outcomes())
	assert.Equal(t, []string{"voter-1|election-1"}, f.drafts.discarded)
}

func TestBallotServiceCommitRejectsMissingSession(t *testing.T) {
	f := newBallotFixture(t)
	req := validCommitRequest()
	req.Claims = nil

	_, err := f.svc.Commit(context.Background(), req)
	assert.True(t, appErrors.Is(err, appErrors.ErrUnauthorized))
	assert.Equal(t, []models.BallotAuditOutcome{models.AuditOutcomeUnauthorized}, f.audit.outcomes())
	assert.Zero(t, f.committer.commits)
}

func TestBallotServiceCommitRejectsBadCSRF(t *testing.T) {
	f := newBallotFixture(t)
	f.csrf.valid = false

	_, err := f.svc.Commit(context.Background(), validCommitRequest())
	assert.True(t, appErrors.Is(err, appErrors.ErrUnauthorized))
	assert.Zero(t, f.committer.commits)
}

func TestBallotServiceCommitRejectsUnknownElection(t *testing.T) {
	f := newBallotFixture(t)
	req := validCommitRequest()
	req.ElectionID = "missing"

	_, err := f.svc.Commit(context.Background(), req)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
	assert.Equal(t, []models.BallotAuditOutcome{models.AuditOutcomeNotFound}, f.audit.outcomes())
}

func TestBallotServiceCommitRejectsClosedWindow(t *testing.T) {
	f := newBallotFixture(t)

	// The page was rendered while the election was open; the commit clock
	// has since moved past the end of the window.
	f.now = f.elections.election.EndTime.Add(time.Minute)

	_, err := f.svc.Commit(context.Background(), validCommitRequest())
	assert.True(t, appErrors.Is(err, appErrors.ErrElectionNotOpen))
	assert.Equal(t, []models.BallotAuditOutcome{models.AuditOutcomeElectionNotOpen}, f.audit.outcomes())
	assert.Zero(t, f.committer.commits)
}

func TestBallotServiceCommitRejectsCancelledElection(t *testing.T) {
	f := newBallotFixture(t)
	f.elections.election.Status = models.ElectionStatusCancelled

	_, err := f.svc.Commit(context.Background(), validCommitRequest())
	assert.True(t, appErrors.Is(err, appErrors.ErrElectionNotOpen))
}

func TestBallotServiceCommitRejectsInactiveVoter(t *testing.T) {
	f := newBallotFixture(t)
	f.voters.voter.Active = false

	_, err := f.svc.Commit(context.Background(), validCommitRequest())
	assert.True(t, appErrors.Is(err, appErrors.ErrNotEligible))
	assert.Equal(t, []models.BallotAuditOutcome{models.AuditOutcomeNotEligible}, f.audit.outcomes())
}

func TestBallotServiceCommitRejectsUnverifiedVoter(t *testing.T) {
	f := newBallotFixture(t)
	f.elections.election.RequireVerification = true
	f.voters.voter.Verified = false

	_, err := f.svc.Commit(context.Background(), validCommitRequest())
	assert.True(t, appErrors.Is(err, appErrors.ErrNotEligible))
}

func TestBallotServiceCommitAllowsUnverifiedWhenNotRequired(t *testing.T) {
	f := newBallotFixture(t)
	f.elections.election.RequireVerification = false
	f.voters.voter.Verified = false

	_, err := f.svc.Commit(context.Background(), validCommitRequest())
	assert.NoError(t, err)
}

func TestBallotServiceCommitRejectsEmptyBallot(t *testing.T) {
	f := newBallotFixture(t)
	req := validCommitRequest()
	req.Votes = map[string][]string{}

	_, err := f.svc.Commit(context.Background(), req)
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidSelection))
	assert.Zero(t, f.committer.commits)
}

func TestBallotServiceCommitRejectsDuplicateCandidate(t *testing.T) {
	f := newBallotFixture(t)
	req := validCommitRequest()
	req.Votes = map[string][]string{"pos-1": {"cand-1", "cand-1"}}

	_, err := f.svc.Commit(context.Background(), req)
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidSelection))
}

func TestBallotServiceCommitMapsDuplicateSession(t *testing.T) {
	f := newBallotFixture(t)
	f.committer.err = repository.ErrDuplicateSession

	_, err := f.svc.Commit(context.Background(), validCommitRequest())
	assert.True(t, appErrors.Is(err, appErrors.ErrAlreadyVoted))
	assert.Equal(t, []models.BallotAuditOutcome{models.AuditOutcomeAlreadyVoted}, f.audit.outcomes())
	assert.Empty(t, f.drafts.discarded)
}

func TestBallotServiceCommitMapsInvalidSelection(t *testing.T) {
	f := newBallotFixture(t)
	f.committer.err = &repository.InvalidSelectionError{PositionID: "pos-1", Reason: "candidate cand-9 is not on the roster"}

	_, err := f.svc.Commit(context.Background(), validCommitRequest())
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidSelection))
}

func TestBallotServiceCommitMapsStorageFailure(t *testing.T) {
	f := newBallotFixture(t)
	f.committer.err = errors.New("connection reset")

	_, err := f.svc.Commit(context.Background(), validCommitRequest())
	assert.True(t, appErrors.Is(err, appErrors.ErrTransient))
	assert.Equal(t, []models.BallotAuditOutcome{models.AuditOutcomeTransientError}, f.audit.outcomes())
}

func TestBallotServiceCommitAuditFailureDoesNotBlock(t *testing.T) {
	f := newBallotFixture(t)
	f.audit.err = errors.New("audit table unavailable")

	result, err := f.svc.Commit(context.Background(), validCommitRequest())
	require.NoError(t, err)
	assert.Equal(t, "session-1", result.SessionID)
}

func TestBallotServiceCommitExactlyOnceUnderRace(t *testing.T) {
	f := newBallotFixture(t)

	const attempts = 16
	var wg sync.WaitGroup
	var mu sync.Mutex
	successes := 0
	duplicates := 0

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Commit(context.Background(), validCommitRequest())
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case appErrors.Is(err, appErrors.ErrAlreadyVoted):
				duplicates++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, attempts-1, duplicates)
	assert.Equal(t, 1, f.committer.commits)
}

func TestBallotServiceStatus(t *testing.T) {
	f := newBallotFixture(t)

	status, err := f.svc.Status(context.Background(), "voter-1", "election-1")
	require.NoError(t, err)
	assert.Equal(t, models.EffectiveActive, status.EffectiveStatus)
	assert.False(t, status.HasVoted)

	_, err = f.svc.Commit(context.Background(), validCommitRequest())
	require.NoError(t, err)

	status, err = f.svc.Status(context.Background(), "voter-1", "election-1")
	require.NoError(t, err)
	assert.True(t, status.HasVoted)
}
