package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-evote-api/internal/models"
	"github.com/noah-isme/sma-evote-api/internal/repository"
	appErrors "github.com/noah-isme/sma-evote-api/pkg/errors"
)

type ballotCommitter interface {
	Commit(ctx context.Context, voterID, electionID string, ballot models.Ballot, now time.Time) (*models.VotingSession, int, error)
	HasCompletedSession(ctx context.Context, voterID, electionID string) (bool, error)
}

type voterReader interface {
	FindByID(ctx context.Context, id string) (*models.Voter, error)
}

type auditWriter interface {
	Create(ctx context.Context, event *models.BallotAuditEvent) error
}

type csrfValidator interface {
	ValidateCSRF(sessionID, token string) bool
}

type outcomeRecorder interface {
	ObserveBallotCommit(outcome models.BallotAuditOutcome)
	ObserveCommitDuration(duration time.Duration)
}

type draftDiscarder interface {
	Discard(ctx context.Context, voterID, electionID string) error
}

type resultsInvalidator interface {
	InvalidateResults(ctx context.Context, electionID string)
}

// CommitRequest carries everything one commit attempt needs. The ballot is
// untrusted client input; auth identity comes from verified claims, never
// from ambient state.
type CommitRequest struct {
	Claims     *models.JWTClaims
	CSRFToken  string
	ElectionID string
	Votes      map[string][]string
	IP         string
	UserAgent  string
}

// CommitResult reports a successful, fully-recorded ballot.
type CommitResult struct {
	SessionID     string    `json:"session_id"`
	VotesRecorded int       `json:"votes_recorded"`
	CompletedAt   time.Time `json:"completed_at"`
}

// VotingStatus tells the UI whether to render the ballot at all.
type VotingStatus struct {
	ElectionID      string                 `json:"election_id"`
	EffectiveStatus models.EffectiveStatus `json:"effective_status"`
	HasVoted        bool                   `json:"has_voted"`
}

// BallotService is the vote commit coordinator: the single authoritative
// entry point for turning a ballot into durable votes, exactly once per
// (voter, election).
type BallotService struct {
	repo      ballotCommitter
	elections electionReader
	voters    voterReader
	audit     auditWriter
	csrf      csrfValidator
	drafts    draftDiscarder
	results   resultsInvalidator
	metrics   outcomeRecorder
	clock     func() time.Time
	logger    *zap.Logger
}

// NewBallotService constructs BallotService. audit, drafts, results and
// metrics are optional; a nil clock falls back to UTC wall time.
func NewBallotService(repo ballotCommitter, elections electionReader, voters voterReader, audit auditWriter, csrf csrfValidator, drafts draftDiscarder, results resultsInvalidator, metrics outcomeRecorder, clock func() time.Time, logger *zap.Logger) *BallotService {
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BallotService{
		repo:      repo,
		elections: elections,
		voters:    voters,
		audit:     audit,
		csrf:      csrf,
		drafts:    drafts,
		results:   results,
		metrics:   metrics,
		clock:     clock,
		logger:    logger,
	}
}

// Commit re-validates everything server-side and performs the all-or-nothing
// commit. The cheap pre-checks (identity, CSRF, election window, voter
// eligibility) reject invalid requests without a single write; the database
// transaction behind r.repo.Commit is the only stateful step, and its
// unique-constraint insert is the serialization point for racing duplicates.
func (s *BallotService) Commit(ctx context.Context, req CommitRequest) (*CommitResult, error) {
	if req.Claims == nil || req.Claims.VoterID == "" {
		s.record(ctx, req, models.AuditOutcomeUnauthorized, "missing or invalid session")
		return nil, appErrors.ErrUnauthorized
	}
	if s.csrf != nil && !s.csrf.ValidateCSRF(req.Claims.SessionID, req.CSRFToken) {
		s.record(ctx, req, models.AuditOutcomeUnauthorized, "csrf token mismatch")
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "csrf token mismatch")
	}

	election, err := s.elections.FindByID(ctx, req.ElectionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.record(ctx, req, models.AuditOutcomeNotFound, "election not found")
			return nil, appErrors.Clone(appErrors.ErrNotFound, "election not found")
		}
		s.record(ctx, req, models.AuditOutcomeTransientError, "failed to load election")
		return nil, appErrors.Wrap(err, appErrors.ErrTransient.Code, appErrors.ErrTransient.Status, appErrors.ErrTransient.Message)
	}

	// Re-derived with this coordinator's own clock read. A ballot page
	// rendered while the election was open buys the voter nothing once
	// the window has closed.
	now := s.clock()
	effective := ResolveEffectiveStatus(election.Status, election.StartTime, election.EndTime, now)
	if effective != models.EffectiveActive {
		s.record(ctx, req, models.AuditOutcomeElectionNotOpen, string(effective))
		return nil, appErrors.ErrElectionNotOpen
	}

	voter, err := s.voters.FindByID(ctx, req.Claims.VoterID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.record(ctx, req, models.AuditOutcomeNotEligible, "voter not found")
			return nil, appErrors.ErrNotEligible
		}
		s.record(ctx, req, models.AuditOutcomeTransientError, "failed to load voter")
		return nil, appErrors.Wrap(err, appErrors.ErrTransient.Code, appErrors.ErrTransient.Status, appErrors.ErrTransient.Message)
	}
	if !voter.Active {
		s.record(ctx, req, models.AuditOutcomeNotEligible, "voter inactive")
		return nil, appErrors.ErrNotEligible
	}
	if election.RequireVerification && !voter.Verified {
		s.record(ctx, req, models.AuditOutcomeNotEligible, "voter not verified")
		return nil, appErrors.ErrNotEligible
	}

	ballot, err := models.NewBallot(req.Votes)
	if err != nil {
		s.record(ctx, req, models.AuditOutcomeInvalidSelection, err.Error())
		return nil, appErrors.Clone(appErrors.ErrInvalidSelection, err.Error())
	}

	commitStart := time.Now()
	session, voteCount, err := s.repo.Commit(ctx, voter.ID, election.ID, ballot, now)
	if s.metrics != nil {
		s.metrics.ObserveCommitDuration(time.Since(commitStart))
	}
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateSession):
			// Expected branch for every racing duplicate: zero rows
			// written, terminal from the voter's point of view.
			s.record(ctx, req, models.AuditOutcomeAlreadyVoted, "")
			return nil, appErrors.ErrAlreadyVoted
		default:
			var invalid *repository.InvalidSelectionError
			if errors.As(err, &invalid) {
				s.record(ctx, req, models.AuditOutcomeInvalidSelection, invalid.Error())
				return nil, appErrors.Clone(appErrors.ErrInvalidSelection, invalid.Error())
			}
			s.logger.Error("ballot commit failed",
				zap.String("voter_id", voter.ID),
				zap.String("election_id", election.ID),
				zap.Error(err),
			)
			s.record(ctx, req, models.AuditOutcomeTransientError, "storage failure")
			return nil, appErrors.Wrap(err, appErrors.ErrTransient.Code, appErrors.ErrTransient.Status, appErrors.ErrTransient.Message)
		}
	}

	s.record(ctx, req, models.AuditOutcomeSuccess, "")
	if s.drafts != nil {
		if err := s.drafts.Discard(ctx, voter.ID, election.ID); err != nil {
			s.logger.Warn("failed to discard draft after commit", zap.String("voter_id", voter.ID), zap.Error(err))
		}
	}
	if s.results != nil {
		s.results.InvalidateResults(ctx, election.ID)
	}

	s.logger.Info("ballot_committed",
		zap.String("voter_id", voter.ID),
		zap.String("election_id", election.ID),
		zap.String("session_id", session.ID),
		zap.Int("votes_recorded", voteCount),
	)

	return &CommitResult{SessionID: session.ID, VotesRecorded: voteCount, CompletedAt: now}, nil
}

// Status reports the election's current phase and whether the voter already
// committed, so the UI can short-circuit before rendering the ballot.
func (s *BallotService) Status(ctx context.Context, voterID, electionID string) (*VotingStatus, error) {
	election, err := s.elections.FindByID(ctx, electionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "election not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load election")
	}

	hasVoted, err := s.repo.HasCompletedSession(ctx, voterID, electionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check voting session")
	}

	return &VotingStatus{
		ElectionID:      electionID,
		EffectiveStatus: ResolveEffectiveStatus(election.Status, election.StartTime, election.EndTime, s.clock()),
		HasVoted:        hasVoted,
	}, nil
}

// record emits the per-attempt audit event and outcome metric. Neither may
// influence the commit result: a failed audit write is logged and dropped.
func (s *BallotService) record(ctx context.Context, req CommitRequest, outcome models.BallotAuditOutcome, detail string) {
	if s.metrics != nil {
		s.metrics.ObserveBallotCommit(outcome)
	}
	if s.audit == nil {
		return
	}
	voterID := ""
	if req.Claims != nil {
		voterID = req.Claims.VoterID
	}
	event := &models.BallotAuditEvent{
		VoterID:    voterID,
		ElectionID: req.ElectionID,
		Outcome:    outcome,
		Detail:     detail,
		IPAddress:  req.IP,
		UserAgent:  req.UserAgent,
	}
	if err := s.audit.Create(ctx, event); err != nil {
		s.logger.Warn("failed to write ballot audit event",
			zap.String("election_id", req.ElectionID),
			zap.String("outcome", string(outcome)),
			zap.Error(err),
		)
	}
}
