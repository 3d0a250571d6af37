package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/sma-evote-api/internal/models"
)

// ErrDuplicateSession signals that a completed voting session already exists
// for the (voter, election) pair. Under concurrent duplicate submissions
// exactly one caller commits; every other caller lands here with zero rows
// written.
var ErrDuplicateSession = errors.New("completed voting session already exists")

// InvalidSelectionError reports which position made the ballot unacceptable.
// The whole transaction is rolled back when it is returned.
type InvalidSelectionError struct {
	PositionID string
	Reason     string
}

func (e *InvalidSelectionError) Error() string {
	return fmt.Sprintf("invalid selection for position %s: %s", e.PositionID, e.Reason)
}

type txConstraints struct {
	ID               string `db:"id"`
	MaxVotesPerVoter int    `db:"max_votes_per_voter"`
}

// BallotRepository owns the commit transaction. It is the sole writer of
// completed voting sessions and votes.
type BallotRepository struct {
	db *sqlx.DB
}

// NewBallotRepository constructs the repository.
func NewBallotRepository(db *sqlx.DB) *BallotRepository {
	return &BallotRepository{db: db}
}

// Commit inserts the completed session and all vote rows in one transaction.
//
// The insert of the completed session is the serialization point: a partial
// unique index on (voter_id, election_id) WHERE status = 'completed' makes
// the database, not application logic, the arbiter of racing duplicates.
// Constraints are re-loaded inside this transaction so values cached at
// page-render time can never leak into validation. Any failure rolls the
// whole transaction back; no partial session or vote rows survive.
func (r *BallotRepository) Commit(ctx context.Context, voterID, electionID string, ballot models.Ballot, now time.Time) (*models.VotingSession, int, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("begin ballot commit: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	session := &models.VotingSession{
		ID:          uuid.NewString(),
		VoterID:     voterID,
		ElectionID:  electionID,
		Status:      models.SessionStatusCompleted,
		CreatedAt:   now,
		CompletedAt: &now,
	}
	const insertSession = `INSERT INTO voting_sessions (id, voter_id, election_id, status, created_at, completed_at)
        VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := tx.ExecContext(ctx, insertSession, session.ID, session.VoterID, session.ElectionID, session.Status, session.CreatedAt, session.CompletedAt); err != nil {
		if isUniqueViolation(err) {
			return nil, 0, ErrDuplicateSession
		}
		return nil, 0, fmt.Errorf("insert voting session: %w", err)
	}

	const insertVote = `INSERT INTO votes (id, voting_session_id, position_id, candidate_id, election_id, cast_at)
        VALUES ($1, $2, $3, $4, $5, $6)`
	voteCount := 0
	for _, positionID := range ballot.PositionIDs() {
		candidateIDs := ballot[positionID]

		constraints, err := r.constraintsTx(ctx, tx, electionID, positionID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, 0, &InvalidSelectionError{PositionID: positionID, Reason: "position is not on this ballot"}
			}
			return nil, 0, err
		}
		if len(candidateIDs) > constraints.MaxVotesPerVoter {
			return nil, 0, &InvalidSelectionError{
				PositionID: positionID,
				Reason:     fmt.Sprintf("%d selections exceed the limit of %d", len(candidateIDs), constraints.MaxVotesPerVoter),
			}
		}
		for _, candidateID := range candidateIDs {
			if !constraints.Allows(candidateID) {
				return nil, 0, &InvalidSelectionError{PositionID: positionID, Reason: fmt.Sprintf("candidate %s is not on the roster", candidateID)}
			}
			if _, err := tx.ExecContext(ctx, insertVote, uuid.NewString(), session.ID, positionID, candidateID, electionID, now); err != nil {
				return nil, 0, fmt.Errorf("insert vote: %w", err)
			}
			voteCount++
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, 0, fmt.Errorf("commit ballot: %w", err)
	}
	committed = true
	return session, voteCount, nil
}

// constraintsTx re-loads a position's capacity and roster with the values
// visible to this transaction.
func (r *BallotRepository) constraintsTx(ctx context.Context, tx *sqlx.Tx, electionID, positionID string) (*models.BallotConstraints, error) {
	const positionQuery = `SELECT id, max_votes_per_voter FROM positions
        WHERE id = $1 AND election_id = $2 AND is_active = TRUE`
	var row txConstraints
	if err := tx.GetContext(ctx, &row, positionQuery, positionID, electionID); err != nil {
		return nil, err
	}

	const rosterQuery = `SELECT id FROM candidates WHERE position_id = $1 AND is_active = TRUE`
	var candidateIDs []string
	if err := tx.SelectContext(ctx, &candidateIDs, rosterQuery, positionID); err != nil {
		return nil, fmt.Errorf("load candidate roster: %w", err)
	}

	valid := make(map[string]struct{}, len(candidateIDs))
	for _, id := range candidateIDs {
		valid[id] = struct{}{}
	}
	return &models.BallotConstraints{
		PositionID:        row.ID,
		MaxVotesPerVoter:  row.MaxVotesPerVoter,
		ValidCandidateIDs: valid,
	}, nil
}

// HasCompletedSession reports whether the voter already committed a ballot
// for the election. Advisory only; the unique index remains the arbiter.
func (r *BallotRepository) HasCompletedSession(ctx context.Context, voterID, electionID string) (bool, error) {
	const query = `SELECT 1 FROM voting_sessions WHERE voter_id = $1 AND election_id = $2 AND status = $3 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, voterID, electionID, models.SessionStatusCompleted); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check completed session: %w", err)
	}
	return true, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
