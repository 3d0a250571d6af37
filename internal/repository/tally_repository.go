package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-evote-api/internal/models"
)

// TallyRepository aggregates committed votes. Read-only: it consumes vote
// rows that are immutable once written, so counts are monotonic.
type TallyRepository struct {
	db *sqlx.DB
}

// NewTallyRepository constructs the repository.
func NewTallyRepository(db *sqlx.DB) *TallyRepository {
	return &TallyRepository{db: db}
}

// CountVotes returns candidate -> vote count for one position. The join on
// completed sessions is defensive: the invariant already guarantees every
// vote references a completed session.
func (r *TallyRepository) CountVotes(ctx context.Context, electionID, positionID string) (map[string]int, error) {
	const query = `SELECT v.candidate_id, COUNT(*) AS vote_count
        FROM votes v
        JOIN voting_sessions s ON s.id = v.voting_session_id AND s.status = $3
        WHERE v.election_id = $1 AND v.position_id = $2
        GROUP BY v.candidate_id`
	rows, err := r.db.QueryxContext(ctx, query, electionID, positionID, models.SessionStatusCompleted)
	if err != nil {
		return nil, fmt.Errorf("count votes: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var candidateID string
		var voteCount int
		if err := rows.Scan(&candidateID, &voteCount); err != nil {
			return nil, fmt.Errorf("scan vote count: %w", err)
		}
		counts[candidateID] = voteCount
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate vote counts: %w", err)
	}
	return counts, nil
}

// ElectionTallies returns per-candidate counts for every active position of
// an election, including candidates with zero votes.
func (r *TallyRepository) ElectionTallies(ctx context.Context, electionID string) ([]models.TallyRow, error) {
	const query = `SELECT p.id AS position_id, p.title AS position_title,
        c.id AS candidate_id, vr.full_name AS candidate_name,
        COUNT(s.id) AS vote_count
        FROM positions p
        JOIN candidates c ON c.position_id = p.id AND c.is_active = TRUE
        JOIN voters vr ON vr.id = c.voter_id
        LEFT JOIN votes v ON v.candidate_id = c.id
        LEFT JOIN voting_sessions s ON s.id = v.voting_session_id AND s.status = $2
        WHERE p.election_id = $1 AND p.is_active = TRUE
        GROUP BY p.id, p.title, p.created_at, c.id, vr.full_name
        ORDER BY p.created_at ASC, vote_count DESC, vr.full_name ASC`
	var tallies []models.TallyRow
	if err := r.db.SelectContext(ctx, &tallies, query, electionID, models.SessionStatusCompleted); err != nil {
		return nil, fmt.Errorf("election tallies: %w", err)
	}
	return tallies, nil
}

// Turnout returns completed-session and eligible-voter counts.
func (r *TallyRepository) Turnout(ctx context.Context, electionID string) (*models.Turnout, error) {
	const query = `SELECT
        (SELECT COUNT(*) FROM voting_sessions WHERE election_id = $1 AND status = $2) AS completed_sessions,
        (SELECT COUNT(*) FROM voters WHERE active = TRUE) AS eligible_voters`
	var turnout models.Turnout
	if err := r.db.GetContext(ctx, &turnout, query, electionID, models.SessionStatusCompleted); err != nil {
		return nil, fmt.Errorf("turnout: %w", err)
	}
	return &turnout, nil
}
