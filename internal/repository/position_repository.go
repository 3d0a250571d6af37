package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-evote-api/internal/models"
)

// PositionRepository reads positions and candidate rosters for ballot
// rendering. The authoritative commit-time reads live in BallotRepository
// so they execute inside the commit transaction.
type PositionRepository struct {
	db *sqlx.DB
}

// NewPositionRepository constructs the repository.
func NewPositionRepository(db *sqlx.DB) *PositionRepository {
	return &PositionRepository{db: db}
}

// ListActive returns the active positions of an election in display order.
func (r *PositionRepository) ListActive(ctx context.Context, electionID string) ([]models.Position, error) {
	const query = `SELECT id, election_id, title, max_candidates, max_votes_per_voter, is_required, is_active, created_at, updated_at
        FROM positions WHERE election_id = $1 AND is_active = TRUE ORDER BY created_at ASC`
	var positions []models.Position
	if err := r.db.SelectContext(ctx, &positions, query, electionID); err != nil {
		return nil, fmt.Errorf("list active positions: %w", err)
	}
	return positions, nil
}

// FindActive returns an active position scoped to the given election.
// sql.ErrNoRows signals an inactive or foreign position.
func (r *PositionRepository) FindActive(ctx context.Context, electionID, positionID string) (*models.Position, error) {
	const query = `SELECT id, election_id, title, max_candidates, max_votes_per_voter, is_required, is_active, created_at, updated_at
        FROM positions WHERE id = $1 AND election_id = $2 AND is_active = TRUE`
	var position models.Position
	if err := r.db.GetContext(ctx, &position, query, positionID, electionID); err != nil {
		return nil, err
	}
	return &position, nil
}

// ListActiveCandidates returns the active roster of a position with the
// nominated voters' names.
func (r *PositionRepository) ListActiveCandidates(ctx context.Context, positionID string) ([]models.CandidateDetail, error) {
	const query = `SELECT c.id, c.position_id, c.voter_id, c.election_id, c.platform, c.is_active, c.created_at,
        v.full_name AS full_name
        FROM candidates c
        JOIN voters v ON v.id = c.voter_id
        WHERE c.position_id = $1 AND c.is_active = TRUE
        ORDER BY v.full_name ASC`
	var candidates []models.CandidateDetail
	if err := r.db.SelectContext(ctx, &candidates, query, positionID); err != nil {
		return nil, fmt.Errorf("list active candidates: %w", err)
	}
	return candidates, nil
}
