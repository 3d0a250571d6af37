package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-evote-api/internal/models"
)

// ElectionRepository reads elections owned by the officer console. The
// ballot engine never mutates these rows.
type ElectionRepository struct {
	db *sqlx.DB
}

// NewElectionRepository constructs the repository.
func NewElectionRepository(db *sqlx.DB) *ElectionRepository {
	return &ElectionRepository{db: db}
}

// FindByID returns an election by its ID.
func (r *ElectionRepository) FindByID(ctx context.Context, id string) (*models.Election, error) {
	const query = `SELECT id, title, description, status, start_time, end_time, voter_eligibility,
        allow_multiple_votes, require_verification, created_at, updated_at
        FROM elections WHERE id = $1`
	var election models.Election
	if err := r.db.GetContext(ctx, &election, query, id); err != nil {
		return nil, err
	}
	return &election, nil
}

// ListVotable returns elections whose stored status could admit voting.
// Effective status still has to be resolved per request.
func (r *ElectionRepository) ListVotable(ctx context.Context) ([]models.Election, error) {
	const query = `SELECT id, title, description, status, start_time, end_time, voter_eligibility,
        allow_multiple_votes, require_verification, created_at, updated_at
        FROM elections WHERE status IN ($1, $2) ORDER BY start_time ASC`
	var elections []models.Election
	if err := r.db.SelectContext(ctx, &elections, query, models.ElectionStatusActive, models.ElectionStatusScheduled); err != nil {
		return nil, fmt.Errorf("list votable elections: %w", err)
	}
	return elections, nil
}
