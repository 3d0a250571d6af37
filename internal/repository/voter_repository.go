package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-evote-api/internal/models"
)

// VoterRepository reads voters owned by the verification workflow.
type VoterRepository struct {
	db *sqlx.DB
}

// NewVoterRepository constructs the repository.
func NewVoterRepository(db *sqlx.DB) *VoterRepository {
	return &VoterRepository{db: db}
}

// FindByID returns a voter by its ID.
func (r *VoterRepository) FindByID(ctx context.Context, id string) (*models.Voter, error) {
	const query = `SELECT id, voter_number, full_name, password_hash, verified, active, created_at, updated_at
        FROM voters WHERE id = $1`
	var voter models.Voter
	if err := r.db.GetContext(ctx, &voter, query, id); err != nil {
		return nil, err
	}
	return &voter, nil
}

// FindByVoterNumber returns a voter by the number printed on their card.
func (r *VoterRepository) FindByVoterNumber(ctx context.Context, voterNumber string) (*models.Voter, error) {
	const query = `SELECT id, voter_number, full_name, password_hash, verified, active, created_at, updated_at
        FROM voters WHERE voter_number = $1`
	var voter models.Voter
	if err := r.db.GetContext(ctx, &voter, query, voterNumber); err != nil {
		return nil, err
	}
	return &voter, nil
}
