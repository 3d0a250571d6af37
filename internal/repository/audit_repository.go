package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-evote-api/internal/models"
)

// AuditRepository appends ballot audit events. The log is write-only from
// the engine's point of view and is never consulted for duplicate detection.
type AuditRepository struct {
	db *sqlx.DB
}

// NewAuditRepository constructs the repository.
func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Create appends one audit event.
func (r *AuditRepository) Create(ctx context.Context, event *models.BallotAuditEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO ballot_audit_events (id, voter_id, election_id, outcome, detail, ip_address, user_agent, created_at)
        VALUES (:id, :voter_id, :election_id, :outcome, :detail, :ip_address, :user_agent, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, event); err != nil {
		return fmt.Errorf("create ballot audit event: %w", err)
	}
	return nil
}
