package models

import (
	"fmt"
	"time"
)

// Position is a contested seat within an election. Registration-time
// invariants (max_votes_per_voter never exceeding max_candidates) are owned
// by the officer console and re-checked defensively at commit time.
type Position struct {
	ID               string    `db:"id" json:"id"`
	ElectionID       string    `db:"election_id" json:"election_id"`
	Title            string    `db:"title" json:"title"`
	MaxCandidates    int       `db:"max_candidates" json:"max_candidates"`
	MaxVotesPerVoter int       `db:"max_votes_per_voter" json:"max_votes_per_voter"`
	IsRequired       bool      `db:"is_required" json:"is_required"`
	IsActive         bool      `db:"is_active" json:"is_active"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

// NewPosition enforces the capacity invariants at construction time.
func NewPosition(id, electionID, title string, maxCandidates, maxVotesPerVoter int) (*Position, error) {
	if id == "" || electionID == "" {
		return nil, fmt.Errorf("position: id and election_id are required")
	}
	if maxCandidates < 1 {
		return nil, fmt.Errorf("position %s: max_candidates must be at least 1", id)
	}
	if maxVotesPerVoter < 1 || maxVotesPerVoter > maxCandidates {
		return nil, fmt.Errorf("position %s: max_votes_per_voter must be between 1 and max_candidates", id)
	}
	return &Position{
		ID:               id,
		ElectionID:       electionID,
		Title:            title,
		MaxCandidates:    maxCandidates,
		MaxVotesPerVoter: maxVotesPerVoter,
		IsActive:         true,
	}, nil
}

// SingleChoice reports whether the ballot UI should render a radio control.
func (p *Position) SingleChoice() bool {
	return p.MaxVotesPerVoter == 1
}

// BallotConstraints is the authoritative per-position validation input used
// both to size the UI control and, inside the commit transaction, to reject
// over-capacity or off-roster selections.
type BallotConstraints struct {
	PositionID        string              `json:"position_id"`
	MaxVotesPerVoter  int                 `json:"max_votes_per_voter"`
	IsRequired        bool                `json:"is_required"`
	ValidCandidateIDs map[string]struct{} `json:"-"`
}

// Allows reports whether the candidate belongs to the position's roster.
func (bc *BallotConstraints) Allows(candidateID string) bool {
	_, ok := bc.ValidCandidateIDs[candidateID]
	return ok
}

// CandidateIDs returns the roster as a slice for serialization.
func (bc *BallotConstraints) CandidateIDs() []string {
	ids := make([]string, 0, len(bc.ValidCandidateIDs))
	for id := range bc.ValidCandidateIDs {
		ids = append(ids, id)
	}
	return ids
}
