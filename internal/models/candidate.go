package models

import "time"

// Candidate nominates a voter for a position. election_id is denormalized
// so ballot queries avoid a join through positions.
type Candidate struct {
	ID         string    `db:"id" json:"id"`
	PositionID string    `db:"position_id" json:"position_id"`
	VoterID    string    `db:"voter_id" json:"voter_id"`
	ElectionID string    `db:"election_id" json:"election_id"`
	Platform   string    `db:"platform" json:"platform"`
	IsActive   bool      `db:"is_active" json:"is_active"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// CandidateDetail joins the nominated voter's name for display.
type CandidateDetail struct {
	Candidate
	FullName string `db:"full_name" json:"full_name"`
}
