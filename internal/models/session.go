package models

import "time"

// SessionStatus tracks the lifecycle of a voting session.
type SessionStatus string

const (
	SessionStatusInProgress SessionStatus = "in_progress"
	SessionStatusCompleted  SessionStatus = "completed"
	SessionStatusAbandoned  SessionStatus = "abandoned"
)

// VotingSession is the durable record that a voter has completed voting in
// an election. At most one completed row may exist per (voter, election);
// the partial unique index on (voter_id, election_id) WHERE
// status = 'completed' is the serialization point for concurrent commits.
// Completed sessions are immutable.
type VotingSession struct {
	ID          string        `db:"id" json:"id"`
	VoterID     string        `db:"voter_id" json:"voter_id"`
	ElectionID  string        `db:"election_id" json:"election_id"`
	Status      SessionStatus `db:"status" json:"status"`
	CreatedAt   time.Time     `db:"created_at" json:"created_at"`
	CompletedAt *time.Time    `db:"completed_at" json:"completed_at,omitempty"`
}

// Vote records a single position/candidate selection. Every vote references
// a completed session; vote rows are never updated or deleted.
type Vote struct {
	ID              string    `db:"id" json:"id"`
	VotingSessionID string    `db:"voting_session_id" json:"voting_session_id"`
	PositionID      string    `db:"position_id" json:"position_id"`
	CandidateID     string    `db:"candidate_id" json:"candidate_id"`
	ElectionID      string    `db:"election_id" json:"election_id"`
	CastAt          time.Time `db:"cast_at" json:"cast_at"`
}
