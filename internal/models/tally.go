package models

import "time"

// TallyRow is one candidate's vote count within a position, joined with
// display fields for the results screen.
type TallyRow struct {
	PositionID    string `db:"position_id" json:"position_id"`
	PositionTitle string `db:"position_title" json:"position_title"`
	CandidateID   string `db:"candidate_id" json:"candidate_id"`
	CandidateName string `db:"candidate_name" json:"candidate_name"`
	VoteCount     int    `db:"vote_count" json:"vote_count"`
}

// PositionResult groups tally rows under their position.
type PositionResult struct {
	PositionID    string     `json:"position_id"`
	PositionTitle string     `json:"position_title"`
	Candidates    []TallyRow `json:"candidates"`
}

// Turnout summarises participation in an election.
type Turnout struct {
	CompletedSessions int `db:"completed_sessions" json:"completed_sessions"`
	EligibleVoters    int `db:"eligible_voters" json:"eligible_voters"`
}

// ElectionResults is the full results payload for an election.
type ElectionResults struct {
	ElectionID      string           `json:"election_id"`
	ElectionTitle   string           `json:"election_title"`
	EffectiveStatus EffectiveStatus  `json:"effective_status"`
	Positions       []PositionResult `json:"positions"`
	Turnout         Turnout          `json:"turnout"`
	GeneratedAt     time.Time        `json:"generated_at"`
}
