package models

import "time"

// BallotAuditOutcome labels the result of a commit attempt.
type BallotAuditOutcome string

const (
	AuditOutcomeSuccess          BallotAuditOutcome = "success"
	AuditOutcomeUnauthorized     BallotAuditOutcome = "unauthorized"
	AuditOutcomeNotFound         BallotAuditOutcome = "not_found"
	AuditOutcomeElectionNotOpen  BallotAuditOutcome = "election_not_open"
	AuditOutcomeNotEligible      BallotAuditOutcome = "not_eligible"
	AuditOutcomeInvalidSelection BallotAuditOutcome = "invalid_selection"
	AuditOutcomeAlreadyVoted     BallotAuditOutcome = "already_voted"
	AuditOutcomeTransientError   BallotAuditOutcome = "transient_error"
)

// BallotAuditEvent is one append-only record per commit attempt. The commit
// outcome never depends on whether the event was persisted.
type BallotAuditEvent struct {
	ID         string             `db:"id" json:"id"`
	VoterID    string             `db:"voter_id" json:"voter_id"`
	ElectionID string             `db:"election_id" json:"election_id"`
	Outcome    BallotAuditOutcome `db:"outcome" json:"outcome"`
	Detail     string             `db:"detail" json:"detail"`
	IPAddress  string             `db:"ip_address" json:"ip_address"`
	UserAgent  string             `db:"user_agent" json:"user_agent"`
	CreatedAt  time.Time          `db:"created_at" json:"created_at"`
}
