package models

import (
	"fmt"
	"time"
)

// ElectionStatus is the status stored by the election-officer console.
type ElectionStatus string

const (
	ElectionStatusDraft     ElectionStatus = "draft"
	ElectionStatusScheduled ElectionStatus = "scheduled"
	ElectionStatusActive    ElectionStatus = "active"
	ElectionStatusCompleted ElectionStatus = "completed"
	ElectionStatusCancelled ElectionStatus = "cancelled"
)

// EffectiveStatus is the voting-relevant phase derived from the stored
// status plus the current time. It is what the ballot flow acts on; the raw
// stored status is never consulted directly outside the resolver.
type EffectiveStatus string

const (
	EffectiveDraft     EffectiveStatus = "draft"
	EffectiveUpcoming  EffectiveStatus = "upcoming"
	EffectiveActive    EffectiveStatus = "active"
	EffectiveEnded     EffectiveStatus = "ended"
	EffectiveCompleted EffectiveStatus = "completed"
	EffectiveCancelled EffectiveStatus = "cancelled"
)

// Election is owned and mutated by the officer console; the ballot engine
// only ever reads it.
type Election struct {
	ID                  string         `db:"id" json:"id"`
	Title               string         `db:"title" json:"title"`
	Description         string         `db:"description" json:"description"`
	Status              ElectionStatus `db:"status" json:"status"`
	StartTime           time.Time      `db:"start_time" json:"start_time"`
	EndTime             time.Time      `db:"end_time" json:"end_time"`
	VoterEligibility    string         `db:"voter_eligibility" json:"voter_eligibility"`
	AllowMultipleVotes  bool           `db:"allow_multiple_votes" json:"allow_multiple_votes"`
	RequireVerification bool           `db:"require_verification" json:"require_verification"`
	CreatedAt           time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time      `db:"updated_at" json:"updated_at"`
}

// NewElection validates the invariants the officer console is supposed to
// guarantee. The ballot engine constructs elections only in tests; the
// constructor exists so those invariants live in one place.
func NewElection(id, title string, status ElectionStatus, start, end time.Time) (*Election, error) {
	if id == "" {
		return nil, fmt.Errorf("election: id is required")
	}
	if !start.Before(end) {
		return nil, fmt.Errorf("election %s: start_time must precede end_time", id)
	}
	return &Election{ID: id, Title: title, Status: status, StartTime: start, EndTime: end}, nil
}

// VotingWindow reports the start and end of the voting window.
func (e *Election) VotingWindow() (time.Time, time.Time) {
	return e.StartTime, e.EndTime
}
