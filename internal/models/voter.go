package models

import "time"

// Voter is a student eligible to cast a ballot. Owned by the verification
// workflow; the ballot engine only reads the verified flag.
type Voter struct {
	ID           string    `db:"id" json:"id"`
	VoterNumber  string    `db:"voter_number" json:"voter_number"`
	FullName     string    `db:"full_name" json:"full_name"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Verified     bool      `db:"verified" json:"verified"`
	Active       bool      `db:"active" json:"active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}
