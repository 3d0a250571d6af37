package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// VoterLoginRequest holds credentials for authenticating a voter.
type VoterLoginRequest struct {
	VoterNumber string `json:"voter_number" validate:"required"`
	Password    string `json:"password" validate:"required"`
	IP          string `json:"-"`
	UserAgent   string `json:"-"`
}

// VoterLoginResponse returns the issued token pair and voter info.
type VoterLoginResponse struct {
	AccessToken string    `json:"access_token"`
	CSRFToken   string    `json:"csrf_token"`
	ExpiresIn   int64     `json:"expires_in"`
	Voter       VoterInfo `json:"voter"`
	IssuedAt    time.Time `json:"issued_at"`
}

// VoterInfo describes the authenticated voter in responses.
type VoterInfo struct {
	ID          string `json:"id"`
	VoterNumber string `json:"voter_number"`
	FullName    string `json:"full_name"`
	Verified    bool   `json:"verified"`
}

// JWTClaims represents the JWT payload for voter access tokens. SessionID
// binds the CSRF token to this login session.
type JWTClaims struct {
	VoterID   string `json:"voter_id"`
	SessionID string `json:"session_id"`
	FullName  string `json:"full_name"`
	Verified  bool   `json:"verified"`
	jwt.RegisteredClaims
}
