package models

import (
	"fmt"
	"sort"
	"time"
)

// Ballot is the complete set of a voter's position -> candidate selections
// submitted in one commit attempt. It arrives from the client and is
// untrusted input regardless of how it was produced; the commit coordinator
// re-validates everything against authoritative data.
type Ballot map[string][]string

// NewBallot normalises a raw payload into a Ballot. It rejects empty
// ballots, empty position or candidate ids, and duplicate selections of the
// same candidate within a position. Capacity and roster checks need
// authoritative data and happen inside the commit transaction.
func NewBallot(raw map[string][]string) (Ballot, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("ballot: no selections")
	}
	ballot := make(Ballot, len(raw))
	for positionID, candidateIDs := range raw {
		if positionID == "" {
			return nil, fmt.Errorf("ballot: empty position id")
		}
		if len(candidateIDs) == 0 {
			return nil, fmt.Errorf("ballot: position %s has no selections", positionID)
		}
		seen := make(map[string]struct{}, len(candidateIDs))
		ids := make([]string, 0, len(candidateIDs))
		for _, candidateID := range candidateIDs {
			if candidateID == "" {
				return nil, fmt.Errorf("ballot: position %s has an empty candidate id", positionID)
			}
			if _, dup := seen[candidateID]; dup {
				return nil, fmt.Errorf("ballot: candidate %s selected twice for position %s", candidateID, positionID)
			}
			seen[candidateID] = struct{}{}
			ids = append(ids, candidateID)
		}
		ballot[positionID] = ids
	}
	return ballot, nil
}

// PositionIDs returns the voted positions in a stable order.
func (b Ballot) PositionIDs() []string {
	ids := make([]string, 0, len(b))
	for id := range b {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// TotalSelections counts every position/candidate pair on the ballot.
func (b Ballot) TotalSelections() int {
	total := 0
	for _, ids := range b {
		total += len(ids)
	}
	return total
}

// BallotDraft holds a voter's in-progress selections across the multi-page
// voting flow. It is advisory state: losing it only costs the voter a
// re-selection, and the server never trusts it beyond its payload shape.
type BallotDraft struct {
	VoterID    string              `json:"voter_id"`
	ElectionID string              `json:"election_id"`
	Selections map[string][]string `json:"selections"`
	Page       int                 `json:"page"`
	UpdatedAt  time.Time           `json:"updated_at"`
}

// Serialize produces the Ballot payload submitted to the commit endpoint.
func (d *BallotDraft) Serialize() map[string][]string {
	out := make(map[string][]string, len(d.Selections))
	for positionID, candidateIDs := range d.Selections {
		if len(candidateIDs) == 0 {
			continue
		}
		out[positionID] = append([]string(nil), candidateIDs...)
	}
	return out
}
