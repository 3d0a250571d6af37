package service

import (
	"time"

	"github.com/noah-isme/sma-evote-api/internal/models"
)

// ResolveEffectiveStatus derives an election's voting-relevant phase from
// its stored status and the time window. Pure and total: terminal stored
// statuses win outright, scheduled/active elections are placed on the
// timeline, and unknown stored statuses pass through unchanged so newer
// officer-console statuses degrade gracefully.
//
// Callers rendering a ballot may use any recent clock reading; the commit
// coordinator calls this again with its own clock read at transaction time
// so a stale page can never vote into a closed window.
func ResolveEffectiveStatus(stored models.ElectionStatus, start, end, now time.Time) models.EffectiveStatus {
	switch stored {
	case models.ElectionStatusCancelled:
		return models.EffectiveCancelled
	case models.ElectionStatusDraft:
		return models.EffectiveDraft
	case models.ElectionStatusCompleted:
		return models.EffectiveCompleted
	case models.ElectionStatusActive, models.ElectionStatusScheduled:
		if now.Before(start) {
			return models.EffectiveUpcoming
		}
		if now.After(end) {
			return models.EffectiveEnded
		}
		return models.EffectiveActive
	default:
		return models.EffectiveStatus(stored)
	}
}
