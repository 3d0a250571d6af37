package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/sma-evote-api/internal/models"
)

func TestResolveEffectiveStatus(t *testing.T) {
	start := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 10, 16, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		stored models.ElectionStatus
		now    time.Time
		want   models.EffectiveStatus
	}{
		{"cancelled wins over open window", models.ElectionStatusCancelled, start.Add(time.Hour), models.EffectiveCancelled},
		{"cancelled wins before window", models.ElectionStatusCancelled, start.Add(-time.Hour), models.EffectiveCancelled},
		{"draft never opens", models.ElectionStatusDraft, start.Add(time.Hour), models.EffectiveDraft},
		{"completed wins inside window", models.ElectionStatusCompleted, start.Add(time.Hour), models.EffectiveCompleted},
		{"scheduled before start is upcoming", models.ElectionStatusScheduled, start.Add(-time.Minute), models.EffectiveUpcoming},
		{"scheduled inside window is active", models.ElectionStatusScheduled, start.Add(time.Hour), models.EffectiveActive},
		{"active before start is upcoming", models.ElectionStatusActive, start.Add(-time.Minute), models.EffectiveUpcoming},
		{"active inside window is active", models.ElectionStatusActive, start.Add(4 * time.Hour), models.EffectiveActive},
		{"active after end is ended", models.ElectionStatusActive, end.Add(time.Second), models.EffectiveEnded},
		{"exactly at start is active", models.ElectionStatusActive, start, models.EffectiveActive},
		{"exactly at end is active", models.ElectionStatusActive, end, models.EffectiveActive},
		{"unknown status passes through", models.ElectionStatus("archived"), start.Add(time.Hour), models.EffectiveStatus("archived")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveEffectiveStatus(tt.stored, start, end, tt.now)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveEffectiveStatusIsPure(t *testing.T) {
	start := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 10, 16, 0, 0, 0, time.UTC)
	now := start.Add(time.Hour)

	first := ResolveEffectiveStatus(models.ElectionStatusActive, start, end, now)
	second := ResolveEffectiveStatus(models.ElectionStatusActive, start, end, now)
	assert.Equal(t, first, second)
}
