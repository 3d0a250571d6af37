package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/sma-evote-api/internal/models"
	appErrors "github.com/noah-isme/sma-evote-api/pkg/errors"
)

// DraftRepository stores in-progress ballot drafts in Redis. Drafts are
// advisory per-voter state with a TTL; losing one only costs the voter a
// re-selection.
type DraftRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewDraftRepository constructs the repository.
func NewDraftRepository(client *redis.Client, ttl time.Duration) *DraftRepository {
	return &DraftRepository{client: client, ttl: ttl}
}

func draftKey(voterID, electionID string) string {
	return fmt.Sprintf("ballot_draft:%s:%s", electionID, voterID)
}

// Get loads a voter's draft for an election.
func (r *DraftRepository) Get(ctx context.Context, voterID, electionID string) (*models.BallotDraft, error) {
	if r.client == nil {
		return nil, appErrors.ErrCacheMiss
	}

	raw, err := r.client.Get(ctx, draftKey(voterID, electionID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, appErrors.ErrCacheMiss
		}
		return nil, fmt.Errorf("redis get draft: %w", err)
	}

	var draft models.BallotDraft
	if err := json.Unmarshal(raw, &draft); err != nil {
		return nil, fmt.Errorf("unmarshal draft: %w", err)
	}
	return &draft, nil
}

// Save stores the draft, refreshing its TTL.
func (r *DraftRepository) Save(ctx context.Context, draft *models.BallotDraft) error {
	if r.client == nil {
		return nil
	}

	payload, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("marshal draft: %w", err)
	}

	if err := r.client.Set(ctx, draftKey(draft.VoterID, draft.ElectionID), payload, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set draft: %w", err)
	}
	return nil
}

// Delete removes the draft after a successful commit.
func (r *DraftRepository) Delete(ctx context.Context, voterID, electionID string) error {
	if r.client == nil {
		return nil
	}
	if err := r.client.Del(ctx, draftKey(voterID, electionID)).Err(); err != nil {
		return fmt.Errorf("redis delete draft: %w", err)
	}
	return nil
}
