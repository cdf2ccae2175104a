package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/quietline/quietline/internal/domain/entities"
	"github.com/quietline/quietline/internal/domain/repositories"
	"github.com/quietline/quietline/internal/usecase/bridge"
)

// bridgeStore adapts the call and transcript repositories to the narrow
// persistence port the bridge relies on.
type bridgeStore struct {
	calls       repositories.CallRepository
	transcripts repositories.TranscriptRepository
}

// NewBridgeStore creates the bridge's persistence adapter
func NewBridgeStore(calls repositories.CallRepository, transcripts repositories.TranscriptRepository) bridge.CallStore {
	return &bridgeStore{calls: calls, transcripts: transcripts}
}

func (s *bridgeStore) FindCallIDByExternalSID(ctx context.Context, sid string) (uuid.UUID, bool, error) {
	return s.calls.FindIDByExternalSID(ctx, sid)
}

func (s *bridgeStore) MarkCallInProgress(ctx context.Context, id uuid.UUID) error {
	return s.calls.MarkInProgress(ctx, id)
}

func (s *bridgeStore) MarkCallCompleted(ctx context.Context, id uuid.UUID, durationSeconds int) error {
	return s.calls.MarkCompleted(ctx, id, durationSeconds)
}

func (s *bridgeStore) AppendTranscriptSegment(ctx context.Context, id uuid.UUID, speaker entities.Speaker, text string, timestampSeconds float64) error {
	return s.transcripts.Append(ctx, &entities.TranscriptSegment{
		CallID:           id,
		Speaker:          speaker,
		Text:             text,
		TimestampSeconds: timestampSeconds,
	})
}
