package call

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/quietline/quietline/internal/domain/entities"
	"github.com/quietline/quietline/internal/domain/repositories"
	"github.com/quietline/quietline/internal/usecase/bridge"
)

// CallDetail is a call together with its transcript
type CallDetail struct {
	Call     *entities.Call                `json:"call"`
	Segments []*entities.TranscriptSegment `json:"segments"`
}

// StatsOutput combines persisted aggregates with the live session count
type StatsOutput struct {
	repositories.CallStats
	ActiveSessions int `json:"active_sessions"`
}

// Service defines the interface for the call dashboard use case
type Service interface {
	// RecordInbound creates the call record when the voice webhook fires
	RecordInbound(ctx context.Context, externalSID, from, to string) (*entities.Call, error)

	// ListCalls retrieves calls with filters
	ListCalls(ctx context.Context, filters repositories.CallFilters) ([]*entities.Call, int64, error)

	// GetCall retrieves one call with its transcript
	GetCall(ctx context.Context, id uuid.UUID) (*CallDetail, error)

	// RateCall sets the 1-5 operator rating
	RateCall(ctx context.Context, id uuid.UUID, rating int) (*entities.Call, error)

	// UpdateNotes replaces the operator notes
	UpdateNotes(ctx context.Context, id uuid.UUID, notes string) (*entities.Call, error)

	// UpdateTags replaces the tag list
	UpdateTags(ctx context.Context, id uuid.UUID, tags []string) (*entities.Call, error)

	// DeleteCall removes a call, its transcript and its recording
	DeleteCall(ctx context.Context, id uuid.UUID) error

	// UploadRecording attaches an audio recording to a call
	UploadRecording(ctx context.Context, id uuid.UUID, reader io.Reader, size int64, contentType string) (*entities.Call, error)

	// RecordingURL returns a time-limited playback URL
	RecordingURL(ctx context.Context, id uuid.UUID) (string, error)

	// Stats returns dashboard aggregates, cached briefly
	Stats(ctx context.Context) (*StatsOutput, error)

	// ActiveSessions snapshots the sessions currently bridging audio
	ActiveSessions(ctx context.Context) []bridge.SessionInfo

	// MarkFailed marks a call failed from a status callback
	MarkFailed(ctx context.Context, externalSID string) error

	// MarkCompletedBySID finalizes a call from a status callback when the
	// bridge never ran (e.g. caller hung up before the stream opened)
	MarkCompletedBySID(ctx context.Context, externalSID string, duration time.Duration) error
}
