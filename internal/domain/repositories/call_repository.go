package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/quietline/quietline/internal/domain/entities"
)

// CallFilters narrows call listings
type CallFilters struct {
	Status     string
	FromNumber string
	Tag        string
	Search     string
	After      *time.Time
	Before     *time.Time
	Limit      int
	Offset     int
}

// CallStats aggregates persisted call figures for the dashboard
type CallStats struct {
	TotalCalls           int64   `json:"total_calls"`
	CompletedCalls       int64   `json:"completed_calls"`
	CallsToday           int64   `json:"calls_today"`
	TotalDurationSeconds int64   `json:"total_duration_seconds"`
	AvgDurationSeconds   float64 `json:"avg_duration_seconds"`
	AvgRating            float64 `json:"avg_rating"`
}

// CallRepository defines the interface for call data access
type CallRepository interface {
	// Create creates a new call record
	Create(ctx context.Context, call *entities.Call) error

	// FindByID retrieves a call by its ID; returns nil when absent
	FindByID(ctx context.Context, id uuid.UUID) (*entities.Call, error)

	// FindIDByExternalSID resolves the internal record id for a telephony
	// call SID; the boolean reports whether a record exists
	FindIDByExternalSID(ctx context.Context, sid string) (uuid.UUID, bool, error)

	// MarkInProgress transitions a call to in_progress; no-op when absent
	MarkInProgress(ctx context.Context, id uuid.UUID) error

	// MarkCompleted finalizes a call with its duration; no-op when absent
	MarkCompleted(ctx context.Context, id uuid.UUID, durationSeconds int) error

	// Update persists mutable dashboard fields (rating, notes, tags)
	Update(ctx context.Context, call *entities.Call) error

	// Delete removes a call and its transcript segments
	Delete(ctx context.Context, id uuid.UUID) error

	// List retrieves calls with filters and pagination
	List(ctx context.Context, filters CallFilters) ([]*entities.Call, int64, error)

	// SetRecordingKey attaches an uploaded recording object key
	SetRecordingKey(ctx context.Context, id uuid.UUID, key string) error

	// Stats aggregates dashboard statistics
	Stats(ctx context.Context) (*CallStats, error)
}

// TranscriptRepository defines the interface for transcript segment access
type TranscriptRepository interface {
	// Append persists one completed utterance
	Append(ctx context.Context, segment *entities.TranscriptSegment) error

	// FindByCallID retrieves a call's segments ordered by timestamp
	FindByCallID(ctx context.Context, callID uuid.UUID) ([]*entities.TranscriptSegment, error)
}
