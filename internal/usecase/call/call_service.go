// Package call implements the dashboard-facing operations around persisted
// calls: listing, rating, notes, tags, recordings and statistics.
package call

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/quietline/quietline/errors"
	"github.com/quietline/quietline/internal/domain/entities"
	"github.com/quietline/quietline/internal/domain/repositories"
	"github.com/quietline/quietline/internal/infrastructure/cache"
	"github.com/quietline/quietline/internal/infrastructure/storage"
	"github.com/quietline/quietline/internal/usecase/bridge"
)

const (
	statsCacheKey = "quietline:stats"
	statsCacheTTL = 60 * time.Second
)

// CallService implements the Service interface
type CallService struct {
	calls       repositories.CallRepository
	transcripts repositories.TranscriptRepository
	registry    *bridge.Registry
	cache       cache.Store
	storage     *storage.MinIOClient
	urlExpiry   time.Duration
	logger      *zap.Logger
}

// NewCallService creates a new call service
func NewCallService(
	calls repositories.CallRepository,
	transcripts repositories.TranscriptRepository,
	registry *bridge.Registry,
	cacheStore cache.Store,
	storageClient *storage.MinIOClient,
	urlExpiry time.Duration,
	logger *zap.Logger,
) *CallService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CallService{
		calls:       calls,
		transcripts: transcripts,
		registry:    registry,
		cache:       cacheStore,
		storage:     storageClient,
		urlExpiry:   urlExpiry,
		logger:      logger,
	}
}

var _ Service = (*CallService)(nil)

// RecordInbound creates the call record when the voice webhook fires.
// Replaying the webhook for a known SID returns the existing record.
func (s *CallService) RecordInbound(ctx context.Context, externalSID, from, to string) (*entities.Call, error) {
	if id, ok, err := s.calls.FindIDByExternalSID(ctx, externalSID); err == nil && ok {
		return s.calls.FindByID(ctx, id)
	}

	call := &entities.Call{
		ID:          uuid.New(),
		ExternalSID: externalSID,
		FromNumber:  from,
		ToNumber:    to,
		Status:      entities.CallStatusRinging,
		Tags:        datatypes.JSON([]byte("[]")),
	}
	if err := s.calls.Create(ctx, call); err != nil {
		return nil, errors.ErrDBQueryFailed("create call", err)
	}
	s.logger.Info("inbound call recorded",
		zap.String("external_sid", externalSID),
		zap.String("from", from))
	return call, nil
}

// ListCalls retrieves calls with filters
func (s *CallService) ListCalls(ctx context.Context, filters repositories.CallFilters) ([]*entities.Call, int64, error) {
	calls, total, err := s.calls.List(ctx, filters)
	if err != nil {
		return nil, 0, errors.ErrDBQueryFailed("list calls", err)
	}
	return calls, total, nil
}

// GetCall retrieves one call with its transcript
func (s *CallService) GetCall(ctx context.Context, id uuid.UUID) (*CallDetail, error) {
	call, err := s.findCall(ctx, id)
	if err != nil {
		return nil, err
	}

	segments, err := s.transcripts.FindByCallID(ctx, id)
	if err != nil {
		return nil, errors.ErrDBQueryFailed("load transcript", err)
	}
	return &CallDetail{Call: call, Segments: segments}, nil
}

// RateCall sets the 1-5 operator rating
func (s *CallService) RateCall(ctx context.Context, id uuid.UUID, rating int) (*entities.Call, error) {
	if rating < 1 || rating > 5 {
		return nil, errors.ErrInvalidRating(rating)
	}

	call, err := s.findCall(ctx, id)
	if err != nil {
		return nil, err
	}

	call.Rating = &rating
	if err := s.calls.Update(ctx, call); err != nil {
		return nil, errors.ErrDBQueryFailed("rate call", err)
	}
	s.invalidateStats(ctx)
	return call, nil
}

// UpdateNotes replaces the operator notes
func (s *CallService) UpdateNotes(ctx context.Context, id uuid.UUID, notes string) (*entities.Call, error) {
	call, err := s.findCall(ctx, id)
	if err != nil {
		return nil, err
	}

	call.Notes = &notes
	if err := s.calls.Update(ctx, call); err != nil {
		return nil, errors.ErrDBQueryFailed("update notes", err)
	}
	return call, nil
}

// UpdateTags replaces the tag list
func (s *CallService) UpdateTags(ctx context.Context, id uuid.UUID, tags []string) (*entities.Call, error) {
	call, err := s.findCall(ctx, id)
	if err != nil {
		return nil, err
	}

	raw, err := json.Marshal(tags)
	if err != nil {
		return nil, errors.ErrInternal(err)
	}
	call.Tags = datatypes.JSON(raw)
	if err := s.calls.Update(ctx, call); err != nil {
		return nil, errors.ErrDBQueryFailed("update tags", err)
	}
	return call, nil
}

// DeleteCall removes a call, its transcript and its recording
func (s *CallService) DeleteCall(ctx context.Context, id uuid.UUID) error {
	call, err := s.findCall(ctx, id)
	if err != nil {
		return err
	}

	if call.HasRecording() && s.storage != nil {
		if err := s.storage.DeleteRecording(ctx, *call.RecordingKey); err != nil {
			s.logger.Warn("failed to delete recording object",
				zap.String("key", *call.RecordingKey),
				zap.Error(err))
		}
	}

	if err := s.calls.Delete(ctx, id); err != nil {
		return errors.ErrDBQueryFailed("delete call", err)
	}
	s.invalidateStats(ctx)
	return nil
}

// UploadRecording attaches an audio recording to a call
func (s *CallService) UploadRecording(ctx context.Context, id uuid.UUID, reader io.Reader, size int64, contentType string) (*entities.Call, error) {
	call, err := s.findCall(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.storage == nil {
		return nil, errors.ErrRecordingUploadFailed(id.String(), fmt.Errorf("storage not configured"))
	}

	key := fmt.Sprintf("recordings/%s.wav", call.ID)
	if err := s.storage.UploadRecording(ctx, key, reader, size, contentType); err != nil {
		return nil, errors.ErrRecordingUploadFailed(id.String(), err)
	}
	if err := s.calls.SetRecordingKey(ctx, id, key); err != nil {
		return nil, errors.ErrDBQueryFailed("set recording key", err)
	}
	call.RecordingKey = &key
	return call, nil
}

// RecordingURL returns a time-limited playback URL
func (s *CallService) RecordingURL(ctx context.Context, id uuid.UUID) (string, error) {
	call, err := s.findCall(ctx, id)
	if err != nil {
		return "", err
	}
	if !call.HasRecording() || s.storage == nil {
		return "", errors.ErrRecordingNotFound(id.String())
	}

	url, err := s.storage.PresignedURL(ctx, *call.RecordingKey, s.urlExpiry)
	if err != nil {
		return "", errors.ErrRecordingFetchFailed(id.String(), err)
	}
	return url, nil
}

// Stats returns dashboard aggregates. Results are cached briefly; a cache
// failure falls through to the database.
func (s *CallService) Stats(ctx context.Context) (*StatsOutput, error) {
	if s.cache != nil {
		if cached, ok, err := s.cache.Get(ctx, statsCacheKey); err == nil && ok {
			var out StatsOutput
			if err := json.Unmarshal([]byte(cached), &out); err == nil {
				out.ActiveSessions = s.registry.Count()
				return &out, nil
			}
		}
	}

	stats, err := s.calls.Stats(ctx)
	if err != nil {
		return nil, errors.ErrDBQueryFailed("aggregate stats", err)
	}
	out := &StatsOutput{CallStats: *stats, ActiveSessions: s.registry.Count()}

	if s.cache != nil {
		if raw, err := json.Marshal(out); err == nil {
			if err := s.cache.Set(ctx, statsCacheKey, string(raw), statsCacheTTL); err != nil {
				s.logger.Warn("failed to cache stats", zap.Error(err))
			}
		}
	}
	return out, nil
}

// ActiveSessions snapshots the sessions currently bridging audio
func (s *CallService) ActiveSessions(ctx context.Context) []bridge.SessionInfo {
	return s.registry.Snapshot()
}

// MarkFailed marks a call failed from a status callback
func (s *CallService) MarkFailed(ctx context.Context, externalSID string) error {
	id, ok, err := s.calls.FindIDByExternalSID(ctx, externalSID)
	if err != nil {
		return errors.ErrDBQueryFailed("resolve call", err)
	}
	if !ok {
		return nil
	}

	call, err := s.calls.FindByID(ctx, id)
	if err != nil || call == nil {
		return nil
	}
	call.Status = entities.CallStatusFailed
	return s.calls.Update(ctx, call)
}

// MarkCompletedBySID finalizes a call from a status callback when the bridge
// never ran
func (s *CallService) MarkCompletedBySID(ctx context.Context, externalSID string, duration time.Duration) error {
	id, ok, err := s.calls.FindIDByExternalSID(ctx, externalSID)
	if err != nil {
		return errors.ErrDBQueryFailed("resolve call", err)
	}
	if !ok {
		return nil
	}

	call, err := s.calls.FindByID(ctx, id)
	if err != nil || call == nil {
		return nil
	}
	if call.Status == entities.CallStatusCompleted {
		return nil
	}
	return s.calls.MarkCompleted(ctx, id, int(duration.Seconds()))
}

func (s *CallService) findCall(ctx context.Context, id uuid.UUID) (*entities.Call, error) {
	call, err := s.calls.FindByID(ctx, id)
	if err != nil {
		return nil, errors.ErrDBQueryFailed("find call", err)
	}
	if call == nil {
		return nil, errors.ErrCallNotFound(id.String())
	}
	return call, nil
}

func (s *CallService) invalidateStats(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, statsCacheKey); err != nil {
		s.logger.Warn("failed to invalidate stats cache", zap.Error(err))
	}
}
