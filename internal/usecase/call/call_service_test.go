package call

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	apperrors "github.com/quietline/quietline/errors"
	"github.com/quietline/quietline/internal/domain/entities"
	"github.com/quietline/quietline/internal/domain/repositories"
	"github.com/quietline/quietline/internal/infrastructure/cache"
	"github.com/quietline/quietline/internal/usecase/bridge"
)

type memCallRepo struct {
	calls      map[uuid.UUID]*entities.Call
	statsCalls int
}

func newMemCallRepo() *memCallRepo {
	return &memCallRepo{calls: make(map[uuid.UUID]*entities.Call)}
}

func (r *memCallRepo) Create(ctx context.Context, call *entities.Call) error {
	r.calls[call.ID] = call
	return nil
}

func (r *memCallRepo) FindByID(ctx context.Context, id uuid.UUID) (*entities.Call, error) {
	call, ok := r.calls[id]
	if !ok {
		return nil, nil
	}
	cp := *call
	return &cp, nil
}

func (r *memCallRepo) FindIDByExternalSID(ctx context.Context, sid string) (uuid.UUID, bool, error) {
	for id, call := range r.calls {
		if call.ExternalSID == sid {
			return id, true, nil
		}
	}
	return uuid.Nil, false, nil
}

func (r *memCallRepo) MarkInProgress(ctx context.Context, id uuid.UUID) error {
	if call, ok := r.calls[id]; ok {
		call.Status = entities.CallStatusInProgress
	}
	return nil
}

func (r *memCallRepo) MarkCompleted(ctx context.Context, id uuid.UUID, durationSeconds int) error {
	if call, ok := r.calls[id]; ok {
		call.Status = entities.CallStatusCompleted
		call.DurationSeconds = &durationSeconds
	}
	return nil
}

func (r *memCallRepo) Update(ctx context.Context, call *entities.Call) error {
	r.calls[call.ID] = call
	return nil
}

func (r *memCallRepo) Delete(ctx context.Context, id uuid.UUID) error {
	delete(r.calls, id)
	return nil
}

func (r *memCallRepo) List(ctx context.Context, filters repositories.CallFilters) ([]*entities.Call, int64, error) {
	var out []*entities.Call
	for _, call := range r.calls {
		if filters.Status != "" && string(call.Status) != filters.Status {
			continue
		}
		out = append(out, call)
	}
	return out, int64(len(out)), nil
}

func (r *memCallRepo) SetRecordingKey(ctx context.Context, id uuid.UUID, key string) error {
	if call, ok := r.calls[id]; ok {
		call.RecordingKey = &key
	}
	return nil
}

func (r *memCallRepo) Stats(ctx context.Context) (*repositories.CallStats, error) {
	r.statsCalls++
	return &repositories.CallStats{TotalCalls: int64(len(r.calls))}, nil
}

type memTranscriptRepo struct {
	segments []*entities.TranscriptSegment
}

func (r *memTranscriptRepo) Append(ctx context.Context, segment *entities.TranscriptSegment) error {
	r.segments = append(r.segments, segment)
	return nil
}

func (r *memTranscriptRepo) FindByCallID(ctx context.Context, callID uuid.UUID) ([]*entities.TranscriptSegment, error) {
	var out []*entities.TranscriptSegment
	for _, seg := range r.segments {
		if seg.CallID == callID {
			out = append(out, seg)
		}
	}
	return out, nil
}

func newTestService(repo *memCallRepo) *CallService {
	return NewCallService(repo, &memTranscriptRepo{}, bridge.NewRegistry(nil), cache.NewMemoryStore(), nil, time.Hour, nil)
}

func seedCall(repo *memCallRepo) *entities.Call {
	call := &entities.Call{
		ID:          uuid.New(),
		ExternalSID: "CA1",
		FromNumber:  "+15550001111",
		ToNumber:    "+15552223333",
		Status:      entities.CallStatusCompleted,
		Tags:        datatypes.JSON([]byte("[]")),
	}
	repo.calls[call.ID] = call
	return call
}

func TestRecordInbound_IdempotentOnReplay(t *testing.T) {
	repo := newMemCallRepo()
	svc := newTestService(repo)

	first, err := svc.RecordInbound(context.Background(), "CA1", "+15550001111", "+15552223333")
	if err != nil {
		t.Fatalf("RecordInbound failed: %v", err)
	}
	second, err := svc.RecordInbound(context.Background(), "CA1", "+15550001111", "+15552223333")
	if err != nil {
		t.Fatalf("replayed RecordInbound failed: %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("replay created a second record: %s vs %s", first.ID, second.ID)
	}
	if len(repo.calls) != 1 {
		t.Errorf("expected one stored call, got %d", len(repo.calls))
	}
}

func TestRateCall_Validation(t *testing.T) {
	repo := newMemCallRepo()
	call := seedCall(repo)
	svc := newTestService(repo)

	if _, err := svc.RateCall(context.Background(), call.ID, 0); err == nil {
		t.Fatal("expected rating 0 to be rejected")
	}
	if _, err := svc.RateCall(context.Background(), call.ID, 6); err == nil {
		t.Fatal("expected rating 6 to be rejected")
	}

	updated, err := svc.RateCall(context.Background(), call.ID, 4)
	if err != nil {
		t.Fatalf("RateCall failed: %v", err)
	}
	if updated.Rating == nil || *updated.Rating != 4 {
		t.Errorf("rating not persisted: %+v", updated.Rating)
	}
}

func TestRateCall_NotFound(t *testing.T) {
	svc := newTestService(newMemCallRepo())

	_, err := svc.RateCall(context.Background(), uuid.New(), 3)
	appErr, ok := err.(apperrors.AppError)
	if !ok {
		t.Fatalf("expected AppError, got %T", err)
	}
	if appErr.Code != apperrors.ErrorCode_CALL_NOT_FOUND {
		t.Errorf("unexpected code: %s", appErr.Code)
	}
}

func TestUpdateTags(t *testing.T) {
	repo := newMemCallRepo()
	call := seedCall(repo)
	svc := newTestService(repo)

	updated, err := svc.UpdateTags(context.Background(), call.ID, []string{"scam", "extended-warranty"})
	if err != nil {
		t.Fatalf("UpdateTags failed: %v", err)
	}
	var tags []string
	if err := json.Unmarshal(updated.Tags, &tags); err != nil {
		t.Fatalf("tags are not valid JSON: %v", err)
	}
	if len(tags) != 2 || tags[0] != "scam" {
		t.Errorf("unexpected tags: %v", tags)
	}
}

func TestStats_Cached(t *testing.T) {
	repo := newMemCallRepo()
	seedCall(repo)
	svc := newTestService(repo)

	if _, err := svc.Stats(context.Background()); err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if _, err := svc.Stats(context.Background()); err != nil {
		t.Fatalf("second Stats failed: %v", err)
	}
	if repo.statsCalls != 1 {
		t.Errorf("expected one aggregate query, got %d", repo.statsCalls)
	}
}

func TestMarkCompletedBySID_NoRecordIsNoop(t *testing.T) {
	svc := newTestService(newMemCallRepo())
	if err := svc.MarkCompletedBySID(context.Background(), "CA-unknown", time.Minute); err != nil {
		t.Fatalf("expected no error for unknown SID, got %v", err)
	}
}
