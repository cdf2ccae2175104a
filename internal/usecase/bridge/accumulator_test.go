package bridge

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/quietline/quietline/internal/domain/entities"
)

type segmentRec struct {
	callID    uuid.UUID
	speaker   entities.Speaker
	text      string
	timestamp float64
}

type fakeStore struct {
	mu         sync.Mutex
	known      map[string]uuid.UUID
	findErr    error
	appendErr  error
	inProgress []uuid.UUID
	completed  []int
	segments   []segmentRec
}

func newFakeStore() *fakeStore {
	return &fakeStore{known: make(map[string]uuid.UUID)}
}

func (f *fakeStore) FindCallIDByExternalSID(ctx context.Context, sid string) (uuid.UUID, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return uuid.Nil, false, f.findErr
	}
	id, ok := f.known[sid]
	return id, ok, nil
}

func (f *fakeStore) MarkCallInProgress(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inProgress = append(f.inProgress, id)
	return nil
}

func (f *fakeStore) MarkCallCompleted(ctx context.Context, id uuid.UUID, durationSeconds int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completed = append(f.completed, durationSeconds)
	return nil
}

func (f *fakeStore) AppendTranscriptSegment(ctx context.Context, id uuid.UUID, speaker entities.Speaker, text string, timestampSeconds float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appendErr != nil {
		return f.appendErr
	}
	f.segments = append(f.segments, segmentRec{id, speaker, text, timestampSeconds})
	return nil
}

func (f *fakeStore) segmentSnapshot() []segmentRec {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]segmentRec(nil), f.segments...)
}

func TestAccumulator_DeltasCollapseToOneSegment(t *testing.T) {
	store := newFakeStore()
	acc := NewAccumulator(store, time.Now(), nil)
	acc.BindCall(uuid.New())

	ctx := context.Background()
	acc.Append(ctx, entities.SpeakerAI, "Hel", false)
	acc.Append(ctx, entities.SpeakerAI, "lo th", false)
	acc.Append(ctx, entities.SpeakerAI, "ere", false)
	acc.Append(ctx, entities.SpeakerAI, "Hello there", true)

	segs := store.segmentSnapshot()
	if len(segs) != 1 {
		t.Fatalf("expected exactly one segment, got %d", len(segs))
	}
	if segs[0].text != "Hello there" {
		t.Errorf("unexpected text: %q", segs[0].text)
	}
	if segs[0].speaker != entities.SpeakerAI {
		t.Errorf("unexpected speaker: %s", segs[0].speaker)
	}
}

func TestAccumulator_WhitespaceNeverPersisted(t *testing.T) {
	store := newFakeStore()
	acc := NewAccumulator(store, time.Now(), nil)
	acc.BindCall(uuid.New())

	ctx := context.Background()
	acc.Append(ctx, entities.SpeakerCaller, "   ", false)
	acc.Append(ctx, entities.SpeakerCaller, "", true)
	acc.FlushAll(ctx)

	if segs := store.segmentSnapshot(); len(segs) != 0 {
		t.Fatalf("expected no segments, got %v", segs)
	}
}

func TestAccumulator_SpeakerChangeFlushes(t *testing.T) {
	store := newFakeStore()
	acc := NewAccumulator(store, time.Now(), nil)
	acc.BindCall(uuid.New())

	ctx := context.Background()
	acc.Append(ctx, entities.SpeakerAI, "How are you today", false)
	acc.Append(ctx, entities.SpeakerCaller, "Fine thanks", true)

	segs := store.segmentSnapshot()
	if len(segs) != 2 {
		t.Fatalf("expected two segments, got %d", len(segs))
	}
	if segs[0].speaker != entities.SpeakerAI || segs[0].text != "How are you today" {
		t.Errorf("unexpected first segment: %+v", segs[0])
	}
	if segs[1].speaker != entities.SpeakerCaller || segs[1].text != "Fine thanks" {
		t.Errorf("unexpected second segment: %+v", segs[1])
	}
	if segs[1].timestamp < segs[0].timestamp {
		t.Errorf("timestamps not increasing: %v then %v", segs[0].timestamp, segs[1].timestamp)
	}
}

func TestAccumulator_FlushAllOnTeardown(t *testing.T) {
	store := newFakeStore()
	acc := NewAccumulator(store, time.Now(), nil)
	acc.BindCall(uuid.New())

	ctx := context.Background()
	acc.Append(ctx, entities.SpeakerAI, "I was just saying", false)
	acc.FlushAll(ctx)

	segs := store.segmentSnapshot()
	if len(segs) != 1 || segs[0].text != "I was just saying" {
		t.Fatalf("expected the open utterance flushed, got %v", segs)
	}
}

func TestAccumulator_StoreFailureSwallowed(t *testing.T) {
	store := newFakeStore()
	store.appendErr = errors.New("db down")
	acc := NewAccumulator(store, time.Now(), nil)
	acc.BindCall(uuid.New())

	ctx := context.Background()
	acc.Append(ctx, entities.SpeakerCaller, "hello", true)

	// The next flush after recovery still works.
	store.mu.Lock()
	store.appendErr = nil
	store.mu.Unlock()
	acc.Append(ctx, entities.SpeakerCaller, "still here", true)

	segs := store.segmentSnapshot()
	if len(segs) != 1 || segs[0].text != "still here" {
		t.Fatalf("unexpected segments after store recovery: %v", segs)
	}
}

func TestAccumulator_NoCallRecordDropsSegments(t *testing.T) {
	store := newFakeStore()
	acc := NewAccumulator(store, time.Now(), nil)

	acc.Append(context.Background(), entities.SpeakerCaller, "who is this", true)

	if segs := store.segmentSnapshot(); len(segs) != 0 {
		t.Fatalf("expected nothing persisted without a call record, got %v", segs)
	}
}
