package bridge

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/quietline/quietline/internal/domain/entities"
)

// pendingUtterance is one in-progress speaker turn.
type pendingUtterance struct {
	speaker  entities.Speaker
	text     strings.Builder
	openedAt float64
}

// Accumulator turns streaming transcript fragments into discrete persisted
// utterances. At most one utterance is open at a time; a speaker change or an
// explicit turn stop flushes it before the next one opens.
type Accumulator struct {
	store     CallStore
	logger    *zap.Logger
	startedAt time.Time

	mu      sync.Mutex
	callID  uuid.UUID
	hasCall bool
	pending *pendingUtterance
}

// NewAccumulator builds an accumulator anchored at the session start time.
// Timestamps on persisted segments are seconds relative to that anchor.
func NewAccumulator(store CallStore, startedAt time.Time, logger *zap.Logger) *Accumulator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Accumulator{store: store, startedAt: startedAt, logger: logger}
}

// BindCall attaches the resolved call record. Fragments accumulated before a
// record exists are dropped at flush time with a warning.
func (a *Accumulator) BindCall(callID uuid.UUID) {
	a.mu.Lock()
	a.callID = callID
	a.hasCall = true
	a.mu.Unlock()
}

// Append adds a fragment for the given speaker. A different speaker flushes
// the open utterance first; final closes and flushes immediately.
func (a *Accumulator) Append(ctx context.Context, speaker entities.Speaker, text string, final bool) {
	a.mu.Lock()
	if a.pending != nil && a.pending.speaker != speaker {
		a.flushLocked(ctx)
	}
	if a.pending == nil {
		a.pending = &pendingUtterance{
			speaker:  speaker,
			openedAt: time.Since(a.startedAt).Seconds(),
		}
	}
	if text != "" {
		if a.pending.text.Len() > 0 {
			a.pending.text.WriteByte(' ')
		}
		a.pending.text.WriteString(text)
	}
	if final {
		// A final fragment carries the full utterance text; prefer it over
		// the concatenated deltas when both are present.
		if text != "" {
			a.pending.text.Reset()
			a.pending.text.WriteString(text)
		}
		a.flushLocked(ctx)
	}
	a.mu.Unlock()
}

// FlushSpeaker flushes the open utterance if it belongs to the given speaker.
// Used on a voice-activity turn boundary.
func (a *Accumulator) FlushSpeaker(ctx context.Context, speaker entities.Speaker) {
	a.mu.Lock()
	if a.pending != nil && a.pending.speaker == speaker {
		a.flushLocked(ctx)
	}
	a.mu.Unlock()
}

// FlushAll flushes whatever is open. Called on session teardown.
func (a *Accumulator) FlushAll(ctx context.Context) {
	a.mu.Lock()
	a.flushLocked(ctx)
	a.mu.Unlock()
}

// flushLocked persists the open utterance. Empty or whitespace-only text is
// discarded; store failures are logged and swallowed so the relay continues.
func (a *Accumulator) flushLocked(ctx context.Context) {
	p := a.pending
	a.pending = nil
	if p == nil {
		return
	}
	text := strings.TrimSpace(p.text.String())
	if text == "" {
		return
	}
	if !a.hasCall {
		a.logger.Warn("dropping transcript segment, no call record resolved",
			zap.String("speaker", string(p.speaker)))
		return
	}
	if err := a.store.AppendTranscriptSegment(ctx, a.callID, p.speaker, text, p.openedAt); err != nil {
		a.logger.Warn("failed to persist transcript segment",
			zap.String("speaker", string(p.speaker)),
			zap.Error(err))
	}
}
