// Package bridge couples one telephony media-stream connection to one speech
// engine connection per call, relaying audio both ways while capturing a
// transcript. Sessions are independent; nothing here blocks across sessions.
package bridge

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/quietline/quietline/internal/domain/entities"
	"github.com/quietline/quietline/pkg/mediastream"
	"github.com/quietline/quietline/pkg/realtime"
)

// CallStore is the narrow persistence port the bridge needs. All operations
// tolerate "not found" without error and are safe to retry.
type CallStore interface {
	FindCallIDByExternalSID(ctx context.Context, sid string) (uuid.UUID, bool, error)
	MarkCallInProgress(ctx context.Context, id uuid.UUID) error
	MarkCallCompleted(ctx context.Context, id uuid.UUID, durationSeconds int) error
	AppendTranscriptSegment(ctx context.Context, id uuid.UUID, speaker entities.Speaker, text string, timestampSeconds float64) error
}

// TelephonyWriter is the write side of the telephony socket. The read loop
// stays with the transport handler; the session only pushes frames back.
type TelephonyWriter interface {
	WriteMessage(data []byte) error
}

// EngineClient abstracts the speech engine connection. *realtime.Client
// implements it.
type EngineClient interface {
	Connect(ctx context.Context) error
	Disconnect()
	SendAudio(audio []byte) error
	Events() <-chan realtime.Event
	State() realtime.State
}

// Session owns one call: exactly one telephony connection and one engine
// connection, plus the transcript accumulator and call-scoped state.
type Session struct {
	StreamID       string
	ExternalCallID string

	engine    EngineClient
	telephony TelephonyWriter
	store     CallStore
	registry  *Registry
	acc       *Accumulator
	logger    *zap.Logger

	startedAt time.Time

	mu           sync.Mutex
	connected    bool
	lastActivity time.Time
	callID       uuid.UUID
	hasCall      bool

	teardown sync.Once
	done     chan struct{}
}

// NewSession wires a session; Start must be called before any relay happens.
func NewSession(streamID, externalCallID string, telephony TelephonyWriter, engine EngineClient, store CallStore, registry *Registry, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	now := time.Now()
	logger = logger.With(
		zap.String("stream_id", streamID),
		zap.String("external_call_id", externalCallID),
	)
	return &Session{
		StreamID:       streamID,
		ExternalCallID: externalCallID,
		engine:         engine,
		telephony:      telephony,
		store:          store,
		registry:       registry,
		acc:            NewAccumulator(store, now, logger),
		logger:         logger,
		startedAt:      now,
		connected:      true,
		lastActivity:   now,
		done:           make(chan struct{}),
	}
}

// Start resolves the persisted call record, opens the engine connection and
// begins consuming engine events. A missing call record is non-fatal; an
// engine connect failure is fatal to this session only.
func (s *Session) Start(ctx context.Context) error {
	s.resolveCallRecord(ctx)

	if err := s.engine.Connect(ctx); err != nil {
		s.logger.Error("speech engine connect failed", zap.Error(err))
		return err
	}

	go s.engineLoop()
	s.logger.Info("session started")
	return nil
}

func (s *Session) resolveCallRecord(ctx context.Context) {
	if s.store == nil {
		return
	}
	id, ok, err := s.store.FindCallIDByExternalSID(ctx, s.ExternalCallID)
	if err != nil {
		s.logger.Warn("call record lookup failed, continuing without persistence", zap.Error(err))
		return
	}
	if !ok {
		s.logger.Warn("no call record for external call id, continuing without persistence")
		return
	}

	s.mu.Lock()
	s.callID = id
	s.hasCall = true
	s.mu.Unlock()
	s.acc.BindCall(id)

	if err := s.store.MarkCallInProgress(ctx, id); err != nil {
		s.logger.Warn("failed to mark call in progress", zap.Error(err))
	}
}

// HandleMedia forwards one inbound telephony audio frame to the engine.
// Frames arriving while the engine is not connected are dropped silently.
func (s *Session) HandleMedia(media *mediastream.MediaInfo) {
	s.mu.Lock()
	s.lastActivity = time.Now()
	s.mu.Unlock()

	audio, err := media.AudioPayload()
	if err != nil {
		s.logger.Debug("skipping media frame with bad payload", zap.Error(err))
		return
	}
	if err := s.engine.SendAudio(audio); err != nil {
		if errors.Is(err, realtime.ErrNotConnected) {
			return
		}
		s.logger.Debug("audio forward failed", zap.Error(err))
	}
}

// HandleMark logs an outbound-playback acknowledgement. Advisory only.
func (s *Session) HandleMark(name string) {
	s.logger.Debug("mark acknowledged", zap.String("name", name))
}

// HandleStop tears the session down in response to a telephony stop event.
func (s *Session) HandleStop() {
	s.Teardown("telephony stop")
}

// TelephonyClosed tears the session down when the telephony socket drops.
func (s *Session) TelephonyClosed() {
	s.Teardown("telephony disconnect")
}

// engineLoop consumes engine events until the client's channel closes.
func (s *Session) engineLoop() {
	for ev := range s.engine.Events() {
		switch ev.Type {
		case realtime.EventSessionCreated:
			s.logger.Info("engine session created", zap.String("engine_session_id", ev.SessionID))

		case realtime.EventAudioResponse:
			s.relayAudio(ev.Audio)

		case realtime.EventSpeechStarted:
			s.handleBargeIn()

		case realtime.EventSpeechStopped:
			s.acc.FlushSpeaker(context.Background(), entities.SpeakerCaller)

		case realtime.EventTranscript:
			s.handleTranscript(ev.Transcript)

		case realtime.EventResponseStart:
			s.logger.Debug("engine response started", zap.String("response_id", ev.ResponseID))

		case realtime.EventResponseEnd:
			s.logger.Debug("engine response done",
				zap.String("response_id", ev.ResponseID),
				zap.String("status", ev.Status))

		case realtime.EventError:
			s.logger.Warn("engine error", zap.Error(ev.Err))

		case realtime.EventDisconnect:
			s.logger.Warn("engine terminally disconnected", zap.String("reason", ev.Reason))
			s.Teardown("engine disconnect")
		}
	}
}

// relayAudio writes synthesized audio back to the caller. A closed telephony
// connection just stops the relay; the session is already tearing down.
func (s *Session) relayAudio(chunk *realtime.AudioChunk) {
	if chunk == nil || !s.isConnected() {
		return
	}
	frame, err := mediastream.EncodeMedia(s.StreamID, chunk.Data)
	if err != nil {
		s.logger.Debug("failed to encode outbound media", zap.Error(err))
		return
	}
	if err := s.telephony.WriteMessage(frame); err != nil {
		s.logger.Debug("telephony write failed, stopping relay", zap.Error(err))
		s.setDisconnected()
	}
}

// handleBargeIn purges audio queued on the caller's line so the caller can
// interrupt the persona mid-sentence.
func (s *Session) handleBargeIn() {
	if !s.isConnected() {
		return
	}
	frame, err := mediastream.EncodeClear(s.StreamID)
	if err != nil {
		return
	}
	if err := s.telephony.WriteMessage(frame); err != nil {
		s.logger.Debug("clear write failed", zap.Error(err))
		s.setDisconnected()
		return
	}
	s.logger.Debug("barge-in, cleared queued playback")
}

func (s *Session) handleTranscript(tr *realtime.Transcript) {
	if tr == nil {
		return
	}
	speaker := entities.SpeakerAI
	if tr.Role == realtime.RoleInput {
		speaker = entities.SpeakerCaller
	}
	s.acc.Append(context.Background(), speaker, tr.Text, tr.Final)
}

// Teardown finalizes the session exactly once, from whichever trigger fires
// first: telephony stop, telephony disconnect, or terminal engine failure.
func (s *Session) Teardown(reason string) {
	s.teardown.Do(func() {
		s.setDisconnected()
		s.engine.Disconnect()
		s.acc.FlushAll(context.Background())

		duration := int(time.Since(s.startedAt).Seconds())

		s.mu.Lock()
		hasCall, callID := s.hasCall, s.callID
		s.mu.Unlock()
		if hasCall && s.store != nil {
			if err := s.store.MarkCallCompleted(context.Background(), callID, duration); err != nil {
				s.logger.Warn("failed to mark call completed", zap.Error(err))
			}
		}

		if s.registry != nil {
			s.registry.Unregister(s.StreamID)
		}
		close(s.done)

		s.logger.Info("session torn down",
			zap.String("reason", reason),
			zap.Int("duration_seconds", duration))
	})
}

// Done is closed once teardown completes.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Info returns a snapshot for the active-sessions view.
func (s *Session) Info() SessionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SessionInfo{
		StreamID:       s.StreamID,
		ExternalCallID: s.ExternalCallID,
		StartedAt:      s.startedAt,
		LastActivityAt: s.lastActivity,
	}
}

func (s *Session) isConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

func (s *Session) setDisconnected() {
	s.mu.Lock()
	s.connected = false
	s.mu.Unlock()
}
