// Package realtime implements the streaming client for the conversational
// speech engine. One Client owns one websocket connection and surfaces a
// simplified event channel; reconnection after unexpected drops is handled
// internally with capped exponential backoff.
package realtime

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap"
)

// State is the connection lifecycle state.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateReconnecting State = "reconnecting"
	StateErrored      State = "errored"
)

// Config holds engine credentials and tuning, loaded from OPENAI_* variables.
type Config struct {
	APIKey               string        `envconfig:"API_KEY"`
	BaseURL              string        `envconfig:"BASE_URL" default:"wss://api.openai.com/v1/realtime"`
	Model                string        `envconfig:"MODEL" default:"gpt-4o-realtime-preview"`
	Voice                string        `envconfig:"VOICE" default:"alloy"`
	Temperature          float64       `envconfig:"TEMPERATURE" default:"0.8"`
	TranscriptionModel   string        `envconfig:"TRANSCRIPTION_MODEL" default:"whisper-1"`
	VADThreshold         float64       `envconfig:"VAD_THRESHOLD" default:"0.5"`
	VADPrefixPaddingMs   int           `envconfig:"VAD_PREFIX_PADDING_MS" default:"300"`
	VADSilenceDurationMs int           `envconfig:"VAD_SILENCE_DURATION_MS" default:"500"`
	ConnectTimeout       time.Duration `envconfig:"CONNECT_TIMEOUT" default:"10s"`
	MaxReconnectAttempts int           `envconfig:"MAX_RECONNECT_ATTEMPTS" default:"5"`
	ReconnectBaseDelay   time.Duration `envconfig:"RECONNECT_BASE_DELAY" default:"1s"`
	ReconnectMaxDelay    time.Duration `envconfig:"RECONNECT_MAX_DELAY" default:"30s"`
}

// ConfigFromEnv loads Config from the process environment.
func ConfigFromEnv() (Config, error) {
	var cfg Config
	if err := envconfig.Process("openai", &cfg); err != nil {
		return Config{}, fmt.Errorf("realtime: load config: %w", err)
	}
	return cfg, nil
}

// SessionOptions describes the conversation configured right after connect.
type SessionOptions struct {
	Instructions    string
	AudioFormat     string
	TranscribeInput bool
}

// Client manages one connection to the speech engine.
type Client struct {
	cfg     Config
	session SessionOptions
	logger  *zap.Logger

	mu       sync.Mutex
	state    State
	conn     *websocket.Conn
	pending  [][]byte
	clean    bool
	finished bool

	writeMu sync.Mutex

	events chan Event
	done   chan struct{}

	sessionID string

	// Audio deltas retained until the matching done event, keyed by
	// response/item/content index. Exists to allow reassembly of a full
	// response; the live relay only uses the immediately emitted chunks.
	deltaBuf map[string][]byte
}

// NewClient builds a client. Connect must be called before any other
// operation.
func NewClient(cfg Config, session SessionOptions, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		cfg:      cfg,
		session:  session,
		logger:   logger,
		state:    StateDisconnected,
		events:   make(chan Event, 256),
		done:     make(chan struct{}),
		deltaBuf: make(map[string][]byte),
	}
}

// Events returns the channel the client emits decoded events on. The channel
// is closed after a clean disconnect or once reconnection is exhausted; a
// subsequent Connect replaces it, so call Events again after reconnecting.
func (c *Client) Events() <-chan Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.events
}

// State returns the current connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SessionID returns the engine-assigned session id, empty until the engine
// acknowledges the session.
func (c *Client) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// Connect opens the connection and sends the session configuration. It fails
// fast when no credential is configured and returns ErrAlreadyConnected when
// a connection is already open. The disconnected and errored states are
// terminal only until the next Connect: a client can be reused after a clean
// Disconnect or after reconnection was exhausted.
func (c *Client) Connect(ctx context.Context) error {
	if c.cfg.APIKey == "" {
		return ErrMissingCredential
	}

	c.mu.Lock()
	switch c.state {
	case StateConnected, StateConnecting, StateReconnecting:
		c.mu.Unlock()
		return ErrAlreadyConnected
	}
	c.state = StateConnecting
	c.clean = false
	c.sessionID = ""
	if c.finished {
		// The previous connection round closed the event plumbing; a fresh
		// round gets fresh channels.
		c.events = make(chan Event, 256)
		c.done = make(chan struct{})
		c.deltaBuf = make(map[string][]byte)
		c.finished = false
	}
	// The configuration message is queued before the dial so it is flushed
	// the moment the socket becomes writable.
	update, err := marshalSessionUpdate(c.cfg, c.session)
	if err != nil {
		c.state = StateDisconnected
		c.mu.Unlock()
		return err
	}
	c.pending = append(c.pending, update)
	c.mu.Unlock()

	c.logger.Info("connecting to speech engine", zap.String("model", c.cfg.Model))

	conn, err := c.dial(ctx)
	if err != nil {
		c.mu.Lock()
		c.state = StateDisconnected
		c.pending = nil
		c.mu.Unlock()
		return fmt.Errorf("realtime: connect: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.state = StateConnected
	queued := c.pending
	c.pending = nil
	c.mu.Unlock()

	c.logger.Info("speech engine connected")

	for _, msg := range queued {
		if err := c.write(conn, msg); err != nil {
			c.logger.Warn("flush of queued message failed", zap.Error(err))
		}
	}

	go c.readLoop(conn)
	return nil
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, c.cfg.ConnectTimeout)
	defer cancel()

	header := http.Header{}
	header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	header.Set("OpenAI-Beta", "realtime=v1")

	url := fmt.Sprintf("%s?model=%s", c.cfg.BaseURL, c.cfg.Model)
	conn, resp, err := websocket.DefaultDialer.DialContext(dialCtx, url, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: status %d: %w", c.cfg.Model, resp.StatusCode, err)
		}
		return nil, err
	}
	return conn, nil
}

// Disconnect closes the connection cleanly. A clean close never triggers
// reconnection. Safe to call in any state.
func (c *Client) Disconnect() {
	c.mu.Lock()
	c.clean = true
	conn := c.conn
	c.mu.Unlock()

	if conn != nil {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		_ = conn.Close()
	}
}

// SendAudio appends one audio buffer to the engine's input buffer. Fire and
// forget; returns ErrNotConnected when no connection is open, including
// during a reconnect window.
func (c *Client) SendAudio(audio []byte) error {
	msg, err := json.Marshal(audioAppendMessage{
		Type:  "input_audio_buffer.append",
		Audio: base64.StdEncoding.EncodeToString(audio),
	})
	if err != nil {
		return err
	}
	return c.send(msg)
}

// CommitInput commits the input buffer, forcing a turn boundary.
func (c *Client) CommitInput() error {
	msg, _ := json.Marshal(typeOnlyMessage{Type: "input_audio_buffer.commit"})
	return c.send(msg)
}

// ClearInput discards any uncommitted input audio.
func (c *Client) ClearInput() error {
	msg, _ := json.Marshal(typeOnlyMessage{Type: "input_audio_buffer.clear"})
	return c.send(msg)
}

// CreateResponse asks the engine to start speaking.
func (c *Client) CreateResponse() error {
	msg, _ := json.Marshal(typeOnlyMessage{Type: "response.create"})
	return c.send(msg)
}

// CancelResponse cancels the in-flight response, if any.
func (c *Client) CancelResponse(responseID string) error {
	msg, _ := json.Marshal(responseCancelMessage{Type: "response.cancel", ResponseID: responseID})
	return c.send(msg)
}

func (c *Client) send(msg []byte) error {
	c.mu.Lock()
	if c.state != StateConnected || c.conn == nil {
		c.mu.Unlock()
		return ErrNotConnected
	}
	conn := c.conn
	c.mu.Unlock()
	return c.write(conn, msg)
}

func (c *Client) write(conn *websocket.Conn, msg []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return conn.WriteMessage(websocket.TextMessage, msg)
}

// readLoop drains inbound frames until the connection drops, then decides
// between a clean shutdown and the reconnect path. All event emission happens
// on this goroutine.
func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			c.handleDrop(err)
			return
		}
		c.handleFrame(frame)
	}
}

func (c *Client) handleDrop(cause error) {
	c.mu.Lock()
	if c.clean {
		c.mu.Unlock()
		c.logger.Info("speech engine disconnected")
		c.finish(StateDisconnected)
		return
	}
	c.state = StateReconnecting
	c.conn = nil
	done := c.done
	c.mu.Unlock()

	c.logger.Warn("speech engine connection dropped, reconnecting", zap.Error(cause))

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.cfg.ReconnectBaseDelay
	bo.MaxInterval = c.cfg.ReconnectMaxDelay
	bo.MaxElapsedTime = 0

	for attempt := 1; attempt <= c.cfg.MaxReconnectAttempts; attempt++ {
		select {
		case <-time.After(bo.NextBackOff()):
		case <-done:
			return
		}

		c.mu.Lock()
		if c.clean {
			c.mu.Unlock()
			c.finish(StateDisconnected)
			return
		}
		c.mu.Unlock()

		conn, err := c.dial(context.Background())
		if err != nil {
			c.logger.Warn("reconnect attempt failed",
				zap.Int("attempt", attempt),
				zap.Error(err))
			continue
		}

		update, err := marshalSessionUpdate(c.cfg, c.session)
		if err == nil {
			err = c.write(conn, update)
		}
		if err != nil {
			_ = conn.Close()
			c.logger.Warn("reconnect configuration failed",
				zap.Int("attempt", attempt),
				zap.Error(err))
			continue
		}

		c.mu.Lock()
		if c.clean {
			// Disconnect landed while this attempt was dialing. Drop the
			// fresh connection instead of adopting it.
			c.mu.Unlock()
			_ = conn.Close()
			c.logger.Info("disconnect requested during reconnect, dropping new connection")
			c.finish(StateDisconnected)
			return
		}
		c.conn = conn
		c.state = StateConnected
		c.mu.Unlock()
		c.logger.Info("speech engine reconnected", zap.Int("attempt", attempt))
		go c.readLoop(conn)
		return
	}

	c.logger.Error("reconnect attempts exhausted",
		zap.Int("max_attempts", c.cfg.MaxReconnectAttempts),
		zap.Error(cause))
	c.emit(Event{Type: EventDisconnect, Reason: fmt.Sprintf("reconnect exhausted: %v", cause)})
	c.finish(StateErrored)
}

func (c *Client) handleFrame(frame []byte) {
	var ev serverEvent
	if err := json.Unmarshal(frame, &ev); err != nil {
		c.logger.Debug("skipping undecodable engine frame", zap.Error(err))
		return
	}

	switch ev.Type {
	case "session.created":
		c.mu.Lock()
		c.sessionID = ev.Session.ID
		c.mu.Unlock()
		c.emit(Event{Type: EventSessionCreated, SessionID: ev.Session.ID})

	case "input_audio_buffer.speech_started":
		c.emit(Event{Type: EventSpeechStarted})

	case "input_audio_buffer.speech_stopped":
		c.emit(Event{Type: EventSpeechStopped})

	case "conversation.item.input_audio_transcription.completed":
		c.emit(Event{Type: EventTranscript, Transcript: &Transcript{
			Role:  RoleInput,
			Text:  ev.Transcript,
			Final: true,
		}})

	case "response.created":
		c.emit(Event{Type: EventResponseStart, ResponseID: ev.Response.ID})

	case "response.audio.delta":
		data, err := base64.StdEncoding.DecodeString(ev.Delta)
		if err != nil {
			c.logger.Debug("skipping bad audio delta", zap.Error(err))
			return
		}
		key := deltaKey(ev.ResponseID, ev.ItemID, ev.ContentIndex)
		c.deltaBuf[key] = append(c.deltaBuf[key], data...)
		c.emit(Event{Type: EventAudioResponse, Audio: &AudioChunk{
			Data:       data,
			ResponseID: ev.ResponseID,
			ItemID:     ev.ItemID,
		}})

	case "response.audio.done":
		delete(c.deltaBuf, deltaKey(ev.ResponseID, ev.ItemID, ev.ContentIndex))

	case "response.audio_transcript.delta":
		c.emit(Event{Type: EventTranscript, Transcript: &Transcript{
			Role:  RoleOutput,
			Text:  ev.Delta,
			Final: false,
		}})

	case "response.audio_transcript.done":
		c.emit(Event{Type: EventTranscript, Transcript: &Transcript{
			Role:  RoleOutput,
			Text:  ev.Transcript,
			Final: true,
		}})

	case "response.done":
		c.emit(Event{Type: EventResponseEnd, ResponseID: ev.Response.ID, Status: ev.Response.Status})

	case "error":
		if ev.Error == nil {
			return
		}
		engineErr := &EngineError{
			Type:    ev.Error.Type,
			Code:    ev.Error.Code,
			Message: ev.Error.Message,
			EventID: ev.Error.EventID,
		}
		c.logger.Warn("engine reported error",
			zap.String("error_type", engineErr.Type),
			zap.String("code", engineErr.Code),
			zap.Bool("retryable", engineErr.Retryable()))
		c.emit(Event{Type: EventError, Err: engineErr})
		if engineErr.Retryable() {
			// Drop the socket so the read loop enters the reconnect path.
			c.mu.Lock()
			conn := c.conn
			c.mu.Unlock()
			if conn != nil {
				_ = conn.Close()
			}
		}

	default:
		// Unhandled event types are expected; the engine emits more than the
		// bridge consumes.
	}
}

// emit delivers an event to the owner. All emits run on the read-loop
// goroutine, which also closes the channel, so sends never race the close.
func (c *Client) emit(ev Event) {
	c.mu.Lock()
	events, done := c.events, c.done
	c.mu.Unlock()
	select {
	case events <- ev:
	case <-done:
	}
}

// finish ends the current connection round: it records the terminal state and
// closes this round's channels. Connect replaces them on reuse.
func (c *Client) finish(terminal State) {
	c.mu.Lock()
	c.state = terminal
	c.conn = nil
	c.finished = true
	done, events := c.done, c.events
	c.mu.Unlock()
	close(done)
	close(events)
}

func deltaKey(responseID, itemID string, contentIndex int) string {
	return fmt.Sprintf("%s|%s|%d", responseID, itemID, contentIndex)
}
