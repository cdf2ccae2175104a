package handler

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/quietline/quietline/internal/domain/entities"
	"github.com/quietline/quietline/internal/usecase/bridge"
	"github.com/quietline/quietline/pkg/realtime"
)

type stubStore struct{}

func (s *stubStore) FindCallIDByExternalSID(ctx context.Context, sid string) (uuid.UUID, bool, error) {
	return uuid.Nil, false, nil
}

func (s *stubStore) MarkCallInProgress(ctx context.Context, id uuid.UUID) error { return nil }

func (s *stubStore) MarkCallCompleted(ctx context.Context, id uuid.UUID, durationSeconds int) error {
	return nil
}

func (s *stubStore) AppendTranscriptSegment(ctx context.Context, id uuid.UUID, speaker entities.Speaker, text string, timestampSeconds float64) error {
	return nil
}

type stubEngine struct {
	connectErr error
	events     chan realtime.Event

	mu           sync.Mutex
	audio        [][]byte
	disconnected bool
}

func newStubEngine(connectErr error) *stubEngine {
	return &stubEngine{connectErr: connectErr, events: make(chan realtime.Event, 8)}
}

func (e *stubEngine) Connect(ctx context.Context) error { return e.connectErr }

func (e *stubEngine) Disconnect() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.disconnected {
		e.disconnected = true
		close(e.events)
	}
}

func (e *stubEngine) SendAudio(audio []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.audio = append(e.audio, audio)
	return nil
}

func (e *stubEngine) Events() <-chan realtime.Event { return e.events }

func (e *stubEngine) State() realtime.State { return realtime.StateConnected }

func (e *stubEngine) audioCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.audio)
}

func newStreamTestServer(t *testing.T, engine *stubEngine) (*httptest.Server, *bridge.Registry) {
	t.Helper()
	logger := zap.NewNop()
	registry := bridge.NewRegistry(logger)
	h := NewStreamHandler(registry, &stubStore{}, func() bridge.EngineClient { return engine }, logger)

	e := echo.New()
	e.GET("/v1/stream", h.Handle)
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	return srv, registry
}

func dialStream(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func sendStart(t *testing.T, conn *websocket.Conn, streamID string) {
	t.Helper()
	frame := fmt.Sprintf(`{"kind":"start","start":{"streamId":%q,"externalCallId":"CA100","tracks":["inbound"],"audioFormat":{"encoding":"audio/x-mulaw","sampleRateHz":8000,"channels":1}}}`, streamID)
	if err := conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
		t.Fatalf("write start: %v", err)
	}
}

func waitUntil(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestStreamHandler_RelaysMediaToEngine(t *testing.T) {
	engine := newStubEngine(nil)
	srv, registry := newStreamTestServer(t, engine)
	conn := dialStream(t, srv)

	sendStart(t, conn, "MZ100")
	waitUntil(t, func() bool { return registry.Count() == 1 }, "session never registered")

	payload := base64.StdEncoding.EncodeToString([]byte("\x7f\x7f\x7f"))
	frame := fmt.Sprintf(`{"kind":"media","media":{"track":"inbound","sequence":1,"timestampMs":20,"payloadBase64":%q}}`, payload)
	if err := conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
		t.Fatalf("write media: %v", err)
	}
	waitUntil(t, func() bool { return engine.audioCount() == 1 }, "media never reached the engine")

	stop := `{"kind":"stop","stop":{"externalCallId":"CA100"}}`
	if err := conn.WriteMessage(websocket.TextMessage, []byte(stop)); err != nil {
		t.Fatalf("write stop: %v", err)
	}
	waitUntil(t, func() bool { return registry.Count() == 0 }, "session never torn down")
}

func TestStreamHandler_SkipsUndecodableFrames(t *testing.T) {
	engine := newStubEngine(nil)
	srv, registry := newStreamTestServer(t, engine)
	conn := dialStream(t, srv)

	if err := conn.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatalf("write garbage: %v", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"kind":"bogus"}`)); err != nil {
		t.Fatalf("write unknown kind: %v", err)
	}

	sendStart(t, conn, "MZ101")
	waitUntil(t, func() bool { return registry.Count() == 1 }, "session never registered after bad frames")
}

func TestStreamHandler_EngineConnectFailureClosesSocket(t *testing.T) {
	engine := newStubEngine(errors.New("engine unavailable"))
	srv, registry := newStreamTestServer(t, engine)
	conn := dialStream(t, srv)

	sendStart(t, conn, "MZ102")

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	var closeErr *websocket.CloseError
	if !errors.As(err, &closeErr) {
		t.Fatalf("expected close error, got %v", err)
	}
	if closeErr.Code != websocket.CloseInternalServerErr {
		t.Fatalf("close code = %d, want %d", closeErr.Code, websocket.CloseInternalServerErr)
	}
	if closeErr.Text != "failed to initialize" {
		t.Fatalf("close reason = %q", closeErr.Text)
	}
	if registry.Count() != 0 {
		t.Fatalf("registry count = %d after connect failure", registry.Count())
	}
}
