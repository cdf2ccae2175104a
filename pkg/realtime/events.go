package realtime

// EventType discriminates the simplified events the client surfaces to its
// owner. The wire protocol is richer; everything the bridge does not need is
// dropped during decoding.
type EventType string

const (
	EventSessionCreated EventType = "sessionCreated"
	EventSpeechStarted  EventType = "speechStarted"
	EventSpeechStopped  EventType = "speechStopped"
	EventTranscript     EventType = "transcript"
	EventResponseStart  EventType = "responseStart"
	EventAudioResponse  EventType = "audioResponse"
	EventResponseEnd    EventType = "responseEnd"
	EventError          EventType = "error"
	EventDisconnect     EventType = "disconnect"
)

// TranscriptRole tells which side of the conversation produced a transcript.
type TranscriptRole string

const (
	// RoleInput is the caller's speech, transcribed by the engine.
	RoleInput TranscriptRole = "input"
	// RoleOutput is the persona's synthesized speech.
	RoleOutput TranscriptRole = "output"
)

// Transcript is one transcript fragment or completed utterance.
type Transcript struct {
	Role  TranscriptRole
	Text  string
	Final bool
}

// AudioChunk is one chunk of synthesized audio, emitted as soon as it is
// decoded from the wire.
type AudioChunk struct {
	Data       []byte
	ResponseID string
	ItemID     string
}

// Event is the tagged union delivered on the client's event channel. Type
// selects which of the optional fields are populated.
type Event struct {
	Type       EventType
	SessionID  string
	Transcript *Transcript
	Audio      *AudioChunk
	ResponseID string
	Status     string
	Reason     string
	Err        *EngineError
}
