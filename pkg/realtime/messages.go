package realtime

import "encoding/json"

// Outbound control messages. All share the {"type": ...} envelope.

type sessionUpdateMessage struct {
	Type    string         `json:"type"`
	Session sessionPayload `json:"session"`
}

type sessionPayload struct {
	Modalities              []string            `json:"modalities"`
	Instructions            string              `json:"instructions"`
	Voice                   string              `json:"voice"`
	InputAudioFormat        string              `json:"input_audio_format"`
	OutputAudioFormat       string              `json:"output_audio_format"`
	InputAudioTranscription *transcriptionModel `json:"input_audio_transcription,omitempty"`
	TurnDetection           turnDetection       `json:"turn_detection"`
	Temperature             float64             `json:"temperature"`
}

type transcriptionModel struct {
	Model string `json:"model"`
}

type turnDetection struct {
	Type              string  `json:"type"`
	Threshold         float64 `json:"threshold"`
	PrefixPaddingMs   int     `json:"prefix_padding_ms"`
	SilenceDurationMs int     `json:"silence_duration_ms"`
}

type audioAppendMessage struct {
	Type  string `json:"type"`
	Audio string `json:"audio"`
}

type typeOnlyMessage struct {
	Type string `json:"type"`
}

type responseCancelMessage struct {
	Type       string `json:"type"`
	ResponseID string `json:"response_id,omitempty"`
}

// serverEvent is the superset of inbound wire fields the client reads. Only
// the fields relevant to a given type are populated by the engine.
type serverEvent struct {
	Type         string `json:"type"`
	EventID      string `json:"event_id"`
	Delta        string `json:"delta"`
	Transcript   string `json:"transcript"`
	ItemID       string `json:"item_id"`
	ResponseID   string `json:"response_id"`
	ContentIndex int    `json:"content_index"`

	Session struct {
		ID string `json:"id"`
	} `json:"session"`

	Response struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	} `json:"response"`

	Error *struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
		EventID string `json:"event_id"`
	} `json:"error"`
}

func marshalSessionUpdate(cfg Config, session SessionOptions) ([]byte, error) {
	payload := sessionPayload{
		Modalities:        []string{"text", "audio"},
		Instructions:      session.Instructions,
		Voice:             cfg.Voice,
		InputAudioFormat:  session.AudioFormat,
		OutputAudioFormat: session.AudioFormat,
		TurnDetection: turnDetection{
			Type:              "server_vad",
			Threshold:         cfg.VADThreshold,
			PrefixPaddingMs:   cfg.VADPrefixPaddingMs,
			SilenceDurationMs: cfg.VADSilenceDurationMs,
		},
		Temperature: cfg.Temperature,
	}
	if session.TranscribeInput {
		payload.InputAudioTranscription = &transcriptionModel{Model: cfg.TranscriptionModel}
	}
	return json.Marshal(sessionUpdateMessage{Type: "session.update", Session: payload})
}
