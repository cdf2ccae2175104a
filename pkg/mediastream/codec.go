// Package mediastream decodes and encodes the telephony media-stream wire
// protocol: JSON text frames carrying control and audio events for one call.
package mediastream

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotDecodable marks a frame that could not be parsed into a known event.
// Callers are expected to skip the frame and keep reading the connection.
var ErrNotDecodable = errors.New("mediastream: frame not decodable")

// EventKind discriminates inbound frame types.
type EventKind string

const (
	KindConnected EventKind = "connected"
	KindStart     EventKind = "start"
	KindMedia     EventKind = "media"
	KindStop      EventKind = "stop"
	KindMark      EventKind = "mark"
)

// AudioFormat describes the negotiated audio encoding for a stream.
type AudioFormat struct {
	Encoding     string `json:"encoding"`
	SampleRateHz int    `json:"sampleRateHz"`
	Channels     int    `json:"channels"`
}

// StartInfo carries the session identifiers announced by the telephony layer.
type StartInfo struct {
	StreamID       string      `json:"streamId"`
	ExternalCallID string      `json:"externalCallId"`
	Tracks         []string    `json:"tracks"`
	AudioFormat    AudioFormat `json:"audioFormat"`
}

// MediaInfo carries one inbound audio frame.
type MediaInfo struct {
	Track         string `json:"track"`
	Sequence      int64  `json:"sequence"`
	TimestampMs   int64  `json:"timestampMs"`
	PayloadBase64 string `json:"payloadBase64"`
}

// StopInfo carries the end-of-call notice.
type StopInfo struct {
	ExternalCallID string `json:"externalCallId"`
}

// MarkInfo carries a playback synchronization acknowledgement.
type MarkInfo struct {
	Name string `json:"name"`
}

// Event is the decoded form of one inbound frame. Exactly one of the
// kind-specific pointers is set, matching Kind.
type Event struct {
	Kind     EventKind  `json:"kind"`
	Protocol string     `json:"protocol,omitempty"`
	Version  string     `json:"version,omitempty"`
	Start    *StartInfo `json:"start,omitempty"`
	Media    *MediaInfo `json:"media,omitempty"`
	Stop     *StopInfo  `json:"stop,omitempty"`
	Mark     *MarkInfo  `json:"mark,omitempty"`
}

// Decode parses a single JSON text frame. Malformed JSON, an unknown kind, or
// a frame missing its kind-specific body returns ErrNotDecodable; decode
// failures are never fatal to the connection.
func Decode(frame []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(frame, &ev); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrNotDecodable, err)
	}

	switch ev.Kind {
	case KindConnected:
		return ev, nil
	case KindStart:
		if ev.Start == nil || ev.Start.StreamID == "" {
			return Event{}, fmt.Errorf("%w: start frame missing body", ErrNotDecodable)
		}
		return ev, nil
	case KindMedia:
		if ev.Media == nil {
			return Event{}, fmt.Errorf("%w: media frame missing body", ErrNotDecodable)
		}
		return ev, nil
	case KindStop:
		if ev.Stop == nil {
			return Event{}, fmt.Errorf("%w: stop frame missing body", ErrNotDecodable)
		}
		return ev, nil
	case KindMark:
		if ev.Mark == nil {
			return Event{}, fmt.Errorf("%w: mark frame missing body", ErrNotDecodable)
		}
		return ev, nil
	default:
		return Event{}, fmt.Errorf("%w: unknown kind %q", ErrNotDecodable, ev.Kind)
	}
}

// AudioPayload decodes the base64 audio carried by a media event.
func (m *MediaInfo) AudioPayload() ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(m.PayloadBase64)
	if err != nil {
		return nil, fmt.Errorf("mediastream: bad media payload: %w", err)
	}
	return data, nil
}

// Outbound message shapes. All three are pure functions of their inputs.

type outboundMedia struct {
	Kind     EventKind `json:"kind"`
	StreamID string    `json:"streamId"`
	Media    struct {
		PayloadBase64 string `json:"payloadBase64"`
	} `json:"media"`
}

type outboundMark struct {
	Kind     EventKind `json:"kind"`
	StreamID string    `json:"streamId"`
	Mark     struct {
		Name string `json:"name"`
	} `json:"mark"`
}

type outboundClear struct {
	Kind     EventKind `json:"kind"`
	StreamID string    `json:"streamId"`
}

// EncodeMedia builds an outbound media message for the return audio path.
func EncodeMedia(streamID string, audio []byte) ([]byte, error) {
	msg := outboundMedia{Kind: KindMedia, StreamID: streamID}
	msg.Media.PayloadBase64 = base64.StdEncoding.EncodeToString(audio)
	return json.Marshal(msg)
}

// EncodeMark builds an outbound mark message used to track playback progress.
func EncodeMark(streamID, name string) ([]byte, error) {
	msg := outboundMark{Kind: KindMark, StreamID: streamID}
	msg.Mark.Name = name
	return json.Marshal(msg)
}

// EncodeClear builds the message that purges audio the telephony layer has
// buffered for playback. Sent on barge-in.
func EncodeClear(streamID string) ([]byte, error) {
	return json.Marshal(outboundClear{Kind: "clear", StreamID: streamID})
}
