package call

import "time"

// CallResponse is the dashboard view of one call
type CallResponse struct {
	ID              string     `json:"id"`
	ExternalSID     string     `json:"external_sid"`
	FromNumber      string     `json:"from_number"`
	ToNumber        string     `json:"to_number"`
	Status          string     `json:"status"`
	DurationSeconds *int       `json:"duration_seconds,omitempty"`
	Rating          *int       `json:"rating,omitempty"`
	Notes           *string    `json:"notes,omitempty"`
	Tags            []string   `json:"tags"`
	HasRecording    bool       `json:"has_recording"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	EndedAt         *time.Time `json:"ended_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// TranscriptSegmentResponse is one utterance in a call detail view
type TranscriptSegmentResponse struct {
	Speaker          string  `json:"speaker"`
	Text             string  `json:"text"`
	TimestampSeconds float64 `json:"timestamp_seconds"`
}

// CallDetailResponse is a call together with its transcript
type CallDetailResponse struct {
	CallResponse
	Transcript []TranscriptSegmentResponse `json:"transcript"`
}

// RecordingURLResponse carries a presigned playback URL
type RecordingURLResponse struct {
	URL       string `json:"url"`
	ExpiresIn int64  `json:"expires_in"` // seconds
}
