package entities

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// CallStatus represents the lifecycle state of a handled call
type CallStatus string

const (
	CallStatusRinging    CallStatus = "ringing"
	CallStatusInProgress CallStatus = "in_progress"
	CallStatusCompleted  CallStatus = "completed"
	CallStatusFailed     CallStatus = "failed"
)

// Speaker identifies who produced a transcript segment
type Speaker string

const (
	SpeakerAI     Speaker = "ai"
	SpeakerCaller Speaker = "caller"
)

// Call represents one answered phone call
type Call struct {
	ID              uuid.UUID      `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	ExternalSID     string         `gorm:"type:varchar(64);unique;not null;index" json:"external_sid"`
	FromNumber      string         `gorm:"type:varchar(32);not null;index" json:"from_number"`
	ToNumber        string         `gorm:"type:varchar(32);not null" json:"to_number"`
	Status          CallStatus     `gorm:"type:varchar(20);not null;default:'ringing';index" json:"status"`
	DurationSeconds *int           `json:"duration_seconds,omitempty"`
	Rating          *int           `gorm:"check:rating >= 1 AND rating <= 5" json:"rating,omitempty"`
	Notes           *string        `gorm:"type:text" json:"notes,omitempty"`
	Tags            datatypes.JSON `gorm:"type:jsonb;default:'[]'" json:"tags,omitempty"`
	RecordingKey    *string        `gorm:"type:varchar(255)" json:"recording_key,omitempty"`
	StartedAt       *time.Time     `gorm:"index" json:"started_at,omitempty"`
	EndedAt         *time.Time     `json:"ended_at,omitempty"`
	CreatedAt       time.Time      `gorm:"default:now()" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"default:now()" json:"updated_at"`

	TranscriptSegments []TranscriptSegment `gorm:"foreignKey:CallID" json:"transcript_segments,omitempty"`
}

// TableName specifies the table name for Call
func (Call) TableName() string {
	return "calls"
}

// HasRecording reports whether a recording object has been attached
func (c *Call) HasRecording() bool {
	return c.RecordingKey != nil && *c.RecordingKey != ""
}
