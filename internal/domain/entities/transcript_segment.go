package entities

import (
	"time"

	"github.com/google/uuid"
)

// TranscriptSegment is one completed utterance captured during a call.
// Segments are append-only; they are never mutated after creation.
type TranscriptSegment struct {
	ID               uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	CallID           uuid.UUID `gorm:"type:uuid;not null;index" json:"call_id"`
	Speaker          Speaker   `gorm:"type:varchar(10);not null" json:"speaker"`
	Text             string    `gorm:"type:text;not null" json:"text"`
	TimestampSeconds float64   `gorm:"not null" json:"timestamp_seconds"`
	CreatedAt        time.Time `gorm:"default:now()" json:"created_at"`
}

// TableName specifies the table name for TranscriptSegment
func (TranscriptSegment) TableName() string {
	return "transcript_segments"
}
