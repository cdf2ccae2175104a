package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/quietline/quietline/internal/domain/entities"
	"github.com/quietline/quietline/internal/domain/repositories"
)

// transcriptRepository implements the TranscriptRepository interface
type transcriptRepository struct {
	db *gorm.DB
}

// NewTranscriptRepository creates a new transcript repository
func NewTranscriptRepository(db *gorm.DB) repositories.TranscriptRepository {
	return &transcriptRepository{db: db}
}

// Append persists one completed utterance
func (r *transcriptRepository) Append(ctx context.Context, segment *entities.TranscriptSegment) error {
	return r.db.WithContext(ctx).Create(segment).Error
}

// FindByCallID retrieves a call's segments ordered by timestamp
func (r *transcriptRepository) FindByCallID(ctx context.Context, callID uuid.UUID) ([]*entities.TranscriptSegment, error) {
	var segments []*entities.TranscriptSegment
	err := r.db.WithContext(ctx).
		Where("call_id = ?", callID).
		Order("timestamp_seconds ASC").
		Find(&segments).Error
	if err != nil {
		return nil, err
	}
	return segments, nil
}
