package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/quietline/quietline/internal/domain/entities"
	"github.com/quietline/quietline/internal/domain/repositories"
)

// callRepository implements the CallRepository interface
type callRepository struct {
	db *gorm.DB
}

// NewCallRepository creates a new call repository
func NewCallRepository(db *gorm.DB) repositories.CallRepository {
	return &callRepository{db: db}
}

// Create creates a new call record
func (r *callRepository) Create(ctx context.Context, call *entities.Call) error {
	return r.db.WithContext(ctx).Create(call).Error
}

// FindByID retrieves a call by its ID; returns nil when absent
func (r *callRepository) FindByID(ctx context.Context, id uuid.UUID) (*entities.Call, error) {
	var call entities.Call
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&call).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &call, nil
}

// FindIDByExternalSID resolves the internal record id for a telephony call SID
func (r *callRepository) FindIDByExternalSID(ctx context.Context, sid string) (uuid.UUID, bool, error) {
	var call entities.Call
	err := r.db.WithContext(ctx).
		Select("id").
		Where("external_sid = ?", sid).
		First(&call).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return uuid.Nil, false, nil
		}
		return uuid.Nil, false, err
	}
	return call.ID, true, nil
}

// MarkInProgress transitions a call to in_progress; a missing row is a no-op
func (r *callRepository) MarkInProgress(ctx context.Context, id uuid.UUID) error {
	now := time.Now()
	return r.db.WithContext(ctx).
		Model(&entities.Call{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     entities.CallStatusInProgress,
			"started_at": now,
			"updated_at": now,
		}).Error
}

// MarkCompleted finalizes a call with its duration; a missing row is a no-op
func (r *callRepository) MarkCompleted(ctx context.Context, id uuid.UUID, durationSeconds int) error {
	now := time.Now()
	return r.db.WithContext(ctx).
		Model(&entities.Call{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":           entities.CallStatusCompleted,
			"duration_seconds": durationSeconds,
			"ended_at":         now,
			"updated_at":       now,
		}).Error
}

// Update persists mutable dashboard fields
func (r *callRepository) Update(ctx context.Context, call *entities.Call) error {
	return r.db.WithContext(ctx).Save(call).Error
}

// Delete removes a call and its transcript segments
func (r *callRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("call_id = ?", id).Delete(&entities.TranscriptSegment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&entities.Call{}, id).Error
	})
}

// List retrieves calls with filters and pagination
func (r *callRepository) List(ctx context.Context, filters repositories.CallFilters) ([]*entities.Call, int64, error) {
	var calls []*entities.Call
	var total int64

	query := r.db.WithContext(ctx).Model(&entities.Call{})

	if filters.Status != "" {
		query = query.Where("status = ?", filters.Status)
	}
	if filters.FromNumber != "" {
		query = query.Where("from_number = ?", filters.FromNumber)
	}
	if filters.Tag != "" {
		query = query.Where("tags @> ?", `["`+filters.Tag+`"]`)
	}
	if filters.Search != "" {
		like := "%" + filters.Search + "%"
		query = query.Where("from_number ILIKE ? OR notes ILIKE ?", like, like)
	}
	if filters.After != nil {
		query = query.Where("created_at >= ?", *filters.After)
	}
	if filters.Before != nil {
		query = query.Where("created_at <= ?", *filters.Before)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := filters.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	err := query.
		Order("created_at DESC").
		Limit(limit).
		Offset(filters.Offset).
		Find(&calls).Error
	if err != nil {
		return nil, 0, err
	}
	return calls, total, nil
}

// SetRecordingKey attaches an uploaded recording object key
func (r *callRepository) SetRecordingKey(ctx context.Context, id uuid.UUID, key string) error {
	return r.db.WithContext(ctx).
		Model(&entities.Call{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"recording_key": key,
			"updated_at":    time.Now(),
		}).Error
}

// Stats aggregates dashboard statistics
func (r *callRepository) Stats(ctx context.Context) (*repositories.CallStats, error) {
	stats := &repositories.CallStats{}
	db := r.db.WithContext(ctx).Model(&entities.Call{})

	if err := db.Count(&stats.TotalCalls).Error; err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Model(&entities.Call{}).
		Where("status = ?", entities.CallStatusCompleted).
		Count(&stats.CompletedCalls).Error; err != nil {
		return nil, err
	}
	today := time.Now().Truncate(24 * time.Hour)
	if err := r.db.WithContext(ctx).Model(&entities.Call{}).
		Where("created_at >= ?", today).
		Count(&stats.CallsToday).Error; err != nil {
		return nil, err
	}

	var agg struct {
		TotalDuration int64
		AvgDuration   float64
		AvgRating     float64
	}
	err := r.db.WithContext(ctx).Model(&entities.Call{}).
		Select(
			"COALESCE(SUM(duration_seconds), 0) AS total_duration, " +
				"COALESCE(AVG(duration_seconds), 0) AS avg_duration, " +
				"COALESCE(AVG(rating), 0) AS avg_rating",
		).
		Scan(&agg).Error
	if err != nil {
		return nil, err
	}
	stats.TotalDurationSeconds = agg.TotalDuration
	stats.AvgDurationSeconds = agg.AvgDuration
	stats.AvgRating = agg.AvgRating
	return stats, nil
}
