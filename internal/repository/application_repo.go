package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/wenqi/jobtailor/internal/domain"
)

// ApplicationRepository handles persisted analysis outcomes.
type ApplicationRepository struct {
	db *gorm.DB
}

// NewApplicationRepository creates a new ApplicationRepository.
func NewApplicationRepository(db *gorm.DB) *ApplicationRepository {
	return &ApplicationRepository{db: db}
}

// Upsert creates or updates the application keyed by (user_id, target_url).
// A resubmission after cleanup overwrites the previous analysis rather than
// accumulating rows.
func (r *ApplicationRepository) Upsert(ctx context.Context, app *domain.Application) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "target_url"}},
		UpdateAll: true,
	}).Create(app).Error
}

// GetByKey retrieves the application for one user and posting URL.
func (r *ApplicationRepository) GetByKey(ctx context.Context, userID, targetURL string) (*domain.Application, error) {
	var app domain.Application
	err := r.db.WithContext(ctx).
		First(&app, "user_id = ? AND target_url = ?", userID, targetURL).Error
	if err != nil {
		return nil, err
	}
	return &app, nil
}

// ListByUser returns a user's applications, newest first.
func (r *ApplicationRepository) ListByUser(ctx context.Context, userID string, limit int) ([]domain.Application, error) {
	var apps []domain.Application
	q := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("updated_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&apps).Error; err != nil {
		return nil, err
	}
	return apps, nil
}
