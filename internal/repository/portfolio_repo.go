package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wenqi/jobtailor/internal/domain"
)

// PortfolioRepository handles generated portfolio records.
type PortfolioRepository struct {
	db *gorm.DB
}

// NewPortfolioRepository creates a new PortfolioRepository.
func NewPortfolioRepository(db *gorm.DB) *PortfolioRepository {
	return &PortfolioRepository{db: db}
}

// ExistsByThreadID reports whether a portfolio was already generated for the
// thread. The pipeline checks this before spending the portfolio credits.
func (r *PortfolioRepository) ExistsByThreadID(ctx context.Context, threadID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.Portfolio{}).
		Where("thread_id = ?", threadID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Create records a generated portfolio.
func (r *PortfolioRepository) Create(ctx context.Context, p *domain.Portfolio) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return r.db.WithContext(ctx).Create(p).Error
}
