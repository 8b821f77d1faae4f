package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wenqi/jobtailor/internal/domain"
)

// ThreadRepository handles chat thread records.
type ThreadRepository struct {
	db *gorm.DB
}

// NewThreadRepository creates a new ThreadRepository.
func NewThreadRepository(db *gorm.DB) *ThreadRepository {
	return &ThreadRepository{db: db}
}

// CreateOrGet returns the thread for (userID, targetURL), creating it on
// first use. The unique index on the pair keeps concurrent creates safe.
func (r *ThreadRepository) CreateOrGet(ctx context.Context, userID, targetURL, title, company string) (*domain.ChatThread, error) {
	thread := domain.ChatThread{
		UserID:    userID,
		TargetURL: targetURL,
	}
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND target_url = ?", userID, targetURL).
		Attrs(domain.ChatThread{
			ID:      uuid.NewString(),
			Title:   title,
			Company: company,
		}).
		FirstOrCreate(&thread).Error
	if err != nil {
		return nil, err
	}
	return &thread, nil
}
