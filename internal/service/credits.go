package service

import (
	"context"

	"github.com/wenqi/jobtailor/internal/domain"
	"github.com/wenqi/jobtailor/internal/repository"
)

// CreditService meters the pipeline's billable operations.
type CreditService struct {
	repo *repository.CreditRepository
}

// NewCreditService creates a new credit service.
func NewCreditService(repo *repository.CreditRepository) *CreditService {
	return &CreditService{repo: repo}
}

// Deduct subtracts a pre-computed amount once. The result is never retried
// by callers; a false return only gets logged.
func (s *CreditService) Deduct(ctx context.Context, userID string, amount int64, cost domain.CostInfo) (bool, error) {
	return s.repo.Deduct(ctx, userID, amount, cost)
}

// Balance returns the user's current balance.
func (s *CreditService) Balance(ctx context.Context, userID string) (int64, error) {
	return s.repo.Balance(ctx, userID)
}

// Grant adds credits to a user's balance.
func (s *CreditService) Grant(ctx context.Context, userID string, amount int64) error {
	return s.repo.Grant(ctx, userID, amount)
}
