package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wenqi/jobtailor/internal/domain"
)

// CreditRepository handles the metered credit balance and its ledger.
type CreditRepository struct {
	db *gorm.DB
}

// NewCreditRepository creates a new CreditRepository.
func NewCreditRepository(db *gorm.DB) *CreditRepository {
	return &CreditRepository{db: db}
}

// Deduct atomically subtracts amount from the user's balance and writes a
// ledger entry. An insufficient balance returns (false, nil) and still writes
// the declined entry; the caller logs and keeps any generated content.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - userID: account owner.
//   - amount: pre-computed, non-negative credit amount.
//   - cost: deduction context recorded in the ledger.
//
// Returns:
//   - bool: true when the balance covered the amount.
//   - error: non-nil only on storage failure.
func (r *CreditRepository) Deduct(ctx context.Context, userID string, amount int64, cost domain.CostInfo) (bool, error) {
	accepted := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var account domain.CreditAccount
		if err := tx.Where(domain.CreditAccount{UserID: userID}).
			FirstOrCreate(&account).Error; err != nil {
			return err
		}

		accepted = account.Balance >= amount
		if accepted {
			account.Balance -= amount
			account.UpdatedAt = time.Now()
			if err := tx.Save(&account).Error; err != nil {
				return err
			}
		}

		entry := domain.CreditEntry{
			ID:       uuid.NewString(),
			UserID:   userID,
			Amount:   amount,
			Reason:   cost.Reason,
			Accepted: accepted,
			Model:    cost.Model,
			Tokens:   cost.Usage.TotalTokens(),
		}
		return tx.Create(&entry).Error
	})
	if err != nil {
		return false, err
	}
	return accepted, nil
}

// Balance returns the user's current balance, zero for unknown users.
func (r *CreditRepository) Balance(ctx context.Context, userID string) (int64, error) {
	var account domain.CreditAccount
	err := r.db.WithContext(ctx).First(&account, "user_id = ?", userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return account.Balance, nil
}

// Grant adds credits to a user's balance, creating the account on first use.
func (r *CreditRepository) Grant(ctx context.Context, userID string, amount int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var account domain.CreditAccount
		if err := tx.Where(domain.CreditAccount{UserID: userID}).
			FirstOrCreate(&account).Error; err != nil {
			return err
		}
		account.Balance += amount
		account.UpdatedAt = time.Now()
		return tx.Save(&account).Error
	})
}
