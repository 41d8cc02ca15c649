package services

import (
	"errors"

	"gorm.io/gorm"

	apperrors "ibooks/internal/errors"
	"ibooks/internal/logger"
	"ibooks/internal/models"
)

// loadActiveAccount fetches an account the user owns and may still post to.
func loadActiveAccount(tx *gorm.DB, userID, accountID uint) (*models.BankAccount, error) {
	account, err := loadOwnedAccount(tx, userID, accountID)
	if err != nil {
		return nil, err
	}
	if !account.IsActive {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidBankAccount, "Bank account is inactive")
	}
	return account, nil
}

// loadOwnedAccount fetches an account the user owns regardless of its active flag.
// Reversals post to inactive accounts too.
func loadOwnedAccount(tx *gorm.DB, userID, accountID uint) (*models.BankAccount, error) {
	var account models.BankAccount
	if err := tx.Where("id = ? AND user_id = ?", accountID, userID).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrInvalidBankAccount
		}
		return nil, internal(err)
	}
	return &account, nil
}

// checkDelta reports whether applying delta keeps a debit account at or above zero.
func checkDelta(account *models.BankAccount, delta int64) error {
	if account.IsDebit() && account.BalanceCents+delta < 0 {
		return apperrors.ErrInsufficientBalance
	}
	return nil
}

// applyDelta adds delta cents to the account balance. Debit accounts may
// never end below zero; credit accounts take any value.
func applyDelta(tx *gorm.DB, account *models.BankAccount, delta int64) error {
	if err := checkDelta(account, delta); err != nil {
		logger.Get().Infow("balance change rejected",
			"account_id", account.ID,
			"balance_cents", account.BalanceCents,
			"delta_cents", delta,
		)
		return err
	}
	next := account.BalanceCents + delta
	if err := tx.Model(account).Update("balance_cents", next).Error; err != nil {
		return internal(err)
	}
	logger.Get().Debugw("balance updated",
		"account_id", account.ID,
		"from_cents", account.BalanceCents,
		"to_cents", next,
	)
	account.BalanceCents = next
	return nil
}

// postingDelta is the signed effect a non-transfer row had on its bank account.
func postingDelta(t *models.Transaction) int64 {
	switch t.Type {
	case models.TransactionTypeIncome, models.TransactionTypeRefund:
		return t.AmountCents
	case models.TransactionTypeExpense:
		return -t.AmountCents
	}
	return 0
}
