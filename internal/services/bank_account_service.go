package services

import (
	"context"
	"strings"

	"gorm.io/gorm"

	apperrors "ibooks/internal/errors"
	"ibooks/internal/models"
)

// Bank account list orderings. OrderByUsage sorts accounts by how many
// transactions reference them.
const (
	OrderByID    = "id"
	OrderByUsage = "usage"
)

// bankAccountService handles bank account configuration.
type bankAccountService struct {
	db *gorm.DB
}

// NewBankAccountService creates a new BankAccountServicer.
func NewBankAccountService(db *gorm.DB) BankAccountServicer {
	return &bankAccountService{db: db}
}

// ListAccounts returns the user's accounts, newest first, or by usage
// (source or destination references) when orderBy is "usage".
func (s *bankAccountService) ListAccounts(ctx context.Context, userID uint, orderBy string) ([]models.BankAccount, error) {
	db := s.db.WithContext(ctx)
	var accounts []models.BankAccount

	q := db.Model(&models.BankAccount{}).Where("bank_accounts.user_id = ?", userID)
	if orderBy == OrderByUsage {
		usage := db.Raw(`SELECT account_id, COUNT(*) AS usage_count FROM (
				SELECT bank_account_id AS account_id FROM transactions
				WHERE user_id = ? AND funding_source = ? AND bank_account_id IS NOT NULL
				UNION ALL
				SELECT to_bank_account_id AS account_id FROM transactions
				WHERE user_id = ? AND funding_source = ? AND to_bank_account_id IS NOT NULL
			) refs GROUP BY account_id`,
			userID, models.FundingSourceBank, userID, models.FundingSourceBank)
		q = q.Select("bank_accounts.*").
			Joins("LEFT JOIN (?) account_usage ON account_usage.account_id = bank_accounts.id", usage).
			Order("COALESCE(account_usage.usage_count, 0) DESC").
			Order("bank_accounts.id DESC")
	} else {
		q = q.Order("bank_accounts.id DESC")
	}

	if err := q.Find(&accounts).Error; err != nil {
		return nil, internal(err)
	}
	return accounts, nil
}

// GetAccount retrieves one account owned by the user.
func (s *bankAccountService) GetAccount(ctx context.Context, userID, accountID uint) (*models.BankAccount, error) {
	var account models.BankAccount
	if err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", accountID, userID).First(&account).Error; err != nil {
		return nil, lookupError(err, apperrors.ErrBankAccountNotFound)
	}
	return &account, nil
}

// CreateAccount validates and stores a new account.
func (s *bankAccountService) CreateAccount(ctx context.Context, userID uint, in BankAccountInput) (*models.BankAccount, error) {
	if in.Kind == "" {
		in.Kind = models.BankAccountKindDebit
	}
	account := &models.BankAccount{
		UserID:       userID,
		BankName:     strings.TrimSpace(in.BankName),
		Alias:        strings.TrimSpace(in.Alias),
		Last4:        in.Last4,
		Kind:         in.Kind,
		BalanceCents: in.BalanceCents,
		BillingDay:   in.BillingDay,
		RepaymentDay: in.RepaymentDay,
		IsActive:     in.IsActive,
	}
	if err := validateBankAccount(account); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Create(account).Error; err != nil {
		return nil, internal(err)
	}
	return account, nil
}

// UpdateAccount applies a partial update. Switching to debit clears the
// billing and repayment days; switching to credit needs both.
func (s *bankAccountService) UpdateAccount(ctx context.Context, userID, accountID uint, in BankAccountPatch) (*models.BankAccount, error) {
	var account models.BankAccount
	err := runInTx(ctx, s.db, func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND user_id = ?", accountID, userID).First(&account).Error; err != nil {
			return lookupError(err, apperrors.ErrBankAccountNotFound)
		}

		if in.BankName != nil {
			account.BankName = strings.TrimSpace(*in.BankName)
		}
		if in.Alias != nil {
			account.Alias = strings.TrimSpace(*in.Alias)
		}
		if in.Last4 != nil {
			account.Last4 = in.Last4
		}
		if in.Kind != nil {
			account.Kind = *in.Kind
		}
		if in.BalanceCents != nil {
			account.BalanceCents = *in.BalanceCents
		}
		if account.IsDebit() {
			account.BillingDay = nil
			account.RepaymentDay = nil
		} else {
			if in.BillingDay != nil {
				account.BillingDay = in.BillingDay
			}
			if in.RepaymentDay != nil {
				account.RepaymentDay = in.RepaymentDay
			}
		}
		if in.IsActive != nil {
			account.IsActive = *in.IsActive
		}

		if err := validateBankAccount(&account); err != nil {
			return err
		}
		return tx.Save(&account).Error
	})
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// DeleteAccount hard-deletes an unreferenced account and disables a referenced one.
func (s *bankAccountService) DeleteAccount(ctx context.Context, userID, accountID uint) (DeleteMode, error) {
	var mode DeleteMode
	err := runInTx(ctx, s.db, func(tx *gorm.DB) error {
		var account models.BankAccount
		if err := tx.Where("id = ? AND user_id = ?", accountID, userID).First(&account).Error; err != nil {
			return lookupError(err, apperrors.ErrBankAccountNotFound)
		}

		var refs int64
		if err := tx.Model(&models.Transaction{}).
			Where("bank_account_id = ? OR to_bank_account_id = ?", account.ID, account.ID).
			Count(&refs).Error; err != nil {
			return internal(err)
		}
		if refs > 0 {
			mode = DeleteModeDisabled
			return tx.Model(&account).Update("is_active", false).Error
		}
		mode = DeleteModeDeleted
		return tx.Delete(&account).Error
	})
	if err != nil {
		return "", err
	}
	return mode, nil
}

func validateBankAccount(a *models.BankAccount) error {
	if a.BankName == "" || a.Alias == "" {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "bankName and alias are required")
	}
	if a.Last4 != nil && !isFourDigits(*a.Last4) {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "last4 must be exactly 4 digits")
	}
	switch a.Kind {
	case models.BankAccountKindCredit:
		if a.BillingDay == nil || a.RepaymentDay == nil {
			return apperrors.WithMessage(apperrors.ErrInvalidInput, "Credit card requires billingDay and repaymentDay")
		}
		if !validDay(*a.BillingDay) || !validDay(*a.RepaymentDay) {
			return apperrors.WithMessage(apperrors.ErrInvalidInput, "billingDay and repaymentDay must be between 1 and 31")
		}
	case models.BankAccountKindDebit:
		if a.BillingDay != nil || a.RepaymentDay != nil {
			return apperrors.WithMessage(apperrors.ErrInvalidInput, "Debit account must not set billingDay/repaymentDay")
		}
		if a.BalanceCents < 0 {
			return apperrors.WithMessage(apperrors.ErrInvalidInput, "Debit account balance must not be negative")
		}
	default:
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "kind must be debit or credit")
	}
	return nil
}

func validDay(d int) bool {
	return d >= 1 && d <= 31
}

func isFourDigits(s string) bool {
	if len(s) != 4 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
