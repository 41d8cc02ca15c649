package models

import "time"

// TransactionType represents the type of transaction
type TransactionType string

const (
	TransactionTypeIncome   TransactionType = "income"
	TransactionTypeExpense  TransactionType = "expense"
	TransactionTypeTransfer TransactionType = "transfer"
	TransactionTypeRefund   TransactionType = "refund"
)

// FundingSource tells whether a transaction moves a tracked bank balance.
type FundingSource string

const (
	FundingSourceCash FundingSource = "cash"
	FundingSourceBank FundingSource = "bank"
)

// Transaction is one ledger fact. OccurredAt is always stored in UTC.
// The storage layer enforces cash => no bank account, bank => bank account.
type Transaction struct {
	Base
	UserID                uint            `gorm:"not null;index" json:"-"`
	Type                  TransactionType `gorm:"size:10;not null;index" json:"type"`
	AmountCents           int64           `gorm:"not null" json:"amountCents"`
	OccurredAt            time.Time       `gorm:"not null;index" json:"occurredAt"`
	CategoryID            *uint           `gorm:"index" json:"categoryId"`
	FundingSource         FundingSource   `gorm:"size:10;not null;default:cash;check:chk_transactions_funding_bank,(funding_source = 'cash' AND bank_account_id IS NULL) OR (funding_source = 'bank' AND bank_account_id IS NOT NULL)" json:"fundingSource"`
	BankAccountID         *uint           `gorm:"index" json:"bankAccountId"`
	ToBankAccountID       *uint           `gorm:"index" json:"toBankAccountId"`
	RefundOfTransactionID *uint           `gorm:"index" json:"refundOfTransactionId"`
	Note                  *string         `gorm:"size:1000" json:"note"`
}

// IsEditable reports whether the row accepts field updates after creation.
func (t *Transaction) IsEditable() bool {
	return t.Type == TransactionTypeIncome || t.Type == TransactionTypeExpense
}

// TransactionTag links an expense to one of its tags.
type TransactionTag struct {
	TransactionID uint `gorm:"primaryKey"`
	TagID         uint `gorm:"primaryKey;index"`
}
