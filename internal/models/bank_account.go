package models

// BankAccountKind distinguishes floor-checked debit accounts from credit lines.
type BankAccountKind string

const (
	BankAccountKindDebit  BankAccountKind = "debit"
	BankAccountKindCredit BankAccountKind = "credit"
)

// BankAccount holds the authoritative balance of one account in integer cents.
type BankAccount struct {
	Base
	UserID       uint            `gorm:"not null;index" json:"-"`
	BankName     string          `gorm:"size:100;not null" json:"bankName"`
	Alias        string          `gorm:"size:100;not null" json:"alias"`
	Last4        *string         `gorm:"size:4" json:"last4"`
	Kind         BankAccountKind `gorm:"size:10;not null;default:debit" json:"kind"`
	BalanceCents int64           `gorm:"not null;default:0" json:"balanceCents"`
	BillingDay   *int            `json:"billingDay"`
	RepaymentDay *int            `json:"repaymentDay"`
	IsActive     bool            `gorm:"not null" json:"isActive"`
}

// IsDebit reports whether the account may never go below zero.
func (a *BankAccount) IsDebit() bool {
	return a.Kind == BankAccountKindDebit
}
