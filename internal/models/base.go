package models

import "time"

// Base contains common columns for all owned tables.
type Base struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"not null" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null" json:"-"`
}

// All returns every model in dependency order, for AutoMigrate.
func All() []interface{} {
	return []interface{}{
		&User{},
		&BankAccount{},
		&Category{},
		&CategoryTag{},
		&Transaction{},
		&TransactionTag{},
		&TransactionAuditLog{},
	}
}
