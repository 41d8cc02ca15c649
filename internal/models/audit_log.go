package models

import "time"

// AuditAction is the kind of mutation recorded in the audit trail.
type AuditAction string

const (
	AuditActionCreate AuditAction = "create"
	AuditActionUpdate AuditAction = "update"
	AuditActionDelete AuditAction = "delete"
)

// TransactionAuditLog is an append-only snapshot pair for one mutation.
// TransactionID carries no foreign key; rows survive deletion of the
// transaction they describe.
type TransactionAuditLog struct {
	ID            uint             `gorm:"primaryKey"`
	Action        AuditAction      `gorm:"size:10;not null;index"`
	ActorUserID   uint             `gorm:"not null;index"`
	TargetUserID  uint             `gorm:"not null;index"`
	TransactionID *uint            `gorm:"index"`
	TxType        *TransactionType `gorm:"size:10;index"`
	BeforeJSON    *string          `gorm:"type:text"`
	AfterJSON     *string          `gorm:"type:text"`
	CreatedAt     time.Time        `gorm:"not null;index"`
}
