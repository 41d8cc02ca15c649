package services

import (
	"context"
	"encoding/json"
	"time"

	"gorm.io/gorm"

	"ibooks/internal/logger"
	"ibooks/internal/models"
	"ibooks/internal/pagination"
)

// transactionSnapshot is the JSON shape stored in audit before/after columns.
type transactionSnapshot struct {
	ID                    uint                   `json:"id"`
	UserID                uint                   `json:"userId"`
	Type                  models.TransactionType `json:"type"`
	AmountCents           int64                  `json:"amountCents"`
	OccurredAt            time.Time              `json:"occurredAt"`
	CreatedAt             time.Time              `json:"createdAt"`
	CategoryID            *uint                  `json:"categoryId"`
	FundingSource         models.FundingSource   `json:"fundingSource"`
	BankAccountID         *uint                  `json:"bankAccountId"`
	ToBankAccountID       *uint                  `json:"toBankAccountId"`
	RefundOfTransactionID *uint                  `json:"refundOfTransactionId"`
	Note                  *string                `json:"note"`
	TagIDs                []uint                 `json:"tagIds"`
	TagNames              []string               `json:"tagNames"`
}

func snapshotOf(t *models.Transaction, tags []resolvedTag) *transactionSnapshot {
	snap := &transactionSnapshot{
		ID:                    t.ID,
		UserID:                t.UserID,
		Type:                  t.Type,
		AmountCents:           t.AmountCents,
		OccurredAt:            t.OccurredAt.UTC(),
		CreatedAt:             t.CreatedAt.UTC(),
		CategoryID:            t.CategoryID,
		FundingSource:         t.FundingSource,
		BankAccountID:         t.BankAccountID,
		ToBankAccountID:       t.ToBankAccountID,
		RefundOfTransactionID: t.RefundOfTransactionID,
		Note:                  t.Note,
		TagIDs:                make([]uint, 0, len(tags)),
		TagNames:              make([]string, 0, len(tags)),
	}
	for _, tag := range tags {
		snap.TagIDs = append(snap.TagIDs, tag.ID)
		snap.TagNames = append(snap.TagNames, tag.Name)
	}
	return snap
}

// recordAudit appends an audit row inside the caller's transaction, so the
// entry commits or rolls back together with the mutation it describes.
func recordAudit(tx *gorm.DB, action models.AuditAction, actorID uint, t *models.Transaction, before, after *transactionSnapshot) error {
	beforeJSON, err := encodeSnapshot(before)
	if err != nil {
		return err
	}
	afterJSON, err := encodeSnapshot(after)
	if err != nil {
		return err
	}

	txID := t.ID
	txType := t.Type
	row := models.TransactionAuditLog{
		Action:        action,
		ActorUserID:   actorID,
		TargetUserID:  t.UserID,
		TransactionID: &txID,
		TxType:        &txType,
		BeforeJSON:    beforeJSON,
		AfterJSON:     afterJSON,
	}
	if err := tx.Create(&row).Error; err != nil {
		logger.Get().Errorw("failed to write audit log",
			"error", err,
			"action", action,
			"transaction_id", t.ID,
		)
		return internal(err)
	}
	return nil
}

func encodeSnapshot(s *transactionSnapshot) (*string, error) {
	if s == nil {
		return nil, nil
	}
	data, err := json.Marshal(s)
	if err != nil {
		return nil, internal(err)
	}
	out := string(data)
	return &out, nil
}

// parseSnapshot decodes a stored snapshot. Non-object JSON is wrapped under
// "value" and undecodable text under "raw".
func parseSnapshot(value *string) map[string]any {
	if value == nil {
		return nil
	}
	var parsed any
	if err := json.Unmarshal([]byte(*value), &parsed); err != nil {
		return map[string]any{"raw": *value}
	}
	if m, ok := parsed.(map[string]any); ok {
		return m
	}
	return map[string]any{"value": parsed}
}

// auditService reads the transaction audit trail.
type auditService struct {
	db *gorm.DB
}

// NewAuditService creates a new AuditServicer.
func NewAuditService(db *gorm.DB) AuditServicer {
	return &auditService{db: db}
}

// ListAuditLogs returns one page of audit entries, newest first unless
// filter.Ascending is set.
func (s *auditService) ListAuditLogs(ctx context.Context, filter AuditLogFilter, page pagination.PageRequest) (*pagination.PageResponse[AuditLogEntry], error) {
	page.Defaults()

	q := s.db.WithContext(ctx).Model(&models.TransactionAuditLog{})
	if filter.Action != nil {
		q = q.Where("action = ?", *filter.Action)
	}
	if filter.TransactionID != nil {
		q = q.Where("transaction_id = ?", *filter.TransactionID)
	}
	if filter.TxType != nil {
		q = q.Where("tx_type = ?", *filter.TxType)
	}
	if filter.ActorUserID != nil {
		q = q.Where("actor_user_id = ?", *filter.ActorUserID)
	}
	if filter.TargetUserID != nil {
		q = q.Where("target_user_id = ?", *filter.TargetUserID)
	}
	if filter.Start != nil {
		q = q.Where("created_at >= ?", filter.Start.UTC())
	}
	if filter.End != nil {
		q = q.Where("created_at <= ?", filter.End.UTC())
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, internal(err)
	}

	order := "created_at DESC, id DESC"
	if filter.Ascending {
		order = "created_at ASC, id ASC"
	}
	var rows []models.TransactionAuditLog
	if err := q.Order(order).Scopes(pagination.Paginate(page)).Find(&rows).Error; err != nil {
		return nil, internal(err)
	}

	items := make([]AuditLogEntry, 0, len(rows))
	for _, r := range rows {
		items = append(items, AuditLogEntry{
			ID:            r.ID,
			Action:        r.Action,
			ActorUserID:   r.ActorUserID,
			TargetUserID:  r.TargetUserID,
			TransactionID: r.TransactionID,
			TxType:        r.TxType,
			CreatedAt:     r.CreatedAt,
			Before:        parseSnapshot(r.BeforeJSON),
			After:         parseSnapshot(r.AfterJSON),
		})
	}
	resp := pagination.NewPageResponse(items, total)
	return &resp, nil
}
