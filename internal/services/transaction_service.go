package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	apperrors "ibooks/internal/errors"
	"ibooks/internal/logger"
	"ibooks/internal/models"
	"ibooks/internal/pagination"
)

// DefaultRefundNote is stored on refunds created without a note.
const DefaultRefundNote = "退款"

// transactionService implements the ledger state machine for income,
// expense, transfer and refund rows.
type transactionService struct {
	db       *gorm.DB
	recorder LedgerRecorder
	now      func() time.Time
}

// NewTransactionService creates a new TransactionServicer. A nil recorder
// disables ledger observation.
func NewTransactionService(db *gorm.DB, recorder LedgerRecorder) TransactionServicer {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &transactionService{
		db:       db,
		recorder: recorder,
		now:      time.Now,
	}
}

// ListTransactions returns one page of top-level rows. Unless the type filter
// asks for refunds, refund rows are left out of Items and returned in
// RefundItems under the expenses of the page instead.
func (s *transactionService) ListTransactions(ctx context.Context, userID uint, filter TransactionFilter, page pagination.PageRequest) (*TransactionList, error) {
	if err := validateFilter(filter); err != nil {
		return nil, err
	}
	page.Defaults()

	db := s.db.WithContext(ctx)
	query := func() *gorm.DB {
		return applyTransactionFilters(db.Model(&models.Transaction{}).Where("transactions.user_id = ?", userID), filter)
	}

	out := &TransactionList{Items: []TransactionView{}, RefundItems: []TransactionView{}}
	if err := query().Count(&out.Total).Error; err != nil {
		return nil, internal(err)
	}
	if err := query().Where("transactions.type = ?", models.TransactionTypeIncome).
		Select("COALESCE(SUM(transactions.amount_cents), 0)").Scan(&out.IncomeCents).Error; err != nil {
		return nil, internal(err)
	}
	if err := query().Where("transactions.type = ?", models.TransactionTypeExpense).
		Select("COALESCE(SUM(transactions.amount_cents), 0)").Scan(&out.ExpenseCents).Error; err != nil {
		return nil, internal(err)
	}

	var rows []models.Transaction
	if err := query().Order("transactions.occurred_at ASC").Order("transactions.id ASC").
		Scopes(pagination.Paginate(page)).Find(&rows).Error; err != nil {
		return nil, internal(err)
	}

	ids := make([]uint, 0, len(rows))
	var expenseIDs []uint
	for _, r := range rows {
		ids = append(ids, r.ID)
		if r.Type == models.TransactionTypeExpense {
			expenseIDs = append(expenseIDs, r.ID)
		}
	}
	tags, err := loadTransactionTags(db, ids)
	if err != nil {
		return nil, err
	}

	refunded := make(map[uint]int64)
	if len(expenseIDs) > 0 {
		var refunds []models.Transaction
		if err := db.Where("user_id = ? AND type = ? AND refund_of_transaction_id IN ?",
			userID, models.TransactionTypeRefund, expenseIDs).
			Order("occurred_at ASC").Order("id ASC").Find(&refunds).Error; err != nil {
			return nil, internal(err)
		}
		for i := range refunds {
			refunded[*refunds[i].RefundOfTransactionID] += refunds[i].AmountCents
			out.RefundItems = append(out.RefundItems, newTransactionView(&refunds[i], nil, nil))
		}
	}

	for i := range rows {
		var sum *int64
		if v, ok := refunded[rows[i].ID]; ok {
			sum = &v
		}
		out.Items = append(out.Items, newTransactionView(&rows[i], tags[rows[i].ID], sum))
	}
	return out, nil
}

// GetTransaction returns one transaction of the user.
func (s *transactionService) GetTransaction(ctx context.Context, userID, transactionID uint) (*TransactionView, error) {
	db := s.db.WithContext(ctx)
	row, err := loadOwnedTransaction(db, userID, transactionID)
	if err != nil {
		return nil, err
	}
	tags, err := loadTransactionTags(db, []uint{row.ID})
	if err != nil {
		return nil, err
	}

	var refunded *int64
	if row.Type == models.TransactionTypeExpense {
		sum, n, err := refundTotal(db, userID, row.ID)
		if err != nil {
			return nil, err
		}
		if n > 0 {
			refunded = &sum
		}
	}
	view := newTransactionView(row, tags[row.ID], refunded)
	return &view, nil
}

// CreateTransaction records an income or expense. Bank-funded rows move the
// account balance in the same database transaction.
func (s *transactionService) CreateTransaction(ctx context.Context, userID uint, in CreateTransactionInput) (view *TransactionView, err error) {
	defer func() { s.recorder.ObserveLedger("create", string(in.Type), err) }()

	if in.Type != models.TransactionTypeIncome && in.Type != models.TransactionTypeExpense {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid type")
	}
	if err := validateAmount(in.AmountCents); err != nil {
		return nil, err
	}
	if in.OccurredAt.IsZero() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "occurredAt is required")
	}
	switch in.FundingSource {
	case models.FundingSourceCash:
		if in.BankAccountID != nil {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Cash must not set bankAccountId")
		}
	case models.FundingSourceBank:
		if in.BankAccountID == nil {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Bank fundingSource requires bankAccountId")
		}
	default:
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid fundingSource")
	}

	err = runInTx(ctx, s.db, func(tx *gorm.DB) error {
		category, err := ensureLeafCategory(tx, userID, in.CategoryID, models.CategoryType(in.Type))
		if err != nil {
			return err
		}

		var tags []resolvedTag
		if len(in.TagIDs) > 0 {
			if in.Type != models.TransactionTypeExpense {
				return apperrors.WithMessage(apperrors.ErrTagNotAllowed, "Tags are only supported for expense")
			}
			if tags, err = resolveTags(tx, userID, category, in.TagIDs); err != nil {
				return err
			}
		}

		row := models.Transaction{
			UserID:        userID,
			Type:          in.Type,
			AmountCents:   in.AmountCents,
			OccurredAt:    in.OccurredAt.UTC(),
			CategoryID:    &category.ID,
			FundingSource: in.FundingSource,
			BankAccountID: in.BankAccountID,
			Note:          normalizeNote(in.Note),
		}

		var account *models.BankAccount
		if in.FundingSource == models.FundingSourceBank {
			if account, err = loadActiveAccount(tx, userID, *in.BankAccountID); err != nil {
				return err
			}
			if err := checkDelta(account, postingDelta(&row)); err != nil {
				return err
			}
		}

		if err := tx.Create(&row).Error; err != nil {
			return internal(err)
		}
		if err := linkTags(tx, row.ID, tags); err != nil {
			return err
		}
		if account != nil {
			if err := applyDelta(tx, account, postingDelta(&row)); err != nil {
				return err
			}
		}
		if err := recordAudit(tx, models.AuditActionCreate, userID, &row, nil, snapshotOf(&row, tags)); err != nil {
			return err
		}

		v := newTransactionView(&row, tags, nil)
		view = &v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// CreateTransfer moves money between two of the user's bank accounts.
func (s *transactionService) CreateTransfer(ctx context.Context, userID uint, in CreateTransferInput) (view *TransactionView, err error) {
	defer func() { s.recorder.ObserveLedger("create", string(models.TransactionTypeTransfer), err) }()

	if in.FromBankAccountID == in.ToBankAccountID {
		return nil, apperrors.ErrSameAccountTransfer
	}
	if err := validateAmount(in.AmountCents); err != nil {
		return nil, err
	}
	if in.OccurredAt.IsZero() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "occurredAt is required")
	}

	err = runInTx(ctx, s.db, func(tx *gorm.DB) error {
		from, err := loadActiveAccount(tx, userID, in.FromBankAccountID)
		if err != nil {
			return renameAccountError(err, "Invalid fromBankAccountId")
		}
		to, err := loadActiveAccount(tx, userID, in.ToBankAccountID)
		if err != nil {
			return renameAccountError(err, "Invalid toBankAccountId")
		}
		if err := checkDelta(from, -in.AmountCents); err != nil {
			return err
		}

		row := models.Transaction{
			UserID:          userID,
			Type:            models.TransactionTypeTransfer,
			AmountCents:     in.AmountCents,
			OccurredAt:      in.OccurredAt.UTC(),
			FundingSource:   models.FundingSourceBank,
			BankAccountID:   &from.ID,
			ToBankAccountID: &to.ID,
			Note:            normalizeNote(in.Note),
		}
		if err := tx.Create(&row).Error; err != nil {
			return internal(err)
		}
		if err := applyDelta(tx, from, -in.AmountCents); err != nil {
			return err
		}
		if err := applyDelta(tx, to, in.AmountCents); err != nil {
			return err
		}
		if err := recordAudit(tx, models.AuditActionCreate, userID, &row, nil, snapshotOf(&row, nil)); err != nil {
			return err
		}

		v := newTransactionView(&row, nil, nil)
		view = &v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// CreateRefund returns money of a bank-funded expense to its account.
func (s *transactionService) CreateRefund(ctx context.Context, userID, transactionID uint, in CreateRefundInput) (view *TransactionView, err error) {
	defer func() { s.recorder.ObserveLedger("create", string(models.TransactionTypeRefund), err) }()

	if in.Mode != RefundModeFull && in.Mode != RefundModePartial {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid mode")
	}

	err = runInTx(ctx, s.db, func(tx *gorm.DB) error {
		original, err := loadOwnedTransaction(tx, userID, transactionID)
		if err != nil {
			return err
		}
		switch {
		case original.Type != models.TransactionTypeExpense:
			return apperrors.WithMessage(apperrors.ErrNotRefundable, "Only expense supports refund")
		case original.FundingSource != models.FundingSourceBank || original.BankAccountID == nil:
			return apperrors.ErrNotRefundable
		case original.AmountCents <= 0:
			return apperrors.WithMessage(apperrors.ErrNotRefundable, "Invalid original amount")
		case original.RefundOfTransactionID != nil:
			return apperrors.WithMessage(apperrors.ErrNotRefundable, "Refund transaction cannot be refunded")
		}

		refunded, _, err := refundTotal(tx, userID, original.ID)
		if err != nil {
			return err
		}
		remaining := original.AmountCents - refunded
		if remaining <= 0 {
			return apperrors.ErrFullyRefunded
		}

		amount := remaining
		if in.Mode == RefundModePartial {
			if in.AmountCents == nil {
				return apperrors.WithMessage(apperrors.ErrInvalidInput, "amountCents is required for partial refund")
			}
			amount = *in.AmountCents
			if amount <= 0 {
				return apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid refund amount")
			}
			if amount > remaining {
				return apperrors.ErrRefundExceedsRemaining
			}
		}

		account, err := loadOwnedAccount(tx, userID, *original.BankAccountID)
		if err != nil {
			return err
		}

		occurredAt := s.now()
		if in.OccurredAt != nil && !in.OccurredAt.IsZero() {
			occurredAt = *in.OccurredAt
		}
		note := normalizeNote(in.Note)
		if note == nil {
			n := DefaultRefundNote
			note = &n
		}

		row := models.Transaction{
			UserID:                userID,
			Type:                  models.TransactionTypeRefund,
			AmountCents:           amount,
			OccurredAt:            occurredAt.UTC(),
			CategoryID:            original.CategoryID,
			FundingSource:         models.FundingSourceBank,
			BankAccountID:         original.BankAccountID,
			RefundOfTransactionID: &original.ID,
			Note:                  note,
		}
		if err := tx.Create(&row).Error; err != nil {
			return internal(err)
		}
		if err := applyDelta(tx, account, amount); err != nil {
			return err
		}
		if err := recordAudit(tx, models.AuditActionCreate, userID, &row, nil, snapshotOf(&row, nil)); err != nil {
			return err
		}

		logger.Get().Infow("refund created",
			"transaction_id", original.ID,
			"refund_id", row.ID,
			"amount_cents", amount,
			"remaining_cents", remaining-amount,
		)
		v := newTransactionView(&row, nil, nil)
		view = &v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// UpdateTransaction edits occurredAt, category, tags and note of an income
// or expense. Amount, funding source and bank account stay fixed.
func (s *transactionService) UpdateTransaction(ctx context.Context, userID, transactionID uint, in UpdateTransactionInput) (view *TransactionView, err error) {
	txType := ""
	defer func() { s.recorder.ObserveLedger("update", txType, err) }()

	err = runInTx(ctx, s.db, func(tx *gorm.DB) error {
		row, err := loadOwnedTransaction(tx, userID, transactionID)
		if err != nil {
			return err
		}
		txType = string(row.Type)
		if !row.IsEditable() {
			return apperrors.ErrTransactionNotEditable
		}

		current, err := loadTransactionTags(tx, []uint{row.ID})
		if err != nil {
			return err
		}
		tags := current[row.ID]
		before := snapshotOf(row, tags)

		updates := map[string]interface{}{}
		if in.OccurredAt != nil {
			row.OccurredAt = in.OccurredAt.UTC()
			updates["occurred_at"] = row.OccurredAt
		}

		var category *models.Category
		categoryChanged := false
		if in.CategoryID != nil {
			if category, err = ensureLeafCategory(tx, userID, *in.CategoryID, models.CategoryType(row.Type)); err != nil {
				return err
			}
			categoryChanged = row.CategoryID == nil || *row.CategoryID != category.ID
			row.CategoryID = &category.ID
			updates["category_id"] = category.ID
		} else if row.CategoryID != nil {
			if category, err = loadOwnedCategory(tx, userID, *row.CategoryID, apperrors.ErrInvalidCategory); err != nil {
				return err
			}
		}

		if in.Note != nil {
			row.Note = normalizeNote(in.Note)
			updates["note"] = row.Note
		}

		retag := in.TagIDs != nil || (categoryChanged && len(tags) > 0)
		if retag {
			ids := tagIDsOf(tags)
			if in.TagIDs != nil {
				ids = *in.TagIDs
			}
			var next []resolvedTag
			if len(ids) > 0 {
				if row.Type != models.TransactionTypeExpense {
					return apperrors.WithMessage(apperrors.ErrTagNotAllowed, "Tags are only supported for expense")
				}
				if category == nil {
					return apperrors.ErrInvalidCategory
				}
				if next, err = resolveTags(tx, userID, category, ids); err != nil {
					return err
				}
			}
			if err := linkTags(tx, row.ID, next); err != nil {
				return err
			}
			tags = next
		}

		if len(updates) > 0 {
			if err := tx.Model(row).Updates(updates).Error; err != nil {
				return internal(err)
			}
		}
		if err := recordAudit(tx, models.AuditActionUpdate, userID, row, before, snapshotOf(row, tags)); err != nil {
			return err
		}

		v := newTransactionView(row, tags, nil)
		view = &v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// DeleteTransaction reverses the balance effect of a row and removes it.
// Expenses that still have refunds cannot be deleted.
func (s *transactionService) DeleteTransaction(ctx context.Context, userID, transactionID uint) (err error) {
	txType := ""
	defer func() { s.recorder.ObserveLedger("delete", txType, err) }()

	return runInTx(ctx, s.db, func(tx *gorm.DB) error {
		row, err := loadOwnedTransaction(tx, userID, transactionID)
		if err != nil {
			return err
		}
		txType = string(row.Type)

		if row.RefundOfTransactionID == nil {
			var refunds int64
			if err := tx.Model(&models.Transaction{}).
				Where("user_id = ? AND refund_of_transaction_id = ?", userID, row.ID).
				Count(&refunds).Error; err != nil {
				return internal(err)
			}
			if refunds > 0 {
				return apperrors.ErrTransactionHasRefunds
			}
		}

		if err := reverseBalance(tx, userID, row); err != nil {
			return err
		}

		current, err := loadTransactionTags(tx, []uint{row.ID})
		if err != nil {
			return err
		}
		before := snapshotOf(row, current[row.ID])

		if err := tx.Where("transaction_id = ?", row.ID).Delete(&models.TransactionTag{}).Error; err != nil {
			return internal(err)
		}
		if err := tx.Delete(row).Error; err != nil {
			return internal(err)
		}
		return recordAudit(tx, models.AuditActionDelete, userID, row, before, nil)
	})
}

// reverseBalance undoes the balance effect a row had when it was created.
func reverseBalance(tx *gorm.DB, userID uint, row *models.Transaction) error {
	if row.Type == models.TransactionTypeTransfer {
		if row.BankAccountID == nil || row.ToBankAccountID == nil {
			return apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid transfer")
		}
		from, err := loadOwnedAccount(tx, userID, *row.BankAccountID)
		if err != nil {
			return err
		}
		to, err := loadOwnedAccount(tx, userID, *row.ToBankAccountID)
		if err != nil {
			return err
		}
		if err := applyDelta(tx, to, -row.AmountCents); err != nil {
			return err
		}
		return applyDelta(tx, from, row.AmountCents)
	}

	if row.FundingSource != models.FundingSourceBank || row.BankAccountID == nil {
		return nil
	}
	account, err := loadOwnedAccount(tx, userID, *row.BankAccountID)
	if err != nil {
		return err
	}
	return applyDelta(tx, account, -postingDelta(row))
}

func renameAccountError(err error, message string) error {
	if errors.Is(err, apperrors.ErrInvalidBankAccount) {
		return apperrors.WithMessage(apperrors.ErrInvalidBankAccount, message)
	}
	return err
}

func loadOwnedTransaction(tx *gorm.DB, userID, transactionID uint) (*models.Transaction, error) {
	var row models.Transaction
	if err := tx.Where("id = ? AND user_id = ?", transactionID, userID).First(&row).Error; err != nil {
		return nil, lookupError(err, apperrors.ErrTransactionNotFound)
	}
	return &row, nil
}

// refundTotal sums the refunds recorded against an expense.
func refundTotal(tx *gorm.DB, userID, transactionID uint) (int64, int64, error) {
	var result struct {
		Total int64
		Count int64
	}
	if err := tx.Model(&models.Transaction{}).
		Select("COALESCE(SUM(amount_cents), 0) AS total, COUNT(*) AS count").
		Where("user_id = ? AND type = ? AND refund_of_transaction_id = ?",
			userID, models.TransactionTypeRefund, transactionID).
		Scan(&result).Error; err != nil {
		return 0, 0, internal(err)
	}
	return result.Total, result.Count, nil
}

type transactionTagRow struct {
	TransactionID uint
	TagID         uint
	Name          string
}

// loadTransactionTags returns the tags of each transaction in ascending tag id order.
func loadTransactionTags(tx *gorm.DB, ids []uint) (map[uint][]resolvedTag, error) {
	out := make(map[uint][]resolvedTag, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []transactionTagRow
	if err := tx.Table("transaction_tags").
		Select("transaction_tags.transaction_id, transaction_tags.tag_id, category_tags.name").
		Joins("JOIN category_tags ON category_tags.id = transaction_tags.tag_id").
		Where("transaction_tags.transaction_id IN ?", ids).
		Order("transaction_tags.tag_id ASC").
		Scan(&rows).Error; err != nil {
		return nil, internal(err)
	}
	for _, r := range rows {
		out[r.TransactionID] = append(out[r.TransactionID], resolvedTag{ID: r.TagID, Name: r.Name})
	}
	return out, nil
}

// likeEscaper makes user keywords match literally inside LIKE patterns.
var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

func applyTransactionFilters(q *gorm.DB, f TransactionFilter) *gorm.DB {
	if f.Type == "" || f.Type == "all" {
		q = q.Where("transactions.type <> ?", models.TransactionTypeRefund)
	} else {
		q = q.Where("transactions.type = ?", f.Type)
	}
	if f.FundingSource != "" && f.FundingSource != "all" {
		q = q.Where("transactions.type <> ? AND transactions.funding_source = ?",
			models.TransactionTypeTransfer, f.FundingSource)
	}
	if f.BankAccountID != nil {
		q = q.Where("(transactions.bank_account_id = ? OR transactions.to_bank_account_id = ?)",
			*f.BankAccountID, *f.BankAccountID)
	}
	if f.Start != nil {
		q = q.Where("transactions.occurred_at >= ?", f.Start.UTC())
	}
	if f.End != nil {
		q = q.Where("transactions.occurred_at <= ?", f.End.UTC())
	}
	if kw := strings.ToLower(strings.TrimSpace(f.Keyword)); kw != "" {
		like := "%" + likeEscaper.Replace(kw) + "%"
		q = q.Where(`(LOWER(COALESCE(transactions.note, '')) LIKE ? ESCAPE '\' OR EXISTS (
			SELECT 1 FROM transaction_tags
			JOIN category_tags ON category_tags.id = transaction_tags.tag_id
			WHERE transaction_tags.transaction_id = transactions.id AND LOWER(category_tags.name) LIKE ? ESCAPE '\'))`,
			like, like)
	}
	return q
}

func validateFilter(f TransactionFilter) error {
	switch models.TransactionType(f.Type) {
	case "", "all", models.TransactionTypeIncome, models.TransactionTypeExpense,
		models.TransactionTypeTransfer, models.TransactionTypeRefund:
	default:
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid type")
	}
	switch models.FundingSource(f.FundingSource) {
	case "", "all", models.FundingSourceCash, models.FundingSourceBank:
	default:
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid fundingSource")
	}
	if f.Start != nil && f.End != nil && f.End.Before(*f.Start) {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "end must not be before start")
	}
	return nil
}

func validateAmount(cents int64) error {
	if cents <= 0 {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "amountCents must be greater than zero")
	}
	return nil
}

// normalizeNote trims a note; blank notes are stored as NULL.
func normalizeNote(note *string) *string {
	if note == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*note)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func tagIDsOf(tags []resolvedTag) []uint {
	ids := make([]uint, 0, len(tags))
	for _, t := range tags {
		ids = append(ids, t.ID)
	}
	return ids
}

func newTransactionView(t *models.Transaction, tags []resolvedTag, refunded *int64) TransactionView {
	v := TransactionView{
		ID:                    t.ID,
		Type:                  t.Type,
		AmountCents:           t.AmountCents,
		OccurredAt:            t.OccurredAt.UTC(),
		CreatedAt:             t.CreatedAt.UTC(),
		CategoryID:            t.CategoryID,
		FundingSource:         t.FundingSource,
		BankAccountID:         t.BankAccountID,
		ToBankAccountID:       t.ToBankAccountID,
		RefundOfTransactionID: t.RefundOfTransactionID,
		RefundedCents:         refunded,
		Note:                  t.Note,
		TagIDs:                make([]uint, 0, len(tags)),
		TagNames:              make([]string, 0, len(tags)),
	}
	for _, tag := range tags {
		v.TagIDs = append(v.TagIDs, tag.ID)
		v.TagNames = append(v.TagNames, tag.Name)
	}
	return v
}
