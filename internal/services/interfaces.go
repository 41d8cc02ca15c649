package services

import (
	"context"
	"time"

	"ibooks/internal/models"
	"ibooks/internal/pagination"
)

// DeleteMode reports whether a delete removed the row or only disabled it.
type DeleteMode string

const (
	DeleteModeDeleted  DeleteMode = "deleted"
	DeleteModeDisabled DeleteMode = "disabled"
)

// LedgerRecorder observes finished ledger mutations.
type LedgerRecorder interface {
	ObserveLedger(operation, txType string, err error)
}

type nopRecorder struct{}

func (nopRecorder) ObserveLedger(string, string, error) {}

// CreateUserInput carries the fields an admin sets on a new user.
type CreateUserInput struct {
	Username string
	Password string
	Role     models.Role
	IsActive bool
	TimeZone string
}

// UpdateUserInput is a partial user update; nil fields are left unchanged.
type UpdateUserInput struct {
	Password *string
	Role     *models.Role
	IsActive *bool
	TimeZone *string
}

// UserServicer defines the contract for user-related business logic.
type UserServicer interface {
	Register(ctx context.Context, username, password string) (*models.User, error)
	Authenticate(ctx context.Context, username, password string) (*models.User, error)
	GetUserByID(ctx context.Context, id uint) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	CreateUser(ctx context.Context, in CreateUserInput) (*models.User, error)
	UpdateUser(ctx context.Context, actorID, userID uint, in UpdateUserInput) (*models.User, error)
	EnsureAdmin(ctx context.Context, username, password string) (*models.User, bool, error)
}

// BankAccountInput carries the fields of a new bank account.
type BankAccountInput struct {
	BankName     string
	Alias        string
	Last4        *string
	Kind         models.BankAccountKind
	BalanceCents int64
	BillingDay   *int
	RepaymentDay *int
	IsActive     bool
}

// BankAccountPatch is a partial bank account update; nil fields are left unchanged.
type BankAccountPatch struct {
	BankName     *string
	Alias        *string
	Last4        *string
	Kind         *models.BankAccountKind
	BalanceCents *int64
	BillingDay   *int
	RepaymentDay *int
	IsActive     *bool
}

// BankAccountServicer defines the contract for bank account management.
type BankAccountServicer interface {
	ListAccounts(ctx context.Context, userID uint, orderBy string) ([]models.BankAccount, error)
	GetAccount(ctx context.Context, userID, accountID uint) (*models.BankAccount, error)
	CreateAccount(ctx context.Context, userID uint, in BankAccountInput) (*models.BankAccount, error)
	UpdateAccount(ctx context.Context, userID, accountID uint, in BankAccountPatch) (*models.BankAccount, error)
	DeleteAccount(ctx context.Context, userID, accountID uint) (DeleteMode, error)
}

// CategoryNode is one materialized node of a category forest.
type CategoryNode struct {
	ID        uint                `json:"id"`
	Type      models.CategoryType `json:"type"`
	Name      string              `json:"name"`
	ParentID  *uint               `json:"parentId"`
	SortOrder int                 `json:"sortOrder"`
	IsActive  bool                `json:"isActive"`
	IsLeaf    bool                `json:"isLeaf"`
	Children  []*CategoryNode     `json:"children"`
}

// CreateCategoryInput carries the fields of a new category.
type CreateCategoryInput struct {
	Type      models.CategoryType
	Name      string
	ParentID  *uint
	SortOrder *int
	IsActive  bool
}

// UpdateCategoryInput is a partial category update. Structure changes go through MoveCategory.
type UpdateCategoryInput struct {
	Name      *string
	SortOrder *int
	IsActive  *bool
}

// CategoryServicer defines the contract for the category tree.
type CategoryServicer interface {
	GetTree(ctx context.Context, userID uint, categoryType *models.CategoryType) ([]*CategoryNode, error)
	CreateCategory(ctx context.Context, userID uint, in CreateCategoryInput) (*CategoryNode, error)
	UpdateCategory(ctx context.Context, userID, categoryID uint, in UpdateCategoryInput) (*CategoryNode, error)
	MoveCategory(ctx context.Context, userID, categoryID uint, parentID *uint, index int) error
	DeleteCategory(ctx context.Context, userID, categoryID uint) (DeleteMode, error)
}

// TagServicer defines the contract for tags bound to first-level expense categories.
type TagServicer interface {
	ListTags(ctx context.Context, userID, categoryID uint, activeOnly bool) ([]models.CategoryTag, error)
	CreateTag(ctx context.Context, userID, categoryID uint, name string, isActive bool) (*models.CategoryTag, error)
	DeleteTag(ctx context.Context, userID, categoryID, tagID uint) (DeleteMode, error)
}

// TransactionView is a transaction with its resolved tags.
type TransactionView struct {
	ID                    uint                   `json:"id"`
	Type                  models.TransactionType `json:"type"`
	AmountCents           int64                  `json:"amountCents"`
	OccurredAt            time.Time              `json:"occurredAt"`
	CreatedAt             time.Time              `json:"createdAt"`
	CategoryID            *uint                  `json:"categoryId"`
	FundingSource         models.FundingSource   `json:"fundingSource"`
	BankAccountID         *uint                  `json:"bankAccountId"`
	ToBankAccountID       *uint                  `json:"toBankAccountId"`
	RefundOfTransactionID *uint                  `json:"refundOfTransactionId"`
	RefundedCents         *int64                 `json:"refundedCents"`
	Note                  *string                `json:"note"`
	TagIDs                []uint                 `json:"tagIds"`
	TagNames              []string               `json:"tagNames"`
}

// TransactionList is one page of top-level rows plus the refunds of its expenses.
type TransactionList struct {
	Items        []TransactionView `json:"items"`
	RefundItems  []TransactionView `json:"refundItems"`
	Total        int64             `json:"total"`
	IncomeCents  int64             `json:"incomeCents"`
	ExpenseCents int64             `json:"expenseCents"`
}

// TransactionFilter holds the list filters. Empty Type and FundingSource mean "all".
type TransactionFilter struct {
	Type          string
	FundingSource string
	BankAccountID *uint
	Start         *time.Time
	End           *time.Time
	Keyword       string
}

// CreateTransactionInput carries a new income or expense.
type CreateTransactionInput struct {
	Type          models.TransactionType
	AmountCents   int64
	OccurredAt    time.Time
	CategoryID    uint
	FundingSource models.FundingSource
	BankAccountID *uint
	TagIDs        []uint
	Note          *string
}

// CreateTransferInput carries a bank-to-bank transfer.
type CreateTransferInput struct {
	FromBankAccountID uint
	ToBankAccountID   uint
	AmountCents       int64
	OccurredAt        time.Time
	Note              *string
}

// RefundMode selects between refunding the remainder or a given amount.
type RefundMode string

const (
	RefundModeFull    RefundMode = "full"
	RefundModePartial RefundMode = "partial"
)

// CreateRefundInput carries a refund against an expense.
type CreateRefundInput struct {
	Mode        RefundMode
	AmountCents *int64
	OccurredAt  *time.Time
	Note        *string
}

// UpdateTransactionInput is a partial update of an income or expense.
// A non-nil TagIDs replaces all tags; a non-nil empty Note clears the note.
type UpdateTransactionInput struct {
	OccurredAt *time.Time
	CategoryID *uint
	TagIDs     *[]uint
	Note       *string
}

// TransactionServicer defines the contract for the transaction engine.
type TransactionServicer interface {
	ListTransactions(ctx context.Context, userID uint, filter TransactionFilter, page pagination.PageRequest) (*TransactionList, error)
	GetTransaction(ctx context.Context, userID, transactionID uint) (*TransactionView, error)
	CreateTransaction(ctx context.Context, userID uint, in CreateTransactionInput) (*TransactionView, error)
	CreateTransfer(ctx context.Context, userID uint, in CreateTransferInput) (*TransactionView, error)
	CreateRefund(ctx context.Context, userID, transactionID uint, in CreateRefundInput) (*TransactionView, error)
	UpdateTransaction(ctx context.Context, userID, transactionID uint, in UpdateTransactionInput) (*TransactionView, error)
	DeleteTransaction(ctx context.Context, userID, transactionID uint) error
}

// AuditLogFilter holds the admin audit log filters.
type AuditLogFilter struct {
	Action        *models.AuditAction
	TransactionID *uint
	TxType        *models.TransactionType
	ActorUserID   *uint
	TargetUserID  *uint
	Start         *time.Time
	End           *time.Time
	Ascending     bool
}

// AuditLogEntry is an audit row with its snapshots decoded.
type AuditLogEntry struct {
	ID            uint                    `json:"id"`
	Action        models.AuditAction      `json:"action"`
	ActorUserID   uint                    `json:"actorUserId"`
	TargetUserID  uint                    `json:"targetUserId"`
	TransactionID *uint                   `json:"transactionId"`
	TxType        *models.TransactionType `json:"txType"`
	CreatedAt     time.Time               `json:"createdAt"`
	Before        map[string]any          `json:"before"`
	After         map[string]any          `json:"after"`
}

// AuditServicer defines the contract for reading the transaction audit trail.
type AuditServicer interface {
	ListAuditLogs(ctx context.Context, filter AuditLogFilter, page pagination.PageRequest) (*pagination.PageResponse[AuditLogEntry], error)
}

// CategoryAmount is a per-category total.
type CategoryAmount struct {
	CategoryID  uint  `json:"categoryId"`
	AmountCents int64 `json:"amountCents"`
}

// MonthAmount is a per-month total.
type MonthAmount struct {
	Month       string `json:"month"`
	AmountCents int64  `json:"amountCents"`
}

// YearCategoryStats breaks down one year by category and by month.
type YearCategoryStats struct {
	Year          int              `json:"year"`
	Type          string           `json:"type"`
	TotalCents    int64            `json:"totalCents"`
	Breakdown     []CategoryAmount `json:"breakdown"`
	MonthlyTotals []MonthAmount    `json:"monthlyTotals"`
}

// MonthCategoryStats breaks down one month by category.
type MonthCategoryStats struct {
	Month      string           `json:"month"`
	Type       string           `json:"type"`
	TotalCents int64            `json:"totalCents"`
	Breakdown  []CategoryAmount `json:"breakdown"`
}

// MonthlyInOut is one bucket of a month range.
type MonthlyInOut struct {
	Month        string `json:"month"`
	IncomeCents  int64  `json:"incomeCents"`
	ExpenseCents int64  `json:"expenseCents"`
}

// MonthlyRangeStats covers an inclusive month range with every month present.
type MonthlyRangeStats struct {
	StartMonth string         `json:"startMonth"`
	EndMonth   string         `json:"endMonth"`
	Series     []MonthlyInOut `json:"series"`
}

// MonthCategoryCompare compares one category across two years.
type MonthCategoryCompare struct {
	CategoryID    uint  `json:"categoryId"`
	CurrentCents  int64 `json:"currentCents"`
	PreviousCents int64 `json:"previousCents"`
}

// YoYMonthlyPoint compares one month index across two years.
type YoYMonthlyPoint struct {
	Month         string                 `json:"month"`
	CurrentCents  int64                  `json:"currentCents"`
	PreviousCents int64                  `json:"previousCents"`
	Items         []MonthCategoryCompare `json:"items"`
}

// YoYMonthlyStats is a twelve-month year-over-year comparison.
type YoYMonthlyStats struct {
	Type          string            `json:"type"`
	CurrentLabel  string            `json:"currentLabel"`
	PreviousLabel string            `json:"previousLabel"`
	Series        []YoYMonthlyPoint `json:"series"`
}

// StatsServicer defines the contract for read-only aggregations.
type StatsServicer interface {
	YearCategory(ctx context.Context, userID uint, year int, categoryType models.CategoryType) (*YearCategoryStats, error)
	MonthCategory(ctx context.Context, userID uint, month string, categoryType models.CategoryType) (*MonthCategoryStats, error)
	MonthlyRange(ctx context.Context, userID uint, startMonth, endMonth string) (*MonthlyRangeStats, error)
	YoYMonthly(ctx context.Context, userID uint, year int, categoryType models.CategoryType) (*YoYMonthlyStats, error)
}
