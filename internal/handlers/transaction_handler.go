package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "ibooks/internal/errors"
	"ibooks/internal/models"
	"ibooks/internal/pagination"
	"ibooks/internal/services"
)

// TransactionHandler handles ledger requests: income, expense, transfers and refunds.
type TransactionHandler struct {
	transactionService services.TransactionServicer
}

// NewTransactionHandler creates a new TransactionHandler
func NewTransactionHandler(transactionService services.TransactionServicer) *TransactionHandler {
	return &TransactionHandler{transactionService: transactionService}
}

// CreateTransactionRequest represents the request payload for an income or expense.
// Timestamps are ISO-8601; zone-less values are read as UTC.
type CreateTransactionRequest struct {
	Type          string  `json:"type" binding:"required,entry_type"`
	AmountCents   int64   `json:"amountCents" binding:"gt=0"`
	OccurredAt    string  `json:"occurredAt" binding:"required"`
	CategoryID    uint    `json:"categoryId" binding:"required"`
	FundingSource string  `json:"fundingSource" binding:"required,funding_source"`
	BankAccountID *uint   `json:"bankAccountId"`
	TagIDs        []uint  `json:"tagIds"`
	Note          *string `json:"note" binding:"omitempty,max=1000"`
}

// CreateTransferRequest represents the request payload for a transfer
type CreateTransferRequest struct {
	FromBankAccountID uint    `json:"fromBankAccountId" binding:"required"`
	ToBankAccountID   uint    `json:"toBankAccountId" binding:"required"`
	AmountCents       int64   `json:"amountCents" binding:"gt=0"`
	OccurredAt        string  `json:"occurredAt" binding:"required"`
	Note              *string `json:"note" binding:"omitempty,max=1000"`
}

// CreateRefundRequest refunds the remainder (mode=full) or amountCents (mode=partial).
type CreateRefundRequest struct {
	Mode        string  `json:"mode" binding:"required,refund_mode"`
	AmountCents *int64  `json:"amountCents"`
	OccurredAt  *string `json:"occurredAt"`
	Note        *string `json:"note" binding:"omitempty,max=1000"`
}

// UpdateTransactionRequest is a partial update of an income or expense.
// A tagIds array replaces every tag; an empty note clears it.
type UpdateTransactionRequest struct {
	OccurredAt *string `json:"occurredAt"`
	CategoryID *uint   `json:"categoryId"`
	TagIDs     *[]uint `json:"tagIds"`
	Note       *string `json:"note" binding:"omitempty,max=1000"`
}

// ListTransactions lists the caller's transactions
// @Summary     List transactions
// @Description Refund rows are returned in refundItems under their expense unless type=refund.
// @Tags        ledger
// @Produce     json
// @Security    BearerAuth
// @Param       type          query string false "all, income, expense, transfer or refund"
// @Param       fundingSource query string false "all, cash or bank"
// @Param       bankAccountId query int    false "Source or destination bank account"
// @Param       start         query string false "Inclusive lower bound (ISO-8601)"
// @Param       end           query string false "Inclusive upper bound (ISO-8601)"
// @Param       keyword       query string false "Matches note or tag names"
// @Param       page          query int    false "Page number (default 1)"
// @Param       pageSize      query int    false "Items per page (default 50, max 200)"
// @Success     200 {object} services.TransactionList
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /ledger/transactions [get]
func (h *TransactionHandler) ListTransactions(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	filter, err := parseTransactionFilter(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.transactionService.ListTransactions(c.Request.Context(), userID, filter, page)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetTransaction returns one transaction
// @Summary     Get a transaction
// @Tags        ledger
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Transaction ID"
// @Success     200 {object} services.TransactionView
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Router      /ledger/transactions/{id} [get]
func (h *TransactionHandler) GetTransaction(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	transactionID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	view, err := h.transactionService.GetTransaction(c.Request.Context(), userID, transactionID)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// CreateTransaction records an income or expense
// @Summary     Create a transaction
// @Description Bank-funded rows move the account balance; debit accounts never go below zero.
// @Tags        ledger
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateTransactionRequest true "Transaction details"
// @Success     201 {object} services.TransactionView "Transaction created"
// @Failure     400 {object} ErrorResponse "Invalid input or insufficient balance"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /ledger/transactions [post]
func (h *TransactionHandler) CreateTransaction(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}
	occurredAt, err := parseBodyTime("occurredAt", req.OccurredAt)
	if err != nil {
		respondWithError(c, err)
		return
	}

	view, err := h.transactionService.CreateTransaction(c.Request.Context(), userID, services.CreateTransactionInput{
		Type:          models.TransactionType(req.Type),
		AmountCents:   req.AmountCents,
		OccurredAt:    occurredAt,
		CategoryID:    req.CategoryID,
		FundingSource: models.FundingSource(req.FundingSource),
		BankAccountID: req.BankAccountID,
		TagIDs:        req.TagIDs,
		Note:          req.Note,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

// CreateTransfer handles the creation of a transfer between bank accounts
// @Summary     Create a transfer
// @Tags        ledger
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateTransferRequest true "Transfer details"
// @Success     201 {object} services.TransactionView "Transfer created"
// @Failure     400 {object} ErrorResponse "Invalid input, same account or insufficient balance"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /ledger/transfers [post]
func (h *TransactionHandler) CreateTransfer(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}
	occurredAt, err := parseBodyTime("occurredAt", req.OccurredAt)
	if err != nil {
		respondWithError(c, err)
		return
	}

	view, err := h.transactionService.CreateTransfer(c.Request.Context(), userID, services.CreateTransferInput{
		FromBankAccountID: req.FromBankAccountID,
		ToBankAccountID:   req.ToBankAccountID,
		AmountCents:       req.AmountCents,
		OccurredAt:        occurredAt,
		Note:              req.Note,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

// CreateRefund refunds a bank-funded expense
// @Summary     Refund an expense
// @Tags        ledger
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path int                 true "Expense transaction ID"
// @Param       request body CreateRefundRequest true "Refund details"
// @Success     201 {object} services.TransactionView "Refund created"
// @Failure     400 {object} ErrorResponse "Not refundable, fully refunded or exceeds remaining"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Router      /ledger/transactions/{id}/refund [post]
func (h *TransactionHandler) CreateRefund(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	transactionID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateRefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	in := services.CreateRefundInput{
		Mode:        services.RefundMode(req.Mode),
		AmountCents: req.AmountCents,
		Note:        req.Note,
	}
	if req.OccurredAt != nil && *req.OccurredAt != "" {
		occurredAt, err := parseBodyTime("occurredAt", *req.OccurredAt)
		if err != nil {
			respondWithError(c, err)
			return
		}
		in.OccurredAt = &occurredAt
	}

	view, err := h.transactionService.CreateRefund(c.Request.Context(), userID, transactionID, in)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

// UpdateTransaction edits an income or expense
// @Summary     Update a transaction
// @Description Only occurredAt, categoryId, tagIds and note are editable. Transfers and refunds are not editable.
// @Tags        ledger
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path int                      true "Transaction ID"
// @Param       request body UpdateTransactionRequest true "Fields to change"
// @Success     200 {object} services.TransactionView
// @Failure     400 {object} ErrorResponse "Invalid input or not editable"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Router      /ledger/transactions/{id} [patch]
func (h *TransactionHandler) UpdateTransaction(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	transactionID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	in := services.UpdateTransactionInput{
		CategoryID: req.CategoryID,
		TagIDs:     req.TagIDs,
		Note:       req.Note,
	}
	if req.OccurredAt != nil {
		occurredAt, err := parseBodyTime("occurredAt", *req.OccurredAt)
		if err != nil {
			respondWithError(c, err)
			return
		}
		in.OccurredAt = &occurredAt
	}

	view, err := h.transactionService.UpdateTransaction(c.Request.Context(), userID, transactionID, in)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// DeleteTransaction handles the deletion of a transaction
// @Summary     Delete a transaction
// @Description Reverses the balance effect. Expenses with refunds cannot be deleted.
// @Tags        ledger
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Transaction ID"
// @Success     200 {object} DeleteResponse
// @Failure     400 {object} ErrorResponse "Insufficient balance to reverse"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Failure     409 {object} ErrorResponse "Transaction has refunds"
// @Router      /ledger/transactions/{id} [delete]
func (h *TransactionHandler) DeleteTransaction(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	transactionID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.transactionService.DeleteTransaction(c.Request.Context(), userID, transactionID); err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, DeleteResponse{OK: true})
}

// parseTransactionFilter extracts list filters from query parameters.
func parseTransactionFilter(c *gin.Context) (services.TransactionFilter, error) {
	filter := services.TransactionFilter{
		Type:          c.DefaultQuery("type", "all"),
		FundingSource: c.DefaultQuery("fundingSource", "all"),
		Keyword:       c.Query("keyword"),
	}

	var err error
	if filter.BankAccountID, err = parseQueryID(c, "bankAccountId"); err != nil {
		return filter, err
	}
	var start, end *time.Time
	if start, err = parseQueryTime(c, "start"); err != nil {
		return filter, err
	}
	if end, err = parseQueryTime(c, "end"); err != nil {
		return filter, err
	}
	if start != nil && end != nil && end.Before(*start) {
		return filter, apperrors.WithMessage(apperrors.ErrInvalidInput, "end must not be before start")
	}
	filter.Start, filter.End = start, end
	return filter, nil
}
