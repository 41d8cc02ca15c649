package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ibooks/internal/models"
	"ibooks/internal/services"
)

// BankAccountHandler handles bank account configuration requests.
type BankAccountHandler struct {
	accountService services.BankAccountServicer
}

// NewBankAccountHandler creates a new BankAccountHandler.
func NewBankAccountHandler(accountService services.BankAccountServicer) *BankAccountHandler {
	return &BankAccountHandler{accountService: accountService}
}

// CreateBankAccountRequest represents the request payload for creating a bank account.
// Credit accounts need billingDay and repaymentDay; debit accounts must not set them.
type CreateBankAccountRequest struct {
	BankName     string  `json:"bankName" binding:"required,min=1,max=100"`
	Alias        string  `json:"alias" binding:"required,min=1,max=100"`
	Last4        *string `json:"last4" binding:"omitempty,last4"`
	Kind         string  `json:"kind" binding:"omitempty,bank_kind"`
	BalanceCents int64   `json:"balanceCents"`
	BillingDay   *int    `json:"billingDay" binding:"omitempty,min=1,max=31"`
	RepaymentDay *int    `json:"repaymentDay" binding:"omitempty,min=1,max=31"`
	IsActive     *bool   `json:"isActive"`
}

// UpdateBankAccountRequest represents a partial bank account update.
type UpdateBankAccountRequest struct {
	BankName     *string `json:"bankName" binding:"omitempty,min=1,max=100"`
	Alias        *string `json:"alias" binding:"omitempty,min=1,max=100"`
	Last4        *string `json:"last4" binding:"omitempty,last4"`
	Kind         *string `json:"kind" binding:"omitempty,bank_kind"`
	BalanceCents *int64  `json:"balanceCents"`
	BillingDay   *int    `json:"billingDay" binding:"omitempty,min=1,max=31"`
	RepaymentDay *int    `json:"repaymentDay" binding:"omitempty,min=1,max=31"`
	IsActive     *bool   `json:"isActive"`
}

// BankAccountResponse represents a bank account in the response
type BankAccountResponse struct {
	ID           uint                   `json:"id"`
	BankName     string                 `json:"bankName"`
	Alias        string                 `json:"alias"`
	Last4        *string                `json:"last4"`
	Kind         models.BankAccountKind `json:"kind"`
	BalanceCents int64                  `json:"balanceCents"`
	BillingDay   *int                   `json:"billingDay"`
	RepaymentDay *int                   `json:"repaymentDay"`
	IsActive     bool                   `json:"isActive"`
}

func newBankAccountResponse(a *models.BankAccount) BankAccountResponse {
	return BankAccountResponse{
		ID:           a.ID,
		BankName:     a.BankName,
		Alias:        a.Alias,
		Last4:        a.Last4,
		Kind:         a.Kind,
		BalanceCents: a.BalanceCents,
		BillingDay:   a.BillingDay,
		RepaymentDay: a.RepaymentDay,
		IsActive:     a.IsActive,
	}
}

// ListBankAccounts lists the caller's bank accounts
// @Summary     List bank accounts
// @Tags        config
// @Produce     json
// @Security    BearerAuth
// @Param       orderBy query string false "usage or id (default id)"
// @Success     200 {array}  BankAccountResponse
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /config/bank-accounts [get]
func (h *BankAccountHandler) ListBankAccounts(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	accounts, err := h.accountService.ListAccounts(c.Request.Context(), userID, c.DefaultQuery("orderBy", services.OrderByID))
	if err != nil {
		respondWithError(c, err)
		return
	}

	out := make([]BankAccountResponse, 0, len(accounts))
	for i := range accounts {
		out = append(out, newBankAccountResponse(&accounts[i]))
	}
	c.JSON(http.StatusOK, out)
}

// GetBankAccount returns one bank account
// @Summary     Get bank account
// @Tags        config
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Bank account ID"
// @Success     200 {object} BankAccountResponse
// @Failure     404 {object} ErrorResponse "Bank account not found"
// @Router      /config/bank-accounts/{id} [get]
func (h *BankAccountHandler) GetBankAccount(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	accountID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	account, err := h.accountService.GetAccount(c.Request.Context(), userID, accountID)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, newBankAccountResponse(account))
}

// CreateBankAccount handles the creation of a new bank account
// @Summary     Create a bank account
// @Tags        config
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateBankAccountRequest true "Bank account details"
// @Success     201 {object} BankAccountResponse "Account created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /config/bank-accounts [post]
func (h *BankAccountHandler) CreateBankAccount(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateBankAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	in := services.BankAccountInput{
		BankName:     req.BankName,
		Alias:        req.Alias,
		Last4:        req.Last4,
		Kind:         models.BankAccountKind(req.Kind),
		BalanceCents: req.BalanceCents,
		BillingDay:   req.BillingDay,
		RepaymentDay: req.RepaymentDay,
		IsActive:     true,
	}
	if req.IsActive != nil {
		in.IsActive = *req.IsActive
	}

	account, err := h.accountService.CreateAccount(c.Request.Context(), userID, in)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newBankAccountResponse(account))
}

// UpdateBankAccount applies a partial update
// @Summary     Update a bank account
// @Description Switching kind to debit clears billingDay and repaymentDay; switching to credit requires both.
// @Tags        config
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path int                      true "Bank account ID"
// @Param       request body UpdateBankAccountRequest true "Fields to change"
// @Success     200 {object} BankAccountResponse
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Bank account not found"
// @Router      /config/bank-accounts/{id} [patch]
func (h *BankAccountHandler) UpdateBankAccount(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	accountID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateBankAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	patch := services.BankAccountPatch{
		BankName:     req.BankName,
		Alias:        req.Alias,
		Last4:        req.Last4,
		BalanceCents: req.BalanceCents,
		BillingDay:   req.BillingDay,
		RepaymentDay: req.RepaymentDay,
		IsActive:     req.IsActive,
	}
	if req.Kind != nil {
		kind := models.BankAccountKind(*req.Kind)
		patch.Kind = &kind
	}

	account, err := h.accountService.UpdateAccount(c.Request.Context(), userID, accountID, patch)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, newBankAccountResponse(account))
}

// DeleteBankAccount deletes or disables a bank account
// @Summary     Delete a bank account
// @Description Accounts referenced by transactions are disabled instead of deleted.
// @Tags        config
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Bank account ID"
// @Success     200 {object} DeleteResponse
// @Failure     404 {object} ErrorResponse "Bank account not found"
// @Router      /config/bank-accounts/{id} [delete]
func (h *BankAccountHandler) DeleteBankAccount(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	accountID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	mode, err := h.accountService.DeleteAccount(c.Request.Context(), userID, accountID)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, DeleteResponse{OK: true, Mode: string(mode)})
}
