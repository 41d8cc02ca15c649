package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "ibooks/internal/errors"
	"ibooks/internal/models"
	"ibooks/internal/pagination"
	"ibooks/internal/services"
)

// AuditHandler serves the admin view of the transaction audit trail.
type AuditHandler struct {
	auditService services.AuditServicer
}

// NewAuditHandler creates a new AuditHandler.
func NewAuditHandler(auditService services.AuditServicer) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

// ListAuditLogs lists audit entries with decoded before/after snapshots
// @Summary     List transaction audit logs
// @Tags        admin
// @Produce     json
// @Security    BearerAuth
// @Param       action        query string false "create, update or delete"
// @Param       transactionId query int    false "Transaction ID"
// @Param       txType        query string false "income, expense, transfer or refund"
// @Param       actorUserId   query int    false "Acting user"
// @Param       targetUserId  query int    false "Owning user"
// @Param       start         query string false "Inclusive lower bound (ISO-8601)"
// @Param       end           query string false "Inclusive upper bound (ISO-8601)"
// @Param       order         query string false "asc (default) or desc"
// @Param       page          query int    false "Page number (default 1)"
// @Param       pageSize      query int    false "Items per page (default 50, max 200)"
// @Success     200 {object} pagination.PageResponse[services.AuditLogEntry]
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     403 {object} ErrorResponse "Admin only"
// @Router      /admin/transaction-audit-logs [get]
func (h *AuditHandler) ListAuditLogs(c *gin.Context) {
	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	filter, err := parseAuditFilter(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.auditService.ListAuditLogs(c.Request.Context(), filter, page)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func parseAuditFilter(c *gin.Context) (services.AuditLogFilter, error) {
	var filter services.AuditLogFilter

	if raw := c.Query("action"); raw != "" {
		action := models.AuditAction(raw)
		switch action {
		case models.AuditActionCreate, models.AuditActionUpdate, models.AuditActionDelete:
		default:
			return filter, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid action")
		}
		filter.Action = &action
	}
	if raw := c.Query("txType"); raw != "" {
		txType := models.TransactionType(raw)
		switch txType {
		case models.TransactionTypeIncome, models.TransactionTypeExpense,
			models.TransactionTypeTransfer, models.TransactionTypeRefund:
		default:
			return filter, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid txType")
		}
		filter.TxType = &txType
	}
	switch c.DefaultQuery("order", "asc") {
	case "asc":
		filter.Ascending = true
	case "desc":
	default:
		return filter, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid order")
	}

	var err error
	if filter.TransactionID, err = parseQueryID(c, "transactionId"); err != nil {
		return filter, err
	}
	if filter.ActorUserID, err = parseQueryID(c, "actorUserId"); err != nil {
		return filter, err
	}
	if filter.TargetUserID, err = parseQueryID(c, "targetUserId"); err != nil {
		return filter, err
	}
	if filter.Start, err = parseQueryTime(c, "start"); err != nil {
		return filter, err
	}
	if filter.End, err = parseQueryTime(c, "end"); err != nil {
		return filter, err
	}
	return filter, nil
}
