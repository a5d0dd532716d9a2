package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/harambee-apps/table_banking_app/internal/apperrors"
	"github.com/harambee-apps/table_banking_app/internal/core/domain"
	"github.com/harambee-apps/table_banking_app/internal/core/services"
	"github.com/harambee-apps/table_banking_app/internal/dto"
	"github.com/harambee-apps/table_banking_app/internal/middleware"

	portssvc "github.com/harambee-apps/table_banking_app/internal/core/ports/services"
)

// loanHandler handles HTTP requests for the loan lifecycle.
type loanHandler struct {
	loanService portssvc.LoanSvcFacade
}

func newLoanHandler(ls portssvc.LoanSvcFacade) *loanHandler {
	return &loanHandler{loanService: ls}
}

// RegisterLoanRoutes registers routes for the loan lifecycle.
func RegisterLoanRoutes(rg *gin.RouterGroup, loanService portssvc.LoanSvcFacade) {
	h := newLoanHandler(loanService)

	loans := rg.Group("/loans")
	{
		loans.POST("", h.applyForLoan)
		loans.GET("/:id", h.getLoan)
		loans.GET("", h.listLoans)
		loans.POST("/:id/approve", h.approveLoan)
		loans.POST("/:id/reject", h.rejectLoan)
		loans.POST("/:id/disburse", h.disburseLoan)
		loans.POST("/:id/repayments", h.repayLoan)
		loans.POST("/:id/default", h.markDefaulted)
		loans.POST("/:id/write-off", h.writeOff)
	}
}

// applyForLoan godoc
// @Summary Apply for a loan
// @Description Creates a PENDING loan application for an active member, subject to the single-active-loan and contribution-multiple policies.
// @Tags loans
// @Accept json
// @Produce json
// @Param loan body dto.ApplyLoanRequest true "Loan application"
// @Success 201 {object} dto.LoanResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse "Member not found"
// @Failure 422 {object} ErrorResponse "Policy violation"
// @Failure 500 {object} ErrorResponse
// @Security BearerAuth
// @Router /loans [post]
func (h *loanHandler) applyForLoan(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.ApplyLoanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request format: " + err.Error()})
		return
	}

	actorID, ok := middleware.GetMemberIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	loan, err := h.loanService.ApplyForLoan(c.Request.Context(), req, actorID)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrNotFound):
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "Member not found"})
		case errors.Is(err, services.ErrLoanLimitExceeded), errors.Is(err, services.ErrActiveLoanExists), errors.Is(err, services.ErrBorrowerInactive):
			c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error()})
		case errors.Is(err, apperrors.ErrValidation), errors.Is(err, services.ErrInvalidAmount):
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		default:
			logger.Error("Failed to create loan application", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to create loan application"})
		}
		return
	}

	logger.Info("Loan application created", slog.String("loan_id", loan.LoanID))
	c.JSON(http.StatusCreated, dto.ToLoanResponse(loan))
}

// getLoan godoc
// @Summary Get a loan by ID
// @Description Retrieves a loan with its repayment and accrual history.
// @Tags loans
// @Produce json
// @Param id path string true "Loan ID"
// @Success 200 {object} dto.LoanResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Security BearerAuth
// @Router /loans/{id} [get]
func (h *loanHandler) getLoan(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	loan, err := h.loanService.GetLoanByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "Loan not found"})
		} else {
			logger.Error("Failed to get loan", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to retrieve loan"})
		}
		return
	}

	c.JSON(http.StatusOK, dto.ToLoanResponse(loan))
}

// listLoans godoc
// @Summary List loans
// @Tags loans
// @Produce json
// @Param status query string false "Filter by status"
// @Param memberID query string false "Filter by borrowing member"
// @Param limit query int false "Limit number of results" default(20)
// @Param offset query int false "Offset for pagination" default(0)
// @Success 200 {array} dto.LoanResponse
// @Failure 500 {object} ErrorResponse
// @Security BearerAuth
// @Router /loans [get]
func (h *loanHandler) listLoans(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var params dto.ListLoansParams
	if err := c.ShouldBindQuery(&params); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid query parameters: " + err.Error()})
		return
	}
	if params.Limit <= 0 {
		params.Limit = 20
	}
	if params.Offset < 0 {
		params.Offset = 0
	}

	loans, err := h.loanService.ListLoans(c.Request.Context(), params)
	if err != nil {
		logger.Error("Failed to list loans", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to list loans"})
		return
	}

	c.JSON(http.StatusOK, dto.ToListLoanResponse(loans))
}

// approveLoan godoc
// @Summary Approve a pending loan
// @Tags loans
// @Produce json
// @Param id path string true "Loan ID"
// @Success 200 {object} dto.LoanResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse "Loan is not pending"
// @Failure 500 {object} ErrorResponse
// @Security BearerAuth
// @Router /loans/{id}/approve [post]
func (h *loanHandler) approveLoan(c *gin.Context) {
	h.transition(c, "approve", h.loanService.ApproveLoan)
}

// rejectLoan godoc
// @Summary Reject a pending loan
// @Tags loans
// @Produce json
// @Param id path string true "Loan ID"
// @Success 200 {object} dto.LoanResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Security BearerAuth
// @Router /loans/{id}/reject [post]
func (h *loanHandler) rejectLoan(c *gin.Context) {
	h.transition(c, "reject", h.loanService.RejectLoan)
}

// disburseLoan godoc
// @Summary Disburse an approved loan
// @Description Moves the loan to DISBURSED, recomputes the daily rate for the disbursement month and posts a debit ledger entry.
// @Tags loans
// @Produce json
// @Param id path string true "Loan ID"
// @Success 200 {object} dto.LoanResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Security BearerAuth
// @Router /loans/{id}/disburse [post]
func (h *loanHandler) disburseLoan(c *gin.Context) {
	h.transition(c, "disburse", h.loanService.DisburseLoan)
}

// markDefaulted godoc
// @Summary Mark a loan as defaulted
// @Tags loans
// @Produce json
// @Param id path string true "Loan ID"
// @Success 200 {object} dto.LoanResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Security BearerAuth
// @Router /loans/{id}/default [post]
func (h *loanHandler) markDefaulted(c *gin.Context) {
	h.transition(c, "default", h.loanService.MarkLoanDefaulted)
}

// writeOff godoc
// @Summary Write off a loan
// @Tags loans
// @Produce json
// @Param id path string true "Loan ID"
// @Success 200 {object} dto.LoanResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Security BearerAuth
// @Router /loans/{id}/write-off [post]
func (h *loanHandler) writeOff(c *gin.Context) {
	h.transition(c, "write off", h.loanService.WriteOffLoan)
}

// transition runs a status transition with shared error mapping.
func (h *loanHandler) transition(c *gin.Context, action string, fn func(ctx context.Context, loanID, actorID string) (*domain.Loan, error)) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	loanID := c.Param("id")

	actorID, ok := middleware.GetMemberIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	loan, err := fn(c.Request.Context(), loanID, actorID)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrNotFound):
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "Loan not found"})
		case errors.Is(err, services.ErrInvalidLoanState), errors.Is(err, services.ErrLoanNotServiceable):
			c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})
		default:
			logger.Error("Loan transition failed",
				slog.String("action", action),
				slog.String("loan_id", loanID),
				slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to " + action + " loan"})
		}
		return
	}

	logger.Info("Loan transitioned",
		slog.String("action", action),
		slog.String("loan_id", loan.LoanID),
		slog.String("status", string(loan.Status)))
	c.JSON(http.StatusOK, dto.ToLoanResponse(loan))
}

// repayLoan godoc
// @Summary Post a repayment against a loan
// @Description Records a payment, allocating unpaid interest before principal. Amounts above the outstanding balance are clamped.
// @Tags loans
// @Accept json
// @Produce json
// @Param id path string true "Loan ID"
// @Param repayment body dto.RepayLoanRequest true "Repayment details"
// @Success 201 {object} dto.RepaymentResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse "Loan cannot receive payments"
// @Failure 500 {object} ErrorResponse
// @Security BearerAuth
// @Router /loans/{id}/repayments [post]
func (h *loanHandler) repayLoan(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.RepayLoanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request format: " + err.Error()})
		return
	}

	actorID, ok := middleware.GetMemberIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	repayment, err := h.loanService.RepayLoan(c.Request.Context(), c.Param("id"), req, actorID)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrNotFound):
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "Loan not found"})
		case errors.Is(err, services.ErrLoanNotServiceable), errors.Is(err, services.ErrInvalidLoanState):
			c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})
		case errors.Is(err, services.ErrInvalidAmount), errors.Is(err, apperrors.ErrValidation):
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		default:
			logger.Error("Failed to record repayment", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to record repayment"})
		}
		return
	}

	logger.Info("Repayment recorded",
		slog.String("loan_id", repayment.LoanID),
		slog.Int("sequence", repayment.SequenceNumber))
	c.JSON(http.StatusCreated, dto.ToRepaymentResponse(repayment))
}
