package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/harambee-apps/table_banking_app/internal/apperrors"
	"github.com/harambee-apps/table_banking_app/internal/core/services"
	"github.com/harambee-apps/table_banking_app/internal/dto"
	"github.com/harambee-apps/table_banking_app/internal/middleware"

	portssvc "github.com/harambee-apps/table_banking_app/internal/core/ports/services"
)

// guarantorHandler handles HTTP requests for guaranteed loans.
type guarantorHandler struct {
	guarantorService portssvc.GuarantorSvcFacade
}

func newGuarantorHandler(gs portssvc.GuarantorSvcFacade) *guarantorHandler {
	return &guarantorHandler{guarantorService: gs}
}

// registerGuarantorRoutes registers routes for guaranteed loans and exposure.
func registerGuarantorRoutes(rg *gin.RouterGroup, guarantorService portssvc.GuarantorSvcFacade) {
	h := newGuarantorHandler(guarantorService)

	guaranteed := rg.Group("/guaranteed-loans")
	{
		guaranteed.POST("", h.createGuaranteedLoan)
		guaranteed.POST("/:id/guarantors", h.addGuarantor)
		guaranteed.POST("/:id/transfer-liability", h.transferLiability)
	}

	rg.GET("/members/:id/exposure", h.guarantorExposure)
}

// createGuaranteedLoan godoc
// @Summary Create a guaranteed loan for an external borrower
// @Description Creates a PENDING loan for an active external borrower backed by at least one member guarantor. Each guarantor's exposure is validated against the policy ceiling.
// @Tags guarantors
// @Accept json
// @Produce json
// @Param loan body dto.CreateGuaranteedLoanRequest true "Guaranteed loan details"
// @Success 201 {object} dto.LoanResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse "Borrower or guarantor not found"
// @Failure 422 {object} ErrorResponse "Exposure ceiling exceeded or participant inactive"
// @Failure 500 {object} ErrorResponse
// @Security BearerAuth
// @Router /guaranteed-loans [post]
func (h *guarantorHandler) createGuaranteedLoan(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.CreateGuaranteedLoanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request format: " + err.Error()})
		return
	}

	actorID, ok := middleware.GetMemberIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	loan, err := h.guarantorService.CreateGuaranteedLoan(c.Request.Context(), req, actorID)
	if err != nil {
		h.respondGuaranteeError(c, logger, err, "Failed to create guaranteed loan")
		return
	}

	logger.Info("Guaranteed loan created",
		slog.String("loan_id", loan.LoanID),
		slog.Int("guarantors", len(loan.Guarantors)))
	c.JSON(http.StatusCreated, dto.ToLoanResponse(loan))
}

// addGuarantor godoc
// @Summary Add a guarantor to a live guaranteed loan
// @Tags guarantors
// @Accept json
// @Produce json
// @Param id path string true "Loan ID"
// @Param guarantor body dto.GuarantorInput true "Guarantor details"
// @Success 201 {object} dto.GuarantorResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse "Loan state does not allow new guarantors"
// @Failure 422 {object} ErrorResponse "Exposure ceiling exceeded"
// @Failure 500 {object} ErrorResponse
// @Security BearerAuth
// @Router /guaranteed-loans/{id}/guarantors [post]
func (h *guarantorHandler) addGuarantor(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.GuarantorInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request format: " + err.Error()})
		return
	}

	actorID, ok := middleware.GetMemberIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	guarantor, err := h.guarantorService.AddGuarantor(c.Request.Context(), c.Param("id"), req, actorID)
	if err != nil {
		h.respondGuaranteeError(c, logger, err, "Failed to add guarantor")
		return
	}

	logger.Info("Guarantor added",
		slog.String("loan_id", guarantor.LoanID),
		slog.String("member_id", guarantor.MemberID))
	c.JSON(http.StatusCreated, dto.ToGuarantorResponse(guarantor))
}

// guarantorExposure godoc
// @Summary Get a member's guarantee exposure
// @Description Returns the member's current exposure across active guarantees, the policy ceiling and the remaining headroom.
// @Tags guarantors
// @Produce json
// @Param id path string true "Member ID"
// @Success 200 {object} dto.ExposureResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Security BearerAuth
// @Router /members/{id}/exposure [get]
func (h *guarantorHandler) guarantorExposure(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	memberID := c.Param("id")

	current, ceiling, err := h.guarantorService.GuarantorExposure(c.Request.Context(), memberID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "Member not found"})
		} else {
			logger.Error("Failed to compute exposure", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to compute exposure"})
		}
		return
	}

	c.JSON(http.StatusOK, dto.ExposureResponse{
		MemberID:        memberID,
		CurrentExposure: current,
		ExposureCeiling: ceiling,
		Headroom:        ceiling.Sub(current),
	})
}

// transferLiability godoc
// @Summary Transfer a defaulted loan's liability to its guarantors
// @Description Allocates the outstanding balance across active guarantors, highest percentage first, and marks loan and guarantors DEFAULTED. No new debt instrument is created.
// @Tags guarantors
// @Produce json
// @Param id path string true "Loan ID"
// @Success 200 {array} dto.GuarantorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse "Loan state does not allow the transfer"
// @Failure 422 {object} ErrorResponse "No active guarantors"
// @Failure 500 {object} ErrorResponse
// @Security BearerAuth
// @Router /guaranteed-loans/{id}/transfer-liability [post]
func (h *guarantorHandler) transferLiability(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	loanID := c.Param("id")

	actorID, ok := middleware.GetMemberIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	guarantors, err := h.guarantorService.TransferLiability(c.Request.Context(), loanID, actorID)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrNotFound):
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "Loan not found"})
		case errors.Is(err, services.ErrLoanNotGuaranteed), errors.Is(err, services.ErrInvalidLoanState), errors.Is(err, services.ErrLoanNotServiceable):
			c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})
		case errors.Is(err, services.ErrNoActiveGuarantors):
			c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error()})
		default:
			logger.Error("Failed to transfer liability",
				slog.String("loan_id", loanID),
				slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to transfer liability"})
		}
		return
	}

	logger.Info("Liability transferred to guarantors",
		slog.String("loan_id", loanID),
		slog.Int("guarantors", len(guarantors)))
	c.JSON(http.StatusOK, dto.ToListGuarantorResponse(guarantors))
}

// respondGuaranteeError maps guarantee creation errors to HTTP statuses.
func (h *guarantorHandler) respondGuaranteeError(c *gin.Context, logger *slog.Logger, err error, fallback string) {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
	case errors.Is(err, services.ErrExposureExceeded),
		errors.Is(err, services.ErrBorrowerNotActive),
		errors.Is(err, services.ErrGuarantorInactive):
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error()})
	case errors.Is(err, services.ErrDuplicateGuarantor), errors.Is(err, apperrors.ErrDuplicate):
		c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})
	case errors.Is(err, services.ErrInvalidLoanState):
		c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})
	case errors.Is(err, apperrors.ErrValidation), errors.Is(err, services.ErrInvalidAmount):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	default:
		logger.Error(fallback, slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: fallback})
	}
}
