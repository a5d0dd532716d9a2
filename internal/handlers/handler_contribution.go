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

// contributionHandler handles HTTP requests for contribution cycles.
type contributionHandler struct {
	contributionService portssvc.ContributionSvcFacade
}

func newContributionHandler(cs portssvc.ContributionSvcFacade) *contributionHandler {
	return &contributionHandler{contributionService: cs}
}

// registerContributionRoutes registers the contribution cycle routes.
func registerContributionRoutes(rg *gin.RouterGroup, contributionService portssvc.ContributionSvcFacade) {
	h := newContributionHandler(contributionService)

	cycles := rg.Group("/cycles")
	{
		cycles.POST("", h.createCycle)
		cycles.GET("/:id", h.getCycle)
		cycles.GET("", h.listCycles)
		cycles.POST("/:id/process", h.processCycle)
	}

	contributions := rg.Group("/contributions")
	{
		contributions.POST("/:id/payments", h.recordPayment)
	}
}

// createCycle godoc
// @Summary Open a contribution cycle
// @Description Opens a new cycle and creates one PENDING contribution per active member.
// @Tags contributions
// @Accept json
// @Produce json
// @Param cycle body dto.CreateCycleRequest true "Cycle details"
// @Success 201 {object} dto.CycleResponse
// @Failure 400 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse "No active members"
// @Failure 500 {object} ErrorResponse
// @Security BearerAuth
// @Router /cycles [post]
func (h *contributionHandler) createCycle(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.CreateCycleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request format: " + err.Error()})
		return
	}

	actorID, ok := middleware.GetMemberIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	cycle, err := h.contributionService.CreateCycle(c.Request.Context(), req, actorID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNoActiveMembers):
			c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error()})
		case errors.Is(err, apperrors.ErrValidation):
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		case errors.Is(err, apperrors.ErrDuplicate):
			c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})
		default:
			logger.Error("Failed to create cycle", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to create cycle"})
		}
		return
	}

	logger.Info("Contribution cycle created", slog.String("cycle_id", cycle.CycleID))
	c.JSON(http.StatusCreated, dto.ToCycleResponse(cycle, nil))
}

// getCycle godoc
// @Summary Get a cycle with its contributions
// @Tags contributions
// @Produce json
// @Param id path string true "Cycle ID"
// @Success 200 {object} dto.CycleResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Security BearerAuth
// @Router /cycles/{id} [get]
func (h *contributionHandler) getCycle(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	cycle, contributions, err := h.contributionService.GetCycleByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "Cycle not found"})
		} else {
			logger.Error("Failed to get cycle", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to retrieve cycle"})
		}
		return
	}

	c.JSON(http.StatusOK, dto.ToCycleResponse(cycle, contributions))
}

// listCycles godoc
// @Summary List contribution cycles
// @Tags contributions
// @Produce json
// @Param limit query int false "Limit number of results" default(20)
// @Param offset query int false "Offset for pagination" default(0)
// @Success 200 {array} dto.CycleResponse
// @Failure 500 {object} ErrorResponse
// @Security BearerAuth
// @Router /cycles [get]
func (h *contributionHandler) listCycles(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	limit, offset := paginationParams(c)

	cycles, err := h.contributionService.ListCycles(c.Request.Context(), limit, offset)
	if err != nil {
		logger.Error("Failed to list cycles", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to list cycles"})
		return
	}

	c.JSON(http.StatusOK, dto.ToListCycleResponse(cycles))
}

// processCycle godoc
// @Summary Convert a past-due cycle's shortfalls to loans
// @Description Converts each unpaid contribution of a past-due OPEN cycle into an active loan and closes the cycle. Re-running on a processed cycle is a no-op.
// @Tags contributions
// @Produce json
// @Param id path string true "Cycle ID"
// @Success 200 {object} dto.CycleProcessResult
// @Failure 404 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse "Cycle is not past due"
// @Failure 500 {object} ErrorResponse
// @Security BearerAuth
// @Router /cycles/{id}/process [post]
func (h *contributionHandler) processCycle(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	cycleID := c.Param("id")

	actorID, ok := middleware.GetMemberIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	result, err := h.contributionService.ProcessCycleDefaults(c.Request.Context(), cycleID, actorID)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrNotFound):
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "Cycle not found"})
		case errors.Is(err, services.ErrCycleNotDue):
			c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error()})
		default:
			logger.Error("Failed to process cycle defaults",
				slog.String("cycle_id", cycleID),
				slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to process cycle defaults"})
		}
		return
	}

	logger.Info("Cycle defaults processed",
		slog.String("cycle_id", cycleID),
		slog.Int("converted", result.Converted),
		slog.Int("failed", result.Failed),
		slog.Bool("already_closed", result.AlreadyClosed))
	c.JSON(http.StatusOK, result)
}

// recordPayment godoc
// @Summary Record a contribution payment
// @Description Records a payment towards a member's contribution, moving it PENDING -> PARTIAL -> PAID.
// @Tags contributions
// @Accept json
// @Produce json
// @Param id path string true "Contribution ID"
// @Param payment body dto.RecordContributionRequest true "Payment details"
// @Success 200 {object} dto.ContributionResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse "Contribution is settled or converted"
// @Failure 500 {object} ErrorResponse
// @Security BearerAuth
// @Router /contributions/{id}/payments [post]
func (h *contributionHandler) recordPayment(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.RecordContributionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request format: " + err.Error()})
		return
	}

	actorID, ok := middleware.GetMemberIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	contribution, err := h.contributionService.RecordPayment(c.Request.Context(), c.Param("id"), req, actorID)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrNotFound):
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "Contribution not found"})
		case errors.Is(err, services.ErrContributionClosed):
			c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})
		case errors.Is(err, services.ErrOverContribution), errors.Is(err, apperrors.ErrValidation):
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		default:
			logger.Error("Failed to record contribution payment", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to record payment"})
		}
		return
	}

	logger.Info("Contribution payment recorded",
		slog.String("contribution_id", contribution.ContributionID),
		slog.String("status", string(contribution.Status)))
	c.JSON(http.StatusOK, dto.ToContributionResponse(contribution))
}
