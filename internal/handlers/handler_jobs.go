package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/harambee-apps/table_banking_app/internal/dto"
	"github.com/harambee-apps/table_banking_app/internal/middleware"

	portssvc "github.com/harambee-apps/table_banking_app/internal/core/ports/services"
)

// jobsHandler exposes the scheduled jobs over HTTP so an external scheduler
// (cron, cloud scheduler) can drive them.
type jobsHandler struct {
	loanService         portssvc.LoanSvcFacade
	contributionService portssvc.ContributionSvcFacade
}

func newJobsHandler(ls portssvc.LoanSvcFacade, cs portssvc.ContributionSvcFacade) *jobsHandler {
	return &jobsHandler{loanService: ls, contributionService: cs}
}

// registerJobRoutes registers the batch job trigger routes.
func registerJobRoutes(rg *gin.RouterGroup, loanService portssvc.LoanSvcFacade, contributionService portssvc.ContributionSvcFacade) {
	h := newJobsHandler(loanService, contributionService)

	jobs := rg.Group("/jobs")
	{
		jobs.POST("/accruals", h.runDailyAccrual)
		jobs.POST("/cycle-defaults", h.processPastDueCycles)
	}
}

// runDailyAccrual godoc
// @Summary Run the daily interest accrual
// @Description Accrues one day's interest for every serviceable loan. Idempotent per date; loans already accrued for the date are counted as skipped.
// @Tags jobs
// @Accept json
// @Produce json
// @Param job body dto.AccrueInterestRequest true "Accrual date (YYYY-MM-DD)"
// @Success 200 {object} dto.AccrualBatchResult
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Security BearerAuth
// @Router /jobs/accruals [post]
func (h *jobsHandler) runDailyAccrual(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.AccrueInterestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request format: " + err.Error()})
		return
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid date, expected YYYY-MM-DD"})
		return
	}

	result, err := h.loanService.RunDailyAccrual(c.Request.Context(), date)
	if err != nil {
		logger.Error("Daily accrual run failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to run daily accrual"})
		return
	}

	logger.Info("Daily accrual completed",
		slog.String("date", req.Date),
		slog.Int("processed", result.Processed),
		slog.Int("succeeded", result.Succeeded),
		slog.Int("skipped", result.Skipped),
		slog.Int("failed", result.Failed))
	c.JSON(http.StatusOK, result)
}

// processPastDueCycles godoc
// @Summary Process all past-due contribution cycles
// @Description Runs default conversion for every past-due OPEN cycle. Per-cycle failures are isolated and logged.
// @Tags jobs
// @Produce json
// @Success 200 {array} dto.CycleProcessResult
// @Failure 500 {object} ErrorResponse
// @Security BearerAuth
// @Router /jobs/cycle-defaults [post]
func (h *jobsHandler) processPastDueCycles(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	actorID, ok := middleware.GetMemberIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	results, err := h.contributionService.ProcessPastDueCycles(c.Request.Context(), time.Now(), actorID)
	if err != nil {
		logger.Error("Past-due cycle processing failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to process past-due cycles"})
		return
	}

	logger.Info("Past-due cycles processed", slog.Int("cycles", len(results)))
	c.JSON(http.StatusOK, results)
}
