package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	"github.com/harambee-apps/table_banking_app/internal/apperrors"
	"github.com/harambee-apps/table_banking_app/internal/core/services"
	"github.com/harambee-apps/table_banking_app/internal/dto"
	"github.com/harambee-apps/table_banking_app/internal/middleware"
	"github.com/harambee-apps/table_banking_app/internal/utils"
	"github.com/harambee-apps/table_banking_app/pkg/config"

	portssvc "github.com/harambee-apps/table_banking_app/internal/core/ports/services"
)

// ErrorResponse is a generic error response structure for handlers.
type ErrorResponse struct {
	Error string `json:"error"`
}

// memberHandler handles HTTP requests related to members and external
// borrowers.
type memberHandler struct {
	memberService portssvc.MemberSvcFacade
	jwtSecret     string
	jwtDuration   time.Duration
	jwtIssuer     string
}

func newMemberHandler(ms portssvc.MemberSvcFacade, cfg *config.Config) *memberHandler {
	return &memberHandler{
		memberService: ms,
		jwtSecret:     cfg.JWTSecret,
		jwtDuration:   cfg.JWTExpiryDuration,
		jwtIssuer:     cfg.JWTIssuer,
	}
}

// registerAuthRoutes sets up the public registration and login routes.
func registerAuthRoutes(r *gin.Engine, cfg *config.Config, memberService portssvc.MemberSvcFacade) {
	h := newMemberHandler(memberService, cfg)

	// 5 login attempts per minute per IP
	rate, _ := limiter.NewRateFromFormatted("5-M")
	store := memory.NewStore()
	ipLimiter := limiter.New(store, rate)
	limitMiddleware := middleware.RateLimit(ipLimiter)

	auth := r.Group("/api/v1/auth")
	{
		auth.POST("/login", limitMiddleware, h.login)
		auth.POST("/register", h.register)
	}
}

// registerMemberRoutes registers the authenticated member directory routes.
func registerMemberRoutes(rg *gin.RouterGroup, memberService portssvc.MemberSvcFacade, cfg *config.Config) {
	h := newMemberHandler(memberService, cfg)

	members := rg.Group("/members")
	{
		members.GET("/:id", h.getMember)
		members.GET("", h.listMembers)
		members.DELETE("/:id", h.deactivateMember)
		members.GET("/:id/contribution-total", h.contributionTotal)
	}

	external := rg.Group("/external-borrowers")
	{
		external.POST("", h.createExternalBorrower)
		external.GET("/:id", h.getExternalBorrower)
		external.GET("", h.listExternalBorrowers)
	}
}

// register godoc
// @Summary Register a new member
// @Description Registers a new active group member.
// @Tags auth
// @Accept json
// @Produce json
// @Param member body dto.CreateMemberRequest true "Member details"
// @Success 201 {object} dto.MemberResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse "Email already registered"
// @Failure 500 {object} ErrorResponse
// @Router /auth/register [post]
func (h *memberHandler) register(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.CreateMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request format: " + err.Error()})
		return
	}

	member, err := h.memberService.CreateMember(c.Request.Context(), req, "self-registration")
	if err != nil {
		if errors.Is(err, apperrors.ErrDuplicate) {
			c.JSON(http.StatusConflict, ErrorResponse{Error: "Email is already registered"})
		} else if errors.Is(err, apperrors.ErrValidation) {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		} else {
			logger.Error("Failed to create member", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to create member"})
		}
		return
	}

	logger.Info("Member registered", slog.String("member_id", member.MemberID))
	c.JSON(http.StatusCreated, dto.ToMemberResponse(member))
}

// login godoc
// @Summary Member login
// @Description Authenticates a member and returns a JWT token.
// @Tags auth
// @Accept json
// @Produce json
// @Param login body dto.LoginRequest true "Login credentials"
// @Success 200 {object} dto.LoginResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /auth/login [post]
func (h *memberHandler) login(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body"})
		return
	}

	member, err := h.memberService.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrMemberNotActive) {
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Member account is not active"})
		} else {
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Invalid email or password"})
		}
		return
	}

	token, err := utils.GenerateJWT(member.MemberID, h.jwtSecret, h.jwtDuration, h.jwtIssuer)
	if err != nil {
		logger.Error("Failed to sign JWT token", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, dto.LoginResponse{
		Token:    token,
		Expiry:   time.Now().Add(h.jwtDuration),
		MemberID: member.MemberID,
		Member:   dto.ToMemberResponse(member),
	})
}

// getMember godoc
// @Summary Get a member by ID
// @Tags members
// @Produce json
// @Param id path string true "Member ID"
// @Success 200 {object} dto.MemberResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Security BearerAuth
// @Router /members/{id} [get]
func (h *memberHandler) getMember(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	memberID := c.Param("id")

	member, err := h.memberService.GetMemberByID(c.Request.Context(), memberID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "Member not found"})
		} else {
			logger.Error("Failed to get member", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to retrieve member"})
		}
		return
	}

	c.JSON(http.StatusOK, dto.ToMemberResponse(member))
}

// listMembers godoc
// @Summary List members
// @Tags members
// @Produce json
// @Param limit query int false "Limit number of results" default(20)
// @Param offset query int false "Offset for pagination" default(0)
// @Success 200 {array} dto.MemberResponse
// @Failure 500 {object} ErrorResponse
// @Security BearerAuth
// @Router /members [get]
func (h *memberHandler) listMembers(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	limit, offset := paginationParams(c)

	members, err := h.memberService.ListMembers(c.Request.Context(), limit, offset)
	if err != nil {
		logger.Error("Failed to list members", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to list members"})
		return
	}

	c.JSON(http.StatusOK, dto.ToListMemberResponse(members))
}

// deactivateMember godoc
// @Summary Deactivate a member
// @Description Transitions an active member to INACTIVE.
// @Tags members
// @Produce json
// @Param id path string true "Member ID"
// @Success 204 "No Content"
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse "Member is not active"
// @Failure 500 {object} ErrorResponse
// @Security BearerAuth
// @Router /members/{id} [delete]
func (h *memberHandler) deactivateMember(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	memberID := c.Param("id")

	actorID, ok := middleware.GetMemberIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	if err := h.memberService.DeactivateMember(c.Request.Context(), memberID, actorID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "Member not found"})
		} else if errors.Is(err, services.ErrMemberNotActive) {
			c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})
		} else {
			logger.Error("Failed to deactivate member", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to deactivate member"})
		}
		return
	}

	c.Status(http.StatusNoContent)
}

// contributionTotal godoc
// @Summary Get a member's paid-in contribution total
// @Description Returns the base figure the lending and exposure caps are computed against.
// @Tags members
// @Produce json
// @Param id path string true "Member ID"
// @Success 200 {object} map[string]string
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Security BearerAuth
// @Router /members/{id}/contribution-total [get]
func (h *memberHandler) contributionTotal(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	memberID := c.Param("id")

	total, err := h.memberService.ContributionTotal(c.Request.Context(), memberID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "Member not found"})
		} else {
			logger.Error("Failed to get contribution total", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to retrieve contribution total"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"memberID": memberID, "totalContributions": total})
}

// createExternalBorrower godoc
// @Summary Register an external borrower
// @Description Registers a non-member borrower. Loans to external borrowers must be guaranteed by members.
// @Tags external-borrowers
// @Accept json
// @Produce json
// @Param borrower body dto.CreateExternalBorrowerRequest true "Borrower details"
// @Success 201 {object} dto.ExternalBorrowerResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Security BearerAuth
// @Router /external-borrowers [post]
func (h *memberHandler) createExternalBorrower(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.CreateExternalBorrowerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request format: " + err.Error()})
		return
	}

	actorID, ok := middleware.GetMemberIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	borrower, err := h.memberService.CreateExternalBorrower(c.Request.Context(), req, actorID)
	if err != nil {
		if errors.Is(err, apperrors.ErrDuplicate) {
			c.JSON(http.StatusConflict, ErrorResponse{Error: "External borrower with this ID number already exists"})
		} else if errors.Is(err, apperrors.ErrValidation) {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		} else {
			logger.Error("Failed to create external borrower", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to create external borrower"})
		}
		return
	}

	c.JSON(http.StatusCreated, dto.ToExternalBorrowerResponse(borrower))
}

// getExternalBorrower godoc
// @Summary Get an external borrower by ID
// @Tags external-borrowers
// @Produce json
// @Param id path string true "External borrower ID"
// @Success 200 {object} dto.ExternalBorrowerResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Security BearerAuth
// @Router /external-borrowers/{id} [get]
func (h *memberHandler) getExternalBorrower(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	borrower, err := h.memberService.GetExternalBorrowerByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "External borrower not found"})
		} else {
			logger.Error("Failed to get external borrower", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to retrieve external borrower"})
		}
		return
	}

	c.JSON(http.StatusOK, dto.ToExternalBorrowerResponse(borrower))
}

// listExternalBorrowers godoc
// @Summary List external borrowers
// @Tags external-borrowers
// @Produce json
// @Param limit query int false "Limit number of results" default(20)
// @Param offset query int false "Offset for pagination" default(0)
// @Success 200 {array} dto.ExternalBorrowerResponse
// @Failure 500 {object} ErrorResponse
// @Security BearerAuth
// @Router /external-borrowers [get]
func (h *memberHandler) listExternalBorrowers(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	limit, offset := paginationParams(c)

	borrowers, err := h.memberService.ListExternalBorrowers(c.Request.Context(), limit, offset)
	if err != nil {
		logger.Error("Failed to list external borrowers", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to list external borrowers"})
		return
	}

	c.JSON(http.StatusOK, dto.ToListExternalBorrowerResponse(borrowers))
}

// paginationParams reads limit/offset query parameters with defaults.
func paginationParams(c *gin.Context) (int, int) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 {
		limit = 20
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}
	return limit, offset
}
