package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/farmstock/internal/domain/models"
	"github.com/mamadbah2/farmstock/internal/service/reporting"
)

// SessionService describes the session operations the HTTP layer uses.
type SessionService interface {
	SignIn(ctx context.Context, token string, user models.User) error
	Logout(ctx context.Context) error
	ActiveFarm(ctx context.Context) (*models.Farm, error)
	SetActiveFarm(ctx context.Context, farm models.Farm) error
}

// DigestRunner produces and distributes an inventory digest.
type DigestRunner interface {
	Run(ctx context.Context, farmID models.ID, now time.Time) (*reporting.Digest, error)
}

type signInRequest struct {
	Token string      `json:"token" binding:"required"`
	User  models.User `json:"user"`
}

// SessionHandler manages the session state and on-demand reports.
type SessionHandler struct {
	sessions SessionService
	reports  DigestRunner
	logger   *zap.Logger
}

// NewSessionHandler constructs the HTTP handler adapter.
func NewSessionHandler(sessions SessionService, reports DigestRunner, logger *zap.Logger) *SessionHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionHandler{sessions: sessions, reports: reports, logger: logger}
}

// SignIn stores the token and user of a new session.
func (h *SessionHandler) SignIn(c *gin.Context) {
	var req signInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid session payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, models.Result[any]{Error: "invalid request body"})
		return
	}

	if err := h.sessions.SignIn(c.Request.Context(), req.Token, req.User); err != nil {
		h.logger.Error("failed storing session", zap.Error(err))
		c.JSON(statusFor(err), models.Fail[any](nil, err))
		return
	}

	c.JSON(http.StatusOK, models.OK(req.User))
}

// Logout clears the session.
func (h *SessionHandler) Logout(c *gin.Context) {
	if err := h.sessions.Logout(c.Request.Context()); err != nil {
		h.logger.Error("failed clearing session", zap.Error(err))
		c.JSON(http.StatusInternalServerError, models.Fail[any](nil, err))
		return
	}
	c.Status(http.StatusNoContent)
}

// ActiveFarm returns the resolved active farm.
func (h *SessionHandler) ActiveFarm(c *gin.Context) {
	farm, err := h.sessions.ActiveFarm(c.Request.Context())
	if err != nil {
		c.JSON(statusFor(err), models.Fail[*models.Farm](nil, err))
		return
	}
	c.JSON(http.StatusOK, models.OK(farm))
}

// SetActiveFarm selects the active farm.
func (h *SessionHandler) SetActiveFarm(c *gin.Context) {
	var farm models.Farm
	if err := c.ShouldBindJSON(&farm); err != nil || farm.ID == "" {
		c.JSON(http.StatusBadRequest, models.Result[any]{Error: "farm id must be provided"})
		return
	}

	if err := h.sessions.SetActiveFarm(c.Request.Context(), farm); err != nil {
		h.logger.Error("failed storing active farm", zap.Error(err))
		c.JSON(http.StatusInternalServerError, models.Fail[any](nil, err))
		return
	}
	c.JSON(http.StatusOK, models.OK(farm))
}

// RunReport generates the inventory digest immediately.
func (h *SessionHandler) RunReport(c *gin.Context) {
	digest, err := h.reports.Run(c.Request.Context(), models.ID(c.Query("farmId")), time.Now())
	if digest == nil {
		h.logger.Error("failed generating inventory digest", zap.Error(err))
		c.JSON(statusFor(err), models.Fail[any](nil, err))
		return
	}

	res := models.OK(gin.H{"text": digest.Text, "snapshot": digest.Snapshot})
	if err != nil {
		// The digest exists but one of its outputs failed.
		res.Error = err.Error()
	}
	c.JSON(http.StatusOK, res)
}
