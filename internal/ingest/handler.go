package ingest

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"dealflow/internal/constants"
	"dealflow/internal/logger"
	"dealflow/internal/store"
	"dealflow/pkg/errors"
)

type Handler struct {
	service Service
	logger  logger.Logger
}

func NewHandler(service Service, log logger.Logger) *Handler {
	return &Handler{service: service, logger: log}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	v1 := router.Group("/api/v1")
	{
		messages := v1.Group("/messages")
		{
			messages.POST("", h.IngestMessage)
			messages.GET("", h.ListMessages)
			messages.GET("/:id", h.GetMessage)
		}
	}
}

func (h *Handler) handleError(c *gin.Context, err error) {
	h.logger.ErrorwCtx(c.Request.Context(), "Request error",
		"error", err,
		"path", c.Request.URL.Path,
	)
	c.JSON(errors.ToHTTPStatus(err), errors.ToErrorResponse(err))
}

func (h *Handler) IngestMessage(c *gin.Context) {
	var req IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.handleError(c, errors.ErrValidation.WithCause(err))
		return
	}

	resp, err := h.service.Ingest(c.Request.Context(), req)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, resp)
}

func (h *Handler) ListMessages(c *gin.Context) {
	status := store.MessageStatus(c.Query("status"))
	switch status {
	case "", store.StatusPending, store.StatusProcessing, store.StatusCompleted, store.StatusFailed:
	default:
		h.handleError(c, errors.ErrValidation.WithMessage("unknown status filter"))
		return
	}

	limit := constants.DefaultListLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > constants.MaxListLimit {
			h.handleError(c, errors.ErrValidation.WithMessage("limit must be between 1 and 1000"))
			return
		}
		limit = parsed
	}

	msgs, err := h.service.ListMessages(c.Request.Context(), status, limit)
	if err != nil {
		h.handleError(c, err)
		return
	}
	if msgs == nil {
		msgs = []store.MessageRecord{}
	}
	c.JSON(http.StatusOK, msgs)
}

func (h *Handler) GetMessage(c *gin.Context) {
	detail, err := h.service.GetMessage(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}
