package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/Peluchemoreno/esti-mate-billing/internal/usecase"
	apperrors "github.com/Peluchemoreno/esti-mate-billing/pkg/errors"
)

// WebhookProcessor handles one signed processor delivery.
type WebhookProcessor interface {
	Process(ctx context.Context, payload []byte, signatureHeader string) (usecase.WebhookOutcome, error)
}

type WebhookHandler struct {
	logger    *zap.Logger
	processor WebhookProcessor
	maxBody   int64
	timeout   time.Duration
}

func NewWebhookHandler(logger *zap.Logger, processor WebhookProcessor, maxBody int64, timeout time.Duration) *WebhookHandler {
	return &WebhookHandler{
		logger:    logger,
		processor: processor,
		maxBody:   maxBody,
		timeout:   timeout,
	}
}

// HandleWebhook verifies the raw body against Stripe-Signature before any
// parsing. Every handled outcome, conflicts included, is acknowledged with
// 200 so the processor stops retrying it.
func (h *WebhookHandler) HandleWebhook(c echo.Context) error {
	req := c.Request()

	body, err := io.ReadAll(http.MaxBytesReader(c.Response(), req.Body, h.maxBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.logger.Warn("Webhook body too large", zap.Int64("limit", tooLarge.Limit))
			return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "Request body too large")
		}
		h.logger.Error("Error reading request body", zap.Error(err))
		return apperrors.NewAppError(apperrors.ErrInvalidArgument, "Error reading request body", err)
	}

	// The processor may hang up early; finish the work anyway.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(req.Context()), h.timeout)
	defer cancel()

	outcome, err := h.processor.Process(ctx, body, req.Header.Get("Stripe-Signature"))
	if err != nil {
		return toAppError(err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"received": true,
		"status":   outcome,
	})
}
