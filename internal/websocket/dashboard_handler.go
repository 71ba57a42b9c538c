package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	apierrors "demandboard/internal/errors"
	"demandboard/internal/infrastructure"
	"demandboard/internal/services"
	api "demandboard/pkg/contracts/api/v1"
	"demandboard/pkg/contracts/domain"
	"demandboard/pkg/contracts/events"
)

// Evaluator computes dashboard updates for filter criteria
type Evaluator interface {
	Dashboard(ctx context.Context, criteria domain.FilterCriteria, round bool, source string) (domain.DashboardUpdate, error)
	Range() domain.DateRange
}

// Validator checks request structs against their validate tags
type Validator interface {
	ValidateStruct(v interface{}) error
}

// DashboardHandler answers filter messages with a dashboard:update for the
// sending client
type DashboardHandler struct {
	evaluator Evaluator
	validator Validator
	logger    *slog.Logger
}

// NewDashboardHandler creates a DashboardHandler
func NewDashboardHandler(evaluator Evaluator, validator Validator, logger *slog.Logger) *DashboardHandler {
	return &DashboardHandler{
		evaluator: evaluator,
		validator: validator,
		logger:    infrastructure.WithComponent(logger, "websocket.dashboard"),
	}
}

// HandleMessage implements MessageHandler
func (h *DashboardHandler) HandleMessage(ctx context.Context, clientID string, msg events.InboundMessage) *events.WebSocketMessage {
	if msg.Type != events.MessageTypeFilter {
		return NewErrorMessage(ctx, apierrors.CodeInvalidRequest, "unsupported message type: "+string(msg.Type), nil)
	}

	var req api.DashboardQueryRequest
	if len(msg.Data) > 0 {
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			return NewErrorMessage(ctx, apierrors.CodeInvalidRequest, "filter data is not valid JSON", nil)
		}
	}

	if h.validator != nil {
		if err := h.validator.ValidateStruct(&req); err != nil {
			return h.errorMessage(ctx, err)
		}
	}

	criteria, err := req.Criteria(h.evaluator.Range())
	if err != nil {
		return NewErrorMessage(ctx, apierrors.CodeValidationFailed, err.Error(), nil)
	}

	update, err := h.evaluator.Dashboard(ctx, criteria, req.Round, services.SourceWebSocket)
	if err != nil {
		h.logger.WarnContext(ctx, "filter evaluation failed",
			slog.String("client_id", clientID),
			slog.String("error", err.Error()))
		return h.errorMessage(ctx, err)
	}

	h.logger.DebugContext(ctx, "filter evaluated",
		slog.String("client_id", clientID),
		slog.Int("rows", len(update.Rows)))
	return NewMessage(ctx, events.MessageTypeDashboardUpdate, update)
}

func (h *DashboardHandler) errorMessage(ctx context.Context, err error) *events.WebSocketMessage {
	var unknown *services.UnknownProductError
	if errors.As(err, &unknown) {
		return NewErrorMessage(ctx, apierrors.CodeUnknownProduct, err.Error(), map[string]interface{}{
			"products": unknown.Names,
		})
	}

	var apiErr *apierrors.APIError
	if errors.As(err, &apiErr) {
		return NewErrorMessage(ctx, apiErr.ErrorCode, apiErr.Message, apiErr.Details)
	}

	return NewErrorMessage(ctx, apierrors.CodeInternal, "failed to evaluate filter", nil)
}
