package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"demandboard/internal/charts"
	apierrors "demandboard/internal/errors"
	"demandboard/internal/infrastructure"
	"demandboard/internal/middleware"
	"demandboard/internal/services"
	api "demandboard/pkg/contracts/api/v1"
	"demandboard/pkg/contracts/domain"
)

// Download names and content types of the exports
const (
	csvFilename  = "data.csv"
	xlsxFilename = "data.xlsx"

	contentTypeCSV  = "text/csv; charset=utf-8"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// DashboardHandler serves the dashboard API with RFC 7807 errors
type DashboardHandler struct {
	service      DashboardServiceInterface
	validation   *middleware.ValidationMiddleware
	query        *middleware.QueryParamValidator
	errorHandler *apierrors.ErrorHandler
	logger       *slog.Logger
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(service DashboardServiceInterface, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *DashboardHandler {
	return &DashboardHandler{
		service:      service,
		validation:   middleware.NewValidationMiddleware(logger, errorHandler),
		query:        middleware.NewQueryParamValidator(logger, errorHandler),
		errorHandler: errorHandler,
		logger:       infrastructure.WithComponent(logger, "dashboard_handler"),
	}
}

// Routes returns the dashboard routes
func (h *DashboardHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))

		r.Get("/products", h.GetProducts)
		r.Get("/range", h.GetRange)
		r.Get("/observations", h.GetObservations)
		r.Get("/summary", h.GetSummary)
		r.Get("/metrics", h.GetMetrics)
		r.Get("/product/{name}", h.GetProduct)

		r.With(
			middleware.ContentTypeValidator(h.errorHandler, "application/json"),
			h.validation.ValidateRequest,
		).Post("/query", h.Query)
	})

	// Binary responses
	r.Get("/export/{format}", h.Export)
	r.Get("/chart", h.Chart)

	return r
}

// GetProducts handles GET /api/dashboard/products
func (h *DashboardHandler) GetProducts(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data": api.ProductsResponse{
			Products: h.service.Products(),
			Default:  h.service.DefaultSelection(),
		},
	})
}

// GetRange handles GET /api/dashboard/range
func (h *DashboardHandler) GetRange(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data": api.RangeResponse{
			Range: h.service.Range(),
			Weeks: h.service.Weeks(),
		},
	})
}

// GetObservations handles GET /api/dashboard/observations
func (h *DashboardHandler) GetObservations(w http.ResponseWriter, r *http.Request) {
	req, ok := h.parseQuery(w, r)
	if !ok {
		return
	}
	criteria, ok := h.criteria(w, r, req)
	if !ok {
		return
	}

	view, err := h.service.Evaluate(r.Context(), criteria, services.SourceHTTP)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data": api.ObservationsResponse{
			Products: view.Criteria.Products,
			Range:    domain.DateRange{Start: view.Criteria.Start, End: view.Criteria.End},
			Count:    view.Len(),
			Rows:     rowsOrEmpty(view.Rows),
		},
	})
}

// GetSummary handles GET /api/dashboard/summary
func (h *DashboardHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	base, ok := h.parseQuery(w, r)
	if !ok {
		return
	}
	req := api.SummaryRequest{DashboardQueryRequest: base, GroupBy: r.URL.Query().Get("group_by")}
	if err := h.validation.ValidateStruct(&req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	criteria, ok := h.criteria(w, r, base)
	if !ok {
		return
	}

	summary, groups, err := h.service.Summary(r.Context(), criteria, req.GroupBy != "", req.Round, services.SourceHTTP)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   api.SummaryResponse{Summary: summary, Groups: groups},
	})
}

// GetMetrics handles GET /api/dashboard/metrics
func (h *DashboardHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	req, ok := h.parseQuery(w, r)
	if !ok {
		return
	}
	criteria, ok := h.criteria(w, r, req)
	if !ok {
		return
	}

	cards, err := h.service.Cards(r.Context(), criteria, services.SourceHTTP)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   cards,
	})
}

// GetProduct handles GET /api/dashboard/product/{name}
func (h *DashboardHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == "" {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("name", "Product name is required"))
		return
	}
	round, ok := h.query.ValidateBool(w, r, "round", false)
	if !ok {
		return
	}

	update, err := h.service.Product(r.Context(), name, round, services.SourceHTTP)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data": api.ProductResponse{
			ProductName: name,
			Rows:        rowsOrEmpty(update.Rows),
			Summary:     update.Summary,
			Cards:       update.Cards,
		},
	})
}

// Query handles POST /api/dashboard/query
func (h *DashboardHandler) Query(w http.ResponseWriter, r *http.Request) {
	var req api.DashboardQueryRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}
	if err := h.validation.ValidateStruct(&req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	criteria, ok := h.criteria(w, r, req)
	if !ok {
		return
	}

	update, err := h.service.Dashboard(r.Context(), criteria, req.Round, services.SourceHTTP)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	update.Rows = rowsOrEmpty(update.Rows)

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   update,
	})
}

// Export handles GET /api/dashboard/export/{format}
func (h *DashboardHandler) Export(w http.ResponseWriter, r *http.Request) {
	base, ok := h.parseQuery(w, r)
	if !ok {
		return
	}
	bom, ok := h.query.ValidateBool(w, r, "bom", false)
	if !ok {
		return
	}
	req := api.ExportRequest{DashboardQueryRequest: base, Format: chi.URLParam(r, "format"), BOM: bom}
	if err := h.validation.ValidateStruct(&req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	criteria, ok := h.criteria(w, r, base)
	if !ok {
		return
	}

	// Buffer so a failed export still gets a problem response
	var buf bytes.Buffer
	if err := h.service.Export(r.Context(), &buf, criteria, req.Format, req.BOM, services.SourceHTTP); err != nil {
		h.handleServiceError(w, r, err, func(err error) *apierrors.APIError {
			return apierrors.ErrExport(req.Format, err)
		})
		return
	}

	filename, contentType := csvFilename, contentTypeCSV
	if req.Format == services.FormatXLSX {
		filename, contentType = xlsxFilename, contentTypeXLSX
	}

	h.logger.InfoContext(r.Context(), "export served",
		slog.String("request_id", chimw.GetReqID(r.Context())),
		slog.String("format", req.Format),
		slog.Int("bytes", buf.Len()))

	writeAttachment(w, filename, contentType, buf.Bytes())
}

// Chart handles GET /api/dashboard/chart
func (h *DashboardHandler) Chart(w http.ResponseWriter, r *http.Request) {
	base, ok := h.parseQuery(w, r)
	if !ok {
		return
	}
	req := api.ChartRequest{
		DashboardQueryRequest: base,
		Type:                  r.URL.Query().Get("type"),
		Format:                r.URL.Query().Get("format"),
	}
	if err := h.validation.ValidateStruct(&req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	criteria, ok := h.criteria(w, r, base)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := h.service.Chart(r.Context(), &buf, criteria, req.ChartType(), req.ChartFormat(), services.SourceHTTP); err != nil {
		h.handleServiceError(w, r, err, apierrors.ErrChart)
		return
	}

	w.Header().Set("Content-Type", charts.ContentType(req.ChartFormat()))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// parseQuery reads the shared filter parameters from the query string
func (h *DashboardHandler) parseQuery(w http.ResponseWriter, r *http.Request) (api.DashboardQueryRequest, bool) {
	q := r.URL.Query()
	round, ok := h.query.ValidateBool(w, r, "round", false)
	if !ok {
		return api.DashboardQueryRequest{}, false
	}

	req := api.DashboardQueryRequest{
		Products: api.SplitProducts(q["products"]),
		DateRangeRequest: api.DateRangeRequest{
			From: q.Get("from"),
			To:   q.Get("to"),
		},
		Round: round,
	}
	if err := h.validation.ValidateStruct(&req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return api.DashboardQueryRequest{}, false
	}
	return req, true
}

func (h *DashboardHandler) criteria(w http.ResponseWriter, r *http.Request, req api.DashboardQueryRequest) (domain.FilterCriteria, bool) {
	criteria, err := req.Criteria(h.service.Range())
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("from", err.Error()))
		return domain.FilterCriteria{}, false
	}
	return criteria, true
}

// handleServiceError maps service sentinels to API errors. Other failures
// go through fallback when one is given.
func (h *DashboardHandler) handleServiceError(w http.ResponseWriter, r *http.Request, err error, fallback ...func(error) *apierrors.APIError) {
	var unknown *services.UnknownProductError
	switch {
	case errors.As(err, &unknown):
		h.errorHandler.HandleError(w, r, apierrors.ErrUnknownProducts(unknown.Names))
	case errors.Is(err, services.ErrInvalidChartType):
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("type", err.Error()))
	case errors.Is(err, services.ErrInvalidFormat):
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("format", err.Error()))
	default:
		h.logger.ErrorContext(r.Context(), "dashboard request failed",
			slog.String("request_id", chimw.GetReqID(r.Context())),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()))
		if len(fallback) > 0 && !isContextError(err) {
			h.errorHandler.HandleError(w, r, fallback[0](err))
			return
		}
		h.errorHandler.HandleError(w, r, err)
	}
}

func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func writeAttachment(w http.ResponseWriter, filename, contentType string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// rowsOrEmpty keeps empty views as [] rather than null in JSON
func rowsOrEmpty(rows []domain.Observation) []domain.Observation {
	if rows == nil {
		return []domain.Observation{}
	}
	return rows
}
