package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apierrors "demandboard/internal/errors"
	"demandboard/internal/services"
	"demandboard/internal/shared/testutil"
	"demandboard/pkg/contracts/domain"
)

// MockDashboardService is a mock implementation of DashboardServiceInterface
type MockDashboardService struct {
	mock.Mock
}

func (m *MockDashboardService) Products() []string {
	return m.Called().Get(0).([]string)
}

func (m *MockDashboardService) DefaultSelection() []string {
	return m.Called().Get(0).([]string)
}

func (m *MockDashboardService) Range() domain.DateRange {
	return datasetRange
}

func (m *MockDashboardService) Weeks() int {
	return 52
}

func (m *MockDashboardService) Evaluate(ctx context.Context, criteria domain.FilterCriteria, source string) (domain.View, error) {
	args := m.Called(criteria, source)
	return args.Get(0).(domain.View), args.Error(1)
}

func (m *MockDashboardService) Dashboard(ctx context.Context, criteria domain.FilterCriteria, round bool, source string) (domain.DashboardUpdate, error) {
	args := m.Called(criteria, round, source)
	return args.Get(0).(domain.DashboardUpdate), args.Error(1)
}

func (m *MockDashboardService) Summary(ctx context.Context, criteria domain.FilterCriteria, grouped, round bool, source string) (domain.Summary, []domain.ProductSummary, error) {
	args := m.Called(criteria, grouped, round, source)
	var groups []domain.ProductSummary
	if g := args.Get(1); g != nil {
		groups = g.([]domain.ProductSummary)
	}
	return args.Get(0).(domain.Summary), groups, args.Error(2)
}

func (m *MockDashboardService) Cards(ctx context.Context, criteria domain.FilterCriteria, source string) ([]domain.MetricCard, error) {
	args := m.Called(criteria, source)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.MetricCard), args.Error(1)
}

func (m *MockDashboardService) Product(ctx context.Context, name string, round bool, source string) (domain.DashboardUpdate, error) {
	args := m.Called(name, round, source)
	return args.Get(0).(domain.DashboardUpdate), args.Error(1)
}

func (m *MockDashboardService) Export(ctx context.Context, w io.Writer, criteria domain.FilterCriteria, format string, bom bool, source string) error {
	args := m.Called(w, criteria, format, bom, source)
	return args.Error(0)
}

func (m *MockDashboardService) Chart(ctx context.Context, w io.Writer, criteria domain.FilterCriteria, chartType domain.ChartType, format, source string) error {
	args := m.Called(w, criteria, chartType, format, source)
	return args.Error(0)
}

var datasetRange = domain.DateRange{
	Start: testutil.Date(2025, time.July, 6),
	End:   testutil.Date(2026, time.June, 28),
}

func sampleView() domain.View {
	return domain.View{
		Criteria: domain.FilterCriteria{Products: []string{"Product 1"}, Start: datasetRange.Start, End: datasetRange.End},
		Rows: []domain.Observation{
			domain.NewObservation(datasetRange.Start, "Product 1", 100, 90),
		},
	}
}

func criteriaFor(products ...string) interface{} {
	return mock.MatchedBy(func(c domain.FilterCriteria) bool {
		if len(c.Products) != len(products) {
			return false
		}
		for i := range products {
			if c.Products[i] != products[i] {
				return false
			}
		}
		return true
	})
}

func setupRouter(t *testing.T, svc *MockDashboardService) http.Handler {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	handler := NewDashboardHandler(svc, logger, apierrors.NewErrorHandler(logger, false))

	r := chi.NewRouter()
	r.Mount("/api/dashboard", handler.Routes())
	return r
}

func serve(router http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestDashboardHandler_GetProducts(t *testing.T) {
	svc := new(MockDashboardService)
	svc.On("Products").Return([]string{"Product 1", "Product 10", "Product 2"})
	svc.On("DefaultSelection").Return([]string{"Product 1"})

	rec := serve(setupRouter(t, svc), httptest.NewRequest(http.MethodGet, "/api/dashboard/products", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"success","data":{"products":["Product 1","Product 10","Product 2"],"default":["Product 1"]}}`, rec.Body.String())
}

func TestDashboardHandler_GetRange(t *testing.T) {
	rec := serve(setupRouter(t, new(MockDashboardService)), httptest.NewRequest(http.MethodGet, "/api/dashboard/range", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"success","data":{"range":{"start":"2025-07-06","end":"2026-06-28"},"weeks":52}}`, rec.Body.String())
}

func TestDashboardHandler_GetObservations(t *testing.T) {
	tests := []struct {
		name           string
		query          string
		setupMock      func(*MockDashboardService)
		expectedStatus int
		expectedCode   string
	}{
		{
			name:  "comma separated products",
			query: "?products=Product%201,Product%202&from=2025-07-06",
			setupMock: func(m *MockDashboardService) {
				m.On("Evaluate", criteriaFor("Product 1", "Product 2"), services.SourceHTTP).Return(sampleView(), nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:  "repeated products",
			query: "?products=Product%201&products=Product%202",
			setupMock: func(m *MockDashboardService) {
				m.On("Evaluate", criteriaFor("Product 1", "Product 2"), services.SourceHTTP).Return(sampleView(), nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:  "unknown product",
			query: "?products=Product%2099",
			setupMock: func(m *MockDashboardService) {
				m.On("Evaluate", criteriaFor("Product 99"), services.SourceHTTP).
					Return(domain.View{}, &services.UnknownProductError{Names: []string{"Product 99"}})
			},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedCode:   apierrors.CodeUnknownProduct,
		},
		{
			name:           "malformed date",
			query:          "?products=Product%201&from=07/06/2025",
			setupMock:      func(m *MockDashboardService) {},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   apierrors.CodeValidationFailed,
		},
		{
			name:           "malformed round flag",
			query:          "?products=Product%201&round=maybe",
			setupMock:      func(m *MockDashboardService) {},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   apierrors.CodeValidationFailed,
		},
		{
			name:  "deadline exceeded",
			query: "?products=Product%201",
			setupMock: func(m *MockDashboardService) {
				m.On("Evaluate", criteriaFor("Product 1"), services.SourceHTTP).Return(domain.View{}, context.DeadlineExceeded)
			},
			expectedStatus: http.StatusGatewayTimeout,
		},
		{
			name:  "unexpected failure",
			query: "?products=Product%201",
			setupMock: func(m *MockDashboardService) {
				m.On("Evaluate", criteriaFor("Product 1"), services.SourceHTTP).Return(domain.View{}, errors.New("boom"))
			},
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockDashboardService)
			tt.setupMock(svc)

			rec := serve(setupRouter(t, svc), httptest.NewRequest(http.MethodGet, "/api/dashboard/observations"+tt.query, nil))

			assert.Equal(t, tt.expectedStatus, rec.Code)
			body := decodeBody(t, rec)
			if tt.expectedCode != "" {
				assert.Equal(t, tt.expectedCode, body["error_code"])
			}
			if tt.expectedStatus == http.StatusOK {
				data := body["data"].(map[string]interface{})
				assert.Equal(t, float64(1), data["count"])
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestDashboardHandler_UnknownProductProblem(t *testing.T) {
	svc := new(MockDashboardService)
	svc.On("Evaluate", criteriaFor("Nope"), services.SourceHTTP).
		Return(domain.View{}, &services.UnknownProductError{Names: []string{"Nope"}})

	rec := serve(setupRouter(t, svc), httptest.NewRequest(http.MethodGet, "/api/dashboard/observations?products=Nope", nil))

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, apierrors.TypeUnknownProduct, body["type"])
	assert.Equal(t, "/api/dashboard/observations", body["instance"])
	assert.Equal(t, map[string]interface{}{"products": []interface{}{"Nope"}}, body["details"])
}

func TestDashboardHandler_EmptyViewRendersEmptyRows(t *testing.T) {
	svc := new(MockDashboardService)
	svc.On("Evaluate", criteriaFor(), services.SourceHTTP).Return(domain.View{}, nil)

	rec := serve(setupRouter(t, svc), httptest.NewRequest(http.MethodGet, "/api/dashboard/observations", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeBody(t, rec)["data"].(map[string]interface{})
	assert.Equal(t, []interface{}{}, data["rows"])
	assert.Equal(t, float64(0), data["count"])
}

func TestDashboardHandler_GetSummary(t *testing.T) {
	mean := 100.0
	summary := domain.Summary{Count: 1, DemandSum: 100, DemandMean: &mean}
	groups := []domain.ProductSummary{{ProductName: "Product 1", Summary: summary}}

	t.Run("grouped and rounded", func(t *testing.T) {
		svc := new(MockDashboardService)
		svc.On("Summary", criteriaFor("Product 1"), true, true, services.SourceHTTP).Return(summary, groups, nil)

		rec := serve(setupRouter(t, svc), httptest.NewRequest(http.MethodGet,
			"/api/dashboard/summary?products=Product%201&group_by=product_name&round=true", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		data := decodeBody(t, rec)["data"].(map[string]interface{})
		assert.Len(t, data["groups"], 1)
		svc.AssertExpectations(t)
	})

	t.Run("ungrouped", func(t *testing.T) {
		svc := new(MockDashboardService)
		svc.On("Summary", criteriaFor("Product 1"), false, false, services.SourceHTTP).Return(summary, nil, nil)

		rec := serve(setupRouter(t, svc), httptest.NewRequest(http.MethodGet, "/api/dashboard/summary?products=Product%201", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		data := decodeBody(t, rec)["data"].(map[string]interface{})
		assert.NotContains(t, data, "groups")
	})

	t.Run("unsupported group_by", func(t *testing.T) {
		svc := new(MockDashboardService)

		rec := serve(setupRouter(t, svc), httptest.NewRequest(http.MethodGet, "/api/dashboard/summary?group_by=date", nil))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		svc.AssertNotCalled(t, "Summary", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestDashboardHandler_GetMetrics(t *testing.T) {
	svc := new(MockDashboardService)
	cards := []domain.MetricCard{{Label: "Total Demand", Value: "1,234"}}
	svc.On("Cards", criteriaFor("Product 1"), services.SourceHTTP).Return(cards, nil)

	rec := serve(setupRouter(t, svc), httptest.NewRequest(http.MethodGet, "/api/dashboard/metrics?products=Product%201", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"1,234"`)
}

func TestDashboardHandler_GetProduct(t *testing.T) {
	svc := new(MockDashboardService)
	view := sampleView()
	svc.On("Product", "Product 1", true, services.SourceHTTP).Return(domain.DashboardUpdate{Rows: view.Rows}, nil)
	svc.On("Product", "Product 99", false, services.SourceHTTP).
		Return(domain.DashboardUpdate{}, &services.UnknownProductError{Names: []string{"Product 99"}})
	router := setupRouter(t, svc)

	rec := serve(router, httptest.NewRequest(http.MethodGet, "/api/dashboard/product/Product%201?round=true", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeBody(t, rec)["data"].(map[string]interface{})
	assert.Equal(t, "Product 1", data["product_name"])
	assert.Len(t, data["rows"], 1)

	rec = serve(router, httptest.NewRequest(http.MethodGet, "/api/dashboard/product/Product%2099", nil))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestDashboardHandler_Query(t *testing.T) {
	tests := []struct {
		name           string
		contentType    string
		body           string
		setupMock      func(*MockDashboardService)
		expectedStatus int
	}{
		{
			name:        "valid criteria",
			contentType: "application/json",
			body:        `{"products":["Product 3"],"from":"2025-08-01","to":"2025-09-01","round":true}`,
			setupMock: func(m *MockDashboardService) {
				m.On("Dashboard", mock.MatchedBy(func(c domain.FilterCriteria) bool {
					return len(c.Products) == 1 && c.Start.Equal(testutil.Date(2025, time.August, 1)) &&
						c.End.Equal(testutil.Date(2025, time.September, 1))
				}), true, services.SourceHTTP).Return(domain.DashboardUpdate{}, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "invalid JSON",
			contentType:    "application/json",
			body:           `{"products":`,
			setupMock:      func(m *MockDashboardService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "wrong content type",
			contentType:    "text/plain",
			body:           `{}`,
			setupMock:      func(m *MockDashboardService) {},
			expectedStatus: http.StatusUnsupportedMediaType,
		},
		{
			name:           "malformed date",
			contentType:    "application/json",
			body:           `{"products":["Product 1"],"to":"2025-02-30"}`,
			setupMock:      func(m *MockDashboardService) {},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockDashboardService)
			tt.setupMock(svc)

			req := httptest.NewRequest(http.MethodPost, "/api/dashboard/query", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", tt.contentType)
			rec := serve(setupRouter(t, svc), req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			svc.AssertExpectations(t)
		})
	}
}

func TestDashboardHandler_Export(t *testing.T) {
	writeBody := func(content string) func(mock.Arguments) {
		return func(args mock.Arguments) {
			_, _ = io.WriteString(args.Get(0).(io.Writer), content)
		}
	}

	t.Run("csv", func(t *testing.T) {
		svc := new(MockDashboardService)
		svc.On("Export", mock.Anything, criteriaFor("Product 1"), services.FormatCSV, true, services.SourceHTTP).
			Run(writeBody("date,product_name\n")).Return(nil)

		rec := serve(setupRouter(t, svc), httptest.NewRequest(http.MethodGet, "/api/dashboard/export/csv?products=Product%201&bom=true", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, `attachment; filename="data.csv"`, rec.Header().Get("Content-Disposition"))
		assert.Equal(t, contentTypeCSV, rec.Header().Get("Content-Type"))
		assert.Equal(t, "date,product_name\n", rec.Body.String())
	})

	t.Run("xlsx", func(t *testing.T) {
		svc := new(MockDashboardService)
		svc.On("Export", mock.Anything, criteriaFor("Product 1"), services.FormatXLSX, false, services.SourceHTTP).
			Run(writeBody("PK")).Return(nil)

		rec := serve(setupRouter(t, svc), httptest.NewRequest(http.MethodGet, "/api/dashboard/export/xlsx?products=Product%201", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, `attachment; filename="data.xlsx"`, rec.Header().Get("Content-Disposition"))
		assert.Equal(t, contentTypeXLSX, rec.Header().Get("Content-Type"))
	})

	t.Run("unsupported format", func(t *testing.T) {
		svc := new(MockDashboardService)

		rec := serve(setupRouter(t, svc), httptest.NewRequest(http.MethodGet, "/api/dashboard/export/pdf", nil))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, apierrors.CodeValidationFailed, decodeBody(t, rec)["error_code"])
	})

	t.Run("writer failure", func(t *testing.T) {
		svc := new(MockDashboardService)
		svc.On("Export", mock.Anything, criteriaFor("Product 1"), services.FormatCSV, false, services.SourceHTTP).
			Return(errors.New("disk full"))

		rec := serve(setupRouter(t, svc), httptest.NewRequest(http.MethodGet, "/api/dashboard/export/csv?products=Product%201", nil))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, apierrors.CodeExportFailed, decodeBody(t, rec)["error_code"])
		assert.Empty(t, rec.Header().Get("Content-Disposition"))
	})
}

func TestDashboardHandler_Chart(t *testing.T) {
	t.Run("svg bar chart", func(t *testing.T) {
		svc := new(MockDashboardService)
		svc.On("Chart", mock.Anything, criteriaFor("Product 1"), domain.ChartTypeBar, "svg", services.SourceHTTP).
			Run(func(args mock.Arguments) {
				_, _ = io.WriteString(args.Get(0).(io.Writer), "<svg/>")
			}).Return(nil)

		rec := serve(setupRouter(t, svc), httptest.NewRequest(http.MethodGet,
			"/api/dashboard/chart?products=Product%201&type=bar&format=svg", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "image/svg+xml", rec.Header().Get("Content-Type"))
		assert.Equal(t, "<svg/>", rec.Body.String())
	})

	t.Run("defaults to png line", func(t *testing.T) {
		svc := new(MockDashboardService)
		svc.On("Chart", mock.Anything, criteriaFor("Product 1"), domain.ChartTypeLine, "png", services.SourceHTTP).Return(nil)

		rec := serve(setupRouter(t, svc), httptest.NewRequest(http.MethodGet, "/api/dashboard/chart?products=Product%201", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	})

	t.Run("unknown chart type", func(t *testing.T) {
		svc := new(MockDashboardService)

		rec := serve(setupRouter(t, svc), httptest.NewRequest(http.MethodGet, "/api/dashboard/chart?type=pie", nil))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, apierrors.CodeValidationFailed, decodeBody(t, rec)["error_code"])
	})

	t.Run("render failure", func(t *testing.T) {
		svc := new(MockDashboardService)
		svc.On("Chart", mock.Anything, criteriaFor("Product 1"), domain.ChartTypeLine, "png", services.SourceHTTP).
			Return(errors.New("canvas"))

		rec := serve(setupRouter(t, svc), httptest.NewRequest(http.MethodGet, "/api/dashboard/chart?products=Product%201", nil))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, apierrors.CodeChartFailed, decodeBody(t, rec)["error_code"])
	})
}
