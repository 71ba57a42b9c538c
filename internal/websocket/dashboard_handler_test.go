package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"demandboard/internal/config"
	apierrors "demandboard/internal/errors"
	"demandboard/internal/middleware"
	"demandboard/internal/services"
	"demandboard/internal/shared/testutil"
	"demandboard/pkg/contracts/domain"
	"demandboard/pkg/contracts/events"
)

func newDashboardHandler(t *testing.T) *DashboardHandler {
	t.Helper()
	logger, _ := quietLogger()
	svc, err := services.NewDashboardService(testutil.Dataset(t), services.DefaultDashboardOptions(), logger)
	require.NoError(t, err)
	validation := middleware.NewValidationMiddleware(logger, apierrors.NewErrorHandler(logger, false))
	return NewDashboardHandler(svc, validation, logger)
}

func filterMessage(data string) events.InboundMessage {
	return events.InboundMessage{Type: events.MessageTypeFilter, Data: json.RawMessage(data)}
}

func errorData(t *testing.T, msg *events.WebSocketMessage) events.ErrorData {
	t.Helper()
	require.NotNil(t, msg)
	require.Equal(t, events.MessageTypeError, msg.Type)
	data, ok := msg.Data.(events.ErrorData)
	require.True(t, ok, "unexpected payload %T", msg.Data)
	return data
}

func TestDashboardHandler_Filter(t *testing.T) {
	h := newDashboardHandler(t)

	reply := h.HandleMessage(context.Background(), "c1",
		filterMessage(`{"products":["Product 1"],"from":"2025-07-06","to":"2025-08-03"}`))

	require.NotNil(t, reply)
	assert.Equal(t, events.MessageTypeDashboardUpdate, reply.Type)
	update, ok := reply.Data.(domain.DashboardUpdate)
	require.True(t, ok)
	assert.Len(t, update.Rows, 5)
	assert.Equal(t, []string{"Product 1"}, update.Products)
	for _, row := range update.Rows {
		assert.Equal(t, "Product 1", row.ProductName)
	}
}

func TestDashboardHandler_MissingDatesUseFullRange(t *testing.T) {
	h := newDashboardHandler(t)

	reply := h.HandleMessage(context.Background(), "c1", filterMessage(`{"products":["Product 2"]}`))

	update, ok := reply.Data.(domain.DashboardUpdate)
	require.True(t, ok)
	assert.Len(t, update.Rows, 52)
}

func TestDashboardHandler_EmptySelection(t *testing.T) {
	h := newDashboardHandler(t)

	reply := h.HandleMessage(context.Background(), "c1", filterMessage(`{"products":[]}`))

	update, ok := reply.Data.(domain.DashboardUpdate)
	require.True(t, ok)
	assert.Empty(t, update.Rows)
	assert.Nil(t, update.Summary.DemandMean)
}

func TestDashboardHandler_Errors(t *testing.T) {
	tests := []struct {
		name string
		msg  events.InboundMessage
		code string
	}{
		{
			name: "unknown product",
			msg:  filterMessage(`{"products":["Product 99"]}`),
			code: apierrors.CodeUnknownProduct,
		},
		{
			name: "malformed date",
			msg:  filterMessage(`{"products":["Product 1"],"from":"2025-13-01"}`),
			code: apierrors.CodeValidationFailed,
		},
		{
			name: "invalid data",
			msg:  filterMessage(`{"products":"Product 1"}`),
			code: apierrors.CodeInvalidRequest,
		},
		{
			name: "unsupported type",
			msg:  events.InboundMessage{Type: "subscribe"},
			code: apierrors.CodeInvalidRequest,
		},
	}

	h := newDashboardHandler(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := errorData(t, h.HandleMessage(context.Background(), "c1", tt.msg))
			assert.Equal(t, tt.code, data.Code)
		})
	}
}

func TestDashboardHandler_UnknownProductDetails(t *testing.T) {
	h := newDashboardHandler(t)

	data := errorData(t, h.HandleMessage(context.Background(), "c1",
		filterMessage(`{"products":["Product 1","Nope"]}`)))

	assert.Equal(t, map[string]interface{}{"products": []string{"Nope"}}, data.Details)
	assert.Contains(t, data.Message, "Nope")
}

func TestHandler_EndToEnd(t *testing.T) {
	logger, _ := quietLogger()
	hub := startHub(t, HubOptions{
		Handler: newDashboardHandler(t),
		Greeting: func(clientID string) interface{} {
			return events.ConnectData{ClientID: clientID}
		},
	})
	cfg := config.Default().WebSocket
	server := httptest.NewServer(Handler(hub, NewUpgrader(cfg.ReadBufferSize, cfg.WriteBufferSize, nil), logger))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var greeting decodedMessage
	require.NoError(t, conn.ReadJSON(&greeting))
	assert.Equal(t, events.MessageTypeConnect, greeting.Type)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"id":   "q1",
		"type": "filter",
		"data": map[string]interface{}{"products": []string{"Product 3"}, "round": true},
	}))

	var reply decodedMessage
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, events.MessageTypeDashboardUpdate, reply.Type)

	var update struct {
		Rows []json.RawMessage `json:"rows"`
	}
	require.NoError(t, json.Unmarshal(reply.Data, &update))
	assert.Len(t, update.Rows, 52)
}

func TestCheckOrigin(t *testing.T) {
	allowed := []string{"http://localhost:8080"}
	tests := []struct {
		name   string
		origin string
		host   string
		want   bool
	}{
		{"no origin", "", "example.com", true},
		{"allowed", "http://localhost:8080", "api.local", true},
		{"same host", "https://board.example.com", "board.example.com", true},
		{"foreign", "https://evil.example", "board.example.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/ws", nil)
			r.Host = tt.host
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			assert.Equal(t, tt.want, CheckOrigin(r, allowed))
		})
	}
}
