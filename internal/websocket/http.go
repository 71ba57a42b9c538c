package websocket

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"

	"demandboard/internal/infrastructure"
)

// NewUpgrader builds an upgrader that only accepts the given origins.
// Requests without an Origin header are non-browser clients and pass.
func NewUpgrader(readBuffer, writeBuffer int, allowedOrigins []string) *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  readBuffer,
		WriteBufferSize: writeBuffer,
		CheckOrigin: func(r *http.Request) bool {
			return CheckOrigin(r, allowedOrigins)
		},
	}
}

// CheckOrigin reports whether the request origin is allowed
func CheckOrigin(r *http.Request, allowedOrigins []string) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range allowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}

	// Same host is always allowed
	u, err := url.Parse(origin)
	return err == nil && strings.EqualFold(u.Host, r.Host)
}

// Handler upgrades the request and attaches the connection to the hub
func Handler(hub *Hub, upgrader *websocket.Upgrader, logger *slog.Logger) http.HandlerFunc {
	logger = infrastructure.WithComponent(logger, "websocket.http")

	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade has already written the HTTP error
			logger.WarnContext(r.Context(), "websocket upgrade failed",
				slog.String("error", err.Error()),
				slog.String("origin", r.Header.Get("Origin")))
			return
		}

		// The request context ends with this handler; keep its values only
		client := NewClient(context.WithoutCancel(r.Context()), hub, gorillaConn{Conn: conn, remote: r.RemoteAddr})
		client.Serve()
	}
}

// gorillaConn adapts *websocket.Conn to Connection. The remote address is
// taken from the request so it reflects the RealIP middleware.
type gorillaConn struct {
	*websocket.Conn
	remote string
}

var _ Connection = gorillaConn{}

func (c gorillaConn) RemoteAddr() string {
	return c.remote
}
