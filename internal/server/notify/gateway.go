package notify

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/dominikcirko/kanban-app/internal/logging"
)

const (
	defaultWriteTimeout = 5 * time.Second
	defaultPingInterval = 30 * time.Second
)

// Gateway upgrades HTTP requests to websockets and streams every hub
// notification to the peer as a JSON text frame. Peers only listen; any
// frame they send closes the connection.
type Gateway struct {
	hub            *Hub
	log            logging.Logger
	originPatterns []string
	writeTimeout   time.Duration
	pingInterval   time.Duration
}

func NewGateway(hub *Hub, log logging.Logger, originPatterns []string) *Gateway {
	return &Gateway{
		hub:            hub,
		log:            log.With("module", "ws"),
		originPatterns: originPatterns,
		writeTimeout:   defaultWriteTimeout,
		pingInterval:   defaultPingInterval,
	}
}

func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: g.originPatterns,
	})
	if err != nil {
		g.log.Info(r.Context(), "websocket accept failed", "err", err, "origin", r.Header.Get("Origin"))
		return
	}
	defer conn.CloseNow()

	sub := g.hub.Subscribe()
	defer g.hub.Unsubscribe(sub)

	g.log.Debug(r.Context(), "subscriber connected", "subscriber", sub.ID, "remote", r.RemoteAddr)

	ctx := conn.CloseRead(r.Context())

	ticker := time.NewTicker(g.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			g.log.Debug(r.Context(), "subscriber gone", "subscriber", sub.ID)
			return

		case n, ok := <-sub.C:
			if !ok {
				conn.Close(websocket.StatusGoingAway, "server shutting down")
				return
			}
			if err := g.write(ctx, conn, n); err != nil {
				g.log.Info(r.Context(), "websocket write failed", "subscriber", sub.ID, "err", err)
				return
			}

		case <-ticker.C:
			pctx, cancel := context.WithTimeout(ctx, g.writeTimeout)
			err := conn.Ping(pctx)
			cancel()
			if err != nil {
				g.log.Info(r.Context(), "websocket ping failed", "subscriber", sub.ID, "err", err)
				return
			}
		}
	}
}

func (g *Gateway) write(ctx context.Context, conn *websocket.Conn, v any) error {
	ctx, cancel := context.WithTimeout(ctx, g.writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, v)
}
