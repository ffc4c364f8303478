package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"flight-stats/internal/models"
	"flight-stats/internal/services"
	"flight-stats/pkg/logging"
)

const (
	liveWriteWait = 10 * time.Second
	liveMaxFrame  = 64 * 1024

	// defaultPongWait is how long a silent client may go without answering a ping.
	defaultPongWait = 60 * time.Second
)

// liveTimeouts bounds an idle live session. Pings go out every pingPeriod,
// which must be shorter than pongWait.
type liveTimeouts struct {
	pongWait   time.Duration
	pingPeriod time.Duration
}

func newLiveTimeouts(pongWait time.Duration) liveTimeouts {
	return liveTimeouts{pongWait: pongWait, pingPeriod: pongWait * 9 / 10}
}

// LiveRequest is sent by the client. Action is "select" (with Selection) or "reset".
// A dimension missing from Selection selects nothing.
type LiveRequest struct {
	Action    string                  `json:"action"`
	Selection *models.FilterSelection `json:"selection,omitempty"`
}

// LiveMessage is pushed to the client: a "result" after every change, or an "error".
type LiveMessage struct {
	Type   string           `json:"type"`
	Result *services.Result `json:"result,omitempty"`
	Error  string           `json:"error,omitempty"`
}

// Live handles GET /api/live. The socket owns one Session: the current result
// is sent on connect, and a fresh one after every selection the client sends.
func (h *FlightHandler) Live(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.metrics.RecordAPIError("upgrade_error", "/api/live")
		h.logger.Warn(ctx, "[LIVE_UPGRADE_ERROR] WebSocket upgrade failed", logging.Fields{
			"error": err.Error(),
		})
		return
	}
	defer conn.Close()

	h.metrics.LiveSessions.Inc()
	defer h.metrics.LiveSessions.Dec()

	session := services.NewSession(ctx, h.query)

	// Only this goroutine writes to conn: the listener runs inside SetSelection below.
	var writeErr error
	send := func(msg LiveMessage) {
		if writeErr != nil {
			return
		}
		conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
		writeErr = conn.WriteJSON(msg)
	}
	unsubscribe := session.Subscribe(func(res services.Result) {
		send(LiveMessage{Type: "result", Result: &res})
	})
	defer unsubscribe()

	h.logger.Info(ctx, "[LIVE_OPEN] Live session opened", logging.Fields{
		"remote_addr": r.RemoteAddr,
	})

	current := session.Current()
	send(LiveMessage{Type: "result", Result: &current})

	pongWait := h.live.pongWait
	conn.SetReadLimit(liveMaxFrame)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	// Browsers only pong when pinged. WriteControl may run alongside the
	// writes made from this goroutine.
	done := make(chan struct{})
	defer close(done)
	go h.pingLoop(conn, done)

	updates := 0
	for writeErr == nil {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Warn(ctx, "[LIVE_READ_ERROR] Live session dropped", logging.Fields{"error": err.Error()})
			}
			break
		}
		conn.SetReadDeadline(time.Now().Add(pongWait))

		var req LiveRequest
		if err := json.Unmarshal(data, &req); err != nil {
			send(LiveMessage{Type: "error", Error: "malformed request: " + err.Error()})
			continue
		}

		switch req.Action {
		case "select":
			if req.Selection == nil {
				send(LiveMessage{Type: "error", Error: "select requires a selection"})
				continue
			}
			session.SetSelection(ctx, *req.Selection)
			updates++
		case "reset":
			session.Reset(ctx)
			updates++
		default:
			send(LiveMessage{Type: "error", Error: "unknown action: " + req.Action})
		}
	}

	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(liveWriteWait))

	h.logger.Info(ctx, "[LIVE_CLOSE] Live session closed", logging.Fields{
		"remote_addr": r.RemoteAddr,
		"updates":     updates,
	})
}

func (h *FlightHandler) pingLoop(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(h.live.pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(liveWriteWait)); err != nil {
				return
			}
		}
	}
}
