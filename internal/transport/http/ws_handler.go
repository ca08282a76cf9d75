package http

import (
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"safetyhub-assessment-service/internal/domain"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type outboundMessage struct {
	Type    string             `json:"type"`
	Payload domain.Leaderboard `json:"payload"`
}

// streamLeaderboard upgrades the request to a websocket and pushes leaderboard
// snapshots: the current one on connect, then one after every graded
// submission. Browsers cannot set headers on websocket dials, so when the
// leaderboard is not public the token rides in the query string.
func (h *Handler) streamLeaderboard(w http.ResponseWriter, r *http.Request) {
	assessmentID := r.URL.Query().Get("assessmentId")
	if assessmentID == "" {
		http.Error(w, "missing assessmentId", http.StatusBadRequest)
		return
	}
	if !h.publicLeaderboard {
		if _, err := h.auth.Verify(r.URL.Query().Get("token")); err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
	}

	initial, err := h.service.Leaderboard(r.Context(), assessmentID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	updates, cancel := h.service.Hub().Subscribe(assessmentID)
	defer cancel()

	// Reader pump: the client sends nothing meaningful, but reading is the
	// only way to notice a disconnect. Cancel unblocks the writer loop.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := conn.WriteJSON(outboundMessage{Type: "leaderboard", Payload: initial}); err != nil {
		return
	}
	for update := range updates {
		if err := conn.WriteJSON(outboundMessage{Type: "leaderboard", Payload: update}); err != nil {
			h.log.Debug("ws write error", zap.Error(err))
			return
		}
	}
}
