package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/hokushin/kendo-tournament/notifications"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// TODO: restrict Origin to the frontend domains before exposing
	// this publicly.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type WebSocketHandler struct {
	hub    *notifications.Hub
	logger *slog.Logger
}

func NewWebSocketHandler(hub *notifications.Hub, logger *slog.Logger) *WebSocketHandler {
	return &WebSocketHandler{hub: hub, logger: logger}
}

// ServeTournamentWs subscribes the client to live updates for one
// tournament: schedule growth, round generation, status changes.
func (h *WebSocketHandler) ServeTournamentWs(w http.ResponseWriter, r *http.Request) {
	tournamentID := chi.URLParam(r, "tournamentID")
	if tournamentID == "" {
		http.Error(w, "Missing tournamentID", http.StatusBadRequest)
		return
	}
	h.serve(w, r, notifications.TournamentRoom(tournamentID))
}

// ServeMatchWs subscribes the client to live updates for one match:
// points, timer state, outcome.
func (h *WebSocketHandler) ServeMatchWs(w http.ResponseWriter, r *http.Request) {
	matchID := chi.URLParam(r, "matchID")
	if matchID == "" {
		http.Error(w, "Missing matchID", http.StatusBadRequest)
		return
	}
	h.serve(w, r, notifications.MatchRoom(matchID))
}

func (h *WebSocketHandler) serve(w http.ResponseWriter, r *http.Request, roomID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied to the client.
		h.logger.Error("websocket upgrade failed", slog.String("room", roomID), slog.Any("error", err))
		return
	}

	client := &notifications.Client{
		Hub:  h.hub,
		Conn: conn,
		Send: make(chan []byte, 256),
		Room: roomID,
	}
	client.Hub.Register <- client

	go client.WritePump()
	go client.ReadPump()

	h.logger.Debug("websocket client connected", slog.String("room", roomID))
}
