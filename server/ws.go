package server

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/campusradar/campusradar/internal/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Be careful with this in production
	},
}

type Message struct {
	Type    string      `json:"type"`
	Content string      `json:"content"`
	Data    interface{} `json:"data,omitempty"`
}

// handleWebSocket streams pipeline progress back to the client. The client
// sends {"type":"ingest","content":"<announcement text>"} and receives
// status/stored/duplicate/error messages as the pipeline works, then a
// final result message with the run's stats. A token is required via the
// "token" query parameter since browsers cannot set headers on WS dials.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	claims, err := s.parseToken(r.URL.Query().Get("token"))
	if err != nil || claims.Role != "Organiser" {
		writeError(w, http.StatusUnauthorized, "organiser token required")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}

		if msg.Type != "ingest" || msg.Content == "" {
			s.sendMessage(conn, "error", "expected an ingest message with content")
			continue
		}

		ann := models.Announcement{
			ID:         uuid.NewString(),
			Source:     "ws:" + claims.Subject,
			Body:       msg.Content,
			ReceivedAt: time.Now(),
		}

		s.sendMessage(conn, "status", "extracting events")

		stats, err := s.ingestor.Run(r.Context(), []models.Announcement{ann},
			func(stage, detail string) {
				s.sendMessage(conn, stage, detail)
			})
		if err != nil {
			s.sendMessage(conn, "error", err.Error())
			continue
		}

		if err := conn.WriteJSON(Message{Type: "result", Data: stats}); err != nil {
			break
		}
	}
}

func (s *Server) sendMessage(conn *websocket.Conn, msgType string, content string) {
	msg := Message{
		Type:    msgType,
		Content: content,
	}
	if err := conn.WriteJSON(msg); err != nil {
		s.logger.Error().Err(err).Msg("error sending message")
	}
}
