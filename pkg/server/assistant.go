package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/chatlens/chatlens/pkg/api"
	"github.com/chatlens/chatlens/pkg/assistant"
	"github.com/chatlens/chatlens/pkg/auth"
	"github.com/chatlens/chatlens/pkg/util/param"
)

const (
	wsMaxMessageBytes = 16 * 1024
	wsWriteTimeout    = 10 * time.Second
)

type chatRequest struct {
	Message string `json:"message"`
}

func (s *Server) assistantChat(w http.ResponseWriter, req *http.Request) {
	var in chatRequest
	if err := json.NewDecoder(req.Body).Decode(&in); err != nil {
		failureResponse(w, http.StatusBadRequest, "Invalid JSON: "+err.Error())
		return
	}
	if strings.TrimSpace(in.Message) == "" {
		failureResponse(w, http.StatusBadRequest, "message is required")
		return
	}
	api.RespondWithJSON(http.StatusOK, w, s.assistant.Ask(req.Context(), in.Message))
}

func (s *Server) assistantSuggestions(w http.ResponseWriter, req *http.Request) {
	api.RespondWithJSON(http.StatusOK, w, map[string]interface{}{
		"suggestions": assistant.HelpSuggestions(param.SafeRead(req, "audience")),
	})
}

// chatFrame is sent for every answer and for rejected frames.
type chatFrame struct {
	Type   string            `json:"type"`
	Answer *assistant.Answer `json:"answer,omitempty"`
	Error  string            `json:"error,omitempty"`
}

// assistantSocket answers each text frame {"message": "..."} with a chatFrame
// until the client disconnects.
func (s *Server) assistantSocket(w http.ResponseWriter, req *http.Request) {
	conn, err := s.wsUpgrader.Upgrade(w, req, nil)
	if err != nil {
		log.WithError(err).Error("Failed to upgrade client connection")
		return
	}
	defer conn.Close()
	conn.SetReadLimit(wsMaxMessageBytes)

	session, _ := auth.FromContext(req.Context())
	logger := log.WithField("user", session.Username)
	logger.Debug("assistant websocket opened")

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.WithError(err).Warning("assistant websocket closed unexpectedly")
			}
			return
		}

		var frame chatFrame
		var in chatRequest
		switch {
		case json.Unmarshal(raw, &in) != nil:
			frame = chatFrame{Type: "error", Error: "invalid JSON"}
		case strings.TrimSpace(in.Message) == "":
			frame = chatFrame{Type: "error", Error: "message is required"}
		default:
			answer := s.assistant.Ask(req.Context(), in.Message)
			frame = chatFrame{Type: "answer", Answer: &answer}
		}

		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := conn.WriteJSON(frame); err != nil {
			logger.WithError(err).Warning("could not write assistant answer")
			return
		}
	}
}
