package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/chatlens/chatlens/pkg/analysis"
	"github.com/chatlens/chatlens/pkg/api"
	"github.com/chatlens/chatlens/pkg/db/models"
	"github.com/chatlens/chatlens/pkg/pipeline"
	"github.com/chatlens/chatlens/pkg/util/param"
)

type createMessageRequest struct {
	pipeline.NewMessage
	// Process defaults to true.
	Process *bool `json:"process,omitempty"`
	Refine  bool  `json:"refine,omitempty"`
}

type createMessageResponse struct {
	Message  *models.Message  `json:"message"`
	Analysis *pipeline.Result `json:"analysis,omitempty"`
}

func (s *Server) createMessage(w http.ResponseWriter, req *http.Request) {
	var in createMessageRequest
	if err := json.NewDecoder(req.Body).Decode(&in); err != nil {
		failureResponse(w, http.StatusBadRequest, "Invalid JSON: "+err.Error())
		return
	}

	var (
		msg *models.Message
		res *pipeline.Result
		err error
	)
	if in.Process == nil || *in.Process {
		msg, res, err = s.pipeline.ProcessNewMessage(req.Context(), in.NewMessage, pipeline.Options{Replies: true, Refine: in.Refine})
	} else {
		msg, err = s.pipeline.Ingest(req.Context(), in.NewMessage)
	}
	if err != nil {
		if pipeline.IsInvalidMessage(err) {
			failureResponse(w, http.StatusBadRequest, err.Error())
			return
		}
		errorResponse(w, err)
		return
	}
	api.RespondWithJSON(http.StatusCreated, w, createMessageResponse{Message: msg, Analysis: res})
}

func (s *Server) processBatch(w http.ResponseWriter, req *http.Request) {
	limit, err := param.ReadInt(req, "limit", pipeline.DefaultBatchLimit, maxListLimit)
	if err != nil {
		failureResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	processed, err := s.pipeline.ProcessBatch(req.Context(), limit)
	if err != nil {
		errorResponse(w, err)
		return
	}
	api.RespondWithJSON(http.StatusOK, w, map[string]interface{}{"processed": processed})
}

func (s *Server) processMessage(w http.ResponseWriter, req *http.Request) {
	id, err := strconv.ParseUint(mux.Vars(req)["id"], 10, 64)
	if err != nil {
		failureResponse(w, http.StatusBadRequest, "Invalid message ID")
		return
	}
	res := s.pipeline.ProcessMessage(req.Context(), uint(id), pipeline.Options{
		Force:   param.ReadBool(req, "force"),
		Replies: true,
		Refine:  param.ReadBool(req, "refine"),
	})
	status := http.StatusOK
	if !res.OK() {
		status = http.StatusInternalServerError
	}
	api.RespondWithJSON(status, w, res)
}

type similarRequest struct {
	Message string `json:"message"`
	Limit   int    `json:"limit"`
}

func (s *Server) similarMessages(w http.ResponseWriter, req *http.Request) {
	var in similarRequest
	if err := json.NewDecoder(req.Body).Decode(&in); err != nil {
		failureResponse(w, http.StatusBadRequest, "Invalid JSON: "+err.Error())
		return
	}
	if in.Limit < 0 || in.Limit > maxListLimit {
		failureResponse(w, http.StatusBadRequest, "limit is out of range")
		return
	}
	similar, err := s.reports.FindSimilarMessages(req.Context(), in.Message, in.Limit)
	if err != nil {
		errorResponse(w, err)
		return
	}
	api.RespondWithJSON(http.StatusOK, w, map[string]interface{}{
		"query":            in.Message,
		"similar_messages": similar,
	})
}

type replyRequest struct {
	Message string `json:"message"`
}

type replyResponse struct {
	Suggestions     []analysis.Reply `json:"suggestions"`
	ShouldAutoReply bool             `json:"should_auto_reply"`
	AutoReply       *analysis.Reply  `json:"auto_response,omitempty"`
}

func (s *Server) readReplyRequest(w http.ResponseWriter, req *http.Request) (string, bool) {
	var in replyRequest
	if err := json.NewDecoder(req.Body).Decode(&in); err != nil {
		failureResponse(w, http.StatusBadRequest, "Invalid JSON: "+err.Error())
		return "", false
	}
	if strings.TrimSpace(in.Message) == "" {
		failureResponse(w, http.StatusBadRequest, "message is required")
		return "", false
	}
	return in.Message, true
}

func (s *Server) suggestReplies(w http.ResponseWriter, req *http.Request) {
	message, ok := s.readReplyRequest(w, req)
	if !ok {
		return
	}
	suggestions, auto := s.pipeline.Replies(req.Context(), message, false)
	api.RespondWithJSON(http.StatusOK, w, replyResponse{
		Suggestions:     suggestions,
		ShouldAutoReply: auto != nil,
		AutoReply:       auto,
	})
}

// autoReply is like suggestReplies but polishes the chosen reply with the
// text-generation service.
func (s *Server) autoReply(w http.ResponseWriter, req *http.Request) {
	message, ok := s.readReplyRequest(w, req)
	if !ok {
		return
	}
	suggestions, auto := s.pipeline.Replies(req.Context(), message, true)
	api.RespondWithJSON(http.StatusOK, w, replyResponse{
		Suggestions:     suggestions,
		ShouldAutoReply: auto != nil,
		AutoReply:       auto,
	})
}
