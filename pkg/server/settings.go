package server

import (
	"encoding/json"
	"errors"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/chatlens/chatlens/pkg/api"
	"github.com/chatlens/chatlens/pkg/auth"
	"github.com/chatlens/chatlens/pkg/settings"
)

func (s *Server) getSettings(w http.ResponseWriter, req *http.Request) {
	current, err := s.settings.Load(req.Context())
	if err != nil {
		errorResponse(w, err)
		return
	}
	api.RespondWithJSON(http.StatusOK, w, current.Public())
}

func (s *Server) updateSettings(w http.ResponseWriter, req *http.Request) {
	values := map[string]interface{}{}
	if err := json.NewDecoder(req.Body).Decode(&values); err != nil {
		failureResponse(w, http.StatusBadRequest, "Invalid JSON: "+err.Error())
		return
	}
	if len(values) == 0 {
		failureResponse(w, http.StatusBadRequest, "no settings given")
		return
	}

	updated, err := s.settings.Update(req.Context(), values)
	var invalid *settings.ValidationError
	if errors.As(err, &invalid) {
		failureResponse(w, http.StatusBadRequest, invalid.Error())
		return
	}
	if err != nil {
		errorResponse(w, err)
		return
	}

	session, _ := auth.FromContext(req.Context())
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	log.WithFields(log.Fields{"user": session.Username, "keys": keys}).Info("settings updated")
	api.RespondWithJSON(http.StatusOK, w, updated.Public())
}
