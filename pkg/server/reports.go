package server

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/chatlens/chatlens/pkg/ai"
	"github.com/chatlens/chatlens/pkg/api"
	apitype "github.com/chatlens/chatlens/pkg/apis/api"
	"github.com/chatlens/chatlens/pkg/apis/cache"
	"github.com/chatlens/chatlens/pkg/db/query"
	"github.com/chatlens/chatlens/pkg/util/param"
)

const maxListLimit = 500

// respondWithWidget writes a dashboard widget. Partial failures are reported
// inside the widget, so the status is always 200.
func respondWithWidget[T any](w http.ResponseWriter, data T, errs []error) {
	api.RespondWithJSON(http.StatusOK, w, apitype.NewWidget(data, errs))
}

// errorResponse maps a domain error onto an HTTP failure.
func errorResponse(w http.ResponseWriter, err error) {
	if u, ok := ai.AsUnavailable(err); ok {
		failureResponse(w, http.StatusServiceUnavailable, u.Error())
		return
	}
	switch {
	case errors.Is(err, query.ErrNotFound):
		failureResponse(w, http.StatusNotFound, err.Error())
	case errors.Is(err, api.ErrEmptyQuery):
		failureResponse(w, http.StatusBadRequest, err.Error())
	default:
		log.WithError(err).Error("request failed")
		failureResponse(w, http.StatusInternalServerError, err.Error())
	}
}

func requestOptions(req *http.Request) cache.RequestOptions {
	return cache.RequestOptions{ForceRefresh: param.ReadBool(req, "forceRefresh")}
}

func dateRange(w http.ResponseWriter, req *http.Request) (apitype.DateRange, bool) {
	rng, err := param.ReadDateRange(req)
	if err != nil {
		failureResponse(w, http.StatusBadRequest, err.Error())
		return rng, false
	}
	return rng, true
}

func (s *Server) jsonOverview(w http.ResponseWriter, req *http.Request) {
	rng, ok := dateRange(w, req)
	if !ok {
		return
	}
	overview, errs := s.reports.Overview(req.Context(), rng)
	respondWithWidget(w, overview, errs)
}

func (s *Server) jsonDailyCounts(w http.ResponseWriter, req *http.Request) {
	rng, ok := dateRange(w, req)
	if !ok {
		return
	}
	counts, errs := s.reports.DailyCounts(req.Context(), rng)
	respondWithWidget(w, counts, errs)
}

func (s *Server) jsonMessageKinds(w http.ResponseWriter, req *http.Request) {
	rng, ok := dateRange(w, req)
	if !ok {
		return
	}
	kinds, errs := s.reports.MessageKinds(req.Context(), rng)
	respondWithWidget(w, kinds, errs)
}

func (s *Server) jsonConversationCounts(w http.ResponseWriter, req *http.Request) {
	counts, errs := s.reports.ConversationCounts(req.Context())
	respondWithWidget(w, counts, errs)
}

func (s *Server) jsonRecentConversations(w http.ResponseWriter, req *http.Request) {
	limit, err := param.ReadInt(req, "limit", api.DefaultRecentLimit, maxListLimit)
	if err != nil {
		failureResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	rows, errs := s.reports.RecentConversations(req.Context(), limit)
	respondWithWidget(w, rows, errs)
}

func (s *Server) jsonConversations(w http.ResponseWriter, req *http.Request) {
	limit, err := param.ReadInt(req, "limit", 0, maxListLimit)
	if err != nil {
		failureResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	day, err := param.ReadDate(req, "date")
	if err != nil {
		failureResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	rows, errs := s.reports.Conversations(req.Context(), query.ConversationFilter{
		UserID: param.SafeRead(req, "user_id"),
		Day:    day,
		Limit:  limit,
	})
	respondWithWidget(w, rows, errs)
}

func (s *Server) jsonConversationSummary(w http.ResponseWriter, req *http.Request) {
	summary, err := s.reports.ConversationSummary(req.Context(), mux.Vars(req)["id"])
	if err != nil {
		errorResponse(w, err)
		return
	}
	api.RespondWithJSON(http.StatusOK, w, summary)
}

func (s *Server) jsonConversationInsights(w http.ResponseWriter, req *http.Request) {
	id := mux.Vars(req)["id"]
	insights, err := s.assistant.ConversationInsights(req.Context(), id)
	if err != nil {
		errorResponse(w, err)
		return
	}
	api.RespondWithJSON(http.StatusOK, w, map[string]interface{}{
		"conversation_id": id,
		"insights":        insights,
	})
}

func (s *Server) jsonSentiment(w http.ResponseWriter, req *http.Request) {
	rng, ok := dateRange(w, req)
	if !ok {
		return
	}
	counts, errs := s.reports.SentimentDistribution(req.Context(), rng, requestOptions(req))
	respondWithWidget(w, counts, errs)
}

func (s *Server) jsonSentimentTrend(w http.ResponseWriter, req *http.Request) {
	rng, ok := dateRange(w, req)
	if !ok {
		return
	}
	trend, errs := s.reports.SentimentTrend(req.Context(), rng, requestOptions(req))
	respondWithWidget(w, trend, errs)
}

func (s *Server) jsonTopics(w http.ResponseWriter, req *http.Request) {
	topics, errs := s.reports.Topics(req.Context())
	respondWithWidget(w, topics, errs)
}

func (s *Server) jsonResponseTimes(w http.ResponseWriter, req *http.Request) {
	rng, ok := dateRange(w, req)
	if !ok {
		return
	}
	report, errs := s.reports.ResponseTimes(req.Context(), rng)
	respondWithWidget(w, report, errs)
}

func (s *Server) jsonSatisfaction(w http.ResponseWriter, req *http.Request) {
	rng, ok := dateRange(w, req)
	if !ok {
		return
	}
	report, errs := s.reports.Satisfaction(req.Context(), rng)
	respondWithWidget(w, report, errs)
}

func (s *Server) jsonInsights(w http.ResponseWriter, req *http.Request) {
	insights, errs := s.reports.Insights(req.Context(), requestOptions(req))
	respondWithWidget(w, insights, errs)
}
