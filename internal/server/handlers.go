package server

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/penwyp/go-timeline-chat/internal/analyzer"
	"github.com/penwyp/go-timeline-chat/internal/chat"
	"github.com/penwyp/go-timeline-chat/internal/core/model"
	"github.com/penwyp/go-timeline-chat/internal/presentation/formatter"
	"github.com/penwyp/go-timeline-chat/internal/presentation/mapview"
	"github.com/penwyp/go-timeline-chat/internal/util"
)

const maxChatBody = 64 << 10

type chatRequest struct {
	ConversationID string `json:"conversation_id"`
	Question       string `json:"question"`
}

func (s *Server) getHealth(w http.ResponseWriter, r *http.Request) {
	ds := s.current()
	resp := map[string]any{"status": "ok"}
	if ds != nil {
		resp["fingerprint"] = ds.Fingerprint
		resp["loaded_at"] = ds.LoadedAt
		resp["visits"] = len(ds.Visits)
		resp["journeys"] = len(ds.Journeys)
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) getVisits(w http.ResponseWriter, r *http.Request) {
	s.serveTable(w, r, func(ds *analyzer.Dataset, years []int) model.Table {
		return ds.Visits.FilterYears(years).Table()
	})
}

func (s *Server) getJourneys(w http.ResponseWriter, r *http.Request) {
	s.serveTable(w, r, func(ds *analyzer.Dataset, years []int) model.Table {
		return ds.Journeys.FilterYears(years).Table()
	})
}

func (s *Server) serveTable(w http.ResponseWriter, r *http.Request, pick func(*analyzer.Dataset, []int) model.Table) {
	ds, ok := s.dataFor(w, r)
	if !ok {
		return
	}
	years, err := parseYears(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	limit, err := parseLimit(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	table := pick(ds, years)
	if limit > 0 && len(table.Rows) > limit {
		table.Rows = table.Rows[:limit]
	}

	var buf bytes.Buffer
	if err := formatter.WriteRows(&buf, table); err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func (s *Server) getYears(w http.ResponseWriter, r *http.Request) {
	ds, ok := s.dataFor(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, map[string][]int{
		"years":         ds.Years(),
		"visit_years":   ds.Visits.Years(),
		"journey_years": ds.Journeys.Years(),
	})
}

// getMap returns visit locations as GeoJSON. Without a year filter every year is included.
func (s *Server) getMap(w http.ResponseWriter, r *http.Request) {
	ds, ok := s.dataFor(w, r)
	if !ok {
		return
	}
	years, err := parseYears(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if len(years) == 0 {
		years = ds.Visits.Years()
	}

	data, err := mapview.GeoJSON(mapview.Points(ds.Visits, years))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (s *Server) getSummary(w http.ResponseWriter, r *http.Request) {
	ds, ok := s.dataFor(w, r)
	if !ok {
		return
	}
	summary := formatter.Summarize(&formatter.Input{
		Visits:   ds.Visits,
		Journeys: ds.Journeys,
		Report:   &ds.Report,
		Files:    len(ds.Files),
	})
	s.writeJSON(w, http.StatusOK, summary)
}

func (s *Server) postChat(w http.ResponseWriter, r *http.Request) {
	if s.asker == nil {
		s.writeError(w, http.StatusServiceUnavailable, errors.New("chat is not configured"))
		return
	}

	var req chatRequest
	body := http.MaxBytesReader(w, r.Body, maxChatBody)
	if err := sonic.ConfigDefault.NewDecoder(body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	answer, err := s.asker.Ask(r.Context(), req.ConversationID, req.Question)
	switch {
	case err == nil:
		s.writeJSON(w, http.StatusOK, answer)
	case errors.Is(err, chat.ErrEmptyQuestion):
		s.writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, chat.ErrUnknownConversation):
		s.writeError(w, http.StatusNotFound, err)
	case errors.Is(err, chat.ErrNoAnswer):
		s.writeError(w, http.StatusUnprocessableEntity, err)
	default:
		s.logger.Error("Chat failed", util.Err(err))
		s.writeError(w, http.StatusBadGateway, err)
	}
}

// dataFor returns the current dataset, or answers the request itself when there is
// none or the client already holds this version.
func (s *Server) dataFor(w http.ResponseWriter, r *http.Request) (*analyzer.Dataset, bool) {
	ds := s.current()
	if ds == nil {
		s.writeError(w, http.StatusServiceUnavailable, errors.New("no dataset loaded"))
		return nil, false
	}

	etag := `"` + ds.Fingerprint + `"`
	w.Header().Set("ETag", etag)
	if match := r.Header.Get("If-None-Match"); match != "" && match == etag {
		w.WriteHeader(http.StatusNotModified)
		return nil, false
	}
	return ds, true
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := sonic.Marshal(v)
	if err != nil {
		s.logger.Error("Failed to encode response", util.Err(err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

// parseYears reads repeated or comma separated year parameters
func parseYears(r *http.Request) ([]int, error) {
	var years []int
	for _, v := range r.URL.Query()["year"] {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			y, err := strconv.Atoi(part)
			if err != nil {
				return nil, fmt.Errorf("invalid year %q", part)
			}
			years = append(years, y)
		}
	}
	return years, nil
}

func parseLimit(r *http.Request) (int, error) {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid limit %q", v)
	}
	return n, nil
}
