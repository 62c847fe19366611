package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/rustyeddy/tradelog/assistant"
	"github.com/rustyeddy/tradelog/journal"
	"github.com/rustyeddy/tradelog/logger"
	"github.com/rustyeddy/tradelog/stats"
	"github.com/rustyeddy/tradelog/tracker"
)

var errBadRequest = errors.New("bad request")

func sendJSONError(w http.ResponseWriter, message string, statusCode int) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid JSON body: %v", errBadRequest, err)
	}
	return nil
}

// fail maps an error to a status code and writes it.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context())
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, journal.ErrInvalidTradeInput),
		errors.Is(err, journal.ErrInvalidSession),
		errors.Is(err, assistant.ErrEmptyMessage):
		log.Debug("rejected request", "error", err)
		sendJSONError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, journal.ErrNotFound):
		sendJSONError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, assistant.ErrChatBackend):
		log.Error("chat backend error", "error", err)
		sendJSONError(w, s.assistant.FailureMessage(), http.StatusBadGateway)
	default:
		log.Error("request failed", "path", r.URL.Path, "error", err)
		sendJSONError(w, "internal server error", http.StatusInternalServerError)
	}
}

func (s *Server) handleGreeting(w http.ResponseWriter, r *http.Request) {
	now := s.now().In(s.tracker.Location())
	writeJSON(w, http.StatusOK, map[string]string{
		"greeting": assistant.Greeting(now, r.URL.Query().Get("name")),
		"persona":  s.assistant.Persona(),
	})
}

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.assistant.Quote(r.Context()))
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.tracker.ListSessions(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var in journal.SessionInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	sess, err := s.tracker.CreateSession(r.Context(), userIDFrom(r.Context()), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	sess, err := s.tracker.Import(r.Context(), userIDFrom(r.Context()), r.Body)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.tracker.GetSession(r.Context(), userIDFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.tracker.DeleteSession(r.Context(), userIDFrom(r.Context()), chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListTrades(w http.ResponseWriter, r *http.Request) {
	trades, err := s.tracker.ListTrades(r.Context(), userIDFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, trades)
}

func (s *Server) handleAddTrade(w http.ResponseWriter, r *http.Request) {
	var in journal.TradeInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	tr, err := s.tracker.AddTrade(r.Context(), userIDFrom(r.Context()), chi.URLParam(r, "id"), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, tr)
}

func (s *Server) handleDeleteTrade(w http.ResponseWriter, r *http.Request) {
	if err := s.tracker.DeleteTrade(r.Context(), userIDFrom(r.Context()), chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type statsResponse struct {
	Stats     stats.SessionStats `json:"stats"`
	Formatted stats.Formatted    `json:"formatted"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.tracker.Stats(r.Context(), userIDFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, statsResponse{Stats: st, Formatted: st.Format()})
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := s.tracker.Dashboard(r.Context(), userIDFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format, err := tracker.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		s.fail(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}

	var buf bytes.Buffer
	name, err := s.tracker.Export(r.Context(), userIDFrom(r.Context()), chi.URLParam(r, "id"), format, &buf)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", "attachment; filename="+strconv.Quote(name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

type chatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	userID := userIDFrom(r.Context())
	if !s.busy.acquire(userID) {
		sendJSONError(w, "a chat request is already in progress", http.StatusTooManyRequests)
		return
	}
	defer s.busy.release(userID)

	reply, err := s.assistant.HandleMessage(r.Context(), req.Message, userID, req.SessionID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r.Context())
	if !s.busy.acquire(userID) {
		sendJSONError(w, "a chat request is already in progress", http.StatusTooManyRequests)
		return
	}
	defer s.busy.release(userID)

	summary, err := s.assistant.Summarize(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"summary": summary})
}
