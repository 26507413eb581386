package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sandevgo/cupido/internal/core"
)

type appendTurnRequest struct {
	Role      string   `json:"role"`
	Content   string   `json:"content"`
	ImageRefs []string `json:"image_refs,omitempty"`
}

type turnsResponse struct {
	Turns []core.Turn `json:"turns"`
}

type replaceSummaryRequest struct {
	SummaryText       string `json:"summary_text"`
	SummaryTokenCount int    `json:"summary_token_count"`
	TotalMessages     int64  `json:"total_messages"`
	TotalTokens       int64  `json:"total_tokens"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": core.CupidoName,
		"version": core.CupidoVersion,
	})
}

func (s *Server) appendTurn(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "conversationID")

	var req appendTurnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	turn, err := s.mem.PrepareTurn(conversationID, req.Role, req.Content, req.ImageRefs)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if s.box != nil {
		if err := s.box.Enqueue(r.Context(), turn); err != nil {
			writeError(w, http.StatusServiceUnavailable, "append queue unavailable")
			return
		}
		writeJSON(w, http.StatusAccepted, turn)
		return
	}

	stored, err := s.mem.AppendPrepared(r.Context(), turn)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to persist turn")
		return
	}
	writeJSON(w, http.StatusCreated, stored)
}

func (s *Server) recentTurns(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "conversationID")

	limit, err := queryInt(r, "limit", s.appCfg.MaxRecentTurns)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var before *time.Time
	if raw := r.URL.Query().Get("before"); raw != "" {
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "before must be an RFC3339 timestamp")
			return
		}
		before = &t
	}

	turns := s.mem.RecentTurns(r.Context(), conversationID, limit, before)
	writeJSON(w, http.StatusOK, turnsResponse{Turns: turns})
}

func (s *Server) getSummary(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "conversationID")

	summary := s.mem.Summary(r.Context(), conversationID)
	if summary == nil {
		writeError(w, http.StatusNotFound, "no summary for conversation")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) replaceSummary(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "conversationID")

	var req replaceSummaryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	err := s.mem.ReplaceSummary(r.Context(), conversationID,
		req.SummaryText, req.SummaryTokenCount, req.TotalMessages, req.TotalTokens)
	if err != nil {
		if errors.Is(err, core.ErrNoConversation) || errors.Is(err, core.ErrNegativeTokens) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to replace summary")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) assembleContext(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "conversationID")

	maxTurns, err := queryInt(r, "max_turns", s.appCfg.MaxRecentTurns)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	budget, err := queryInt(r, "budget", s.appCfg.TokenBudget)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	assembly := s.mem.AssembleContext(r.Context(), conversationID, maxTurns, budget)
	writeJSON(w, http.StatusOK, assembly)
}

func queryInt(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer", name)
	}
	return v, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
