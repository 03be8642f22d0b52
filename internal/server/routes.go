package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jamesgiroux/daily-operating-system-sub001/internal/engine"
	"github.com/jamesgiroux/daily-operating-system-sub001/internal/store"
)

func (s *Server) handleEmitSignal(w http.ResponseWriter, r *http.Request) {
	var req struct {
		EntityType    string  `json:"entity_type"`
		EntityID      string  `json:"entity_id"`
		SignalType    string  `json:"signal_type"`
		Source        string  `json:"source"`
		Value         string  `json:"value"`
		Confidence    float64 `json:"confidence"`
		SourceContext string  `json:"source_context"`
		Propagate     bool    `json:"propagate"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid json"}`, http.StatusBadRequest)
		return
	}
	if req.EntityType == "" || req.EntityID == "" || req.SignalType == "" {
		http.Error(w, `{"error":"entity_type, entity_id and signal_type required"}`, http.StatusBadRequest)
		return
	}

	var (
		id      string
		derived []string
		err     error
	)
	if req.Propagate {
		id, derived, err = s.engine.EmitAndPropagate(req.EntityType, req.EntityID,
			req.SignalType, req.Source, req.Value, req.Confidence, req.SourceContext)
	} else {
		id, err = s.engine.EmitSignalWithContext(req.EntityType, req.EntityID,
			req.SignalType, req.Source, req.Value, req.Confidence, req.SourceContext)
	}
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, store.ErrBadConfidence) || errors.Is(err, store.ErrEmptySource) {
			status = http.StatusBadRequest
		}
		http.Error(w, `{"error":"`+err.Error()+`"}`, status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{
		"signal_id":   id,
		"derived_ids": derived,
	})
}

func (s *Server) handleSupersede(w http.ResponseWriter, r *http.Request) {
	oldID := chi.URLParam(r, "signalID")

	var req struct {
		NewSignalID string `json:"new_signal_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid json"}`, http.StatusBadRequest)
		return
	}
	if req.NewSignalID == "" {
		http.Error(w, `{"error":"new_signal_id required"}`, http.StatusBadRequest)
		return
	}

	if err := s.engine.Supersede(oldID, req.NewSignalID); err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "superseded"})
}

func (s *Server) handleActiveSignals(w http.ResponseWriter, r *http.Request) {
	entityType := chi.URLParam(r, "entityType")
	entityID := chi.URLParam(r, "entityID")
	signalType := r.URL.Query().Get("type")

	var (
		signals []store.SignalEvent
		err     error
	)
	if signalType != "" {
		signals, err = s.db.ActiveSignalsByType(entityType, entityID, signalType)
	} else {
		signals, err = s.db.ActiveSignals(entityType, entityID)
	}
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}

	type signalJSON struct {
		ID            string  `json:"id"`
		SignalType    string  `json:"signal_type"`
		Source        string  `json:"source"`
		Value         string  `json:"value,omitempty"`
		Confidence    float64 `json:"confidence"`
		Effective     float64 `json:"effective_confidence"`
		SourceContext string  `json:"source_context,omitempty"`
		CreatedAt     int64   `json:"created_at"`
	}

	now := time.Now()
	out := make([]signalJSON, len(signals))
	for i, sig := range signals {
		out[i] = signalJSON{
			ID:            sig.ID,
			SignalType:    sig.SignalType,
			Source:        sig.Source,
			Value:         sig.Value,
			Confidence:    sig.Confidence,
			Effective:     engine.SignalWeight(sig, now),
			SourceContext: sig.SourceContext,
			CreatedAt:     sig.CreatedAt,
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"entity_type": entityType,
		"entity_id":   entityID,
		"count":       len(out),
		"signals":     out,
	})
}

func (s *Server) handleGenerateCallouts(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MeetingTitles []string `json:"meeting_titles"`
	}
	// Empty body is fine — reranking is optional.
	json.NewDecoder(r.Body).Decode(&req)

	opts := s.callouts
	opts.MeetingTitles = req.MeetingTitles
	callouts, err := s.engine.GenerateCallouts(r.Context(), opts)
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"count":    len(callouts),
		"callouts": calloutsJSON(callouts),
	})
}

func (s *Server) handleListCallouts(w http.ResponseWriter, r *http.Request) {
	window := s.callouts.Window
	if window <= 0 {
		window = 24 * time.Hour
	}
	since := time.Now().Add(-window).UnixMilli()
	callouts, err := s.db.RecentCallouts(since)
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"count":    len(callouts),
		"callouts": calloutsJSON(callouts),
	})
}

func (s *Server) handleRunBridge(w http.ResponseWriter, r *http.Request) {
	emitted, err := s.engine.RunEmailMeetingBridge()
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"emitted": emitted})
}

func (s *Server) handleEmailFanout(w http.ResponseWriter, r *http.Request) {
	emitted, err := s.engine.EmitEnrichedEmailSignals()
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"emitted": emitted})
}

type calloutJSON struct {
	ID         string  `json:"id"`
	SignalID   string  `json:"signal_id"`
	Severity   string  `json:"severity"`
	Headline   string  `json:"headline"`
	Detail     string  `json:"detail,omitempty"`
	EntityType string  `json:"entity_type"`
	EntityID   string  `json:"entity_id"`
	EntityName string  `json:"entity_name,omitempty"`
	Relevance  float64 `json:"relevance"`
}

func calloutsJSON(callouts []store.Callout) []calloutJSON {
	out := make([]calloutJSON, len(callouts))
	for i, c := range callouts {
		out[i] = calloutJSON{
			ID:         c.ID,
			SignalID:   c.SignalID,
			Severity:   c.Severity,
			Headline:   c.Headline,
			Detail:     c.Detail,
			EntityType: c.EntityType,
			EntityID:   c.EntityID,
			EntityName: c.EntityName,
			Relevance:  c.Relevance,
		}
	}
	return out
}
