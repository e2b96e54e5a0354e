package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/driftwatch/driftwatch/internal/domain"
	"github.com/driftwatch/driftwatch/internal/storage"
	"github.com/driftwatch/driftwatch/internal/trainer"
)

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleIngest accepts one interaction, feeds it through every analyzer and
// returns the quality metrics scored for it.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var in domain.Interaction
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid interaction payload: "+err.Error())
		return
	}
	if in.Output == "" && in.Error == "" {
		writeError(w, http.StatusBadRequest, "interaction requires output or error")
		return
	}
	if in.Timestamp.IsZero() {
		in.Timestamp = time.Now()
	}

	quality := s.trainer.ProcessInteraction(r.Context(), in)
	writeJSON(w, http.StatusAccepted, map[string]any{"quality": quality})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.trainer.Status())
}

// handleSummary aggregates every component's summary into one document.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"bias":        s.trainer.Bias.Summary(time.Hour),
		"behavior":    s.trainer.Autocorr.PatternSummary(),
		"patterns":    s.trainer.Pattern.Summary(),
		"performance": s.trainer.Perf.Summary(),
		"trends":      s.trainer.Perf.Trends(),
	})
}

// handleAlerts returns alerts at or above the requested level (default
// warning).
func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	level := domain.AlertLevel(r.URL.Query().Get("level"))
	if level == "" {
		level = domain.AlertWarning
	}
	valid := false
	for _, l := range domain.AlertLevels {
		if l == level {
			valid = true
			break
		}
	}
	if !valid {
		writeError(w, http.StatusBadRequest, "unknown alert level: "+string(level))
		return
	}
	alerts := s.trainer.Perf.Alerts(level)
	if alerts == nil {
		alerts = []domain.Alert{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"alerts": alerts})
}

func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	recs := s.trainer.Pattern.GetRecommendations()
	if recs == nil {
		recs = []domain.Recommendation{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"recommendations": recs})
}

// handlePatterns returns the tracked behavioral patterns from both the
// metric-level mapper and the higher-level analyzer, strongest first.
func (s *Server) handlePatterns(w http.ResponseWriter, r *http.Request) {
	behavioral := s.trainer.Autocorr.Patterns()
	if behavioral == nil {
		behavioral = []domain.PatternSignature{}
	}
	analyzed := s.trainer.Pattern.Patterns()
	if analyzed == nil {
		analyzed = []domain.PatternSignature{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"behavioral": behavioral,
		"analyzed":   analyzed,
	})
}

// handleCorrelations recomputes and returns the significant lag
// autocorrelations of every tracked metric series.
func (s *Server) handleCorrelations(w http.ResponseWriter, r *http.Request) {
	corrs := s.trainer.Autocorr.MapAutocorrelations()
	if corrs == nil {
		corrs = []domain.LagCorrelation{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"correlations": corrs})
}

func (s *Server) handleAdaptations(w http.ResponseWriter, r *http.Request) {
	history := s.trainer.AdaptationHistory()
	if history == nil {
		history = []domain.AdaptationAction{}
	}
	// Parameters ride along so the host layer can poll one endpoint for the
	// values it should generate with.
	writeJSON(w, http.StatusOK, map[string]any{
		"adaptations": history,
		"parameters":  s.trainer.Parameters(),
	})
}

// handleAdapt applies one caller-supplied adaptation action after validation.
func (s *Server) handleAdapt(w http.ResponseWriter, r *http.Request) {
	var action domain.AdaptationAction
	if err := json.NewDecoder(r.Body).Decode(&action); err != nil {
		writeError(w, http.StatusBadRequest, "invalid action payload: "+err.Error())
		return
	}
	if action.Kind == "" {
		writeError(w, http.StatusBadRequest, "action kind is required")
		return
	}
	applied, err := s.trainer.ManualAdapt(action)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"applied": applied})
}

func (s *Server) handleRollback(w http.ResponseWriter, r *http.Request) {
	if err := s.trainer.Rollback(); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"parameters": s.trainer.Parameters()})
}

// handleCycle runs one training cycle on demand.
func (s *Server) handleCycle(w http.ResponseWriter, r *http.Request) {
	result, err := s.trainer.RunTrainingCycle(r.Context())
	if err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleStateSave(w http.ResponseWriter, r *http.Request) {
	doc, err := json.Marshal(s.trainer.Export())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "serializing state: "+err.Error())
		return
	}
	if err := s.store.Save(r.Context(), doc); err != nil {
		writeError(w, http.StatusInternalServerError, "saving state: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"saved_bytes": len(doc)})
}

func (s *Server) handleStateLoad(w http.ResponseWriter, r *http.Request) {
	doc, err := s.store.Load(r.Context())
	if errors.Is(err, storage.ErrNoSnapshot) {
		writeError(w, http.StatusNotFound, "no snapshot stored")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "loading state: "+err.Error())
		return
	}
	var snapshot trainer.Snapshot
	if err := json.Unmarshal(doc, &snapshot); err != nil {
		writeError(w, http.StatusInternalServerError, "decoding snapshot: "+err.Error())
		return
	}
	s.trainer.Import(snapshot)
	writeJSON(w, http.StatusOK, map[string]any{"restored_from": snapshot.SavedAt})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
