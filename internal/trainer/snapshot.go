package trainer

import (
	"time"

	"github.com/driftwatch/driftwatch/internal/autocorr"
	"github.com/driftwatch/driftwatch/internal/bias"
	"github.com/driftwatch/driftwatch/internal/domain"
	"github.com/driftwatch/driftwatch/internal/pattern"
	"github.com/driftwatch/driftwatch/internal/perf"
)

// Snapshot is the full persisted state of the subsystem: the trainer's own
// loop state plus every analyzer's snapshot.
type Snapshot struct {
	SavedAt          time.Time                           `json:"saved_at"`
	Mode             domain.TrainingMode                 `json:"mode"`
	Strategy         domain.Strategy                     `json:"strategy"`
	Objectives       map[string]domain.TrainingObjective `json:"objectives"`
	Parameters       map[string]any                      `json:"parameters"`
	History          []domain.AdaptationAction           `json:"adaptation_history"`
	Rollbacks        []domain.RollbackPoint              `json:"rollback_points"`
	InteractionCount int                                 `json:"interaction_count"`

	Bias     bias.Snapshot     `json:"bias"`
	Autocorr autocorr.Snapshot `json:"autocorr"`
	Pattern  pattern.Snapshot  `json:"pattern"`
	Perf     perf.Snapshot     `json:"perf"`
}

// Export captures the subsystem state for persistence.
func (t *Trainer) Export() Snapshot {
	t.mu.Lock()
	s := Snapshot{
		SavedAt:          time.Now(),
		Mode:             t.mode,
		Strategy:         t.strategy,
		Objectives:       make(map[string]domain.TrainingObjective, len(t.objectives)),
		Parameters:       make(map[string]any, len(t.parameters)),
		History:          append([]domain.AdaptationAction(nil), t.history...),
		Rollbacks:        append([]domain.RollbackPoint(nil), t.rollbacks...),
		InteractionCount: t.interactionCount,
	}
	for name, o := range t.objectives {
		cp := *o
		cp.History = append([]float64(nil), o.History...)
		s.Objectives[name] = cp
	}
	for k, v := range t.parameters {
		s.Parameters[k] = v
	}
	t.mu.Unlock()

	s.Bias = t.Bias.Export()
	s.Autocorr = t.Autocorr.Export()
	s.Pattern = t.Pattern.Export()
	s.Perf = t.Perf.Export()
	return s
}

// Import restores a previously exported snapshot across the trainer and all
// analyzers. Unknown objectives in the snapshot are dropped; missing ones
// keep their defaults.
func (t *Trainer) Import(s Snapshot) {
	t.mu.Lock()
	if s.Mode != "" {
		t.mode = s.Mode
	}
	if s.Strategy != "" {
		t.strategy = s.Strategy
	}
	for name, saved := range s.Objectives {
		if o, ok := t.objectives[name]; ok {
			cp := saved
			cp.History = append([]float64(nil), saved.History...)
			if len(cp.History) > objectiveHistoryLimit {
				cp.History = cp.History[len(cp.History)-objectiveHistoryLimit:]
			}
			*o = cp
		}
	}
	if s.Parameters != nil {
		t.parameters = make(map[string]any, len(s.Parameters))
		for k, v := range s.Parameters {
			if f, ok := toFloat(v); ok {
				t.parameters[k] = f
			} else {
				t.parameters[k] = v
			}
		}
	}
	t.history = append([]domain.AdaptationAction(nil), s.History...)
	if len(t.history) > t.cfg.HistoryLimit {
		t.history = t.history[len(t.history)-t.cfg.HistoryLimit:]
	}
	t.rollbacks = append([]domain.RollbackPoint(nil), s.Rollbacks...)
	if len(t.rollbacks) > t.cfg.RollbackDepth {
		t.rollbacks = t.rollbacks[len(t.rollbacks)-t.cfg.RollbackDepth:]
	}
	t.interactionCount = s.InteractionCount
	t.mu.Unlock()

	t.Bias.Import(s.Bias)
	t.Autocorr.Import(s.Autocorr)
	t.Pattern.Import(s.Pattern)
	t.Perf.Import(s.Perf)
	t.logger.Info("state imported", "saved_at", s.SavedAt, "interactions", s.InteractionCount)
}
