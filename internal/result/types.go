package result

import (
	"encoding/json"
	"math"
	"time"
)

// Run statuses.
const (
	StatusCompleted       = "completed"
	StatusSimulationError = "simulation_error"
	StatusFailed          = "failed"
)

// Run kinds.
const (
	KindDebug    = "debug"
	KindOptimize = "optimize"
)

type RunMeta struct {
	Kind           string             `json:"kind"`
	Plan           string             `json:"plan"`
	Backend        string             `json:"backend"`
	StartedAt      time.Time          `json:"started_at"`
	DurationS      float64            `json:"duration_s"`
	Status         string             `json:"status"`
	Error          string             `json:"error,omitempty"`
	SimulatorCalls int                `json:"simulator_calls"`
	Evaluations    int                `json:"evaluations"`
	Generations    int                `json:"generations,omitempty"`
	Termination    string             `json:"termination,omitempty"`
	Scores         []Score            `json:"scores,omitempty"`
	BestParams     map[string]float64 `json:"best_params,omitempty"`
	BestLoss       Score              `json:"best_loss"`
	BestFScore     Score              `json:"best_f_score"`
}

// HistoryEntry is one optimizer generation as stored in history.json.
type HistoryEntry struct {
	Generation  int       `json:"generation"`
	Evaluations int       `json:"evaluations"`
	MeanLoss    Score     `json:"mean_loss"`
	BestLoss    Score     `json:"best_loss"`
	Best        []float64 `json:"best"`
}

// Score is a float that may be NaN. NaN and the infinities are stored as
// null, and null reads back as NaN.
type Score float64

func NaN() Score { return Score(math.NaN()) }

func (s Score) IsNaN() bool { return math.IsNaN(float64(s)) }

func (s Score) MarshalJSON() ([]byte, error) {
	f := float64(s)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(f)
}

func (s *Score) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*s = NaN()
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*s = Score(f)
	return nil
}

// BestOf returns the highest non-NaN score, or NaN if there is none.
func BestOf(scores []Score) Score {
	best := NaN()
	for _, s := range scores {
		if s.IsNaN() {
			continue
		}
		if best.IsNaN() || s > best {
			best = s
		}
	}
	return best
}
