package plan

import (
	"fmt"
	"strings"
)

// VadMachineConfig is one set of VAD tuning parameters. Nil fields are left
// out of the plan so the simulator falls back to the base configuration.
type VadMachineConfig struct {
	SpeechMinFreq         *float64 `json:"speech_min_freq,omitempty"`
	SpeechMaxFreq         *float64 `json:"speech_max_freq,omitempty"`
	LongTermSpeechAvgSec  *float64 `json:"long_term_speech_avg_sec,omitempty"`
	ShortTermSpeechAvgSec *float64 `json:"short_term_speech_avg_sec,omitempty"`
	SpeechThresholdFactor *float64 `json:"speech_threshold_factor,omitempty"`
}

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }

// String renders the set parameters in plan key order.
func (c VadMachineConfig) String() string {
	fields := []struct {
		name string
		v    *float64
	}{
		{"speech_min_freq", c.SpeechMinFreq},
		{"speech_max_freq", c.SpeechMaxFreq},
		{"long_term_speech_avg_sec", c.LongTermSpeechAvgSec},
		{"short_term_speech_avg_sec", c.ShortTermSpeechAvgSec},
		{"speech_threshold_factor", c.SpeechThresholdFactor},
	}
	var parts []string
	for _, f := range fields {
		if f.v != nil {
			parts = append(parts, fmt.Sprintf("%s=%g", f.name, *f.v))
		}
	}
	if len(parts) == 0 {
		return "{}"
	}
	return "{" + strings.Join(parts, " ") + "}"
}
