// Package mock provides a scripted simulator backend for tests.
//
// Use Responses for fixed outputs, or Respond to compute the output from the
// submitted plan:
//
//	be := &mock.Backend{Responses: [][]byte{mock.Scores(0.5, 0.8, 0.2)}}
//	client := simulator.NewClient(be, nil)
package mock

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/tidwall/gjson"

	"github.com/signalnine/vadtune/internal/plan"
	"github.com/signalnine/vadtune/internal/simulator"
)

var _ simulator.Backend = (*Backend)(nil)

// Call records one invocation of Backend.Execute.
type Call struct {
	Plan     []byte
	BasePath string
}

// AltConfigs decodes the alternate configs submitted with the call.
func (c Call) AltConfigs() []plan.VadMachineConfig {
	var cfgs []plan.VadMachineConfig
	raw := gjson.GetBytes(c.Plan, plan.AltConfigsPath).Raw
	if raw != "" {
		_ = json.Unmarshal([]byte(raw), &cfgs)
	}
	return cfgs
}

// Backend is a mock implementation of simulator.Backend.
type Backend struct {
	mu sync.Mutex

	// Respond, if set, computes the raw result for every call.
	Respond func(plan []byte, basePath string) ([]byte, error)

	// Responses are returned in order when Respond is nil; the last one repeats.
	Responses [][]byte

	// Err, if non-nil, is returned from every call.
	Err error

	// Calls records every call to Execute in order.
	Calls []Call

	Closed bool
}

// Execute records the call and returns the scripted response.
func (b *Backend) Execute(_ context.Context, planJSON []byte, basePath string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Calls = append(b.Calls, Call{Plan: append([]byte(nil), planJSON...), BasePath: basePath})
	if b.Err != nil {
		return nil, b.Err
	}
	if b.Respond != nil {
		return b.Respond(planJSON, basePath)
	}
	if len(b.Responses) == 0 {
		return nil, fmt.Errorf("mock: no response scripted")
	}
	idx := len(b.Calls) - 1
	if idx >= len(b.Responses) {
		idx = len(b.Responses) - 1
	}
	return b.Responses[idx], nil
}

// Close marks the backend closed.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Closed = true
	return nil
}

// CallCount returns the number of Execute calls. Thread-safe.
func (b *Backend) CallCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.Calls)
}

// Scores renders a successful result with one f_score per value.
func Scores(scores ...float64) []byte {
	parts := make([]string, len(scores))
	for i, s := range scores {
		parts[i] = `{"f_score":` + strconv.FormatFloat(s, 'g', -1, 64) + `}`
	}
	return []byte(`{"alt":[` + strings.Join(parts, ",") + `]}`)
}

// Failure renders a result carrying an error message.
func Failure(msg string) []byte {
	data, _ := json.Marshal(map[string]string{"error": msg})
	return data
}

// ScoreFunc returns a Respond function scoring every submitted config with fn.
func ScoreFunc(fn func(cfg plan.VadMachineConfig) float64) func([]byte, string) ([]byte, error) {
	return func(planJSON []byte, _ string) ([]byte, error) {
		cfgs := Call{Plan: planJSON}.AltConfigs()
		scores := make([]float64, len(cfgs))
		for i, c := range cfgs {
			scores[i] = fn(c)
		}
		return Scores(scores...), nil
	}
}
