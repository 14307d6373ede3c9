package main

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/signalnine/vadtune/internal/simulator"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"success", nil, ExitSuccess},
		{"simulation error", &simulator.SimulationError{Message: "boom"}, ExitSimulationError},
		{"wrapped simulation error", fmt.Errorf("objective: %w", &simulator.SimulationError{}), ExitSimulationError},
		{"other error", errors.New("plan: parse error"), ExitError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}
