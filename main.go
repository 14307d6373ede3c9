package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/signalnine/vadtune/cmd"
	"github.com/signalnine/vadtune/internal/simulator"
)

// Exit codes for different failure modes
const (
	ExitSuccess         = 0 // Run finished
	ExitSimulationError = 1 // The simulator reported an error
	ExitError           = 2 // Configuration, plan or backend error
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := cmd.NewRootCmd().ExecuteContext(ctx)
	stop()
	os.Exit(exitCode(err))
}

func exitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	fmt.Fprintln(os.Stderr, err)
	var simErr *simulator.SimulationError
	if errors.As(err, &simErr) {
		return ExitSimulationError
	}
	return ExitError
}
