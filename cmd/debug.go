package cmd

import (
	"github.com/spf13/cobra"

	"github.com/signalnine/vadtune/internal/runner"
)

func newDebugCmd() *cobra.Command {
	var (
		planPath string
		maxFreqs []float64
		noPID    bool
		record   bool
	)
	cmd := &cobra.Command{
		Use:   "debug",
		Short: "Run a plan once with fixed alternate configs and print the f-scores",
		Long: "Load the debug plan, inject one alternate config per --max-freq value " +
			"(1000, 1500 and 2000 by default), run the simulator once and print the f-scores. " +
			"The process id is printed first so a debugger can attach. Exits 1 if the simulator reports an error.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if planPath == "" {
				planPath = cfg.Plans.Debug
			}
			sim, err := openSimulator(cfg, logger)
			if err != nil {
				return err
			}
			defer sim.Close()

			var resultsDir string
			if record || cfg.Results.Record {
				resultsDir = cfg.Results.Dir
			}
			_, err = runner.RunDebug(cmd.Context(), &runner.DebugOpts{
				PlanPath:   planPath,
				Simulator:  sim,
				Backend:    cfg.Simulator.Backend,
				MaxFreqs:   maxFreqs,
				PrintPID:   !noPID,
				Out:        cmd.OutOrStdout(),
				Logger:     logger,
				ResultsDir: resultsDir,
			})
			return err
		},
	}
	cmd.Flags().StringVar(&planPath, "plan", "", "plan file (default plans.debug from config)")
	cmd.Flags().Float64SliceVar(&maxFreqs, "max-freq", nil, "speech_max_freq of an alternate config (repeatable)")
	cmd.Flags().BoolVar(&noPID, "no-pid", false, "do not print the process id")
	cmd.Flags().BoolVar(&record, "record", false, "write the run to the results directory")
	return cmd
}
