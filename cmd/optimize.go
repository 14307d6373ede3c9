package cmd

import (
	"github.com/spf13/cobra"

	"github.com/signalnine/vadtune/internal/runner"
)

func newOptimizeCmd() *cobra.Command {
	var (
		planPath       string
		popSize        int
		seed           int64
		maxGenerations int
		quiet          bool
		record         bool
	)
	cmd := &cobra.Command{
		Use:   "optimize",
		Short: "Search the VAD parameters for the best f-score",
		Long: "Run a genetic search over speech_min_freq, speech_max_freq, long_term_speech_avg_sec, " +
			"short_term_speech_avg_sec and speech_threshold_factor. Every generation is scored " +
			"with a single simulator call.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if planPath == "" {
				planPath = cfg.Plans.Optimize
			}
			opts := cfg.Optimizer.Options()
			if cmd.Flags().Changed("pop-size") {
				opts.PopSize = popSize
			}
			if cmd.Flags().Changed("seed") {
				opts.Seed = seed
			}
			if cmd.Flags().Changed("max-generations") {
				opts.MaxGenerations = maxGenerations
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
			_, err = runner.RunOptimize(cmd.Context(), &runner.OptimizeOpts{
				PlanPath:   planPath,
				Simulator:  sim,
				Backend:    cfg.Simulator.Backend,
				Optimizer:  opts,
				Verbose:    !quiet,
				Out:        cmd.OutOrStdout(),
				Logger:     logger,
				ResultsDir: resultsDir,
			})
			return err
		},
	}
	cmd.Flags().StringVar(&planPath, "plan", "", "plan file (default plans.optimize from config)")
	cmd.Flags().IntVar(&popSize, "pop-size", 0, "population size (default optimizer.pop_size)")
	cmd.Flags().Int64Var(&seed, "seed", 0, "random seed (default optimizer.seed)")
	cmd.Flags().IntVar(&maxGenerations, "max-generations", 0, "generation cap (default optimizer.max_generations)")
	cmd.Flags().BoolVar(&quiet, "quiet", false, "do not print per-generation progress")
	cmd.Flags().BoolVar(&record, "record", false, "write the run to the results directory")
	return cmd
}
