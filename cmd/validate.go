package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/signalnine/vadtune/internal/plan"
	"github.com/signalnine/vadtune/internal/runner"
)

func newValidateCmd() *cobra.Command {
	var parallel int
	cmd := &cobra.Command{
		Use:   "validate [plan...]",
		Short: "Check plan files against the plan schema",
		Long:  "Validate each plan file against the embedded JSON schema. With no arguments the configured debug and optimize plans are checked.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			paths := args
			if len(paths) == 0 {
				paths = []string{cfg.Plans.Debug, cfg.Plans.Optimize}
			}

			problems := make([][]string, len(paths))
			jobs := make([]runner.Job, len(paths))
			for i, path := range paths {
				jobs[i] = func() error {
					var err error
					problems[i], err = plan.ValidateFile(path)
					return err
				}
			}
			errs := runner.RunPool(parallel, jobs)

			out := cmd.OutOrStdout()
			failed := 0
			for i, path := range paths {
				switch {
				case errs[i] != nil:
					failed++
					fmt.Fprintf(out, "FAIL %s\n  %v\n", path, errs[i])
				case len(problems[i]) > 0:
					failed++
					fmt.Fprintf(out, "FAIL %s\n", path)
					for _, p := range problems[i] {
						fmt.Fprintf(out, "  %s\n", p)
					}
				default:
					fmt.Fprintf(out, "ok   %s\n", path)
				}
			}
			logger.Debug("validation finished", "plans", len(paths), "failed", failed)
			if failed > 0 {
				return fmt.Errorf("%d of %d plans failed validation", failed, len(paths))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&parallel, "parallel", 4, "plans validated concurrently")
	return cmd
}
