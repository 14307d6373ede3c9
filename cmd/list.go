package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/signalnine/vadtune/internal/objective"
	"github.com/signalnine/vadtune/internal/plan"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list [plan]",
		Short: "Show a plan's alternate configs and the search bounds",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			path := cfg.Plans.Optimize
			if len(args) > 0 {
				path = args[0]
			}
			p, err := plan.Load(path)
			if err != nil {
				return err
			}
			alts, err := p.AltConfigs()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Plan: %s (base path %s)\n", p.Path(), p.BasePath())
			fmt.Fprintln(out, "\nAlternate configs:")
			if len(alts) == 0 {
				fmt.Fprintln(out, "  (none)")
			}
			for i, a := range alts {
				fmt.Fprintf(out, "  %d. %s\n", i+1, a)
			}
			fmt.Fprintln(out, "\nSearch bounds:")
			for _, b := range objective.Params {
				fmt.Fprintf(out, "  - %s [%g, %g]\n", b.Name, b.Lower, b.Upper)
			}
			return nil
		},
	}
}
