package main

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/ivy-aw-lin/ECO375-Project-Phase2/internal/domain/interfaces/gateways"
)

// newCheckCmd validates sources and credentials without touching the system
func newCheckCmd(o *options, console io.Writer, env gateways.Environment) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check that the selected sources have everything they need",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := o.config(nil)
			if err != nil {
				return err
			}
			a, err := o.newApp(console, env, cfg)
			if err != nil {
				return err
			}
			//nolint:errcheck // Defer close on log file
			defer a.logger.Close()

			return a.preflight().CheckSources(cfg, a.workingDir)
		},
	}
}
