package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chaz8081/pushtalk/internal/config"
)

func newConfigCmd(app *appState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the config file",
		// Skips loading the config so a broken file can still be replaced.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write the default config to " + config.DefaultConfigPath(),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := config.WriteDefault()
			if err != nil {
				return fmt.Errorf("config init: %w", err)
			}
			if path == "" {
				fmt.Fprintf(app.outWriter(), "Config already exists at %s\n", config.DefaultConfigPath())
				return nil
			}
			fmt.Fprintf(app.outWriter(), "Wrote default config to %s\n", path)
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the config file location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintln(app.outWriter(), app.storePath())
			return nil
		},
	})
	return cmd
}
