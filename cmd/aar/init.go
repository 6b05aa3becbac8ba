package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/williamstus/AAR-Reporting-sub000/internal/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the service home directory and default config file",
	Long: `init creates the AAR home directory layout (reports, logs, data)
and writes a default config.yaml. Existing files are preserved unless
--force is given.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		home := flagHomeDir
		if home == "" {
			home = os.Getenv("AAR_HOME")
		}

		result, err := config.Initialize(home, initForce)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if result.ConfigExisted {
			fmt.Fprintf(out, "Config already exists at %s (use --force to overwrite)\n", result.ConfigPath)
		} else {
			fmt.Fprintf(out, "Wrote default config to %s\n", result.ConfigPath)
		}
		for _, dir := range result.CreatedDirs {
			fmt.Fprintf(out, "Created %s\n", dir)
		}
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing config file")
}
