package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check a configuration file",
	Long: `Load the configuration file and build every observer it defines. Observers
that connect to remote services (nats, beats) connect during validation.`,
	Args: cobra.NoArgs,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	path := configPath()
	reg, applied, err := loadRegistry(cmd, path)
	if err != nil {
		return err
	}
	defer applied.Close()

	fmt.Fprintf(cmd.OutOrStdout(), "%s: OK (%d observers, %d loggers)\n",
		path, len(applied.Observers), len(reg.Loggers())-1)
	return nil
}
