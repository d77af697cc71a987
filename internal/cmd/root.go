// Package cmd implements the logevents command line tool.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/wayneeseguin/logevents/pkg/config"
	"github.com/wayneeseguin/logevents/pkg/logevents"
	"github.com/wayneeseguin/logevents/pkg/status"
)

var rootCmd = &cobra.Command{
	Use:   "logevents",
	Short: "Inspect and exercise logevents configuration",
	Long: `logevents checks configuration files for the logevents runtime, shows the
logger tree a configuration produces and runs a small demo that logs events
and queries them back.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "configuration file (default is $LOGEVENTS_CONFIG or logevents.properties)")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
}

func configPath() string {
	if p := viper.GetString("config"); p != "" {
		return p
	}
	return config.Path()
}

// loadRegistry applies the configuration file to a new registry whose
// status feed echoes to the command's error output.
func loadRegistry(cmd *cobra.Command, path string) (*logevents.Registry, *config.Applied, error) {
	st := status.New()
	st.SetOutput(cmd.ErrOrStderr())
	reg := logevents.NewRegistry(logevents.WithStatus(st))

	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}
	applied, err := config.Apply(cfg, reg)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid configuration %s: %w", path, err)
	}
	return reg, applied, nil
}
