// Package commands implements the arcd command line interface.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/arcledger/arcd/internal/config"
	"github.com/arcledger/arcd/internal/log"
)

var (
	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "arcd",
	Short: "arcd is a ledger state-transition daemon",
	Long: `arcd maintains a chain of immutable ledgers: each close applies a
batch of transactions to the parent's state in canonical order and seals
the result under a content hash.`,
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.LoadConfig(cfgFile)
		if err != nil {
			return err
		}
		log.SetLogger(cfg.LogLevel, cfg.LogJSON, false)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (TOML)")
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}
