// Package cmd is the CLI surface for the segmented cache and RTO join-path
// engine, in the teacher's cobra/viper/pflag idiom: a root command binds a
// shared flag set into viper once, and each subcommand reads the resolved
// Config back out rather than parsing flags itself.
package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Abiy-Samson/Blazegraph/config"
)

// NewRootCommand builds the "rto-cached" command tree.
func NewRootCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	v := viper.New()
	var configFile string
	var bindErr error

	rc := &cobra.Command{
		Use:   "rto-cached",
		Short: "Segmented concurrent cache and RTO join-path exploration engine.",
		Long: `rto-cached hosts two independent engineering cores: a segmented
concurrent associative cache with pluggable eviction (none, LRU, LIRS),
and a runtime join-path exploration engine for a query optimizer.

This binary is a demo/operational surface over those two cores; it is not
a SPARQL query engine.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if bindErr != nil || configFile == "" {
				return bindErr
			}
			v.SetConfigFile(configFile)
			return v.ReadInConfig()
		},
	}
	rc.PersistentFlags().StringVarP(&configFile, "config", "c", "", "TOML configuration file to read from")
	bindErr = config.BindFlags(v, rc.PersistentFlags(), "")
	rc.SetIn(stdin)
	rc.SetOut(stdout)
	rc.SetErr(stderr)

	rc.AddCommand(newServeCommand(v, stdout))
	rc.AddCommand(newBenchCommand(v, stdout))
	return rc
}

func loadConfig(v *viper.Viper) (config.Config, error) {
	cfg, err := config.Load(v)
	if err != nil {
		return config.Config{}, fmt.Errorf("rto-cached: loading config: %w", err)
	}
	return cfg, nil
}
