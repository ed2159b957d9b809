// Package cmd implements the affiliate engine's command-line interface.
package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	infraconfig "github.com/jonesrussell/north-cloud/affiliate-engine/infrastructure/config"
	"github.com/jonesrussell/north-cloud/affiliate-engine/cmd/ads"
	"github.com/jonesrussell/north-cloud/affiliate-engine/cmd/common"
	cmdlinks "github.com/jonesrussell/north-cloud/affiliate-engine/cmd/links"
	cmdmigrate "github.com/jonesrussell/north-cloud/affiliate-engine/cmd/migrate"
	"github.com/jonesrussell/north-cloud/affiliate-engine/cmd/programs"
	"github.com/jonesrussell/north-cloud/affiliate-engine/cmd/serve"
)

// Version is set at build time.
var Version = "dev"

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	opts := &common.Options{}

	rootCmd := &cobra.Command{
		Use:           "affiliate-engine",
		Short:         "Product intelligence and affiliate link lifecycle engine",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.ConfigPath == "" {
				opts.ConfigPath = infraconfig.GetConfigPath(common.DefaultConfigPath)
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "",
		"config file (default is $CONFIG_PATH or ./config.yml)")
	rootCmd.PersistentFlags().BoolVar(&opts.Debug, "debug", false, "enable debug mode")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "affiliate-engine version %s\n", Version)
		},
	})

	rootCmd.AddCommand(serve.Command(opts, Version))
	rootCmd.AddCommand(cmdmigrate.Command(opts))
	rootCmd.AddCommand(programs.Command(opts))
	rootCmd.AddCommand(cmdlinks.Command(opts))
	rootCmd.AddCommand(ads.Command(opts))

	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCommand().ExecuteContext(context.Background())
}
