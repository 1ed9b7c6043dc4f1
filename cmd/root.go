// Package cmd implements the command-line interface for gomirror.
package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	cmdfetch "github.com/jonesrussell/gomirror/cmd/fetch"
	"github.com/jonesrussell/gomirror/cmd/httpd"
	"github.com/jonesrussell/gomirror/cmd/mirror"
	"github.com/jonesrussell/gomirror/cmd/quota"
)

// version is overridden at build time via -ldflags.
var version = "dev"

var (
	// cfgFile holds the path to the configuration file.
	cfgFile string

	// rootCmd represents the root command for the gomirror CLI.
	rootCmd = &cobra.Command{
		Use:   "gomirror",
		Short: "Mirror remote article feeds into local storage",
		Long: `gomirror downloads remote articles, rewrites embedded images to
locally-cached copies, and stores the result under a per-account quota.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
)

// Execute runs the root command.
func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"",
		"config file (default is ./config.yaml or ./config/config.yaml)",
	)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("gomirror version %s\n", version)
		},
	})

	rootCmd.AddCommand(mirror.Command(&cfgFile))
	rootCmd.AddCommand(cmdfetch.Command(&cfgFile))
	rootCmd.AddCommand(httpd.Command(&cfgFile))
	rootCmd.AddCommand(quota.Command(&cfgFile))
}
