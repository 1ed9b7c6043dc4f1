// Package fetch implements the single-article fetch command.
package fetch

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonesrussell/gomirror/cmd/common"
)

// Command returns the fetch command for use in the root command.
func Command(cfgFile *string) *cobra.Command {
	var (
		accountID string
		sourceKey string
	)

	cmd := &cobra.Command{
		Use:   "fetch <url>",
		Short: "Download a single article",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := common.NewDeps(*cfgFile)
			if err != nil {
				return fmt.Errorf("failed to initialize dependencies: %w", err)
			}
			defer deps.Close()

			result, err := deps.Fetcher.FetchArticle(cmd.Context(), accountID, sourceKey, args[0])
			if err != nil {
				return fmt.Errorf("fetch failed: %w", err)
			}

			if result.FromCache {
				fmt.Printf("Already mirrored: %q -> %s (%d bytes)\n",
					result.Title, result.LocalPath, result.ByteSize)
				return nil
			}

			fmt.Printf("Mirrored %q -> %s (%d bytes, %d images",
				result.Title, result.LocalPath, result.ByteSize, result.HarvestedCount)
			if len(result.FailedResourceURLs) > 0 {
				fmt.Printf(", %d failed", len(result.FailedResourceURLs))
			}
			fmt.Println(")")

			return nil
		},
	}

	cmd.Flags().StringVar(&accountID, "account", "", "account the mirrored copy belongs to")
	cmd.Flags().StringVar(&sourceKey, "source", "", "key of the upstream source account")
	_ = cmd.MarkFlagRequired("account")
	_ = cmd.MarkFlagRequired("source")

	return cmd
}
