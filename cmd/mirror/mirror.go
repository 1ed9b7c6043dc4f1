// Package mirror implements the batch download command.
package mirror

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/jonesrussell/gomirror/cmd/common"
	"github.com/jonesrussell/gomirror/internal/domain"
)

// Command returns the mirror command for use in the root command.
func Command(cfgFile *string) *cobra.Command {
	var (
		accountID   string
		sourceKey   string
		urlFile     string
		concurrency int
	)

	cmd := &cobra.Command{
		Use:   "mirror [url ...]",
		Short: "Download a batch of articles",
		Long: `Downloads the given article URLs for an account, harvesting embedded
images into local storage. URLs are taken from arguments, from --url-file, or
both. Already-mirrored articles are skipped.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			urls := args
			if urlFile != "" {
				fromFile, err := readURLFile(urlFile)
				if err != nil {
					return err
				}
				urls = append(urls, fromFile...)
			}

			if len(urls) == 0 {
				return fmt.Errorf("no URLs given; pass them as arguments or via --url-file")
			}

			deps, err := common.NewDeps(*cfgFile)
			if err != nil {
				return fmt.Errorf("failed to initialize dependencies: %w", err)
			}
			defer deps.Close()

			outcome, err := deps.Batches.RunBatch(
				cmd.Context(),
				accountID,
				sourceKey,
				urls,
				concurrency,
			)
			if err != nil {
				return fmt.Errorf("batch failed: %w", err)
			}

			renderOutcome(outcome)

			return nil
		},
	}

	cmd.Flags().StringVar(&accountID, "account", "", "account the mirrored copies belong to")
	cmd.Flags().StringVar(&sourceKey, "source", "", "key of the upstream source account")
	cmd.Flags().StringVar(&urlFile, "url-file", "", "newline-separated list of article URLs")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "parallel fetches (clamped to 1-3)")
	_ = cmd.MarkFlagRequired("account")
	_ = cmd.MarkFlagRequired("source")

	return cmd
}

// renderOutcome prints the per-URL results and summary counts.
func renderOutcome(outcome *domain.BatchOutcome) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)

	t.AppendHeader(table.Row{"URL", "Status", "Title", "Error"})
	for _, res := range outcome.Results {
		t.AppendRow(table.Row{res.URL, res.Status, res.Title, res.Error})
	}
	t.Render()

	fmt.Printf(
		"\nTotal: %d  Completed: %d  Failed: %d  Skipped: %d\n",
		outcome.Total, outcome.Completed, outcome.Failed, outcome.Skipped,
	)

	if outcome.SessionExpired {
		fmt.Println("Session expired during the run; re-authenticate and retry the failed URLs.")
	}
}

// readURLFile parses a newline-separated URL list, ignoring blanks and
// #-comments.
func readURLFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open url file: %w", err)
	}
	defer f.Close()

	var urls []string

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}

	if scanErr := scanner.Err(); scanErr != nil {
		return nil, fmt.Errorf("read url file: %w", scanErr)
	}

	return urls, nil
}
