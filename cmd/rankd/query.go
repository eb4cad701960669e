package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/rankd/internal/filter"
	"github.com/fyrsmithlabs/rankd/internal/ordering"
	"github.com/fyrsmithlabs/rankd/internal/pipeline"
)

var (
	queryTopic      string
	queryMode       string
	queryOrderBy    string
	queryMaxResults int
)

var queryCmd = &cobra.Command{
	Use:   "query <text>",
	Short: "Run one retrieval query and print ranked results as JSON",
	Long: `Run the retrieval pipeline once against the configured backends and
print the ranked result list as JSON.

Examples:
  rankd query "vitamin c benefits"
  rankd query --mode strict --max-results 5 "golang concurrency"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().StringVar(&queryTopic, "topic", "", "topic context for filtering and web search")
	queryCmd.Flags().StringVar(&queryMode, "mode", "", "filter strategy: strict, moderate, or lenient")
	queryCmd.Flags().StringVar(&queryOrderBy, "order-by", "", "ordering strategy: score, quality, chronological, or hybrid")
	queryCmd.Flags().IntVar(&queryMaxResults, "max-results", 0, "maximum ranked results")
}

func runQuery(cmd *cobra.Command, args []string) error {
	cfg, logger, tel, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	p, err := buildPipeline(cfg, tel.Meter("rankd"), logger)
	if err != nil {
		return err
	}

	result, err := p.Run(cmd.Context(), pipeline.Query{
		Text:       strings.Join(args, " "),
		Topic:      queryTopic,
		Mode:       filter.Mode(queryMode),
		OrderBy:    ordering.Strategy(queryOrderBy),
		MaxResults: queryMaxResults,
	})
	if err != nil {
		return fmt.Errorf("running query: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
