// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/advisor-engine/internal/search"
	"github.com/pdiddy/advisor-engine/pkg/types"
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Run a live web search",
	Long: `Search sends a query to the live search backend (Tavily) the research
workers use. Results are deduplicated by URL, pricing and vendor pages are
boosted, and the list is ranked by score.

Use --save to keep the results in a YAML file and --from to show a saved
file again without re-querying.`,
	RunE: runSearch,
}

func runSearch(cmd *cobra.Command, args []string) error {
	from, _ := cmd.Flags().GetString("from")
	save, _ := cmd.Flags().GetString("save")
	maxResults, _ := cmd.Flags().GetInt("max-results")
	depth, _ := cmd.Flags().GetString("depth")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	var resp types.SearchResponse
	if from != "" {
		qf, err := search.ReadQueryFile(from)
		if err != nil {
			return err
		}
		resp = qf.Response
	} else {
		query := strings.Join(args, " ")
		if query == "" {
			return fmt.Errorf("query required: pass it as an argument or use --from")
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if maxResults <= 0 {
			maxResults = cfg.Search.MaxResults
		}
		if depth == "" {
			depth = cfg.Search.Depth
		}

		s := search.New(cfg.Search, logger, search.NewTavily(cfg.Search, logger))
		resp, err = s.Search(cmd.Context(), query, maxResults, depth)
		if err != nil {
			return err
		}
		if save != "" {
			if err := search.WriteQueryFile(save, resp, maxResults, depth, time.Now()); err != nil {
				return err
			}
			fmt.Fprintln(os.Stderr, "Saved to", save)
		}
	}

	if jsonOutput {
		return search.FormatJSON(resp, os.Stdout)
	}
	search.FormatTable(resp, os.Stdout)
	return nil
}

func init() {
	searchCmd.Flags().Int("max-results", 0, "maximum number of results (0 = use config)")
	searchCmd.Flags().String("depth", "", "search depth: basic or advanced (default from config)")
	searchCmd.Flags().String("save", "", "save the query and results to a YAML file")
	searchCmd.Flags().String("from", "", "show results from a saved YAML file instead of searching")
	searchCmd.Flags().Bool("json", false, "output results as JSON")

	rootCmd.AddCommand(searchCmd)
}
