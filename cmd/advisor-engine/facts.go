// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"
)

var factsCmd = &cobra.Command{
	Use:   "facts",
	Short: "Inspect and maintain the fact store",
	Long: `Facts manages the SQLite fact store that research workers consult before
searching the web and write search results back into.`,
}

// --- search subcommand ---

var factsSearchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Find stored evidence similar to a query",
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.Join(args, " ")
		if query == "" {
			return fmt.Errorf("query required")
		}
		topK, _ := cmd.Flags().GetInt("top-k")
		threshold, _ := cmd.Flags().GetFloat64("threshold")
		jsonOutput, _ := cmd.Flags().GetBool("json")

		return withApp(cmd.Context(), func(a *app) error {
			hits, err := a.store.Search(cmd.Context(), query, topK, threshold)
			if err != nil {
				return err
			}
			if jsonOutput {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(hits)
			}
			if len(hits) == 0 {
				fmt.Println("No results found.")
				return nil
			}

			fmt.Fprintf(os.Stdout, "%-4s  %-6s  %-60s  %s\n", "Rank", "Score", "Text", "URL")
			fmt.Fprintln(os.Stdout, strings.Repeat("-", 110))
			for i, ev := range hits {
				text := strings.Join(strings.Fields(ev.Text), " ")
				if len(text) > 60 {
					text = text[:57] + "..."
				}
				fmt.Fprintf(os.Stdout, "%-4d  %-6.2f  %-60s  %s\n", i+1, ev.Score, text, ev.URL)
			}
			fmt.Fprintf(os.Stdout, "\n%d results\n", len(hits))
			return nil
		})
	},
}

// --- export subcommand ---

var factsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export live facts to YAML or JSON",
	Long: `Export writes every unexpired fact to knowledge/index/export.yaml or
export.json.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")

		return withApp(cmd.Context(), func(a *app) error {
			var (
				path string
				err  error
			)
			switch format {
			case "yaml", "":
				path, err = a.store.ExportYAML(cmd.Context())
			case "json":
				path, err = a.store.ExportJSON(cmd.Context())
			default:
				return fmt.Errorf("unsupported format %q: use yaml or json", format)
			}
			if err != nil {
				return err
			}
			fmt.Println("Exported to", path)
			return nil
		})
	},
}

// --- prune subcommand ---

var factsPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete expired facts and question mappings",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app) error {
			n, err := a.store.Prune(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("Pruned %d expired rows\n", n)
			return nil
		})
	},
}

// --- stats subcommand ---

var factsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Count stored facts and question mappings",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app) error {
			st, err := a.store.Stats(cmd.Context())
			if err != nil {
				return err
			}
			return yaml.NewEncoder(os.Stdout).Encode(st)
		})
	},
}

func init() {
	factsSearchCmd.Flags().Int("top-k", 10, "maximum number of hits")
	factsSearchCmd.Flags().Float64("threshold", 0.5, "minimum similarity")
	factsSearchCmd.Flags().Bool("json", false, "output results as JSON")

	factsExportCmd.Flags().String("format", "yaml", "export format: yaml or json")

	factsCmd.AddCommand(factsSearchCmd)
	factsCmd.AddCommand(factsExportCmd)
	factsCmd.AddCommand(factsPruneCmd)
	factsCmd.AddCommand(factsStatsCmd)

	rootCmd.AddCommand(factsCmd)
}
