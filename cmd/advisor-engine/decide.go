// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/advisor-engine/internal/decision"
	"github.com/pdiddy/advisor-engine/internal/render"
	"github.com/pdiddy/advisor-engine/pkg/types"
)

var decideCmd = &cobra.Command{
	Use:   "decide",
	Short: "Rank candidate tool facts against a user context",
	Long: `Decide runs the decision engine on fixture files without any research.
--facts is a YAML (or JSON) list of candidate facts and --context a YAML
user context. --previous carries the ranking of an earlier turn so the
output stays consistent with it. Weights come from the decision section of
the config file.`,
	RunE: runDecide,
}

func runDecide(cmd *cobra.Command, args []string) error {
	factsPath, _ := cmd.Flags().GetString("facts")
	contextPath, _ := cmd.Flags().GetString("context")
	previousFlag, _ := cmd.Flags().GetString("previous")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	if factsPath == "" {
		return fmt.Errorf("--facts is required")
	}

	var facts []types.CandidateFact
	if err := readYAML(factsPath, &facts); err != nil {
		return err
	}
	var uc types.UserContext
	if contextPath != "" {
		if err := readYAML(contextPath, &uc); err != nil {
			return err
		}
	}
	var previous []string
	for _, name := range strings.Split(previousFlag, ",") {
		if name = strings.TrimSpace(name); name != "" {
			previous = append(previous, name)
		}
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	engine, err := decision.NewEngine(decision.WeightsFromConfig(cfg.Decision))
	if err != nil {
		return err
	}
	res := engine.Decide(uc, facts, previous)

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	fmt.Println(render.Markdown(uc, res))
	return nil
}

func readYAML(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

func init() {
	decideCmd.Flags().String("facts", "", "YAML file holding a list of candidate facts")
	decideCmd.Flags().String("context", "", "YAML file holding the user context")
	decideCmd.Flags().String("previous", "", "previous turn's recommended tools, comma-separated")
	decideCmd.Flags().Bool("json", false, "output the decision result as JSON")

	rootCmd.AddCommand(decideCmd)
}
