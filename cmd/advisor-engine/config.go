// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/advisor-engine/pkg/types"
)

// registerDefaults declares every key of the default configuration with
// viper so environment variables such as ADVISOR_ENGINE_AI_MODEL override
// it.
func registerDefaults() error {
	data, err := yaml.Marshal(types.DefaultAdvisorConfig())
	if err != nil {
		return fmt.Errorf("marshaling defaults: %w", err)
	}
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return fmt.Errorf("decoding defaults: %w", err)
	}
	setDefaults("", tree)
	return nil
}

func setDefaults(prefix string, tree map[string]any) {
	for k, v := range tree {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if sub, ok := v.(map[string]any); ok {
			setDefaults(key, sub)
			continue
		}
		viper.SetDefault(key, v)
	}
}

// loadConfig merges the config file and environment over the defaults and
// fills API keys from the loaded secrets.
func loadConfig() (types.AdvisorConfig, error) {
	cfg := types.DefaultAdvisorConfig()
	data, err := yaml.Marshal(viper.AllSettings())
	if err != nil {
		return cfg, fmt.Errorf("marshaling settings: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("decoding settings: %w", err)
	}
	cfg.AI.APIKey = secretDefault("gemini-api-key", cfg.AI.APIKey)
	cfg.Search.APIKey = secretDefault("tavily-api-key", cfg.Search.APIKey)
	return cfg, nil
}
