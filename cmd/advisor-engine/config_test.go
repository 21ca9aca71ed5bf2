// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/advisor-engine/pkg/types"
)

func resetViper(t *testing.T) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
	viper.SetEnvPrefix("ADVISOR_ENGINE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	require.NoError(t, registerDefaults())

	old := loadedSecrets
	loadedSecrets = nil
	t.Cleanup(func() { loadedSecrets = old })
}

func TestLoadConfigDefaults(t *testing.T) {
	resetViper(t)

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, types.DefaultAdvisorConfig(), cfg)
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	resetViper(t)
	t.Setenv("ADVISOR_ENGINE_AI_MODEL", "gemini-2.5-pro")

	path := filepath.Join(t.TempDir(), "advisor-engine.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
router:
  answer_ttl: 2h
research:
  max_rounds: 4
cache:
  backend: memory
search:
  timeout: 10s
`), 0o644))
	viper.SetConfigFile(path)
	require.NoError(t, viper.ReadInConfig())

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "gemini-2.5-pro", cfg.AI.Model)
	assert.Equal(t, 2*time.Hour, cfg.Router.AnswerTTL)
	assert.Equal(t, 4, cfg.Research.MaxRounds)
	assert.Equal(t, "memory", cfg.Cache.Backend)
	assert.Equal(t, 10*time.Second, cfg.Search.Timeout)
	assert.Equal(t, "coding_tools", cfg.Router.Domain)
	assert.InDelta(t, 0.30, cfg.Decision.LanguageWeight, 1e-9)
}

func TestLoadConfigSecrets(t *testing.T) {
	resetViper(t)
	loadedSecrets = map[string]string{"gemini-api-key": "gm-key", "tavily-api-key": "tvly-key"}

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "gm-key", cfg.AI.APIKey)
	assert.Equal(t, "tvly-key", cfg.Search.APIKey)
}

func TestOpenCacheBackend(t *testing.T) {
	cfg := types.DefaultAdvisorConfig()
	cfg.Cache.Backend = "redis"
	_, err := openCache(cfg)
	assert.Error(t, err)

	cfg.Cache.Backend = "memory"
	c, err := openCache(cfg)
	require.NoError(t, err)
	assert.NotNil(t, c)
}
