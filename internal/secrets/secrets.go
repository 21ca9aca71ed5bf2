// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads API keys from a directory of plain-text files and an
// optional dotenv file.
//
// In the directory, the filename is the key name and the trimmed file
// contents are the value. Dotenv variables are renamed to the same scheme:
// GEMINI_API_KEY becomes gemini-api-key.
//
// Supported keys: gemini-api-key, tavily-api-key.
package secrets

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// Load reads envFile (if non-empty and present) and then every file in dir.
// Directory entries win over dotenv values with the same key. A missing
// directory or env file is not an error. Unreadable files are logged and
// skipped.
func Load(dir, envFile string, logger *zap.Logger) (map[string]string, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	secrets := make(map[string]string)
	if envFile != "" {
		env, err := godotenv.Read(envFile)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("reading env file %s: %w", envFile, err)
		default:
			for k, v := range env {
				if v = strings.TrimSpace(v); v != "" {
					secrets[KeyName(k)] = v
				}
			}
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return secrets, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			logger.Warn("could not read secret", zap.String("key", name), zap.Error(err))
			continue
		}

		value := strings.TrimSpace(string(data))
		if value != "" {
			secrets[name] = value
		}
	}

	return secrets, nil
}

// KeyName converts an environment variable name to a secret key name.
func KeyName(env string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(env)), "_", "-")
}
