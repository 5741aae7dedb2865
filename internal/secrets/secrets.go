// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads credentials from a directory of plain-text files.
// Each file holds one secret: the filename is the key name and the trimmed
// contents are the value.
//
// Known key files: semantic-scholar-api-key.
package secrets

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/venue-harvest/pkg/logger"
)

// DefaultDir is the secrets directory used when none is configured.
const DefaultDir = ".secrets"

// SemanticScholarKey names the file holding the Semantic Scholar API key.
const SemanticScholarKey = "semantic-scholar-api-key"

// Secrets maps key names to values.
type Secrets map[string]string

// SemanticScholarAPIKey returns the Semantic Scholar API key, or "".
func (s Secrets) SemanticScholarAPIKey() string { return s[SemanticScholarKey] }

// Load reads all files in dir. A missing directory is not an error; Load
// returns an empty set. Unreadable files are logged and skipped.
func Load(ctx context.Context, dir string) (Secrets, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return Secrets{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(Secrets)
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
			logger.Warn(ctx, "could not read secret", zap.String("name", name), zap.Error(err))
			continue
		}

		if value := strings.TrimSpace(string(data)); value != "" {
			secrets[name] = value
		}
	}

	logger.Debug(ctx, "loaded secrets", zap.String("dir", dir), zap.Int("count", len(secrets)))
	return secrets, nil
}
