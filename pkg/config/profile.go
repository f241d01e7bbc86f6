package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Profile is an optional per-deployment indexing profile loaded from YAML.
// Values present in the file override the corresponding env defaults.
type Profile struct {
	Extensions     []string `yaml:"extensions"`
	ExcludeGlobs   []string `yaml:"exclude_globs"`
	MaxChunkTokens int      `yaml:"max_chunk_tokens"`
	ChunkOverlap   int      `yaml:"chunk_overlap"`
	MaxFiles       int      `yaml:"max_files"`
}

// DefaultExcludeGlobs are always-skipped noise directories on top of the
// dot-file/dot-directory rule.
var DefaultExcludeGlobs = []string{
	"**/.terraform/**",
	"**/node_modules/**",
	"**/vendor/**",
	"**/dist/**",
	"**/build/**",
	"**/__pycache__/**",
}

// LoadProfile reads the YAML profile at path and applies it onto cfg. A
// missing file is not an error; the env-derived config is returned unchanged.
func LoadProfile(cfg *Config, path string) ([]string, error) {
	excludes := DefaultExcludeGlobs

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return excludes, nil
		}
		return nil, fmt.Errorf("read profile: %w", err)
	}

	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse profile: %w", err)
	}

	if len(p.Extensions) > 0 {
		cfg.DefaultExtensions = p.Extensions
	}
	if p.MaxChunkTokens > 0 {
		cfg.MaxChunkTokens = p.MaxChunkTokens
	}
	if p.ChunkOverlap > 0 {
		cfg.ChunkOverlap = p.ChunkOverlap
	}
	if p.MaxFiles > 0 {
		cfg.MaxFiles = p.MaxFiles
	}
	if len(p.ExcludeGlobs) > 0 {
		excludes = append(excludes, p.ExcludeGlobs...)
	}
	return excludes, nil
}
