package config

import (
	"fmt"
	"path/filepath"
)

// Bug sink kinds.
const (
	BugSinkFile     = "file"
	BugSinkPostgres = "postgres"
)

// GeodataConfig describes where region files live and how they are loaded.
type GeodataConfig struct {
	Dir         string `yaml:"dir"`
	Manifest    string `yaml:"manifest"` // default: <dir>/geo_index.txt
	BugLog      string `yaml:"bug_log"`
	BugSink     string `yaml:"bug_sink"` // file | postgres
	ForceLoad   bool   `yaml:"force_load"`
	LoadWorkers int    `yaml:"load_workers"`
	Checksums   bool   `yaml:"checksums"`
}

// DefaultGeodata returns the stock dataset layout.
func DefaultGeodata() GeodataConfig {
	return GeodataConfig{
		Dir:         "data/geodata",
		BugLog:      filepath.Join("data", "geodata", "geo_bugs.txt"),
		BugSink:     BugSinkFile,
		LoadWorkers: 1,
	}
}

// ManifestPath returns the manifest location.
func (g GeodataConfig) ManifestPath() string {
	if g.Manifest != "" {
		return g.Manifest
	}
	return filepath.Join(g.Dir, "geo_index.txt")
}

// Validate checks the geodata section.
func (g GeodataConfig) Validate() error {
	switch g.BugSink {
	case BugSinkFile, BugSinkPostgres:
	default:
		return fmt.Errorf("geodata.bug_sink %q: want %q or %q", g.BugSink, BugSinkFile, BugSinkPostgres)
	}
	if g.LoadWorkers < 1 {
		return fmt.Errorf("geodata.load_workers must be at least 1, got %d", g.LoadWorkers)
	}
	return nil
}
