// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package output

import (
	"fmt"
	"os"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/venue-harvest/internal/crawl"
	"github.com/pdiddy/venue-harvest/pkg/types"
)

// Manifest is the on-disk record of one crawl run: what was asked, how it
// was configured, what came back and where it was written. It lets a
// researcher tell two harvest files apart without re-running either.
type Manifest struct {
	RunID    string          `yaml:"run_id"`
	Started  time.Time       `yaml:"started"`
	Finished time.Time       `yaml:"finished"`
	Input    ManifestInput   `yaml:"input"`
	Config   ManifestConfig  `yaml:"config"`
	Summary  ManifestSummary `yaml:"summary"`
	Outputs  ManifestOutputs `yaml:"outputs"`
}

// ManifestInput stores the venue and keyword lists.
type ManifestInput struct {
	Venues   []string `yaml:"venues"`
	Keywords []string `yaml:"keywords"`
}

// ManifestConfig stores the settings that shaped the result set.
type ManifestConfig struct {
	YearFrom        int            `yaml:"year_from"`
	Endpoint        types.Endpoint `yaml:"endpoint"`
	BatchSize       int            `yaml:"batch_size"`
	Limit           int            `yaml:"limit,omitempty"`
	ModelPath       string         `yaml:"model_path,omitempty"`
	Threshold       float64        `yaml:"threshold,omitempty"`
	ExpandCitations bool           `yaml:"expand_citations"`
	TimeBudget      time.Duration  `yaml:"time_budget,omitempty"`
}

// ManifestSummary stores result statistics.
type ManifestSummary struct {
	Queries         int               `yaml:"queries"`
	CitationQueries int               `yaml:"citation_queries,omitempty"`
	Skipped         int               `yaml:"skipped,omitempty"`
	BudgetExhausted bool              `yaml:"budget_exhausted,omitempty"`
	Candidates      int               `yaml:"candidates"`
	Accepted        int               `yaml:"accepted"`
	Duplicates      int               `yaml:"duplicates_removed"`
	Irrelevant      int               `yaml:"irrelevant"`
	ClassifierFails int               `yaml:"classifier_failures,omitempty"`
	Failures        []ManifestFailure `yaml:"failures,omitempty"`
}

// ManifestFailure describes one abandoned query.
type ManifestFailure struct {
	Venue   string `yaml:"venue,omitempty"`
	Keyword string `yaml:"keyword,omitempty"`
	Seed    string `yaml:"seed,omitempty"`
	Offset  int    `yaml:"offset"`
	Error   string `yaml:"error"`
}

// ManifestOutputs lists the files the run produced.
type ManifestOutputs struct {
	CSV        string `yaml:"csv"`
	NoAbstract string `yaml:"no_abstract,omitempty"`
	Database   string `yaml:"database,omitempty"`
	Metrics    string `yaml:"metrics,omitempty"`
}

// NewManifest assembles the manifest for a finished run. threshold is the
// resolved threshold actually applied, or zero in pass-through mode.
func NewManifest(in crawl.Input, cfg types.CrawlConfig, threshold float64, res crawl.Result) Manifest {
	s := res.Summary
	m := Manifest{
		RunID:    s.RunID,
		Started:  s.Started,
		Finished: s.Finished,
		Input:    ManifestInput{Venues: in.Venues, Keywords: in.Keywords},
		Config: ManifestConfig{
			YearFrom:        cfg.YearFrom,
			Endpoint:        cfg.Fetch.Endpoint,
			BatchSize:       cfg.Fetch.BatchSize,
			Limit:           cfg.Fetch.Limit,
			ModelPath:       cfg.Filter.ModelPath,
			Threshold:       threshold,
			ExpandCitations: cfg.ExpandCitations,
			TimeBudget:      cfg.TimeBudget,
		},
		Summary: ManifestSummary{
			Queries:         s.Queries,
			CitationQueries: s.CitationQueries,
			Skipped:         s.Skipped,
			BudgetExhausted: s.BudgetExhausted,
			Candidates:      s.Candidates,
			Accepted:        s.Accepted,
			Duplicates:      s.Duplicates,
			Irrelevant:      s.Irrelevant,
			ClassifierFails: s.ClassifierFails,
		},
		Outputs: ManifestOutputs{
			CSV:      cfg.Output.CSVPath,
			Database: cfg.Output.DBPath,
			Metrics:  cfg.Output.MetricsPath,
		},
	}
	if cfg.Output.NoAbstractCopy {
		m.Outputs.NoAbstract = NoAbstractPath(cfg.Output.CSVPath)
	}
	for _, f := range s.Failures {
		m.Summary.Failures = append(m.Summary.Failures, ManifestFailure{
			Venue:   f.Venue,
			Keyword: f.Keyword,
			Seed:    f.Seed,
			Offset:  f.Offset,
			Error:   f.Err.Error(),
		})
	}
	return m
}

// WriteManifest saves m as YAML.
func WriteManifest(path string, m Manifest) error {
	data, err := yaml.Marshal(&m)
	if err != nil {
		return fmt.Errorf("marshaling manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("%w: %v", ErrOutputWriteFailed, err)
	}
	return nil
}

// ReadManifest loads a previously written manifest.
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	return &m, nil
}
