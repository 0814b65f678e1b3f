// Package migration runs the five modes of a migration: export, map,
// migrate, rollback and duplicates. Each mode reads its inputs from and
// writes its outputs to the artifact store.
package migration

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/rflorenc/catalog-migrator/internal/analyzer"
	"github.com/rflorenc/catalog-migrator/internal/mapping"
	"github.com/rflorenc/catalog-migrator/internal/matcher"
	"github.com/rflorenc/catalog-migrator/internal/models"
	"github.com/rflorenc/catalog-migrator/internal/store"
)

// Remote is everything a session needs from Graph.
type Remote interface {
	LegacySource
	Target
	Deleter
	matcher.Searcher
}

// Options is the migration policy, shared by every run of a session.
type Options struct {
	MarkerKey        string
	PlatformTokens   []string
	SkipUnmapped     bool
	MaxCandidates    int
	ConfidenceFilter []models.Confidence
	NamePrefix       string
	Platforms        string
	Technologies     string
}

// Session binds the remote API, the artifact store and the options. It holds
// no per-run state: each mode builds its own caches, so runs never share them.
type Session struct {
	Remote   Remote
	Store    *store.Store
	Options  Options
	Identity string // who is signed in, recorded in exports
}

// MapSummary is the status object of a map run.
type MapSummary struct {
	Suggestions int `json:"suggestions"`
	High        int `json:"high"`
	Medium      int `json:"medium"`
	None        int `json:"none"`
	Mapped      int `json:"mapped"`
	Curated     int `json:"curated"`
}

// Export fetches and normalizes every legacy policy and saves the export.
func (s *Session) Export(ctx context.Context, logger func(string)) (*models.ExportSet, error) {
	logger("=== Exporting Administrative Templates ===")
	set, err := exportAll(ctx, s.Remote, logger)
	if err != nil {
		return nil, fmt.Errorf("export failed: %w", err)
	}
	set.Identity = s.Identity
	if err := s.Store.SaveExport(ctx, set); err != nil {
		return nil, err
	}
	logger("")
	logger(fmt.Sprintf("Export complete: %d policies, %d warnings", len(set.Policies), len(set.Warnings)))
	return set, nil
}

// Map suggests a target definition for every exported setting and rebuilds
// the mapping from the suggestions that pass the confidence filter.
// Manually curated entries of the previous mapping are kept and win.
func (s *Session) Map(ctx context.Context, logger func(string)) (*MapSummary, error) {
	set, err := s.Store.LoadExport(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading export (run export first): %w", err)
	}

	logger("=== Matching settings ===")
	m := matcher.New(s.Remote, matcher.Options{
		MaxCandidates:  s.Options.MaxCandidates,
		PlatformTokens: s.Options.PlatformTokens,
	}, logger)
	sugs, err := m.SuggestAll(ctx, set.Policies)
	if err != nil {
		return nil, err
	}
	if err := s.Store.SaveSuggestions(ctx, sugs); err != nil {
		return nil, err
	}

	sum := &MapSummary{Suggestions: len(sugs)}
	for _, sug := range sugs {
		switch sug.Confidence {
		case models.ConfidenceHigh:
			sum.High++
		case models.ConfidenceMedium:
			sum.Medium++
		default:
			sum.None++
		}
	}

	table := mapping.NewStore()
	table.BuildFromSuggestions(sugs, s.Options.ConfidenceFilter)

	prev, err := s.Store.LoadMapping(ctx)
	switch {
	case err == nil:
		curated := mapping.NewStore()
		for _, e := range prev.Entries() {
			if e.Origin == mapping.OriginManual {
				if err := curated.Upsert(e); err != nil {
					return nil, err
				}
			}
		}
		sum.Curated = curated.Len()
		table.Merge(curated)
	case !errors.Is(err, store.ErrNotFound):
		return nil, err
	}

	if err := s.Store.SaveMapping(ctx, table); err != nil {
		return nil, err
	}
	sum.Mapped = table.Len()
	logger("")
	logger(fmt.Sprintf("Map complete: %d mapped of %d settings (%d kept from curation)", sum.Mapped, sum.Suggestions, sum.Curated))
	return sum, nil
}

// Migrate creates the target policies, or only plans them when apply is
// false. The manifest is saved after every policy and returned even when
// the run fails part way.
func (s *Session) Migrate(ctx context.Context, apply bool, logger func(string)) (*models.Manifest, error) {
	set, err := s.Store.LoadExport(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading export (run export first): %w", err)
	}
	table, err := s.Store.LoadMapping(ctx)
	if errors.Is(err, store.ErrNotFound) {
		logger("WARNING: no mapping found; every setting is unmapped")
		table, err = mapping.NewStore(), nil
	}
	if err != nil {
		return nil, err
	}

	manifest := models.NewManifest(uuid.New().String(), s.Options.MarkerKey, !apply)
	logger(fmt.Sprintf("=== Migration run %s (%d policies, %d mapped settings) ===",
		manifest.RunID, len(set.Policies), table.Len()))

	runErr := executeAll(ctx, s.Remote, table, s.Store, set.Policies, manifest, ExecuteOptions{
		WhatIf:       !apply,
		SkipUnmapped: s.Options.SkipUnmapped,
		MarkerKey:    s.Options.MarkerKey,
		NamePrefix:   s.Options.NamePrefix,
		Platforms:    s.Options.Platforms,
		Technologies: s.Options.Technologies,
	}, logger)

	manifest.Finish(runErr)
	if err := s.Store.SaveManifest(context.WithoutCancel(ctx), manifest); err != nil {
		logger(fmt.Sprintf("WARNING: saving final manifest: %v", err))
	}

	sum := manifest.Summary()
	logger("")
	logger(fmt.Sprintf("Migration %s: %d created, %d reused, %d planned, %d skipped",
		outcomeWord(runErr), sum.Created, sum.Reused, sum.Planned, sum.Skipped))
	return manifest, runErr
}

// Rollback deletes the target policies recorded in the manifest of runID,
// or of the latest run when runID is empty.
func (s *Session) Rollback(ctx context.Context, runID string, logger func(string)) (*models.RollbackReport, error) {
	manifest, err := s.Store.LoadManifest(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("loading manifest: %w", err)
	}
	report := rollbackAll(ctx, s.Remote, manifest, logger)
	if err := s.Store.SaveRollback(context.WithoutCancel(ctx), report); err != nil {
		return report, err
	}
	if report.Failed > 0 {
		return report, fmt.Errorf("rollback: %d of %d deletions failed", report.Failed, report.Failed+report.Deleted)
	}
	return report, nil
}

// Duplicates analyzes the saved export offline and saves the report.
func (s *Session) Duplicates(ctx context.Context, logger func(string)) (*models.DuplicateReport, error) {
	set, err := s.Store.LoadExport(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading export (run export first): %w", err)
	}
	report := analyzer.Analyze(set.Policies)
	if err := s.Store.SaveDuplicates(ctx, &report); err != nil {
		return nil, err
	}
	logger(fmt.Sprintf("Duplicates: %d groups (%d conflicting) across %d policies; %d merge candidates, %d auto-mergeable",
		report.Summary.DuplicateGroups, report.Summary.ConflictGroups, report.Summary.Policies,
		report.Summary.MergeCandidates, report.Summary.AutoMergeable))
	return &report, nil
}

func outcomeWord(err error) string {
	if err != nil {
		return "stopped"
	}
	return "complete"
}
