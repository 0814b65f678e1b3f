package migration

import (
	"context"
	"fmt"
	"time"

	"github.com/rflorenc/catalog-migrator/internal/models"
	"github.com/rflorenc/catalog-migrator/internal/normalize"
)

// LegacySource is the read side of the Administrative Templates API.
type LegacySource interface {
	ListLegacyPolicies(ctx context.Context) ([]models.Resource, error)
	ListDefinitionValues(ctx context.Context, policyID string) ([]models.Resource, error)
	ListLegacyAssignments(ctx context.Context, policyID string) ([]models.Resource, error)
}

// exportAll fetches every legacy policy with its settings and assignments
// and normalizes them. Only a failed policy listing fails the export; a
// failed sub-resource becomes a warning.
func exportAll(ctx context.Context, src LegacySource, logger func(string)) (*models.ExportSet, error) {
	logger("Exporting groupPolicyConfigurations...")
	policies, err := src.ListLegacyPolicies(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing legacy policies: %w", err)
	}
	logger(fmt.Sprintf("  %d policies", len(policies)))

	raw := make([]normalize.RawPolicy, 0, len(policies))
	for _, p := range policies {
		if ctx.Err() != nil {
			logger("Export cancelled by user")
			return nil, ctx.Err()
		}
		id := resourceID(p)
		rp := normalize.RawPolicy{Policy: p}
		if id != "" {
			rp.DefinitionValues, rp.DefinitionValuesErr = src.ListDefinitionValues(ctx, id)
			rp.Assignments, rp.AssignmentsErr = src.ListLegacyAssignments(ctx, id)
			logger(fmt.Sprintf("  %s: %d settings, %d assignments",
				resourceName(p), len(rp.DefinitionValues), len(rp.Assignments)))
		}
		raw = append(raw, rp)
	}

	res := normalize.Normalize(raw, logger)
	return &models.ExportSet{
		ExportedAt: time.Now().UTC(),
		Policies:   res.Policies,
		Warnings:   res.Warnings,
	}, nil
}

func resourceID(r models.Resource) string {
	s, _ := r["id"].(string)
	return s
}

func resourceName(r models.Resource) string {
	s, _ := r["displayName"].(string)
	return s
}
