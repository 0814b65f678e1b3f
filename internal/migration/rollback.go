package migration

import (
	"context"
	"fmt"

	"github.com/rflorenc/catalog-migrator/internal/metrics"
	"github.com/rflorenc/catalog-migrator/internal/models"
	"github.com/rflorenc/catalog-migrator/internal/platform"
)

// Deleter deletes Settings Catalog policies.
type Deleter interface {
	DeleteTargetPolicy(ctx context.Context, policyID string) error
}

// rollbackAll deletes every target policy the manifest records. Failures are
// recorded per entry and never stop the sweep. A policy that is already gone
// counts as deleted.
func rollbackAll(ctx context.Context, dst Deleter, m *models.Manifest, logger func(string)) *models.RollbackReport {
	report := &models.RollbackReport{ManifestRunID: m.RunID, Results: []models.RollbackResult{}}
	entries := m.Deletable()
	logger(fmt.Sprintf("=== Rolling back run %s: %d policies ===", m.RunID, len(entries)))

	for _, e := range entries {
		res := models.RollbackResult{
			SourcePolicyID: e.SourcePolicyID,
			TargetPolicyID: e.TargetPolicyID,
			TargetName:     e.TargetName,
		}
		if ctx.Err() != nil {
			res.Error = "rollback cancelled"
			report.Results = append(report.Results, res)
			report.Failed++
			continue
		}

		err := dst.DeleteTargetPolicy(context.WithoutCancel(ctx), e.TargetPolicyID)
		switch {
		case err == nil:
			res.Deleted = true
			logger(fmt.Sprintf("  DELETED: %s (ID %s)", e.TargetName, e.TargetPolicyID))
		case platform.IsNotFound(err):
			res.Deleted = true
			logger(fmt.Sprintf("  SKIP (already gone): %s (ID %s)", e.TargetName, e.TargetPolicyID))
		default:
			res.Error = err.Error()
			logger(fmt.Sprintf("  FAIL: %s (ID %s): %v", e.TargetName, e.TargetPolicyID, err))
		}

		if res.Deleted {
			report.Deleted++
			metrics.RollbackDeletes.WithLabelValues("deleted").Inc()
		} else {
			report.Failed++
			metrics.RollbackDeletes.WithLabelValues("failed").Inc()
		}
		report.Results = append(report.Results, res)
	}

	logger(fmt.Sprintf("Rollback complete: %d deleted, %d failed", report.Deleted, report.Failed))
	return report
}
