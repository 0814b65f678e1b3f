package migration

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rflorenc/catalog-migrator/internal/metrics"
	"github.com/rflorenc/catalog-migrator/internal/models"
	"github.com/rflorenc/catalog-migrator/internal/platform"
)

// Target is the write side of the Settings Catalog API.
type Target interface {
	ListTargetPolicies(ctx context.Context) ([]models.TargetPolicy, error)
	CreateTargetPolicy(ctx context.Context, p models.NewTargetPolicy) (models.TargetPolicy, error)
	AddPolicySetting(ctx context.Context, policyID string, setting models.SettingPayload) error
	AssignTargetPolicy(ctx context.Context, policyID string, assignments []models.Assignment) error
}

// MappingLookup resolves a legacy setting to its mapping entry.
type MappingLookup interface {
	Get(key models.MappingKey) (models.MappingEntry, bool)
}

// ManifestSink persists the manifest. It is called after every policy.
type ManifestSink interface {
	SaveManifest(ctx context.Context, m *models.Manifest) error
}

// ErrUnmappedSetting is returned when a policy has a setting without a
// usable mapping and unmapped settings are not to be skipped.
var ErrUnmappedSetting = errors.New("unmapped setting")

// PlatformMismatchError means Graph rejected a setting as not applicable to
// the target policy's platform. The mapping needs re-curation.
type PlatformMismatchError struct {
	PolicyID      string
	PolicyName    string
	DefinitionIDs []string
	Err           error
}

func (e *PlatformMismatchError) Error() string {
	return fmt.Sprintf("policy %s (%s): settings %s are not applicable to the target platform; "+
		"re-map them to definitions of the migrated platform: %v",
		e.PolicyName, e.PolicyID, strings.Join(e.DefinitionIDs, ", "), e.Err)
}

func (e *PlatformMismatchError) Unwrap() error { return e.Err }

var platformMismatchSignatures = []string{
	"not applicable",
	"applicability",
	"platform mismatch",
	"platforms do not match",
}

// isPlatformMismatch looks for the applicability failure Graph returns when
// a setting belongs to another platform. The full Graph message is checked
// first since the error text is truncated.
func isPlatformMismatch(err error) bool {
	if err == nil {
		return false
	}
	var re *platform.RemoteError
	if errors.As(err, &re) && hasMismatchSignature(re.Code+" "+re.Message) {
		return true
	}
	return hasMismatchSignature(err.Error())
}

func hasMismatchSignature(s string) bool {
	s = strings.ToLower(s)
	for _, sig := range platformMismatchSignatures {
		if strings.Contains(s, sig) {
			return true
		}
	}
	return false
}

// ExecuteOptions is the caller's migration policy for one run.
type ExecuteOptions struct {
	WhatIf       bool
	SkipUnmapped bool
	MarkerKey    string
	NamePrefix   string
	Platforms    string
	Technologies string
}

// executor migrates policies one at a time. It holds the only state shared
// between policies: the manifest and the index of existing target policies.
type executor struct {
	dst      Target
	mappings MappingLookup
	sink     ManifestSink
	opts     ExecuteOptions
	existing *existingIndex
	manifest *models.Manifest
	logger   func(string)
}

// executeAll runs the executor over policies and returns the manifest, which
// is complete up to the failing policy when an error is returned.
func executeAll(ctx context.Context, dst Target, mappings MappingLookup, sink ManifestSink, policies []models.LegacyPolicy, manifest *models.Manifest, opts ExecuteOptions, logger func(string)) error {
	x := &executor{
		dst:      dst,
		mappings: mappings,
		sink:     sink,
		opts:     opts,
		manifest: manifest,
		logger:   logger,
	}

	if opts.WhatIf {
		logger("WHAT-IF: no changes will be made")
	} else {
		idx, err := loadExisting(ctx, dst, opts.MarkerKey, logger)
		if err != nil {
			return err
		}
		x.existing = idx
	}

	logger("")
	logger("=== Migrating policies ===")
	for _, p := range policies {
		if ctx.Err() != nil {
			logger("Migration cancelled by user")
			return ctx.Err()
		}
		outcome, err := x.migrate(ctx, p)
		metrics.PoliciesProcessed.WithLabelValues(outcome).Inc()
		if cerr := x.checkpoint(ctx); cerr != nil {
			logger(fmt.Sprintf("  WARNING: saving manifest: %v", cerr))
		}
		if err != nil {
			logger(fmt.Sprintf("  FAIL: %s: %v", p.DisplayName, err))
			return err
		}
	}
	return nil
}

func (x *executor) checkpoint(ctx context.Context) error {
	if x.sink == nil {
		return nil
	}
	return x.sink.SaveManifest(context.WithoutCancel(ctx), x.manifest)
}

// migrate walks one policy through check-existing, create, add-settings and
// assign. It returns the outcome label for metrics.
func (x *executor) migrate(ctx context.Context, p models.LegacyPolicy) (string, error) {
	name := x.opts.NamePrefix + p.DisplayName

	if existing, ok := x.existing.find(p.ID); ok {
		x.logger(fmt.Sprintf("  SKIP (exists): %s -> %s (%s)", p.DisplayName, existing.Name, existing.ID))
		x.manifest.Entries = append(x.manifest.Entries, models.ManifestEntry{
			SourcePolicyID:   p.ID,
			SourcePolicyName: p.DisplayName,
			TargetPolicyID:   existing.ID,
			TargetName:       existing.Name,
			Reused:           true,
		})
		return "reused", nil
	}

	payloads, skipped, err := x.collectSettings(p)
	if err != nil {
		return "failed", err
	}
	x.manifest.Skipped = append(x.manifest.Skipped, skipped...)

	if len(payloads) == 0 {
		x.logger(fmt.Sprintf("  SKIP (no mapped settings): %s", p.DisplayName))
		x.manifest.Skipped = append(x.manifest.Skipped, models.SkippedEntry{
			SourcePolicyID: p.ID,
			Reason:         models.SkipNoMappedSettings,
		})
		return "skipped", nil
	}

	assignments := make([]models.Assignment, 0, len(p.Assignments))
	for _, a := range p.Assignments {
		if a.Target != nil {
			assignments = append(assignments, models.Assignment{Target: a.Target})
		}
	}

	entry := models.ManifestEntry{
		SourcePolicyID:   p.ID,
		SourcePolicyName: p.DisplayName,
		TargetName:       name,
	}

	if x.opts.WhatIf {
		x.logger(fmt.Sprintf("  WHAT-IF: would create %s with %d settings", name, len(payloads)))
		for _, a := range assignments {
			x.logger(fmt.Sprintf("    WHAT-IF: would assign %s", a.Target.Kind()))
		}
		entry.WhatIf = true
		entry.SettingsAdded = len(payloads)
		entry.AssignmentsApplied = len(assignments)
		x.manifest.Entries = append(x.manifest.Entries, entry)
		return "planned", nil
	}

	// Remote calls are not interrupted once issued; cancellation is only
	// checked between them.
	callCtx := context.WithoutCancel(ctx)

	created, err := x.dst.CreateTargetPolicy(callCtx, models.NewTargetPolicy{
		Name:         name,
		Description:  Describe(p.Description, Marker(x.opts.MarkerKey, p.ID)),
		Platforms:    x.opts.Platforms,
		Technologies: x.opts.Technologies,
		Settings:     payloads[:1],
	})
	if err != nil {
		return "failed", x.wrapWriteError(p, payloads[:1], fmt.Errorf("creating %s: %w", name, err))
	}
	entry.TargetPolicyID = created.ID
	entry.SettingsAdded = 1
	x.logger(fmt.Sprintf("  CREATED: %s (ID %s)", name, created.ID))

	for _, s := range payloads[1:] {
		if ctx.Err() != nil {
			x.manifest.Entries = append(x.manifest.Entries, entry)
			return "cancelled", ctx.Err()
		}
		if err := x.dst.AddPolicySetting(callCtx, created.ID, s); err != nil {
			x.manifest.Entries = append(x.manifest.Entries, entry)
			return "failed", x.wrapWriteError(p, []models.SettingPayload{s},
				fmt.Errorf("adding setting %s to %s: %w", s.DefinitionID(), created.ID, err))
		}
		entry.SettingsAdded++
	}
	x.logger(fmt.Sprintf("    %d settings added", entry.SettingsAdded))

	if len(assignments) > 0 {
		if ctx.Err() != nil {
			x.manifest.Entries = append(x.manifest.Entries, entry)
			return "cancelled", ctx.Err()
		}
		if err := x.dst.AssignTargetPolicy(callCtx, created.ID, assignments); err != nil {
			x.manifest.Entries = append(x.manifest.Entries, entry)
			return "failed", fmt.Errorf("assigning %s: %w", created.ID, err)
		}
		entry.AssignmentsApplied = len(assignments)
		x.logger(fmt.Sprintf("    %d assignments applied", entry.AssignmentsApplied))
	}

	x.manifest.Entries = append(x.manifest.Entries, entry)
	return "created", nil
}

// collectSettings resolves each setting of p through the mapping table. A
// definition that is already in the payload list is not sent twice.
func (x *executor) collectSettings(p models.LegacyPolicy) ([]models.SettingPayload, []models.SkippedEntry, error) {
	var payloads []models.SettingPayload
	var skipped []models.SkippedEntry
	seen := map[string]bool{}

	for _, s := range p.Settings {
		e, ok := x.mappings.Get(models.MappingKey{PolicyID: p.ID, SettingValueID: s.ID})
		reason := models.SkipReason("")
		switch {
		case !ok:
			reason = models.SkipUnmapped
		case e.Payload == nil:
			reason = models.SkipNoPayload
		}
		if reason != "" {
			if !x.opts.SkipUnmapped {
				return nil, nil, fmt.Errorf("policy %s (%s): setting %s (%s): %w",
					p.DisplayName, p.ID, s.DisplayName(), s.ID, ErrUnmappedSetting)
			}
			x.logger(fmt.Sprintf("  SKIP (%s): %s / %s", reason, p.DisplayName, s.DisplayName()))
			skipped = append(skipped, models.SkippedEntry{
				SourcePolicyID:       p.ID,
				SourceSettingValueID: s.ID,
				SettingName:          s.DisplayName(),
				Reason:               reason,
			})
			continue
		}

		def := e.Payload.DefinitionID()
		if seen[def] {
			x.logger(fmt.Sprintf("  WARNING: %s / %s maps to %s, which is already set; not sent again",
				p.DisplayName, s.DisplayName(), def))
			continue
		}
		seen[def] = true
		payloads = append(payloads, *e.Payload)
	}
	return payloads, skipped, nil
}

func (x *executor) wrapWriteError(p models.LegacyPolicy, sent []models.SettingPayload, err error) error {
	if !isPlatformMismatch(err) {
		return err
	}
	ids := make([]string, 0, len(sent))
	for _, s := range sent {
		ids = append(ids, s.DefinitionID())
	}
	return &PlatformMismatchError{PolicyID: p.ID, PolicyName: p.DisplayName, DefinitionIDs: ids, Err: err}
}
