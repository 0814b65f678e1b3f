package models

import "time"

// SkipReason explains why a setting or policy was not migrated.
type SkipReason string

const (
	SkipUnmapped         SkipReason = "unmapped"
	SkipNoMappedSettings SkipReason = "no-mapped-settings"
	SkipNoPayload        SkipReason = "no-payload"
)

// ManifestEntry records one target policy created (or that would have been
// created, in dry-run) for one legacy policy.
type ManifestEntry struct {
	SourcePolicyID     string `json:"sourcePolicyId"`
	SourcePolicyName   string `json:"sourcePolicyName,omitempty"`
	TargetPolicyID     string `json:"targetPolicyId,omitempty"`
	TargetName         string `json:"targetName"`
	SettingsAdded      int    `json:"settingsAdded"`
	AssignmentsApplied int    `json:"assignmentsApplied"`
	WhatIf             bool   `json:"whatIf,omitempty"`
	Reused             bool   `json:"reused,omitempty"`
}

// SkippedEntry records a setting (or whole policy, when SourceSettingValueID
// is empty) that was not migrated.
type SkippedEntry struct {
	SourcePolicyID       string     `json:"sourcePolicyId"`
	SourceSettingValueID string     `json:"sourceSettingValueId,omitempty"`
	SettingName          string     `json:"settingName,omitempty"`
	Reason               SkipReason `json:"reason"`
}

// Manifest is the durable record of a migration run and the sole input to
// rollback.
type Manifest struct {
	RunID      string          `json:"runId"`
	StartedAt  time.Time       `json:"startedAt"`
	FinishedAt *time.Time      `json:"finishedAt,omitempty"`
	WhatIf     bool            `json:"whatIf"`
	MarkerKey  string          `json:"markerKey"`
	Entries    []ManifestEntry `json:"createdPolicies"`
	Skipped    []SkippedEntry  `json:"skipped"`
	Error      string          `json:"error,omitempty"`
}

// NewManifest creates an empty manifest for a run.
func NewManifest(runID, markerKey string, whatIf bool) *Manifest {
	return &Manifest{
		RunID:     runID,
		StartedAt: time.Now().UTC(),
		WhatIf:    whatIf,
		MarkerKey: markerKey,
		Entries:   []ManifestEntry{},
		Skipped:   []SkippedEntry{},
	}
}

// Deletable returns the entries rollback must delete: those with a target
// policy id that are not what-if records.
func (m *Manifest) Deletable() []ManifestEntry {
	var out []ManifestEntry
	for _, e := range m.Entries {
		if e.WhatIf || e.TargetPolicyID == "" {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Finish stamps the finish time and the run error, if any.
func (m *Manifest) Finish(err error) {
	now := time.Now().UTC()
	m.FinishedAt = &now
	if err != nil {
		m.Error = err.Error()
	}
}

// ManifestSummary is the status object returned to the CLI/UI surface.
type ManifestSummary struct {
	RunID    string `json:"runId"`
	WhatIf   bool   `json:"whatIf"`
	Created  int    `json:"created"`
	Reused   int    `json:"reused"`
	Planned  int    `json:"planned"`
	Skipped  int    `json:"skipped"`
	Settings int    `json:"settings"`
}

// Summary counts the manifest's entries by outcome.
func (m *Manifest) Summary() ManifestSummary {
	s := ManifestSummary{RunID: m.RunID, WhatIf: m.WhatIf, Skipped: len(m.Skipped)}
	for _, e := range m.Entries {
		switch {
		case e.WhatIf:
			s.Planned++
		case e.Reused:
			s.Reused++
		default:
			s.Created++
		}
		s.Settings += e.SettingsAdded
	}
	return s
}

// RollbackResult is the outcome of deleting one target policy.
type RollbackResult struct {
	SourcePolicyID string `json:"sourcePolicyId"`
	TargetPolicyID string `json:"targetPolicyId"`
	TargetName     string `json:"targetName"`
	Deleted        bool   `json:"deleted"`
	Error          string `json:"error,omitempty"`
}

// RollbackReport summarises a rollback sweep.
type RollbackReport struct {
	ManifestRunID string           `json:"manifestRunId"`
	Results       []RollbackResult `json:"results"`
	Deleted       int              `json:"deleted"`
	Failed        int              `json:"failed"`
}
