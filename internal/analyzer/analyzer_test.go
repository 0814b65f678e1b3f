package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rflorenc/catalog-migrator/internal/models"
	nz "github.com/rflorenc/catalog-migrator/internal/normalize"
)

func setting(id, defID, name string, state models.EnabledState) models.LegacySettingValue {
	s := models.LegacySettingValue{ID: id, Enabled: state}
	if defID != "" || name != "" {
		s.Definition = &models.SettingDefinitionMeta{ID: defID, DisplayName: name}
	}
	return s
}

func policy(id string, settings ...models.LegacySettingValue) models.LegacyPolicy {
	return models.LegacyPolicy{ID: id, DisplayName: "Policy " + id, Settings: settings}
}

func TestAnalyze_ConflictGroup(t *testing.T) {
	policies := []models.LegacyPolicy{
		policy("A", setting("a1", "def-x", "Setting X", models.StateEnabled)),
		policy("B", setting("b1", "def-x", "Setting X", models.StateEnabled)),
		policy("C", setting("c1", "def-x", "Setting X", models.StateDisabled)),
	}

	r := Analyze(policies)
	require.Len(t, r.DuplicateGroups, 1)
	g := r.DuplicateGroups[0]
	assert.Equal(t, "def:def-x", g.SettingKey)
	assert.Equal(t, "Setting X", g.DisplayName)
	assert.Equal(t, 3, g.OccurrenceCount)
	assert.True(t, g.IsConflict)
	assert.Equal(t, []string{"disabled", "enabled"}, g.States)

	require.Len(t, r.MergeCandidates, 3)
	byPair := map[string]models.MergeCandidate{}
	for _, m := range r.MergeCandidates {
		byPair[m.PolicyA+m.PolicyB] = m
	}
	assert.True(t, byPair["AB"].CanAutoMerge)
	assert.False(t, byPair["AC"].CanAutoMerge)
	assert.Equal(t, 1, byPair["BC"].ConflictCount)

	assert.Equal(t, models.DuplicateSummary{
		Policies: 3, Settings: 3, DuplicateGroups: 1, ConflictGroups: 1,
		MergeCandidates: 3, AutoMergeable: 1,
	}, r.Summary)
}

func TestAnalyze_KeyPriority(t *testing.T) {
	policies := []models.LegacyPolicy{
		policy("A",
			setting("a1", "", "Block  Popups", models.StateEnabled),
			setting("a2", "", "", models.StateEnabled),
		),
		policy("B",
			setting("b1", "", "block popups", models.StateEnabled),
			setting("a2", "", "", models.StateEnabled),
		),
	}

	r := Analyze(policies)
	require.Len(t, r.DuplicateGroups, 2)
	assert.Equal(t, "name:block popups", r.DuplicateGroups[0].SettingKey)
	assert.Equal(t, "raw:a2", r.DuplicateGroups[1].SettingKey)
	assert.False(t, r.DuplicateGroups[0].IsConflict)

	require.Len(t, r.MergeCandidates, 1)
	assert.Equal(t, 2, r.MergeCandidates[0].SharedSettings)
	assert.True(t, r.MergeCandidates[0].CanAutoMerge)
}

func TestAnalyze_Deterministic(t *testing.T) {
	a := policy("A", setting("a1", "d1", "One", models.StateEnabled), setting("a2", "d2", "Two", models.StateEnabled))
	b := policy("B", setting("b1", "d1", "One", models.StateDisabled), setting("b2", "d2", "Two", models.StateEnabled))
	c := policy("C", setting("c1", "d2", "Two", models.StateEnabled))

	first := Analyze([]models.LegacyPolicy{a, b, c})
	second := Analyze([]models.LegacyPolicy{c, b, a})
	assert.Equal(t, first.DuplicateGroups, second.DuplicateGroups)
	assert.Equal(t, first.MergeCandidates, second.MergeCandidates)

	// A and B share two settings so they sort first.
	require.NotEmpty(t, first.MergeCandidates)
	assert.Equal(t, "A", first.MergeCandidates[0].PolicyA)
	assert.Equal(t, "B", first.MergeCandidates[0].PolicyB)
	assert.Equal(t, 2, first.MergeCandidates[0].SharedSettings)
	assert.Equal(t, 1, first.MergeCandidates[0].ConflictCount)
}

func TestAnalyze_NoDuplicates(t *testing.T) {
	r := Analyze([]models.LegacyPolicy{policy("A", setting("a1", "d1", "One", models.StateEnabled))})
	assert.NotNil(t, r.DuplicateGroups)
	assert.Empty(t, r.DuplicateGroups)
	assert.Empty(t, r.MergeCandidates)
	assert.Equal(t, 1, r.Summary.Settings)
}

func TestAnalyze_ExportedDefinitionWithoutID(t *testing.T) {
	raw := func(policyID, valueID string, enabled bool) nz.RawPolicy {
		return nz.RawPolicy{
			Policy: models.Resource{"id": policyID, "displayName": policyID},
			DefinitionValues: []models.Resource{{
				"id":         valueID,
				"enabled":    enabled,
				"definition": map[string]interface{}{"displayName": "Turn off  Telemetry"},
			}},
		}
	}
	res := nz.Normalize([]nz.RawPolicy{raw("A", "v1", true), raw("B", "v2", false)}, func(string) {})
	require.Len(t, res.Policies, 2)

	s := res.Policies[0].Settings[0]
	require.NotNil(t, s.Definition)
	assert.Equal(t, "Turn off  Telemetry", s.DisplayName())
	assert.Equal(t, "value:v1", s.Identity())

	report := Analyze(res.Policies)
	require.Len(t, report.DuplicateGroups, 1)
	g := report.DuplicateGroups[0]
	assert.Equal(t, "name:turn off telemetry", g.SettingKey)
	assert.True(t, g.IsConflict)
}
