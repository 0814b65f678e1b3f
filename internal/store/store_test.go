package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rflorenc/catalog-migrator/internal/mapping"
	"github.com/rflorenc/catalog-migrator/internal/models"
)

func TestStore_ExportRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := New("mem://localhost/store/export")

	_, err := s.LoadExport(ctx)
	assert.True(t, errors.Is(err, ErrNotFound))

	in := &models.ExportSet{
		ExportedAt: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		Identity:   "app:client",
		Policies: []models.LegacyPolicy{{
			ID:          "p1",
			DisplayName: "Baseline",
			Settings: []models.LegacySettingValue{{
				ID:      "dv1",
				Enabled: models.StateDisabled,
				Values:  []models.PresentationValue{{Kind: models.PresentationNumber, Number: 3}},
			}},
			Assignments: []models.Assignment{{Target: &models.AssignmentTarget{ODataType: "#microsoft.graph.allDevicesAssignmentTarget"}}},
		}},
	}
	require.NoError(t, s.SaveExport(ctx, in))
	out, err := s.LoadExport(ctx)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestStore_MappingRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := New("mem://localhost/store/mapping")

	_, err := s.LoadMapping(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	m := mapping.NewStore()
	src := models.LegacySettingValue{ID: "dv1", Enabled: models.StateEnabled}
	_, err = m.Choose("p1", src, models.CandidateSetting{ID: "device_vendor_msft_x", Kind: models.KindChoice})
	require.NoError(t, err)
	require.NoError(t, s.SaveMapping(ctx, m))

	loaded, err := s.LoadMapping(ctx)
	require.NoError(t, err)
	assert.Equal(t, m.Entries(), loaded.Entries())
}

func TestStore_ManifestLatestAndByRun(t *testing.T) {
	ctx := context.Background()
	s := New("mem://localhost/store/manifest")

	first := models.NewManifest("run-1", "MigratedFromGPO", false)
	first.Entries = append(first.Entries, models.ManifestEntry{SourcePolicyID: "p1", TargetPolicyID: "t1", TargetName: "A"})
	require.NoError(t, s.SaveManifest(ctx, first))
	second := models.NewManifest("run-2", "MigratedFromGPO", true)
	require.NoError(t, s.SaveManifest(ctx, second))

	latest, err := s.LoadManifest(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "run-2", latest.RunID)

	byRun, err := s.LoadManifest(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, byRun.Entries, 1)
	assert.Equal(t, "t1", byRun.Entries[0].TargetPolicyID)

	_, err = s.LoadManifest(ctx, "run-9")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_LocalDirectory(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "data")
	s := New(dir)
	assert.Equal(t, "file://"+dir, s.BaseURL())

	sugs := []models.Suggestion{{PolicyID: "p1", SettingValueID: "dv1", Confidence: models.ConfidenceHigh, Candidates: []models.CandidateSetting{}}}
	require.NoError(t, s.SaveSuggestions(ctx, sugs))
	got, err := s.LoadSuggestions(ctx)
	require.NoError(t, err)
	assert.Equal(t, sugs, got)

	report := &models.DuplicateReport{DuplicateGroups: []models.DuplicateGroup{}, MergeCandidates: []models.MergeCandidate{}}
	require.NoError(t, s.SaveDuplicates(ctx, report))
	loaded, err := s.LoadDuplicates(ctx)
	require.NoError(t, err)
	assert.Equal(t, report, loaded)
}
