package matcher

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rflorenc/catalog-migrator/internal/models"
)

var tokens = []string{"device_vendor_msft", "user_vendor_msft"}

// fakeSearcher answers by matching the rendered query against a script.
type fakeSearcher struct {
	respond func(q models.DefinitionQuery) ([]models.CandidateSetting, error)
	calls   []models.DefinitionQuery
}

func (f *fakeSearcher) SearchSettingDefinitions(_ context.Context, q models.DefinitionQuery) ([]models.CandidateSetting, error) {
	f.calls = append(f.calls, q)
	return f.respond(q)
}

func candidate(id, name string) models.CandidateSetting {
	return models.CandidateSetting{ID: id, DisplayName: name, Kind: models.KindChoice}
}

func TestClassify(t *testing.T) {
	scoped := "device_vendor_msft_policy_config_system_allowtelemetry"
	tests := []struct {
		name      string
		source    string
		candidate models.CandidateSetting
		want      models.Confidence
	}{
		{"exact name", "Disable Telemetry", candidate(scoped, "Disable Telemetry"), models.ConfidenceHigh},
		{"exact name ignores case and quotes", `Disable "Telemetry"`, candidate("other", "disable telemetry"), models.ConfidenceHigh},
		{"unrelated name", "Disable Telemetry", candidate(scoped, "Configure Update Ring"), models.ConfidenceNone},
		{"containment scoped", "Allow Telemetry", candidate(scoped, "Allow Telemetry (User)"), models.ConfidenceHigh},
		{"containment unscoped", "Allow Telemetry", candidate("vendor_msft_x", "Allow Telemetry (User)"), models.ConfidenceMedium},
		{"word overlap scoped", "Block downloads of executable files", candidate(scoped, "Executable downloads block list"), models.ConfidenceHigh},
		{"word overlap unscoped", "Block downloads of executable files", candidate("legacy_x", "Executable downloads block list"), models.ConfidenceMedium},
		{"single word overlap", "Telemetry level", candidate(scoped, "Telemetry proxy"), models.ConfidenceNone},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Classify(tc.source, []models.CandidateSetting{tc.candidate}, tokens)
			assert.Equal(t, tc.want, got)
		})
	}

	assert.Equal(t, models.ConfidenceNone, Classify("Anything", nil, tokens))
}

func TestClassify_UsesFirstCandidateOnly(t *testing.T) {
	got := Classify("Disable Telemetry", []models.CandidateSetting{
		candidate("device_vendor_msft_a", "Configure Update Ring"),
		candidate("device_vendor_msft_b", "Disable Telemetry"),
	}, tokens)
	assert.Equal(t, models.ConfidenceNone, got)
}

func TestQueries(t *testing.T) {
	got := Queries(`Configure "Automatic Updates"`, `\Windows Components\Windows Update`)
	assert.Equal(t, []string{
		"Configure Automatic Updates",
		"Automatic Updates",
		"Windows Update Automatic Updates",
	}, got)

	// Category already in the name and a prefix that would leave too little.
	assert.Equal(t, []string{"Set foo", "Windows Set foo"}, Queries("Set foo", `\Windows`))
	assert.Equal(t, []string{"Windows Update policy"}, Queries("Windows Update policy", `\Windows Update`))
	assert.Empty(t, Queries("  ", ""))
}

func TestIdentifierAndWords(t *testing.T) {
	assert.Equal(t, "allow_telemetry_v2", IdentifierFor("Allow Telemetry (v2)!"))
	assert.Equal(t, []string{"telemetry", "level", "diagnostic", "data"},
		SignificantWords("Configure telemetry level for diagnostic data telemetry"))
	assert.Equal(t, "'it''s'", odataString("it's"))
}

func TestSearch_StrategyFallback(t *testing.T) {
	f := &fakeSearcher{respond: func(q models.DefinitionQuery) ([]models.CandidateSetting, error) {
		switch {
		case strings.HasPrefix(q.Filter, "contains(displayName,'Allow Telemetry')"):
			return nil, errors.New("HTTP 500")
		case strings.HasPrefix(q.Filter, "contains(id,"):
			// Only an unscoped hit: filtered away, falls through.
			return []models.CandidateSetting{candidate("vendor_msft_other", "Allow Telemetry")}, nil
		case q.Search != "":
			return nil, errors.New("search not supported")
		default:
			return []models.CandidateSetting{candidate("device_vendor_msft_telemetry", "Allow Telemetry")}, nil
		}
	}}
	var logs []string
	m := New(f, Options{PlatformTokens: tokens}, func(s string) { logs = append(logs, s) })

	found, strategy := m.Search(context.Background(), "Allow Telemetry")
	require.Len(t, found, 1)
	assert.Equal(t, StrategyKeywords, strategy)
	require.Len(t, f.calls, 4)
	assert.Equal(t, "contains(id,'allow_telemetry')", f.calls[1].Filter)
	assert.Equal(t, "Allow Telemetry", f.calls[2].Search)
	assert.Equal(t, "contains(displayName,'telemetry')", f.calls[3].Filter)
	assert.Equal(t, searchTop, f.calls[3].Top)
	assert.Len(t, logs, 2)
}

func TestSearch_CachesSuccessfulResults(t *testing.T) {
	f := &fakeSearcher{respond: func(models.DefinitionQuery) ([]models.CandidateSetting, error) {
		return []models.CandidateSetting{candidate("device_vendor_msft_x", "X")}, nil
	}}
	m := New(f, Options{PlatformTokens: tokens}, nil)
	m.Search(context.Background(), "Some Setting")
	m.Search(context.Background(), "Some Setting")
	assert.Len(t, f.calls, 1)

	// A new run starts with an empty cache.
	New(f, Options{PlatformTokens: tokens}, nil).Search(context.Background(), "Some Setting")
	assert.Len(t, f.calls, 2)
}

func TestSearch_TruncatesToMaxCandidates(t *testing.T) {
	f := &fakeSearcher{respond: func(models.DefinitionQuery) ([]models.CandidateSetting, error) {
		var out []models.CandidateSetting
		for i := 0; i < 10; i++ {
			out = append(out, candidate("device_vendor_msft_"+string(rune('a'+i)), "X"))
		}
		return out, nil
	}}
	found, _ := New(f, Options{PlatformTokens: tokens, MaxCandidates: 3}, nil).Search(context.Background(), "X")
	require.Len(t, found, 3)
	assert.Equal(t, "device_vendor_msft_a", found[0].ID)
}

func TestSuggest_TotalFailureIsNone(t *testing.T) {
	f := &fakeSearcher{respond: func(models.DefinitionQuery) ([]models.CandidateSetting, error) {
		return nil, errors.New("boom")
	}}
	m := New(f, Options{PlatformTokens: tokens}, nil)
	policy := models.LegacyPolicy{ID: "p1", DisplayName: "Baseline"}
	setting := models.LegacySettingValue{
		ID:         "dv1",
		Definition: &models.SettingDefinitionMeta{ID: "d1", DisplayName: "Turn off Telemetry", CategoryPath: `\Data Collection`},
	}

	sug := m.Suggest(context.Background(), policy, setting)
	assert.Equal(t, models.ConfidenceNone, sug.Confidence)
	assert.NotNil(t, sug.Candidates)
	assert.Empty(t, sug.Candidates)
	assert.Equal(t, "dv1", sug.SettingValueID)
	assert.Equal(t, "Turn off Telemetry", sug.SettingName)
}

func TestSuggest_StopsAtFirstQueryWithResults(t *testing.T) {
	f := &fakeSearcher{respond: func(q models.DefinitionQuery) ([]models.CandidateSetting, error) {
		if q.Filter == "contains(displayName,'Telemetry')" {
			return []models.CandidateSetting{candidate("device_vendor_msft_telemetry", "Telemetry")}, nil
		}
		return nil, nil
	}}
	m := New(f, Options{PlatformTokens: tokens}, nil)
	setting := models.LegacySettingValue{
		ID:         "dv1",
		Definition: &models.SettingDefinitionMeta{ID: "d1", DisplayName: "Disable Telemetry", CategoryPath: `\Data`},
	}

	sug := m.Suggest(context.Background(), models.LegacyPolicy{ID: "p1"}, setting)
	assert.Equal(t, "Telemetry", sug.Query)
	assert.Equal(t, StrategyDisplayName, sug.Strategy)
	assert.Equal(t, models.ConfidenceHigh, sug.Confidence)
	for _, c := range f.calls {
		assert.NotContains(t, c.Filter, "Data Telemetry")
	}
}

func TestSuggestAll_StopsWhenCancelled(t *testing.T) {
	f := &fakeSearcher{respond: func(models.DefinitionQuery) ([]models.CandidateSetting, error) { return nil, nil }}
	m := New(f, Options{PlatformTokens: tokens}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	policies := []models.LegacyPolicy{{ID: "p1", Settings: []models.LegacySettingValue{{ID: "dv1"}}}}
	out, err := m.SuggestAll(ctx, policies)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, out)
	assert.Empty(t, f.calls)
}
