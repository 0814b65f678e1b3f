package mapping

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rflorenc/catalog-migrator/internal/models"
)

func TestBuildSettingPayload_Choice(t *testing.T) {
	c := models.CandidateSetting{ID: "device_vendor_msft_policy_config_x", Kind: models.KindChoice}

	tests := []struct {
		state models.EnabledState
		want  string
	}{
		{models.StateEnabled, "device_vendor_msft_policy_config_x_1"},
		{models.StateDisabled, "device_vendor_msft_policy_config_x_0"},
		{models.StateUnknown, "device_vendor_msft_policy_config_x_1"},
	}
	for _, tc := range tests {
		t.Run(string(tc.state), func(t *testing.T) {
			p := BuildSettingPayload(c, models.LegacySettingValue{ID: "dv", Enabled: tc.state})
			require.NotNil(t, p)
			require.NotNil(t, p.SettingInstance.ChoiceSettingValue)
			assert.Nil(t, p.SettingInstance.SimpleSettingValue)
			assert.Equal(t, tc.want, p.SettingInstance.ChoiceSettingValue.Value)
			assert.Equal(t, c.ID, p.DefinitionID())
		})
	}
}

func TestBuildSettingPayload_UnknownKindUsesChoice(t *testing.T) {
	p := BuildSettingPayload(models.CandidateSetting{ID: "d", Kind: models.KindUnknown},
		models.LegacySettingValue{Enabled: models.StateDisabled})
	require.NotNil(t, p)
	assert.Equal(t, odataChoiceInstance, p.SettingInstance.ODataType)
	assert.Equal(t, "d_0", p.SettingInstance.ChoiceSettingValue.Value)
}

func TestBuildSettingPayload_Simple(t *testing.T) {
	c := models.CandidateSetting{ID: "d", Kind: models.KindSimple}
	tests := []struct {
		name      string
		values    []models.PresentationValue
		wantType  string
		wantValue string
	}{
		{"string", []models.PresentationValue{{Kind: models.PresentationString, String: "https://contoso.com"}}, odataStringValue, `"https://contoso.com"`},
		{"number", []models.PresentationValue{{Kind: models.PresentationNumber, Number: 30}}, odataIntegerValue, `30`},
		{"boolean", []models.PresentationValue{{Kind: models.PresentationBoolean, Boolean: true}}, odataIntegerValue, `1`},
		{"list", []models.PresentationValue{{Kind: models.PresentationList, List: []string{"a", "b"}}}, odataStringValue, `"a,b"`},
		{"skips unknown", []models.PresentationValue{{Kind: models.PresentationUnknown}, {Kind: models.PresentationNumber, Number: 2}}, odataIntegerValue, `2`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := BuildSettingPayload(c, models.LegacySettingValue{Enabled: models.StateEnabled, Values: tc.values})
			require.NotNil(t, p)
			v := p.SettingInstance.SimpleSettingValue
			require.NotNil(t, v)
			assert.Equal(t, tc.wantType, v.ODataType)
			got, err := json.Marshal(v.Value)
			require.NoError(t, err)
			assert.JSONEq(t, tc.wantValue, string(got))
		})
	}

	assert.Nil(t, BuildSettingPayload(c, models.LegacySettingValue{Enabled: models.StateEnabled}))
	assert.Nil(t, BuildSettingPayload(models.CandidateSetting{}, models.LegacySettingValue{}))
}

func TestBuildSettingPayload_Deterministic(t *testing.T) {
	c := models.CandidateSetting{ID: "d", Kind: models.KindSimple}
	src := models.LegacySettingValue{
		ID:      "dv",
		Enabled: models.StateEnabled,
		Values:  []models.PresentationValue{{Kind: models.PresentationList, List: []string{"x", "y"}}},
	}
	a, err := json.Marshal(BuildSettingPayload(c, src))
	require.NoError(t, err)
	b, err := json.Marshal(BuildSettingPayload(c, src))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func suggestion(policy, value string, conf models.Confidence, candidates ...models.CandidateSetting) models.Suggestion {
	if candidates == nil {
		candidates = []models.CandidateSetting{}
	}
	return models.Suggestion{
		PolicyID:       policy,
		SettingValueID: value,
		Confidence:     conf,
		Candidates:     candidates,
		Source:         models.LegacySettingValue{ID: value, Enabled: models.StateEnabled},
	}
}

func TestBuildFromSuggestions(t *testing.T) {
	best := models.CandidateSetting{ID: "device_vendor_msft_a", Kind: models.KindChoice}
	other := models.CandidateSetting{ID: "device_vendor_msft_b", Kind: models.KindChoice}
	sugs := []models.Suggestion{
		suggestion("p1", "dv1", models.ConfidenceHigh, best, other),
		suggestion("p1", "dv2", models.ConfidenceMedium, other),
		suggestion("p2", "dv3", models.ConfidenceNone),
	}

	s := NewStore()
	assert.Equal(t, 1, s.BuildFromSuggestions(sugs, []models.Confidence{models.ConfidenceHigh}))
	e, ok := s.Get(models.MappingKey{PolicyID: "p1", SettingValueID: "dv1"})
	require.True(t, ok)
	assert.Equal(t, "device_vendor_msft_a", e.TargetDefinitionID)
	assert.Equal(t, OriginSuggested, e.Origin)
	assert.Equal(t, "device_vendor_msft_a_1", e.Payload.SettingInstance.ChoiceSettingValue.Value)

	// Confidence "none" has no candidates and never produces an entry.
	s = NewStore()
	assert.Equal(t, 2, s.BuildFromSuggestions(sugs, []models.Confidence{models.ConfidenceHigh, models.ConfidenceMedium, models.ConfidenceNone}))
}

func TestStore_UpsertRemoveLastWriteWins(t *testing.T) {
	s := NewStore()
	key := models.MappingKey{PolicyID: "p1", SettingValueID: "dv1"}
	require.NoError(t, s.Upsert(models.MappingEntry{SourcePolicyID: "p1", SourceSettingValueID: "dv1", TargetDefinitionID: "a"}))
	require.NoError(t, s.Upsert(models.MappingEntry{SourcePolicyID: "p1", SourceSettingValueID: "dv1", TargetDefinitionID: "b"}))
	assert.Equal(t, 1, s.Len())
	e, _ := s.Get(key)
	assert.Equal(t, "b", e.TargetDefinitionID)
	assert.Equal(t, OriginManual, e.Origin)

	assert.Error(t, s.Upsert(models.MappingEntry{SourcePolicyID: "p1"}))

	assert.True(t, s.Remove(key))
	assert.False(t, s.Remove(key))
	assert.Equal(t, 0, s.Len())
}

func TestStore_Choose(t *testing.T) {
	s := NewStore()
	src := models.LegacySettingValue{ID: "dv1", Enabled: models.StateDisabled}
	e, err := s.Choose("p1", src, models.CandidateSetting{ID: "d", Kind: models.KindChoice})
	require.NoError(t, err)
	assert.Equal(t, "d", e.TargetDefinitionID)
	assert.Equal(t, "d_0", e.Payload.SettingInstance.ChoiceSettingValue.Value)
	got, ok := s.Get(e.Key())
	require.True(t, ok)
	assert.Equal(t, e, got)
}

func TestStore_Merge(t *testing.T) {
	base := NewStore()
	require.NoError(t, base.Upsert(models.MappingEntry{SourcePolicyID: "p1", SourceSettingValueID: "dv1", TargetDefinitionID: "suggested", Origin: OriginSuggested}))
	require.NoError(t, base.Upsert(models.MappingEntry{SourcePolicyID: "p1", SourceSettingValueID: "dv2", TargetDefinitionID: "keep"}))
	curated := NewStore()
	require.NoError(t, curated.Upsert(models.MappingEntry{SourcePolicyID: "p1", SourceSettingValueID: "dv1", TargetDefinitionID: "curated"}))

	base.Merge(curated)
	entries := base.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "curated", entries[0].TargetDefinitionID)
	assert.Equal(t, "keep", entries[1].TargetDefinitionID)
}

func TestStore_SerializeRoundTrip(t *testing.T) {
	s := NewStore()
	choice := BuildSettingPayload(models.CandidateSetting{ID: "c", Kind: models.KindChoice}, models.LegacySettingValue{Enabled: models.StateEnabled})
	simple := BuildSettingPayload(models.CandidateSetting{ID: "s", Kind: models.KindSimple}, models.LegacySettingValue{
		Values: []models.PresentationValue{{Kind: models.PresentationNumber, Number: 42}},
	})
	require.NoError(t, s.Upsert(models.MappingEntry{SourcePolicyID: "p2", SourceSettingValueID: "dv1", TargetDefinitionID: "c", Payload: choice, Origin: OriginSuggested, Confidence: models.ConfidenceHigh}))
	require.NoError(t, s.Upsert(models.MappingEntry{SourcePolicyID: "p1", SourceSettingValueID: "dv9", TargetDefinitionID: "s", Payload: simple}))
	require.NoError(t, s.Upsert(models.MappingEntry{SourcePolicyID: "p1", SourceSettingValueID: "dv3", TargetDefinitionID: "none"}))

	data, err := s.Serialize()
	require.NoError(t, err)
	loaded, err := Deserialize(data)
	require.NoError(t, err)
	assert.Equal(t, s.Entries(), loaded.Entries())

	v := loaded.Entries()[1].Payload.SettingInstance.SimpleSettingValue
	require.NotNil(t, v)
	assert.True(t, v.Value.IsInteger)
	assert.Equal(t, int64(42), v.Value.Integer)
}

func TestDeserialize_Invalid(t *testing.T) {
	_, err := Deserialize([]byte(`{"entries":[{"sourcePolicyId":"p1"}]}`))
	assert.Error(t, err)
	_, err = Deserialize([]byte(`not json`))
	assert.Error(t, err)
}
