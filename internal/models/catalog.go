package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// SettingKind is the type tag of a Settings Catalog definition.
type SettingKind string

const (
	KindChoice  SettingKind = "choice"
	KindSimple  SettingKind = "simple"
	KindUnknown SettingKind = "unknown"
)

// Confidence is the matcher's certainty that a candidate is the right target.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceNone   Confidence = "none"
)

// CandidateSetting is a Settings Catalog definition returned by a search.
type CandidateSetting struct {
	ID          string      `json:"id"`
	DisplayName string      `json:"displayName"`
	Description string      `json:"description,omitempty"`
	Kind        SettingKind `json:"kind"`
}

// Suggestion is the matcher output for one legacy setting.
type Suggestion struct {
	PolicyID       string             `json:"policyId"`
	PolicyName     string             `json:"policyName"`
	SettingValueID string             `json:"settingValueId"`
	SettingName    string             `json:"settingName"`
	Query          string             `json:"query,omitempty"`
	Strategy       string             `json:"strategy,omitempty"`
	Confidence     Confidence         `json:"confidence"`
	Candidates     []CandidateSetting `json:"candidates"`
	Source         LegacySettingValue `json:"source"`
}

// SettingPayload is a deviceManagementConfigurationSetting as sent to Graph.
type SettingPayload struct {
	ODataType       string          `json:"@odata.type"`
	SettingInstance SettingInstance `json:"settingInstance"`
}

// DefinitionID returns the setting definition the payload configures.
func (p *SettingPayload) DefinitionID() string {
	if p == nil {
		return ""
	}
	return p.SettingInstance.SettingDefinitionID
}

// SettingInstance is a choice or simple setting instance. The value field
// matching ODataType is set; the other is nil.
type SettingInstance struct {
	ODataType           string              `json:"@odata.type"`
	SettingDefinitionID string              `json:"settingDefinitionId"`
	ChoiceSettingValue  *ChoiceSettingValue `json:"choiceSettingValue,omitempty"`
	SimpleSettingValue  *SimpleSettingValue `json:"simpleSettingValue,omitempty"`
}

type ChoiceSettingValue struct {
	ODataType string            `json:"@odata.type"`
	Value     string            `json:"value"`
	Children  []SettingInstance `json:"children"`
}

type SimpleSettingValue struct {
	ODataType string      `json:"@odata.type"`
	Value     ScalarValue `json:"value"`
}

// ScalarValue is a string or integer that keeps its JSON type across a
// marshal/unmarshal round trip.
type ScalarValue struct {
	Text      string
	Integer   int64
	IsInteger bool
}

func StringScalar(s string) ScalarValue { return ScalarValue{Text: s} }

func IntegerScalar(n int64) ScalarValue { return ScalarValue{Integer: n, IsInteger: true} }

func (v ScalarValue) String() string {
	if v.IsInteger {
		return strconv.FormatInt(v.Integer, 10)
	}
	return v.Text
}

func (v ScalarValue) MarshalJSON() ([]byte, error) {
	if v.IsInteger {
		return []byte(strconv.FormatInt(v.Integer, 10)), nil
	}
	return json.Marshal(v.Text)
}

func (v *ScalarValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = StringScalar(s)
		return nil
	}
	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("scalar value %s: not a string or integer", data)
	}
	*v = IntegerScalar(n)
	return nil
}

// MappingKey identifies one legacy setting within one legacy policy.
type MappingKey struct {
	PolicyID       string `json:"sourcePolicyId"`
	SettingValueID string `json:"sourceSettingValueId"`
}

func (k MappingKey) String() string {
	return k.PolicyID + "/" + k.SettingValueID
}

// MappingEntry maps a legacy setting to a Settings Catalog payload.
type MappingEntry struct {
	SourcePolicyID       string          `json:"sourcePolicyId"`
	SourceSettingValueID string          `json:"sourceSettingValueId"`
	TargetDefinitionID   string          `json:"targetDefinitionId"`
	Payload              *SettingPayload `json:"payload,omitempty"`
	Origin               string          `json:"origin,omitempty"` // "suggested" or "manual"
	Confidence           Confidence      `json:"confidence,omitempty"`
}

func (e MappingEntry) Key() MappingKey {
	return MappingKey{PolicyID: e.SourcePolicyID, SettingValueID: e.SourceSettingValueID}
}

// DefinitionQuery is one Settings Catalog search request. Filter is an OData
// $filter expression; Search is a full-text $search term. Exactly one is set.
type DefinitionQuery struct {
	Filter string
	Search string
	Top    int
}

// TargetPolicy is a Settings Catalog configuration policy.
type TargetPolicy struct {
	ID           string `json:"id,omitempty"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	Platforms    string `json:"platforms,omitempty"`
	Technologies string `json:"technologies,omitempty"`
}

// NewTargetPolicy is the create request for a Settings Catalog policy.
// Graph rejects a create with no settings.
type NewTargetPolicy struct {
	Name         string           `json:"name"`
	Description  string           `json:"description"`
	Platforms    string           `json:"platforms"`
	Technologies string           `json:"technologies"`
	Settings     []SettingPayload `json:"settings"`
}
