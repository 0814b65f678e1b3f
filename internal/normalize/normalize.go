// Package normalize decodes raw Administrative Templates records fetched from
// Graph into the typed models used by every later stage.
package normalize

import (
	"fmt"
	"strings"

	"github.com/rflorenc/catalog-migrator/internal/models"
)

// RawPolicy is one legacy policy as fetched, with its sub-resources. A
// sub-resource whose fetch failed carries the error instead of records.
type RawPolicy struct {
	Policy              models.Resource
	DefinitionValues    []models.Resource
	DefinitionValuesErr error
	Assignments         []models.Resource
	AssignmentsErr      error
}

// Result is the normalized export plus the warnings produced on the way.
type Result struct {
	Policies []models.LegacyPolicy
	Warnings []string
}

// Normalize converts raw policies. It never fails: a failed sub-resource
// degrades to an empty list and a warning, and a record without an id is
// dropped with a warning.
func Normalize(raw []RawPolicy, logger func(string)) Result {
	res := Result{Policies: make([]models.LegacyPolicy, 0, len(raw))}
	warn := func(msg string) {
		res.Warnings = append(res.Warnings, msg)
		if logger != nil {
			logger("  WARNING: " + msg)
		}
	}

	for _, rp := range raw {
		p, warnings := Policy(rp)
		for _, w := range warnings {
			warn(w)
		}
		if p.ID == "" {
			continue
		}
		res.Policies = append(res.Policies, p)
	}
	return res
}

// Policy normalizes one raw policy and returns its warnings.
func Policy(rp RawPolicy) (models.LegacyPolicy, []string) {
	var warnings []string
	id := stringField(rp.Policy, "id")
	name := stringField(rp.Policy, "displayName")
	if id == "" {
		return models.LegacyPolicy{}, []string{fmt.Sprintf("skipping policy record without id (name %q)", name)}
	}

	p := models.LegacyPolicy{
		ID:           id,
		DisplayName:  name,
		Description:  stringField(rp.Policy, "description"),
		LastModified: timeField(rp.Policy, "lastModifiedDateTime"),
		Settings:     []models.LegacySettingValue{},
		Assignments:  []models.Assignment{},
	}

	if rp.DefinitionValuesErr != nil {
		warnings = append(warnings, fmt.Sprintf("failed to get settings for policy %s (%s): %v", name, id, rp.DefinitionValuesErr))
	} else {
		for _, dv := range rp.DefinitionValues {
			sv, ok := SettingValue(dv)
			if !ok {
				warnings = append(warnings, fmt.Sprintf("policy %s (%s): skipping setting record without id", name, id))
				continue
			}
			p.Settings = append(p.Settings, sv)
		}
	}

	if rp.AssignmentsErr != nil {
		warnings = append(warnings, fmt.Sprintf("failed to get assignments for policy %s (%s): %v", name, id, rp.AssignmentsErr))
	} else {
		for _, a := range rp.Assignments {
			p.Assignments = append(p.Assignments, assignment(a))
		}
	}
	return p, warnings
}

// SettingValue decodes one groupPolicyDefinitionValue record.
func SettingValue(dv models.Resource) (models.LegacySettingValue, bool) {
	id := stringField(dv, "id")
	if id == "" {
		return models.LegacySettingValue{}, false
	}
	sv := models.LegacySettingValue{ID: id, Enabled: models.StateUnknown}
	if enabled, ok := boolField(dv, "enabled"); ok {
		if enabled {
			sv.Enabled = models.StateEnabled
		} else {
			sv.Enabled = models.StateDisabled
		}
	}
	sv.Definition = definitionMeta(mapField(dv, "definition"))
	for _, pv := range sliceField(dv, "presentationValues") {
		sv.Values = append(sv.Values, presentationValue(pv))
	}
	return sv, true
}

// definitionMeta keeps whatever definition metadata is present. The id may
// be empty; the setting's identity then falls back to its own value id.
func definitionMeta(def map[string]interface{}) *models.SettingDefinitionMeta {
	if def == nil {
		return nil
	}
	meta := &models.SettingDefinitionMeta{
		ID:           stringField(def, "id"),
		DisplayName:  strings.TrimSpace(stringField(def, "displayName")),
		CategoryPath: stringField(def, "categoryPath"),
		ClassType:    stringField(def, "classType"),
		PolicyType:   stringField(def, "policyType"),
	}
	if meta.ID == "" && meta.DisplayName == "" && meta.CategoryPath == "" {
		return nil
	}
	return meta
}

// presentationValue decodes a groupPolicyPresentationValue by its @odata.type.
func presentationValue(pv map[string]interface{}) models.PresentationValue {
	out := models.PresentationValue{
		ID:   stringField(pv, "id"),
		Kind: models.PresentationUnknown,
	}
	if pres := mapField(pv, "presentation"); pres != nil {
		out.Label = stringField(pres, "label")
	}

	odataType := strings.ToLower(stringField(pv, "@odata.type"))
	switch {
	case strings.HasSuffix(odataType, "presentationvaluetext"):
		if s, ok := pv["value"].(string); ok {
			out.Kind = models.PresentationString
			out.String = s
		}
	case strings.HasSuffix(odataType, "presentationvaluedecimal"):
		if n, ok := toInt64(pv["value"]); ok {
			out.Kind = models.PresentationNumber
			out.Number = n
		}
	case strings.HasSuffix(odataType, "presentationvalueboolean"):
		if b, ok := boolField(pv, "value"); ok {
			out.Kind = models.PresentationBoolean
			out.Boolean = b
		}
	case strings.HasSuffix(odataType, "presentationvaluemultitext"):
		out.Kind = models.PresentationList
		out.List = stringsField(pv, "values")
	case strings.HasSuffix(odataType, "presentationvaluelist"):
		out.Kind = models.PresentationList
		for _, kv := range sliceField(pv, "values") {
			name, value := stringField(kv, "name"), stringField(kv, "value")
			switch {
			case name != "" && value != "":
				out.List = append(out.List, name+"="+value)
			case value != "":
				out.List = append(out.List, value)
			case name != "":
				out.List = append(out.List, name)
			}
		}
	}
	return out
}

// assignment decodes an assignment record. A missing target stays nil; the
// executor only copies assignments whose target is present.
func assignment(a models.Resource) models.Assignment {
	out := models.Assignment{ID: stringField(a, "id")}
	t := mapField(a, "target")
	if t == nil || stringField(t, "@odata.type") == "" {
		return out
	}
	out.Target = &models.AssignmentTarget{
		ODataType:  stringField(t, "@odata.type"),
		GroupID:    stringField(t, "groupId"),
		FilterID:   stringField(t, "deviceAndAppManagementAssignmentFilterId"),
		FilterType: stringField(t, "deviceAndAppManagementAssignmentFilterType"),
	}
	return out
}
