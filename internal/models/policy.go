package models

import (
	"strings"
	"time"
)

// EnabledState is the tri-state configured state of a legacy setting.
type EnabledState string

const (
	StateEnabled  EnabledState = "enabled"
	StateDisabled EnabledState = "disabled"
	StateUnknown  EnabledState = "unknown"
)

// PresentationKind tags the payload carried by a PresentationValue.
type PresentationKind string

const (
	PresentationString  PresentationKind = "string"
	PresentationNumber  PresentationKind = "number"
	PresentationBoolean PresentationKind = "boolean"
	PresentationList    PresentationKind = "list"
	PresentationUnknown PresentationKind = "unknown"
)

// SettingDefinitionMeta describes the ADMX definition a legacy setting refers to.
type SettingDefinitionMeta struct {
	ID           string `json:"id"`
	DisplayName  string `json:"displayName"`
	CategoryPath string `json:"categoryPath,omitempty"`
	ClassType    string `json:"classType,omitempty"`  // "user" or "machine"
	PolicyType   string `json:"policyType,omitempty"` // "admxBacked", "admxIngested"
}

// PresentationValue is one typed element of a legacy setting's payload.
// Exactly one of the value fields is meaningful, selected by Kind.
type PresentationValue struct {
	ID      string           `json:"id,omitempty"`
	Label   string           `json:"label,omitempty"`
	Kind    PresentationKind `json:"kind"`
	String  string           `json:"string,omitempty"`
	Number  int64            `json:"number,omitempty"`
	Boolean bool             `json:"boolean,omitempty"`
	List    []string         `json:"list,omitempty"`
}

// LegacySettingValue is one configured Administrative Templates setting.
type LegacySettingValue struct {
	ID         string                 `json:"id"`
	Definition *SettingDefinitionMeta `json:"definition,omitempty"`
	Enabled    EnabledState           `json:"enabled"`
	Values     []PresentationValue    `json:"values,omitempty"`
}

// DefinitionID returns the definition id, or "" when metadata is missing.
func (v LegacySettingValue) DefinitionID() string {
	if v.Definition == nil {
		return ""
	}
	return v.Definition.ID
}

// DisplayName returns the definition display name, falling back to the
// value id when metadata is missing.
func (v LegacySettingValue) DisplayName() string {
	if v.Definition != nil && v.Definition.DisplayName != "" {
		return v.Definition.DisplayName
	}
	return v.ID
}

// Identity is a stable identity for the setting. Values without definition
// metadata get a synthetic identity derived from their own id.
func (v LegacySettingValue) Identity() string {
	if id := v.DefinitionID(); id != "" {
		return id
	}
	return "value:" + v.ID
}

// FirstScalar returns the first captured presentation value that can be
// expressed as a scalar, and false if there is none.
func (v LegacySettingValue) FirstScalar() (PresentationValue, bool) {
	for _, pv := range v.Values {
		switch pv.Kind {
		case PresentationString, PresentationNumber, PresentationBoolean:
			return pv, true
		case PresentationList:
			if len(pv.List) > 0 {
				return pv, true
			}
		}
	}
	return PresentationValue{}, false
}

// AssignmentTarget is the Graph assignment target descriptor. It is copied
// verbatim from legacy to target policies.
type AssignmentTarget struct {
	ODataType  string `json:"@odata.type"`
	GroupID    string `json:"groupId,omitempty"`
	FilterID   string `json:"deviceAndAppManagementAssignmentFilterId,omitempty"`
	FilterType string `json:"deviceAndAppManagementAssignmentFilterType,omitempty"`
}

// Kind returns a short label for the target form, for logging.
func (t AssignmentTarget) Kind() string {
	switch {
	case strings.HasSuffix(t.ODataType, "allDevicesAssignmentTarget"):
		return "all-devices"
	case strings.HasSuffix(t.ODataType, "allLicensedUsersAssignmentTarget"):
		return "all-users"
	case strings.HasSuffix(t.ODataType, "exclusionGroupAssignmentTarget"):
		return "exclude-group:" + t.GroupID
	case t.GroupID != "":
		return "group:" + t.GroupID
	}
	return t.ODataType
}

// Assignment links a policy to a target.
type Assignment struct {
	ID     string            `json:"id,omitempty"`
	Target *AssignmentTarget `json:"target,omitempty"`
}

// LegacyPolicy is a normalized Administrative Templates policy.
type LegacyPolicy struct {
	ID           string               `json:"id"`
	DisplayName  string               `json:"displayName"`
	Description  string               `json:"description,omitempty"`
	LastModified time.Time            `json:"lastModifiedDateTime"`
	Settings     []LegacySettingValue `json:"settings"`
	Assignments  []Assignment         `json:"assignments"`
}

// ExportSet is the persisted result of an export run.
type ExportSet struct {
	ExportedAt time.Time      `json:"exportedAt"`
	Identity   string         `json:"identity,omitempty"`
	Policies   []LegacyPolicy `json:"policies"`
	Warnings   []string       `json:"warnings,omitempty"`
}

// Policy returns the exported policy with the given id.
func (e *ExportSet) Policy(id string) (LegacyPolicy, bool) {
	for _, p := range e.Policies {
		if p.ID == id {
			return p, true
		}
	}
	return LegacyPolicy{}, false
}
