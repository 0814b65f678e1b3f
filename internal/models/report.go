package models

// DuplicateOccurrence is one place a grouped setting is configured.
type DuplicateOccurrence struct {
	PolicyID       string       `json:"policyId"`
	PolicyName     string       `json:"policyName"`
	SettingValueID string       `json:"settingValueId"`
	State          EnabledState `json:"configuredState"`
}

// DuplicateGroup is a setting configured in more than one place.
type DuplicateGroup struct {
	SettingKey      string                `json:"settingKey"`
	DisplayName     string                `json:"displayName"`
	Occurrences     []DuplicateOccurrence `json:"occurrences"`
	OccurrenceCount int                   `json:"occurrenceCount"`
	States          []string              `json:"states"`
	IsConflict      bool                  `json:"isConflict"`
}

// MergeCandidate is a pair of policies that share at least one setting.
type MergeCandidate struct {
	PolicyA        string `json:"policyA"`
	PolicyAName    string `json:"policyAName"`
	PolicyB        string `json:"policyB"`
	PolicyBName    string `json:"policyBName"`
	SharedSettings int    `json:"sharedSettings"`
	ConflictCount  int    `json:"conflictCount"`
	CanAutoMerge   bool   `json:"canAutoMerge"`
}

type DuplicateSummary struct {
	Policies         int `json:"policies"`
	Settings         int `json:"settings"`
	DuplicateGroups  int `json:"duplicateGroups"`
	ConflictGroups   int `json:"conflictGroups"`
	ConsistentGroups int `json:"consistentGroups"`
	MergeCandidates  int `json:"mergeCandidates"`
	AutoMergeable    int `json:"autoMergeable"`
}

// DuplicateReport is the output of a duplicates analysis.
type DuplicateReport struct {
	DuplicateGroups []DuplicateGroup `json:"duplicateGroups"`
	MergeCandidates []MergeCandidate `json:"mergeCandidates"`
	Summary         DuplicateSummary `json:"summary"`
}
