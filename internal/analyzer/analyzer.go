// Package analyzer finds settings configured in more than one legacy policy
// and flags the ones configured inconsistently.
package analyzer

import (
	"sort"
	"strings"

	"github.com/rflorenc/catalog-migrator/internal/models"
)

// SettingKey groups a setting by definition id, then by normalized display
// name, then by its own value id.
func SettingKey(s models.LegacySettingValue) string {
	if id := s.DefinitionID(); id != "" {
		return "def:" + strings.ToLower(id)
	}
	if s.Definition != nil {
		if name := normalize(s.Definition.DisplayName); name != "" {
			return "name:" + name
		}
	}
	return "raw:" + s.ID
}

func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

type group struct {
	key         string
	displayName string
	occurrences []models.DuplicateOccurrence
}

// Analyze groups the settings of policies and derives merge candidates. The
// result depends only on the content of policies, not their order.
func Analyze(policies []models.LegacyPolicy) models.DuplicateReport {
	groups := map[string]*group{}
	settings := 0
	for _, p := range policies {
		for _, s := range p.Settings {
			settings++
			key := SettingKey(s)
			g, ok := groups[key]
			if !ok {
				g = &group{key: key}
				groups[key] = g
			}
			if name := s.DisplayName(); g.displayName == "" || name < g.displayName {
				g.displayName = name
			}
			g.occurrences = append(g.occurrences, models.DuplicateOccurrence{
				PolicyID:       p.ID,
				PolicyName:     p.DisplayName,
				SettingValueID: s.ID,
				State:          s.Enabled,
			})
		}
	}

	report := models.DuplicateReport{
		DuplicateGroups: []models.DuplicateGroup{},
		MergeCandidates: []models.MergeCandidate{},
	}
	for _, g := range groups {
		if len(g.occurrences) < 2 {
			continue
		}
		sort.Slice(g.occurrences, func(i, j int) bool {
			a, b := g.occurrences[i], g.occurrences[j]
			if a.PolicyID != b.PolicyID {
				return a.PolicyID < b.PolicyID
			}
			return a.SettingValueID < b.SettingValueID
		})
		states := distinctStates(g.occurrences)
		report.DuplicateGroups = append(report.DuplicateGroups, models.DuplicateGroup{
			SettingKey:      g.key,
			DisplayName:     g.displayName,
			Occurrences:     g.occurrences,
			OccurrenceCount: len(g.occurrences),
			States:          states,
			IsConflict:      len(states) > 1,
		})
	}
	sort.Slice(report.DuplicateGroups, func(i, j int) bool {
		return report.DuplicateGroups[i].SettingKey < report.DuplicateGroups[j].SettingKey
	})

	report.MergeCandidates = mergeCandidates(policies, report.DuplicateGroups)

	sum := &report.Summary
	sum.Policies = len(policies)
	sum.Settings = settings
	sum.DuplicateGroups = len(report.DuplicateGroups)
	for _, g := range report.DuplicateGroups {
		if g.IsConflict {
			sum.ConflictGroups++
		} else {
			sum.ConsistentGroups++
		}
	}
	sum.MergeCandidates = len(report.MergeCandidates)
	for _, m := range report.MergeCandidates {
		if m.CanAutoMerge {
			sum.AutoMergeable++
		}
	}
	return report
}

func distinctStates(occ []models.DuplicateOccurrence) []string {
	seen := map[string]bool{}
	var out []string
	for _, o := range occ {
		s := string(o.State)
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}

type pairKey struct{ a, b string }

type pairStats struct {
	shared    int
	conflicts int
}

// mergeCandidates returns every pair of policies sharing at least one
// duplicate group. A shared setting conflicts for the pair when the two
// policies configure it differently.
func mergeCandidates(policies []models.LegacyPolicy, groups []models.DuplicateGroup) []models.MergeCandidate {
	names := map[string]string{}
	for _, p := range policies {
		names[p.ID] = p.DisplayName
	}

	pairs := map[pairKey]*pairStats{}
	for _, g := range groups {
		// Per policy, the set of states it gives this setting.
		statesByPolicy := map[string]map[models.EnabledState]bool{}
		var ids []string
		for _, o := range g.Occurrences {
			if statesByPolicy[o.PolicyID] == nil {
				statesByPolicy[o.PolicyID] = map[models.EnabledState]bool{}
				ids = append(ids, o.PolicyID)
			}
			statesByPolicy[o.PolicyID][o.State] = true
		}
		for i := 0; i < len(ids); i++ {
			for j := i + 1; j < len(ids); j++ {
				k := pairKey{ids[i], ids[j]}
				st := pairs[k]
				if st == nil {
					st = &pairStats{}
					pairs[k] = st
				}
				st.shared++
				if !sameStates(statesByPolicy[ids[i]], statesByPolicy[ids[j]]) {
					st.conflicts++
				}
			}
		}
	}

	out := make([]models.MergeCandidate, 0, len(pairs))
	for k, st := range pairs {
		out = append(out, models.MergeCandidate{
			PolicyA:        k.a,
			PolicyAName:    names[k.a],
			PolicyB:        k.b,
			PolicyBName:    names[k.b],
			SharedSettings: st.shared,
			ConflictCount:  st.conflicts,
			CanAutoMerge:   st.conflicts == 0,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SharedSettings != out[j].SharedSettings {
			return out[i].SharedSettings > out[j].SharedSettings
		}
		if out[i].PolicyA != out[j].PolicyA {
			return out[i].PolicyA < out[j].PolicyA
		}
		return out[i].PolicyB < out[j].PolicyB
	})
	return out
}

func sameStates(a, b map[models.EnabledState]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for s := range a {
		if !b[s] {
			return false
		}
	}
	return true
}
