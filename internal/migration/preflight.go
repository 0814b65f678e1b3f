package migration

import (
	"context"
	"fmt"
	"strings"

	"github.com/rflorenc/catalog-migrator/internal/models"
)

// Marker is the string written into a target policy's description to link it
// to its legacy policy.
func Marker(key, legacyPolicyID string) string {
	return key + "=" + legacyPolicyID
}

// Describe appends the marker to a description. Any copy of the marker
// already present as a whole token is removed so the result holds exactly one.
func Describe(description, marker string) string {
	for {
		i := markerIndex(description, marker)
		if i < 0 {
			break
		}
		description = description[:i] + description[i+len(marker):]
	}
	description = strings.TrimSpace(description)
	if description == "" {
		return marker
	}
	return description + "\n\n" + marker
}

// containsMarker reports whether s contains marker as a whole token, so that
// "K=abc" does not match "K=abcd".
func containsMarker(s, marker string) bool {
	return markerIndex(s, marker) >= 0
}

// markerIndex returns the offset of the first whole-token occurrence of
// marker in s, or -1.
func markerIndex(s, marker string) int {
	if marker == "" {
		return -1
	}
	for i := 0; ; {
		j := strings.Index(s[i:], marker)
		if j < 0 {
			return -1
		}
		start := i + j
		end := start + len(marker)
		if (start == 0 || !isMarkerChar(s[start-1])) && (end == len(s) || !isMarkerChar(s[end])) {
			return start
		}
		i = start + 1
	}
}

func isMarkerChar(c byte) bool {
	return c == '-' || c == '_' ||
		('0' <= c && c <= '9') || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

// FindByMarker returns the first policy whose description carries the marker
// for legacyPolicyID.
func FindByMarker(policies []models.TargetPolicy, key, legacyPolicyID string) (models.TargetPolicy, bool) {
	marker := Marker(key, legacyPolicyID)
	for _, p := range policies {
		if containsMarker(p.Description, marker) {
			return p, true
		}
	}
	return models.TargetPolicy{}, false
}

// existingIndex is the per-run view of target policies that already exist,
// fetched once before the first policy is processed.
type existingIndex struct {
	key      string
	policies []models.TargetPolicy
}

// loadExisting lists target policies and keeps the ones carrying a marker.
func loadExisting(ctx context.Context, dst Target, key string, logger func(string)) (*existingIndex, error) {
	logger("Checking existing Settings Catalog policies...")
	all, err := dst.ListTargetPolicies(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing existing target policies: %w", err)
	}
	idx := &existingIndex{key: key}
	for _, p := range all {
		if strings.Contains(p.Description, key+"=") {
			idx.policies = append(idx.policies, p)
		}
	}
	logger(fmt.Sprintf("  %d policies, %d previously migrated", len(all), len(idx.policies)))
	return idx, nil
}

func (x *existingIndex) find(legacyPolicyID string) (models.TargetPolicy, bool) {
	if x == nil {
		return models.TargetPolicy{}, false
	}
	return FindByMarker(x.policies, x.key, legacyPolicyID)
}
