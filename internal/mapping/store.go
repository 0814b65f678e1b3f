// Package mapping holds the curated table from legacy settings to Settings
// Catalog payloads.
package mapping

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rflorenc/catalog-migrator/internal/models"
)

// Entry origins.
const (
	OriginSuggested = "suggested"
	OriginManual    = "manual"
)

// Store is the mapping table, keyed by (policy id, setting value id). It is
// safe for concurrent use by the curation API.
type Store struct {
	mu      sync.RWMutex
	entries map[models.MappingKey]models.MappingEntry
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{entries: make(map[models.MappingKey]models.MappingEntry)}
}

// BuildFromSuggestions adds an entry for every suggestion whose confidence is
// in filter and which has at least one candidate, using the best candidate.
// It returns the number of entries written.
func (s *Store) BuildFromSuggestions(suggestions []models.Suggestion, filter []models.Confidence) int {
	allowed := make(map[models.Confidence]bool, len(filter))
	for _, c := range filter {
		allowed[c] = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, sug := range suggestions {
		if !allowed[sug.Confidence] || len(sug.Candidates) == 0 {
			continue
		}
		best := sug.Candidates[0]
		e := models.MappingEntry{
			SourcePolicyID:       sug.PolicyID,
			SourceSettingValueID: sug.SettingValueID,
			TargetDefinitionID:   best.ID,
			Payload:              BuildSettingPayload(best, sug.Source),
			Origin:               OriginSuggested,
			Confidence:           sug.Confidence,
		}
		s.entries[e.Key()] = e
		n++
	}
	return n
}

// Upsert writes e, replacing any entry with the same key.
func (s *Store) Upsert(e models.MappingEntry) error {
	if e.SourcePolicyID == "" || e.SourceSettingValueID == "" {
		return fmt.Errorf("mapping entry needs sourcePolicyId and sourceSettingValueId")
	}
	if e.TargetDefinitionID == "" {
		e.TargetDefinitionID = e.Payload.DefinitionID()
	}
	if e.Origin == "" {
		e.Origin = OriginManual
	}
	s.mu.Lock()
	s.entries[e.Key()] = e
	s.mu.Unlock()
	return nil
}

// Choose maps a legacy setting to a manually picked candidate.
func (s *Store) Choose(policyID string, source models.LegacySettingValue, c models.CandidateSetting) (models.MappingEntry, error) {
	e := models.MappingEntry{
		SourcePolicyID:       policyID,
		SourceSettingValueID: source.ID,
		TargetDefinitionID:   c.ID,
		Payload:              BuildSettingPayload(c, source),
		Origin:               OriginManual,
	}
	return e, s.Upsert(e)
}

// Remove deletes the entry for key and reports whether one existed.
func (s *Store) Remove(key models.MappingKey) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[key]
	delete(s.entries, key)
	return ok
}

func (s *Store) Get(key models.MappingKey) (models.MappingEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	return e, ok
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Entries returns all entries sorted by policy id then setting value id.
func (s *Store) Entries() []models.MappingEntry {
	s.mu.RLock()
	out := make([]models.MappingEntry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].SourcePolicyID != out[j].SourcePolicyID {
			return out[i].SourcePolicyID < out[j].SourcePolicyID
		}
		return out[i].SourceSettingValueID < out[j].SourceSettingValueID
	})
	return out
}

// Merge upserts every entry of other into s. Entries of other win.
func (s *Store) Merge(other *Store) {
	for _, e := range other.Entries() {
		s.mu.Lock()
		s.entries[e.Key()] = e
		s.mu.Unlock()
	}
}

// document is the persisted form of a Store.
type document struct {
	UpdatedAt time.Time             `json:"updatedAt"`
	Entries   []models.MappingEntry `json:"entries"`
}

// Serialize encodes the store as JSON with entries in sorted order.
func (s *Store) Serialize() ([]byte, error) {
	doc := document{UpdatedAt: time.Now().UTC(), Entries: s.Entries()}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding mapping: %w", err)
	}
	return data, nil
}

// Deserialize decodes a store written by Serialize. Duplicate keys resolve
// to the last occurrence.
func Deserialize(data []byte) (*Store, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding mapping: %w", err)
	}
	s := NewStore()
	for i, e := range doc.Entries {
		if err := s.Upsert(e); err != nil {
			return nil, fmt.Errorf("mapping entry %d: %w", i, err)
		}
	}
	return s, nil
}
