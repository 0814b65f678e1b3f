// Package matcher suggests Settings Catalog definitions for legacy
// Administrative Templates settings.
package matcher

import (
	"context"
	"fmt"
	"strings"

	"github.com/rflorenc/catalog-migrator/internal/cache"
	"github.com/rflorenc/catalog-migrator/internal/metrics"
	"github.com/rflorenc/catalog-migrator/internal/models"
)

// Searcher runs a single Settings Catalog definition search.
type Searcher interface {
	SearchSettingDefinitions(ctx context.Context, q models.DefinitionQuery) ([]models.CandidateSetting, error)
}

// Strategy names, in the order they are tried.
const (
	StrategyDisplayName = "displayName"
	StrategyIdentifier  = "identifier"
	StrategyFullText    = "fulltext"
	StrategyKeywords    = "keywords"
)

var strategies = []string{StrategyDisplayName, StrategyIdentifier, StrategyFullText, StrategyKeywords}

// searchTop is how many definitions are requested per search; the platform
// filter runs before results are cut to MaxCandidates.
const searchTop = 25

// Options configures a Matcher.
type Options struct {
	MaxCandidates int
	// PlatformTokens are id substrings that mark a definition as belonging
	// to the platform being migrated (e.g. "device_vendor_msft").
	PlatformTokens []string
	// CacheSize bounds the per-run search cache. Zero means unbounded.
	CacheSize int
}

// Matcher produces ranked candidates and a confidence tier per setting. A
// Matcher is scoped to one run; its search cache is not shared.
type Matcher struct {
	search Searcher
	opts   Options
	cache  *cache.LRU[string, []models.CandidateSetting]
	logger func(string)
}

// New creates a Matcher for one run.
func New(s Searcher, opts Options, logger func(string)) *Matcher {
	if opts.MaxCandidates <= 0 {
		opts.MaxCandidates = 5
	}
	if logger == nil {
		logger = func(string) {}
	}
	return &Matcher{
		search: s,
		opts:   opts,
		cache:  cache.NewLRU[string, []models.CandidateSetting](opts.CacheSize),
		logger: logger,
	}
}

// SuggestAll suggests candidates for every setting of every policy. It stops
// before the next search once ctx is done and returns what it has so far.
func (m *Matcher) SuggestAll(ctx context.Context, policies []models.LegacyPolicy) ([]models.Suggestion, error) {
	var out []models.Suggestion
	counts := map[models.Confidence]int{}
	for _, p := range policies {
		m.logger(fmt.Sprintf("Matching %d settings of %s...", len(p.Settings), p.DisplayName))
		for _, s := range p.Settings {
			if err := ctx.Err(); err != nil {
				return out, err
			}
			sug := m.Suggest(ctx, p, s)
			counts[sug.Confidence]++
			out = append(out, sug)
		}
	}
	m.logger(fmt.Sprintf("Suggestions: %d high, %d medium, %d none",
		counts[models.ConfidenceHigh], counts[models.ConfidenceMedium], counts[models.ConfidenceNone]))
	return out, nil
}

// Suggest matches one legacy setting. Search failures never escape: they
// degrade to fewer candidates and, at worst, confidence "none".
func (m *Matcher) Suggest(ctx context.Context, policy models.LegacyPolicy, setting models.LegacySettingValue) models.Suggestion {
	name := setting.DisplayName()
	category := ""
	if setting.Definition != nil {
		category = setting.Definition.CategoryPath
	}

	sug := models.Suggestion{
		PolicyID:       policy.ID,
		PolicyName:     policy.DisplayName,
		SettingValueID: setting.ID,
		SettingName:    name,
		Candidates:     []models.CandidateSetting{},
		Source:         setting,
	}

	for _, q := range Queries(name, category) {
		if ctx.Err() != nil {
			break
		}
		found, strategy := m.Search(ctx, q)
		if len(found) > 0 {
			sug.Query = q
			sug.Strategy = strategy
			sug.Candidates = found
			break
		}
	}

	sug.Confidence = Classify(cleanName(name), sug.Candidates, m.opts.PlatformTokens)
	metrics.MatchConfidenceTotal.WithLabelValues(string(sug.Confidence)).Inc()
	if len(sug.Candidates) == 0 {
		m.logger(fmt.Sprintf("  [none] %s: no candidates", name))
	} else {
		best := sug.Candidates[0]
		m.logger(fmt.Sprintf("  [%s] %s -> %s (%s)", sug.Confidence, name, best.DisplayName, best.ID))
	}
	return sug
}

// Search tries each strategy for q in order and returns the platform-scoped
// results of the first one that yields any, with the strategy name.
func (m *Matcher) Search(ctx context.Context, q string) ([]models.CandidateSetting, string) {
	for _, strategy := range strategies {
		if ctx.Err() != nil {
			return nil, ""
		}
		query, ok := buildQuery(strategy, q)
		if !ok {
			continue
		}

		key := strategy + "\x00" + q
		found, hit := m.cache.Get(key)
		if !hit {
			raw, err := m.search.SearchSettingDefinitions(ctx, query)
			if err != nil {
				metrics.SearchStrategyFailures.WithLabelValues(strategy).Inc()
				m.logger(fmt.Sprintf("  search %s failed for %q: %v", strategy, q, err))
				continue
			}
			found = m.filterPlatform(raw)
			m.cache.Put(key, found)
		}
		if len(found) > 0 {
			if len(found) > m.opts.MaxCandidates {
				found = found[:m.opts.MaxCandidates]
			}
			return found, strategy
		}
	}
	return nil, ""
}

// filterPlatform drops candidates whose id is not scoped to the migrated
// platform. Graph only rejects those at write time.
func (m *Matcher) filterPlatform(in []models.CandidateSetting) []models.CandidateSetting {
	out := make([]models.CandidateSetting, 0, len(in))
	for _, c := range in {
		if PlatformScoped(c.ID, m.opts.PlatformTokens) {
			out = append(out, c)
		}
	}
	return out
}

// buildQuery renders a strategy for q; ok is false if the strategy has
// nothing to search for.
func buildQuery(strategy, q string) (models.DefinitionQuery, bool) {
	switch strategy {
	case StrategyDisplayName:
		return models.DefinitionQuery{Filter: fmt.Sprintf("contains(displayName,%s)", odataString(q)), Top: searchTop}, true
	case StrategyIdentifier:
		id := IdentifierFor(q)
		if id == "" {
			return models.DefinitionQuery{}, false
		}
		return models.DefinitionQuery{Filter: fmt.Sprintf("contains(id,%s)", odataString(id)), Top: searchTop}, true
	case StrategyFullText:
		return models.DefinitionQuery{Search: q, Top: searchTop}, true
	case StrategyKeywords:
		words := SignificantWords(q)
		if len(words) == 0 {
			return models.DefinitionQuery{}, false
		}
		if len(words) > 3 {
			words = words[:3]
		}
		clauses := make([]string, len(words))
		for i, w := range words {
			clauses[i] = fmt.Sprintf("contains(displayName,%s)", odataString(w))
		}
		return models.DefinitionQuery{Filter: strings.Join(clauses, " and "), Top: searchTop}, true
	}
	return models.DefinitionQuery{}, false
}

// PlatformScoped reports whether id contains one of the platform tokens.
func PlatformScoped(id string, tokens []string) bool {
	lower := strings.ToLower(id)
	for _, t := range tokens {
		if t != "" && strings.Contains(lower, strings.ToLower(t)) {
			return true
		}
	}
	return false
}

// Classify assigns a confidence tier from the best (first) candidate.
// Candidates are never re-ranked.
func Classify(sourceName string, candidates []models.CandidateSetting, tokens []string) models.Confidence {
	if len(candidates) == 0 {
		return models.ConfidenceNone
	}
	best := candidates[0]
	src := normalizeName(sourceName)
	cand := normalizeName(best.DisplayName)
	if src != "" && src == cand {
		return models.ConfidenceHigh
	}

	contains := src != "" && cand != "" && (strings.Contains(src, cand) || strings.Contains(cand, src))
	overlap := wordOverlap(src, cand)
	scoped := PlatformScoped(best.ID, tokens)

	switch {
	case scoped && (contains || overlap >= 2):
		return models.ConfidenceHigh
	case contains || overlap >= 2:
		return models.ConfidenceMedium
	}
	return models.ConfidenceNone
}

func wordOverlap(a, b string) int {
	bw := map[string]bool{}
	for _, w := range SignificantWords(b) {
		bw[w] = true
	}
	n := 0
	for _, w := range SignificantWords(a) {
		if bw[w] {
			n++
		}
	}
	return n
}
