// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package myrient

import (
	"context"
	"regexp"
	"sort"
	"strings"
)

// SearchResult pairs a cataloged file with how well it matched a query.
type SearchResult struct {
	File         FileRecord
	Score        int
	MatchType    string // "exact", "fuzzy", "partial"
	MatchedField string // "name", "console", "region", "collection"
}

// SearchOptions narrows a Search call.
type SearchOptions struct {
	Console    string
	Collection Collection
	Limit      int // 0 means 50
	MinScore   int // 0 means 60
}

// nameNormalizations maps a canonical game-name token to the alternate
// spellings/abbreviations that should collapse to it before matching.
var nameNormalizations = []struct {
	canonical  string
	variations []string
}{
	{"pokemon", []string{"pokémon", "pocket monsters"}},
	{"zelda", []string{"legend of zelda", "tloz"}},
	{"mario", []string{"super mario", "mario bros"}},
	{"street fighter", []string{"sf", "streetfighter"}},
	{"final fantasy", []string{"ff"}},
	{"dragon quest", []string{"dq", "dragon warrior"}},
	{"metroid", []string{"super metroid"}},
	{"castlevania", []string{"akumajou dracula"}},
	{"resident evil", []string{"biohazard"}},
	{"tekken", []string{"tekken force"}},
}

// consoleAliases maps a short console alias to its longer variant names.
var consoleAliases = []struct {
	alias      string
	variations []string
}{
	{"gb", []string{"game boy", "gameboy"}},
	{"gba", []string{"game boy advance", "gameboy advance"}},
	{"gbc", []string{"game boy color", "gameboy color"}},
	{"ds", []string{"nintendo ds", "nds"}},
	{"3ds", []string{"nintendo 3ds", "n3ds"}},
	{"nes", []string{"nintendo entertainment system", "famicom"}},
	{"snes", []string{"super nintendo", "super famicom", "sfc"}},
	{"n64", []string{"nintendo 64"}},
	{"gc", []string{"gamecube", "nintendo gamecube"}},
	{"wii", []string{"nintendo wii"}},
	{"wiiu", []string{"wii u", "nintendo wii u"}},
	{"switch", []string{"nintendo switch", "ns"}},
	{"ps1", []string{"playstation", "psx"}},
	{"ps2", []string{"playstation 2"}},
	{"ps3", []string{"playstation 3"}},
	{"ps4", []string{"playstation 4"}},
	{"ps5", []string{"playstation 5"}},
	{"psp", []string{"playstation portable"}},
	{"vita", []string{"ps vita", "playstation vita", "psvita"}},
	{"xbox", []string{"microsoft xbox"}},
	{"x360", []string{"xbox 360"}},
	{"xone", []string{"xbox one"}},
	{"genesis", []string{"mega drive", "sega genesis", "sega mega drive"}},
	{"saturn", []string{"sega saturn"}},
	{"dreamcast", []string{"sega dreamcast"}},
}

var regionKeywords = []string{"usa", "europe", "japan", "world", "en", "fr", "de", "es", "it"}

type collectionKeyword struct {
	keyword     string
	collections []Collection
}

var collectionKeywords = []collectionKeyword{
	{"no-intro", []Collection{CollectionNoIntro}},
	{"nointro", []Collection{CollectionNoIntro}},
	{"redump", []Collection{CollectionRedump}},
	{"mame", []Collection{CollectionMAME}},
	{"tosec", []Collection{CollectionTOSEC}},
	{"arcade", []Collection{CollectionMAME, CollectionFBNeo, CollectionTeknoParrot}},
}

var normalizeStripPattern = regexp.MustCompile(`[_\-.()\[\]!]`)

// normalizeText lowercases, strips punctuation/separators, collapses
// whitespace, and applies nameNormalizations, matching the reference
// implementation's normalization pass used before every scoring strategy.
func normalizeText(text string) string {
	if text == "" {
		return ""
	}
	text = strings.ToLower(text)
	text = normalizeStripPattern.ReplaceAllString(text, " ")
	text = strings.Join(strings.Fields(text), " ")

	for _, n := range nameNormalizations {
		for _, variation := range n.variations {
			if strings.Contains(text, variation) {
				text = strings.ReplaceAll(text, variation, n.canonical)
			}
		}
	}
	return text
}

// Searcher runs fuzzy/substring/field-tagged search over a catalog Store.
type Searcher struct {
	store Store
}

// NewSearcher builds a Searcher over store.
func NewSearcher(store Store) *Searcher {
	return &Searcher{store: store}
}

// Search runs all six matching strategies over the catalog, dedups by
// URL keeping each file's highest score, and returns the top results in
// descending score order.
func (s *Searcher) Search(ctx context.Context, query string, opts SearchOptions) ([]SearchResult, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}
	minScore := opts.MinScore
	if minScore <= 0 {
		minScore = 60
	}

	files, err := s.store.List(ctx, ListFilter{Console: opts.Console})
	if err != nil {
		return nil, err
	}
	if opts.Collection != "" {
		filtered := files[:0]
		for _, f := range files {
			if f.Collection == opts.Collection {
				filtered = append(filtered, f)
			}
		}
		files = filtered
	}
	if len(files) == 0 {
		return nil, nil
	}

	normalizedQuery := normalizeText(query)

	var results []SearchResult
	results = append(results, exactSearch(normalizedQuery, files)...)
	results = append(results, fuzzySearch(normalizedQuery, files, minScore)...)
	results = append(results, partialSearch(normalizedQuery, files, minScore)...)
	results = append(results, consoleSearch(query, files)...)
	results = append(results, regionSearch(query, files)...)
	results = append(results, collectionSearch(query, files)...)

	best := make(map[string]SearchResult, len(results))
	for _, r := range results {
		if existing, ok := best[r.File.URL]; !ok || r.Score > existing.Score {
			best[r.File.URL] = r
		}
	}

	out := make([]SearchResult, 0, len(best))
	for _, r := range best {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })

	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func exactSearch(query string, files []FileRecord) []SearchResult {
	var out []SearchResult
	for _, f := range files {
		if query == normalizeText(f.Name) {
			out = append(out, SearchResult{File: f, Score: 100, MatchType: "exact", MatchedField: "name"})
		}
	}
	return out
}

func fuzzySearch(query string, files []FileRecord, minScore int) []SearchResult {
	var out []SearchResult
	for _, f := range files {
		score := fuzzyRatio(query, normalizeText(f.Name))
		if score >= minScore {
			out = append(out, SearchResult{File: f, Score: score, MatchType: "fuzzy", MatchedField: "name"})
		}
	}
	return out
}

func partialSearch(query string, files []FileRecord, minScore int) []SearchResult {
	var out []SearchResult
	for _, f := range files {
		name := normalizeText(f.Name)
		if name == "" || !strings.Contains(name, query) {
			continue
		}
		score := int(float64(len(query)) / float64(len(name)) * 100)
		if score > 95 {
			score = 95
		}
		if score >= minScore {
			out = append(out, SearchResult{File: f, Score: score, MatchType: "partial", MatchedField: "name"})
		}
	}
	return out
}

func consoleSearch(query string, files []FileRecord) []SearchResult {
	var out []SearchResult
	normalizedQuery := normalizeText(query)

	for _, f := range files {
		if f.Console == "" {
			continue
		}
		normalizedConsole := normalizeText(f.Console)

		if normalizedQuery == normalizedConsole {
			out = append(out, SearchResult{File: f, Score: 90, MatchType: "exact", MatchedField: "console"})
		}

		for _, a := range consoleAliases {
			queryMatchesAlias := normalizedQuery == a.alias
			if !queryMatchesAlias {
				for _, v := range a.variations {
					if normalizedQuery == normalizeText(v) {
						queryMatchesAlias = true
						break
					}
				}
			}
			if !queryMatchesAlias {
				continue
			}
			for _, v := range a.variations {
				if normalizedConsole == normalizeText(v) {
					out = append(out, SearchResult{File: f, Score: 85, MatchType: "fuzzy", MatchedField: "console"})
					break
				}
			}
		}
	}
	return out
}

func regionSearch(query string, files []FileRecord) []SearchResult {
	normalizedQuery := normalizeText(query)

	hasRegionKeyword := false
	for _, kw := range regionKeywords {
		if strings.Contains(normalizedQuery, kw) {
			hasRegionKeyword = true
			break
		}
	}
	if !hasRegionKeyword {
		return nil
	}

	var out []SearchResult
	for _, f := range files {
		if f.Region == "" {
			continue
		}
		normalizedRegion := normalizeText(f.Region)
		if strings.Contains(normalizedRegion, normalizedQuery) || strings.Contains(normalizedQuery, normalizedRegion) {
			out = append(out, SearchResult{File: f, Score: 75, MatchType: "partial", MatchedField: "region"})
		}
	}
	return out
}

func collectionSearch(query string, files []FileRecord) []SearchResult {
	normalizedQuery := normalizeText(query)

	var out []SearchResult
	for _, ck := range collectionKeywords {
		if !strings.Contains(normalizedQuery, ck.keyword) {
			continue
		}
		for _, f := range files {
			for _, c := range ck.collections {
				if f.Collection == c {
					out = append(out, SearchResult{File: f, Score: 70, MatchType: "partial", MatchedField: "collection"})
					break
				}
			}
		}
	}
	return out
}

// fuzzyRatio scores the similarity of a and b on a 0-100 scale, derived
// from Levenshtein edit distance: 100 * (1 - distance/maxlen).
func fuzzyRatio(a, b string) int {
	if a == "" && b == "" {
		return 100
	}
	dist := levenshtein(a, b)
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	if maxLen == 0 {
		return 100
	}
	score := 100 * (1 - float64(dist)/float64(maxLen))
	if score < 0 {
		score = 0
	}
	return int(score + 0.5)
}

func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	la, lb := len(ra), len(rb)
	if la == 0 {
		return lb
	}
	if lb == 0 {
		return la
	}

	prev := make([]int, lb+1)
	curr := make([]int, lb+1)
	for j := 0; j <= lb; j++ {
		prev[j] = j
	}

	for i := 1; i <= la; i++ {
		curr[0] = i
		for j := 1; j <= lb; j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			del := prev[j] + 1
			ins := curr[j-1] + 1
			sub := prev[j-1] + cost
			m := del
			if ins < m {
				m = ins
			}
			if sub < m {
				m = sub
			}
			curr[j] = m
		}
		prev, curr = curr, prev
	}
	return prev[lb]
}

var titleSplitPattern = regexp.MustCompile(`[(\[-]`)

// Suggest returns up to limit alphabetically-sorted name/console
// suggestions whose normalized form starts with partialQuery.
func (s *Searcher) Suggest(ctx context.Context, partialQuery string, limit int) ([]string, error) {
	if len(partialQuery) < 2 {
		return nil, nil
	}
	if limit <= 0 {
		limit = 10
	}

	files, err := s.store.List(ctx, ListFilter{Limit: 1000})
	if err != nil {
		return nil, err
	}

	normalizedQuery := normalizeText(partialQuery)
	seen := make(map[string]struct{})

	for _, f := range files {
		normalizedName := normalizeText(f.Name)
		if strings.HasPrefix(normalizedName, normalizedQuery) {
			clean := strings.TrimSpace(titleSplitPattern.Split(f.Name, 2)[0])
			seen[clean] = struct{}{}
		}
		if f.Console != "" && strings.HasPrefix(normalizeText(f.Console), normalizedQuery) {
			seen[f.Console] = struct{}{}
		}
	}

	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

var popularKeywords = []string{
	"super", "legend", "final", "street", "pokemon", "zelda", "mario",
	"sonic", "metroid", "castlevania", "dragon", "resident", "mega",
	"ultimate", "championship", "deluxe", "complete", "goty",
}

// Popular returns up to limit files ranked by a simple keyword/format/
// region popularity heuristic, optionally restricted to one console.
func (s *Searcher) Popular(ctx context.Context, console string, limit int) ([]FileRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	files, err := s.store.List(ctx, ListFilter{Console: console})
	if err != nil {
		return nil, err
	}

	type scored struct {
		score int
		file  FileRecord
	}
	ranked := make([]scored, 0, len(files))
	for _, f := range files {
		score := 0
		nameLower := strings.ToLower(f.Name)
		for _, kw := range popularKeywords {
			if strings.Contains(nameLower, kw) {
				score += 10
			}
		}
		if f.FileType == "zip" || f.FileType == "7z" {
			score += 5
		}
		if f.Region != "" {
			regionLower := strings.ToLower(f.Region)
			if strings.Contains(regionLower, "usa") || strings.Contains(regionLower, "world") || strings.Contains(regionLower, "en") {
				score += 15
			}
		}
		ranked = append(ranked, scored{score, f})
	}

	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	out := make([]FileRecord, len(ranked))
	for i, r := range ranked {
		out[i] = r.file
	}
	return out, nil
}
