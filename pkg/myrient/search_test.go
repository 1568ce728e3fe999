// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package myrient

import (
	"context"
	"testing"
)

func seedCatalog(t *testing.T, store *SQLiteStore, entries []FileRecord) {
	t.Helper()
	ctx := context.Background()
	for _, f := range entries {
		if _, err := store.UpsertDiscovery(ctx, f); err != nil {
			t.Fatalf("seed UpsertDiscovery(%s): %v", f.Name, err)
		}
	}
}

func testCatalog() []FileRecord {
	mk := func(url, name, parent, ext string) FileRecord {
		f := FileRecord{URL: url, Name: name, ParentPath: parent, FileType: ext, Status: StatusPending}
		Classify(&f)
		return f
	}
	return []FileRecord{
		mk("https://myrient.test/No-Intro/Super Mario World (USA).zip", "Super Mario World (USA).zip",
			"No-Intro/Nintendo - Super Nintendo Entertainment System", "zip"),
		mk("https://myrient.test/No-Intro/Super Mario Bros (USA).zip", "Super Mario Bros (USA).zip",
			"No-Intro/Nintendo - Nintendo Entertainment System", "zip"),
		mk("https://myrient.test/Redump/Sonic Adventure (USA).zip", "Sonic Adventure (USA).zip",
			"Redump/Sega - Dreamcast", "zip"),
		mk("https://myrient.test/No-Intro/Pokemon Red (USA).zip", "Pokemon Red (USA).zip",
			"No-Intro/Nintendo - Game Boy", "zip"),
	}
}

func TestSearchExactMatch(t *testing.T) {
	store := newTestStore(t)
	seedCatalog(t, store, testCatalog())
	searcher := NewSearcher(store)

	results, err := searcher.Search(context.Background(), "Super Mario World (USA).zip", SearchOptions{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) == 0 {
		t.Fatalf("expected at least one result")
	}
	if results[0].MatchType != "exact" || results[0].File.Name != "Super Mario World (USA).zip" {
		t.Errorf("top result = %+v, want an exact match on Super Mario World", results[0])
	}
}

func TestSearchFuzzyMatchesMisspelling(t *testing.T) {
	store := newTestStore(t)
	seedCatalog(t, store, testCatalog())
	searcher := NewSearcher(store)

	results, err := searcher.Search(context.Background(), "mario wrold usa", SearchOptions{MinScore: 50})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	found := false
	for _, r := range results {
		if r.File.Name == "Super Mario World (USA).zip" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a fuzzy match for misspelled 'mario wrold usa', got %+v", results)
	}
}

func TestSearchConsoleAlias(t *testing.T) {
	store := newTestStore(t)
	seedCatalog(t, store, testCatalog())
	searcher := NewSearcher(store)

	results, err := searcher.Search(context.Background(), "gb", SearchOptions{MinScore: 1})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	foundConsoleMatch := false
	for _, r := range results {
		if r.MatchedField == "console" && r.File.Console == "Game Boy" {
			foundConsoleMatch = true
		}
	}
	if !foundConsoleMatch {
		t.Errorf("expected alias 'gb' to match Game Boy console records, got %+v", results)
	}
}

func TestSearchScopedByConsole(t *testing.T) {
	store := newTestStore(t)
	seedCatalog(t, store, testCatalog())
	searcher := NewSearcher(store)

	results, err := searcher.Search(context.Background(), "usa", SearchOptions{Console: "Dreamcast", MinScore: 1})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	for _, r := range results {
		if r.File.Console != "Dreamcast" {
			t.Errorf("result %q has console %q, want only Dreamcast results", r.File.Name, r.File.Console)
		}
	}
}

func TestSearchEmptyCatalogReturnsNoResults(t *testing.T) {
	store := newTestStore(t)
	searcher := NewSearcher(store)

	results, err := searcher.Search(context.Background(), "anything", SearchOptions{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results on an empty catalog, got %+v", results)
	}
}

func TestSuggestRequiresMinimumLength(t *testing.T) {
	store := newTestStore(t)
	seedCatalog(t, store, testCatalog())
	searcher := NewSearcher(store)

	out, err := searcher.Suggest(context.Background(), "m", 10)
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if out != nil {
		t.Errorf("Suggest with a 1-character query should return nil, got %v", out)
	}

	out, err = searcher.Suggest(context.Background(), "po", 10)
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if len(out) == 0 {
		t.Errorf("expected at least one suggestion for 'po'")
	}
}

func TestPopularRanksUSAHigher(t *testing.T) {
	store := newTestStore(t)
	nonUSA := FileRecord{URL: "https://myrient.test/No-Intro/Tetris (Japan).gb", Name: "Tetris (Japan).gb",
		ParentPath: "No-Intro/Nintendo - Game Boy", FileType: "gb", Status: StatusPending}
	Classify(&nonUSA)
	seedCatalog(t, store, append(testCatalog(), nonUSA))
	searcher := NewSearcher(store)

	results, err := searcher.Popular(context.Background(), "", 10)
	if err != nil {
		t.Fatalf("Popular: %v", err)
	}
	if len(results) != 5 {
		t.Fatalf("got %d results, want 5", len(results))
	}
	if last := results[len(results)-1]; last.Name != nonUSA.Name {
		t.Errorf("lowest-ranked result = %q, want the non-USA record %q", last.Name, nonUSA.Name)
	}
}

func TestFuzzyRatio(t *testing.T) {
	if got := fuzzyRatio("mario", "mario"); got != 100 {
		t.Errorf("fuzzyRatio(identical) = %d, want 100", got)
	}
	if got := fuzzyRatio("", ""); got != 100 {
		t.Errorf("fuzzyRatio(empty, empty) = %d, want 100", got)
	}
	if got := fuzzyRatio("mario", "zelda"); got >= 50 {
		t.Errorf("fuzzyRatio(mario, zelda) = %d, want a low score", got)
	}
}
