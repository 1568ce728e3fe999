// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package myrient

import (
	"strings"
	"testing"
)

const sampleListingHTML = `
<html><body><table>
<tr><td><a href="../">Parent Directory</a></td><td></td></tr>
<tr><td><a href="Nintendo%20-%20Game%20Boy/">Nintendo - Game Boy/</a></td><td>-</td></tr>
<tr><td><a href="Super%20Mario%20World%20%28USA%29.zip">Super Mario World (USA).zip</a></td><td>2023-01-01 00:00</td><td>1.2M</td></tr>
<tr><td><a href="?C=N;O=D">Name</a></td><td></td></tr>
</table></body></html>
`

func TestParseListing(t *testing.T) {
	entries, err := ParseListing("https://myrient.erista.me/files/No-Intro/", strings.NewReader(sampleListingHTML))
	if err != nil {
		t.Fatalf("ParseListing: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2: %+v", len(entries), entries)
	}

	dir := entries[0]
	if !dir.IsDir {
		t.Errorf("entries[0].IsDir = false, want true")
	}
	if dir.Name != "Nintendo - Game Boy" {
		t.Errorf("entries[0].Name = %q", dir.Name)
	}
	if dir.URL != "https://myrient.erista.me/files/No-Intro/Nintendo%20-%20Game%20Boy/" {
		t.Errorf("entries[0].URL = %q", dir.URL)
	}

	file := entries[1]
	if file.IsDir {
		t.Errorf("entries[1].IsDir = true, want false")
	}
	if file.Name != "Super Mario World (USA).zip" {
		t.Errorf("entries[1].Name = %q", file.Name)
	}
	sizeMiB := 1.2
	wantSize := int64(sizeMiB * 1024 * 1024)
	if file.Size != wantSize {
		t.Errorf("entries[1].Size = %d, want %d", file.Size, wantSize)
	}
}

func TestParseListingSize(t *testing.T) {
	cases := []struct {
		text string
		want int64
		ok   bool
	}{
		{"123", 123, true},
		{"1K", 1024, true},
		{"2.5M", int64(2.5 * 1024 * 1024), true},
		{"-", 0, false},
		{"", 0, false},
	}
	for _, c := range cases {
		got, ok := parseListingSize(c.text)
		if ok != c.ok {
			t.Errorf("parseListingSize(%q) ok = %v, want %v", c.text, ok, c.ok)
			continue
		}
		if ok && got != c.want {
			t.Errorf("parseListingSize(%q) = %d, want %d", c.text, got, c.want)
		}
	}
}
