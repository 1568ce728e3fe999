// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package myrient

import (
	"fmt"
	"io"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ListingEntry is a single row parsed out of an Apache/nginx-style
// autoindex HTML directory listing, before classification.
type ListingEntry struct {
	URL   string // absolute, resolved against the listing's own URL
	Name  string // percent-decoded file or directory name
	IsDir bool
	Size  int64 // 0 when unknown or this is a directory
}

var sizePattern = regexp.MustCompile(`(?i)^\s*([0-9][0-9,]*(?:\.[0-9]+)?)\s*([KMGT]?I?B?)\s*$`)

var sizeMultipliers = map[string]int64{
	"":    1,
	"B":   1,
	"K":   1024,
	"KB":  1024,
	"KIB": 1024,
	"M":   1024 * 1024,
	"MB":  1024 * 1024,
	"MIB": 1024 * 1024,
	"G":   1024 * 1024 * 1024,
	"GB":  1024 * 1024 * 1024,
	"GIB": 1024 * 1024 * 1024,
	"T":   1024 * 1024 * 1024 * 1024,
	"TB":  1024 * 1024 * 1024 * 1024,
	"TIB": 1024 * 1024 * 1024 * 1024,
}

// ParseListing parses an HTML directory listing rooted at listingURL.
//
// It looks for table rows (tr) with at least two cells (td): the first
// cell's anchor supplies the href, and the file size is read from the
// first later cell whose trimmed text is non-empty and not "-". Rows
// whose href is empty, starts with "?" (sort-order links), or is "../"
// are skipped.
func ParseListing(listingURL string, body io.Reader) ([]ListingEntry, error) {
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, fmt.Errorf("parse listing html: %w", err)
	}

	var entries []ListingEntry
	doc.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 2 {
			return
		}

		linkCell := cells.Eq(0)
		anchor := linkCell.Find("a").First()
		href, ok := anchor.Attr("href")
		if !ok || href == "" || strings.HasPrefix(href, "?") || href == "../" {
			return
		}

		abs, err := joinURL(listingURL, href)
		if err != nil {
			return
		}

		isDir := strings.HasSuffix(href, "/")
		decoded, err := url.QueryUnescape(strings.TrimSuffix(href, "/"))
		if err != nil {
			decoded = strings.TrimSuffix(href, "/")
		}

		entry := ListingEntry{
			URL:   abs,
			Name:  decoded,
			IsDir: isDir,
		}

		if !isDir {
			cells.Each(func(i int, cell *goquery.Selection) {
				if i == 0 || entry.Size != 0 {
					return
				}
				text := strings.TrimSpace(cell.Text())
				if text == "" || text == "-" {
					return
				}
				if sz, ok := parseListingSize(text); ok {
					entry.Size = sz
				}
			})
		}

		entries = append(entries, entry)
	})

	return entries, nil
}

// parseListingSize parses a listing's human-readable size cell (e.g.
// "123.45 MB" or "123K") into bytes using 1024-based multipliers, which
// is how Apache/nginx autoindex pages render sizes.
func parseListingSize(text string) (int64, bool) {
	text = strings.ReplaceAll(strings.TrimSpace(text), ",", "")
	m := sizePattern.FindStringSubmatch(text)
	if m == nil {
		if n, err := strconv.ParseInt(text, 10, 64); err == nil {
			return n, true
		}
		return 0, false
	}
	val, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	unit := strings.ToUpper(m[2])
	mult, ok := sizeMultipliers[unit]
	if !ok {
		return 0, false
	}
	return int64(val * float64(mult)), true
}
