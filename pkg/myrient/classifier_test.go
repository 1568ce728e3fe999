// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package myrient

import "testing"

func TestClassifyConsole(t *testing.T) {
	cases := []struct {
		parentPath string
		want       string
	}{
		{"/No-Intro/Nintendo - Super Nintendo Entertainment System/", "SNES"},
		{"/No-Intro/Nintendo - Game Boy Advance/", "Game Boy Advance"},
		{"/Redump/Sony - PlayStation 2/", "PlayStation 2"},
		{"/Redump/Sega - Dreamcast/", "Dreamcast"},
		{"/Miscellaneous/Unrelated Stuff/", ""},
	}
	for _, c := range cases {
		if got := ClassifyConsole(c.parentPath); got != c.want {
			t.Errorf("ClassifyConsole(%q) = %q, want %q", c.parentPath, got, c.want)
		}
	}
}

func TestClassifyRegion(t *testing.T) {
	cases := []struct {
		name string
		want string
	}{
		{"Super Mario World (USA).zip", "USA"},
		{"Sonic the Hedgehog (Europe).zip", "Europe"},
		{"Chrono Trigger [Japan].zip", "Japan"},
		{"No region here.zip", ""},
	}
	for _, c := range cases {
		if got := ClassifyRegion(c.name); got != c.want {
			t.Errorf("ClassifyRegion(%q) = %q, want %q", c.name, got, c.want)
		}
	}
}

func TestClassifyCollection(t *testing.T) {
	cases := []struct {
		parentPath string
		want       Collection
	}{
		{"/No-Intro/Nintendo - Game Boy/", CollectionNoIntro},
		{"/Redump/Sony - PlayStation/", CollectionRedump},
		{"", CollectionUnknown},
		{"/SomeRandomTopLevel/Thing/", CollectionUnknown},
	}
	for _, c := range cases {
		if got := ClassifyCollection(c.parentPath); got != c.want {
			t.Errorf("ClassifyCollection(%q) = %q, want %q", c.parentPath, got, c.want)
		}
	}
}

func TestClassifyFileFormat(t *testing.T) {
	format, requiresConversion := ClassifyFileFormat("rvz")
	if format != FormatRVZ {
		t.Fatalf("ClassifyFileFormat(rvz) format = %q, want %q", format, FormatRVZ)
	}
	if !requiresConversion {
		t.Errorf("ClassifyFileFormat(rvz) requiresConversion = false, want true")
	}

	format, requiresConversion = ClassifyFileFormat("zip")
	if format != FormatZip {
		t.Errorf("ClassifyFileFormat(zip) format = %q, want %q", format, FormatZip)
	}
	if requiresConversion {
		t.Errorf("ClassifyFileFormat(zip) requiresConversion = true, want false")
	}
}

func TestClassifyTorrentZip(t *testing.T) {
	isTZ, crc := ClassifyTorrentZip("Some Game (USA) [TORRENTZIPPED-A1B2C3D4].zip")
	if !isTZ {
		t.Fatalf("expected IsTorrentZipped = true")
	}
	if crc != "A1B2C3D4" {
		t.Errorf("TorrentZipCRC32 = %q, want A1B2C3D4", crc)
	}

	isTZ, crc = ClassifyTorrentZip("Some Game (USA).zip")
	if isTZ || crc != "" {
		t.Errorf("expected no TorrentZip marker, got isTZ=%v crc=%q", isTZ, crc)
	}
}

func TestClassifyFillsAllFields(t *testing.T) {
	f := FileRecord{
		Name:       "Chrono Trigger (USA).sfc",
		ParentPath: "/No-Intro/Nintendo - Super Nintendo Entertainment System/",
		FileType:   "sfc",
	}
	Classify(&f)

	if f.Console != "SNES" {
		t.Errorf("Console = %q, want SNES", f.Console)
	}
	if f.Region != "USA" {
		t.Errorf("Region = %q, want USA", f.Region)
	}
	if f.Collection != CollectionNoIntro {
		t.Errorf("Collection = %q, want %q", f.Collection, CollectionNoIntro)
	}
}
