// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package myrient

import (
	"archive/zip"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"hash/crc32"
	"io"
	"os"
)

// ChecksumType identifies a digest algorithm supported by VerifyChecksum.
type ChecksumType string

const (
	ChecksumSHA256 ChecksumType = "sha256"
	ChecksumSHA1   ChecksumType = "sha1"
	ChecksumMD5    ChecksumType = "md5"
	ChecksumCRC32  ChecksumType = "crc32"
)

// VerifyChecksum computes path's digest under the given algorithm and
// reports whether it matches expected (case-insensitively).
func VerifyChecksum(path string, expected string, algo ChecksumType) (bool, error) {
	got, err := ComputeChecksum(path, algo)
	if err != nil {
		return false, err
	}
	return equalFold(got, expected), nil
}

// ComputeChecksum computes and returns path's digest under the given
// algorithm as a lowercase (sha*/md5) or uppercase (crc32) hex string,
// matching the reference implementation's formatting per algorithm.
func ComputeChecksum(path string, algo ChecksumType) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if algo == ChecksumCRC32 {
		h := crc32.NewIEEE()
		if _, err := io.Copy(h, f); err != nil {
			return "", err
		}
		return fmt.Sprintf("%08X", h.Sum32()), nil
	}

	var h hash.Hash
	switch algo {
	case ChecksumSHA1:
		h = sha1.New()
	case ChecksumMD5:
		h = md5.New()
	default:
		h = sha256.New()
	}
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func equalFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}

// TorrentZipInfo describes a ZIP archive's TorrentZip status.
type TorrentZipInfo struct {
	IsTorrentZipped   bool
	ExpectedCRC32     string
	NumFiles          int
	UncompressedBytes int64
	Comment           string
}

// InspectTorrentZip reads zipPath's central directory and comment to
// report whether it carries a TORRENTZIPPED-XXXXXXXX marker.
//
// The returned ExpectedCRC32 is advisory only: it is the CRC-32 quoted in
// the archive's own comment, not independently verified against the
// archive's contents, and must never be used to fail a download.
func InspectTorrentZip(zipPath string) (TorrentZipInfo, error) {
	zr, err := zip.OpenReader(zipPath)
	if err != nil {
		return TorrentZipInfo{}, err
	}
	defer zr.Close()

	info := TorrentZipInfo{Comment: zr.Comment}
	if isTZ, crc := ClassifyTorrentZip(zr.Comment); isTZ {
		info.IsTorrentZipped = true
		info.ExpectedCRC32 = crc
	}

	for _, file := range zr.File {
		if file.FileInfo().IsDir() {
			continue
		}
		info.NumFiles++
		info.UncompressedBytes += int64(file.UncompressedSize64)
	}

	return info, nil
}

// Verify checks a completed download against its catalog record: size
// first, then a checksum of the configured type if one is recorded. It
// never fails verification based on TorrentZip metadata, which is
// advisory only (see FileRecord.TorrentZipCRC32).
func Verify(f FileRecord) error {
	fi, err := os.Stat(f.LocalPath)
	if err != nil {
		return err
	}
	if f.Size > 0 && fi.Size() != f.Size {
		return &VerificationError{URL: f.URL, Expected: fmt.Sprintf("%d bytes", f.Size), Actual: fmt.Sprintf("%d bytes", fi.Size()), Method: "size"}
	}
	if f.Checksum == "" {
		return nil
	}

	algo := ChecksumType(f.ChecksumType)
	if algo == "" {
		algo = ChecksumSHA256
	}
	ok, err := VerifyChecksum(f.LocalPath, f.Checksum, algo)
	if err != nil {
		return err
	}
	if !ok {
		got, _ := ComputeChecksum(f.LocalPath, algo)
		return &VerificationError{URL: f.URL, Expected: f.Checksum, Actual: got, Method: string(algo)}
	}
	return nil
}
