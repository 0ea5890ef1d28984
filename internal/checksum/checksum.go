// Package checksum is the hashing layer of the integrity ledger: SHA-256
// over canonical bytes for structured values, streaming SHA-256 for files.
//
// All functions are pure apart from the bounded file reads in ComputeFile.
// Verification never treats a mismatch as an error; detecting corruption is
// the result, not an exception.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/mirrordna/ledger/internal/canon"
)

// HexLength is the length of a checksum string: SHA-256 as lowercase hex.
const HexLength = 64

// fileChunkSize bounds memory use while hashing files of any size.
const fileChunkSize = 8192

// Compute canonicalizes v and returns the lowercase hex SHA-256 digest of
// the canonical bytes. Equal values produce equal digests regardless of
// mapping insertion order.
func Compute(v canon.Value) (string, error) {
	data, err := canon.Encode(v)
	if err != nil {
		return "", fmt.Errorf("compute checksum: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// ComputeFile streams the file's raw bytes through SHA-256 in fixed-size
// chunks. Files are opaque byte sequences; no canonicalization is applied.
func ComputeFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", &ChecksumError{Op: "open", Path: path, Err: err}
	}
	defer f.Close()

	h := sha256.New()
	buf := make([]byte, fileChunkSize)
	for {
		n, err := f.Read(buf)
		if n > 0 {
			h.Write(buf[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", &ChecksumError{Op: "read", Path: path, Err: err}
		}
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// Verify recomputes the checksum of v and compares it to expected.
// A mismatch returns false, never an error; the error return is reserved
// for values that cannot be canonicalized.
func Verify(v canon.Value, expected string) (bool, error) {
	actual, err := Compute(v)
	if err != nil {
		return false, err
	}
	return actual == expected, nil
}

// VerifyFile recomputes the file checksum and compares it to expected.
// The error return is reserved for I/O failures.
func VerifyFile(path, expected string) (bool, error) {
	actual, err := ComputeFile(path)
	if err != nil {
		return false, err
	}
	return actual == expected, nil
}

// Valid reports whether s is a well-formed checksum: exactly 64 lowercase
// hex characters. Boundary validation; malformed strings should be rejected
// before they reach ledger state.
func Valid(s string) bool {
	if len(s) != HexLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
