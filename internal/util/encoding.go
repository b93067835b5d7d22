package util

import (
	"encoding/hex"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Normalize folds a user- or dApp-supplied string into a canonical form
// suitable for cache keys: NFKD-normalized, trimmed and lower-cased.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(norm.NFKD.String(s)))
}

func HexEncode(b []byte) string {
	return hex.EncodeToString(b)
}

func HexDecode(s string) ([]byte, error) {
	return hex.DecodeString(s)
}
