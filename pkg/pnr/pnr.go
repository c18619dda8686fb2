// Package pnr generates and validates passenger name record codes, the
// public human-typeable booking references printed on tickets.
package pnr

import (
	"crypto/rand"
	"fmt"
	"regexp"
	"strings"
)

// alphabet excludes 0/O, 1/I and similar look-alikes so the code survives
// being read over the phone
const alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const (
	// Prefix identifies the issuing operator
	Prefix = "DGC"

	// randomLength is the number of random characters after the prefix
	randomLength = 6
)

var pnrPattern = regexp.MustCompile(`^` + Prefix + `[` + alphabet + `]{` + fmt.Sprint(randomLength) + `}$`)

// Generate returns a new PNR, e.g. "DGCX7K2QA". Uniqueness is enforced by
// the database; callers retry on a duplicate.
func Generate() (string, error) {
	buf := make([]byte, randomLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}

	var sb strings.Builder
	sb.WriteString(Prefix)
	for _, b := range buf {
		sb.WriteByte(alphabet[int(b)%len(alphabet)])
	}

	return sb.String(), nil
}

// Normalize uppercases and trims a user-supplied code
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// IsValid reports whether a normalized code has the right shape
func IsValid(code string) bool {
	return pnrPattern.MatchString(code)
}
