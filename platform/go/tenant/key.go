package tenant

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// KeyPrefix namespaces every clinic database on the shared server.
const KeyPrefix = "optometry_"

// digitMarker keeps derived identifiers valid when the seed starts with a digit.
const digitMarker = "db_"

var (
	keyPattern      = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)
	disallowedRuns  = regexp.MustCompile(`[^a-z0-9_]+`)
	leadingDigit    = regexp.MustCompile(`^[0-9]`)
	derivedStripped = regexp.MustCompile(`[^a-z0-9_]`)
)

// NormalizeDatabaseKey turns a caller-supplied seed into a safe, namespaced
// database identifier: lowercase, runs of disallowed characters collapsed to
// a single underscore, a marker when the seed starts with a digit, and the
// clinic namespace prefix when absent. The result always satisfies
// ^[a-z][a-z0-9_]*$ and is the only form ever interpolated into SQL.
func NormalizeDatabaseKey(seed string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(seed))
	if normalized == "" {
		return "", fmt.Errorf("database key seed is empty")
	}

	normalized = disallowedRuns.ReplaceAllString(normalized, "_")

	if leadingDigit.MatchString(normalized) {
		normalized = digitMarker + normalized
	}

	if !strings.HasPrefix(normalized, KeyPrefix) {
		normalized = KeyPrefix + normalized
	}

	if !keyPattern.MatchString(normalized) {
		return "", fmt.Errorf("derived database key %q violates identifier rules", normalized)
	}

	return normalized, nil
}

// DeriveDatabaseKey builds a database key from a clinic display name when no
// seed was supplied. A time-based suffix makes the result unique without a
// registry round-trip, so no pre-check is needed on this path.
func DeriveDatabaseKey(displayName string, now time.Time) string {
	base := strings.ToLower(strings.TrimSpace(displayName))
	base = strings.Join(strings.Fields(base), "_")
	base = derivedStripped.ReplaceAllString(base, "")
	base = strings.Trim(base, "_")
	if base == "" {
		base = "clinic"
	}

	millis := fmt.Sprintf("%d", now.UnixMilli())
	suffix := millis[len(millis)-6:]

	return KeyPrefix + base + "_" + suffix
}

// ValidDatabaseKey reports whether key is already in canonical form.
func ValidDatabaseKey(key string) bool {
	return keyPattern.MatchString(key)
}
