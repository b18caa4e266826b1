package registry

import (
	"sort"
	"strings"
)

// sortKey derives the natural-sort key for a version name. The contract:
// every "." is replaced with "~" (which sorts after all digits and
// letters in ASCII) and a terminal "z" sentinel is appended. This pushes
// bare prefixes below their dotted extensions, so "1.0" < "1.0.0" and
// "1.0.0" < "1.0.1" < "1.10.0".
func sortKey(name string) string {
	return strings.ReplaceAll(name, ".", "~") + "z"
}

// compareNatural orders two sort keys with numeric runs compared by
// magnitude instead of lexically. Keys are split into alternating
// digit/non-digit runs; digit runs compare as integers of arbitrary
// length, non-digit runs compare bytewise. A digit run sorts before a
// non-digit run.
func compareNatural(a, b string) int {
	for a != "" && b != "" {
		ar, aNum, aRest := nextRun(a)
		br, bNum, bRest := nextRun(b)

		switch {
		case aNum && bNum:
			if c := compareNumeric(ar, br); c != 0 {
				return c
			}
		case aNum != bNum:
			if aNum {
				return -1
			}
			return 1
		default:
			if c := strings.Compare(ar, br); c != 0 {
				return c
			}
		}
		a, b = aRest, bRest
	}
	switch {
	case a == "" && b == "":
		return 0
	case a == "":
		return -1
	default:
		return 1
	}
}

// nextRun splits off the leading run of digits or non-digits.
func nextRun(s string) (run string, numeric bool, rest string) {
	numeric = isDigit(s[0])
	i := 1
	for i < len(s) && isDigit(s[i]) == numeric {
		i++
	}
	return s[:i], numeric, s[i:]
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// compareNumeric compares two digit runs by integer value without
// overflow: leading zeros are stripped, then longer means larger, then
// lexical order decides. Runs equal in value but differing in leading
// zeros compare by original length so the ordering stays total.
func compareNumeric(a, b string) int {
	ta := strings.TrimLeft(a, "0")
	tb := strings.TrimLeft(b, "0")
	if len(ta) != len(tb) {
		if len(ta) < len(tb) {
			return -1
		}
		return 1
	}
	if c := strings.Compare(ta, tb); c != 0 {
		return c
	}
	// Same value, e.g. "007" vs "7". Fewer leading zeros sorts first.
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	return 0
}

// CompareVersionNames orders two version names naturally. Exposed for
// callers that need the raw comparison rather than a sorted slice.
func CompareVersionNames(a, b string) int {
	return compareNatural(sortKey(a), sortKey(b))
}

// SortVersions returns the versions in natural order as a new slice. The
// sort is stable: versions with identical sort keys keep their relative
// input order. The input slice is not modified.
func SortVersions(versions []Version) []Version {
	sorted := make([]Version, len(versions))
	copy(sorted, versions)
	sort.SliceStable(sorted, func(i, j int) bool {
		return CompareVersionNames(sorted[i].Name, sorted[j].Name) < 0
	})
	return sorted
}

// LatestVersion returns the naturally-highest version, or nil when the
// collection is empty. Latest is always recomputed from the current
// contents, never cached.
func LatestVersion(versions []Version) *Version {
	if len(versions) == 0 {
		return nil
	}
	sorted := SortVersions(versions)
	return &sorted[len(sorted)-1]
}
