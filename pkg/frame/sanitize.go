package frame

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/horizonml/horizon/pkg/errs"
)

var nonAlnum = regexp.MustCompile(`[^a-zA-Z0-9]+`)

// SanitizeIdentifier converts an arbitrary column or table name into a
// safe lowercase identifier: non-alphanumeric runs collapse to a single
// underscore, leading/trailing underscores are stripped.
func SanitizeIdentifier(s string) string {
	s = nonAlnum.ReplaceAllString(s, "_")
	return strings.ToLower(strings.Trim(s, "_"))
}

// SanitizeColumns sanitizes every name in order. Two source columns that
// sanitize to the same identifier would silently swap meaning, so a
// collision is an error rather than an auto-suffix.
func SanitizeColumns(names []string) ([]string, error) {
	res := make([]string, len(names))
	seen := make(map[string]string, len(names))
	for i, name := range names {
		clean := SanitizeIdentifier(name)
		if clean == "" {
			return nil, &errs.SchemaError{
				Reason: fmt.Sprintf("column %q sanitizes to an empty name", name),
			}
		}
		if prev, ok := seen[clean]; ok {
			return nil, &errs.SchemaError{
				Reason: fmt.Sprintf(
					"columns %q and %q both sanitize to %q", prev, name, clean),
			}
		}
		seen[clean] = name
		res[i] = clean
	}
	return res, nil
}
