// Package pipeline holds the pure domain values of the temporal feature
// pipeline: role assignments, feature definitions, derived table naming
// and target-table SQL generation. No I/O happens here.
package pipeline

import (
	"fmt"

	"github.com/horizonml/horizon/pkg/errs"
)

// RoleAssignment names the three columns the temporal pipeline needs.
// It can only be built through NewRoleAssignment, which enforces the
// exactly-one-of-each contract instead of scattering boolean flags.
type RoleAssignment struct {
	Key    string
	Date   string
	Target string

	// Features are the columns offered to feature generation; may be
	// empty, in which case all non-role columns qualify.
	Features []string
}

// NewRoleAssignment validates that key, date and target are present and
// distinct. Returns ValidationError otherwise.
func NewRoleAssignment(key, date, target string, features []string) (RoleAssignment, error) {
	var ra RoleAssignment
	switch {
	case key == "":
		return ra, &errs.ValidationError{Reason: "forecast key column not assigned"}
	case date == "":
		return ra, &errs.ValidationError{Reason: "date column not assigned"}
	case target == "":
		return ra, &errs.ValidationError{Reason: "target column not assigned"}
	case key == date || key == target || date == target:
		return ra, &errs.ValidationError{
			Reason: fmt.Sprintf(
				"key (%s), date (%s) and target (%s) must be distinct columns",
				key, date, target),
		}
	}
	return RoleAssignment{Key: key, Date: date, Target: target, Features: features}, nil
}

// FromFlags builds a RoleAssignment from per-column role flags, the shape
// the metadata registry stores. Duplicate assignments of the same role
// are rejected.
func FromFlags(cols []RoleFlags) (RoleAssignment, error) {
	var key, date, target string
	var features []string
	for _, c := range cols {
		if c.IsForecastKey {
			if key != "" {
				return RoleAssignment{}, &errs.ValidationError{
					Reason: fmt.Sprintf("forecast key assigned to both %s and %s", key, c.Name),
				}
			}
			key = c.Name
		}
		if c.IsDate {
			if date != "" {
				return RoleAssignment{}, &errs.ValidationError{
					Reason: fmt.Sprintf("date role assigned to both %s and %s", date, c.Name),
				}
			}
			date = c.Name
		}
		if c.IsTarget {
			if target != "" {
				return RoleAssignment{}, &errs.ValidationError{
					Reason: fmt.Sprintf("target role assigned to both %s and %s", target, c.Name),
				}
			}
			target = c.Name
		}
		if c.IsFeature {
			features = append(features, c.Name)
		}
	}
	return NewRoleAssignment(key, date, target, features)
}

// RoleFlags mirrors one dataset column's role annotation.
type RoleFlags struct {
	Name          string
	IsForecastKey bool
	IsDate        bool
	IsTarget      bool
	IsFeature     bool
}
