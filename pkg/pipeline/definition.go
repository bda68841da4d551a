package pipeline

import (
	"fmt"
	"strings"

	"github.com/horizonml/horizon/pkg/errs"
)

// Default placeholders used when authoring a feature definition.
const (
	SourcePlaceholder      = "{{source}}"
	DestinationPlaceholder = "{{destination}}"
)

// FeatureDefinition is a stored, replayable SQL feature recipe. The
// template reads from a single substitutable source table and writes into
// a destination table (CREATE TABLE ... AS SELECT semantics). Rendering
// is structural substitution of the placeholders, not splicing of raw
// table names into arbitrary positions, so an identifier that happens to
// appear inside the statement body is never rewritten by accident.
type FeatureDefinition struct {
	SourcePlaceholder      string
	DestinationPlaceholder string
	Template               string
}

// NewFeatureDefinition builds a definition with the default placeholders.
func NewFeatureDefinition(template string) FeatureDefinition {
	return FeatureDefinition{
		SourcePlaceholder:      SourcePlaceholder,
		DestinationPlaceholder: DestinationPlaceholder,
		Template:               template,
	}
}

// FromRawSQL converts a statement written against concrete table names
// into a definition by replacing every occurrence of the given names
// with placeholders. Used when a hand-written or oracle-drafted statement
// arrives already bound to tables.
func FromRawSQL(statement, source, destination string) FeatureDefinition {
	tpl := strings.ReplaceAll(statement, destination, DestinationPlaceholder)
	tpl = strings.ReplaceAll(tpl, source, SourcePlaceholder)
	return NewFeatureDefinition(tpl)
}

// Render substitutes concrete table names into the template. It fails if
// either placeholder is missing: a definition that does not read from the
// source or write to the destination cannot be replayed for scoring.
func (d FeatureDefinition) Render(source, destination string) (string, error) {
	if !strings.Contains(d.Template, d.SourcePlaceholder) {
		return "", &errs.ValidationError{
			Reason: fmt.Sprintf(
				"feature definition has no source placeholder %q", d.SourcePlaceholder),
		}
	}
	if !strings.Contains(d.Template, d.DestinationPlaceholder) {
		return "", &errs.ValidationError{
			Reason: fmt.Sprintf(
				"feature definition has no destination placeholder %q",
				d.DestinationPlaceholder),
		}
	}
	sql := strings.ReplaceAll(d.Template, d.SourcePlaceholder, source)
	sql = strings.ReplaceAll(sql, d.DestinationPlaceholder, destination)
	return sql, nil
}
