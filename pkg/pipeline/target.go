package pipeline

import (
	"fmt"

	"github.com/horizonml/horizon/pkg/db"
	"github.com/horizonml/horizon/pkg/errs"
)

// TargetJoinSQL builds the temporal self-join that attaches a
// future-horizon label to each (key, date) row. Inner-join semantics:
// rows with no observation at exactly horizon*7 days ahead produce no
// target row, which favors well-formed labels over training-set
// completeness. Rows near the end of the observed range are dropped.
func TargetJoinSQL(
	d db.Dialect,
	ra RoleAssignment,
	sourceTable, targetTable string,
	horizonWeeks int,
) (string, error) {
	if horizonWeeks < 1 {
		return "", &errs.ValidationError{
			Reason: fmt.Sprintf("forecast horizon must be >= 1 week, got %d", horizonWeeks),
		}
	}

	key := d.QuoteIdent(ra.Key)
	date := d.QuoteIdent(ra.Date)
	target := d.QuoteIdent(ra.Target)
	src := d.QuoteIdent(sourceTable)
	dst := d.QuoteIdent(targetTable)

	dayDiff := d.DayDiff("s2."+date, "s1."+date)

	sql := fmt.Sprintf(
		`CREATE TABLE %s AS
SELECT s1.%s AS %s,
       s1.%s AS %s,
       s2.%s AS forecasting_date,
       s2.%s AS forecasting_target_value
FROM %s s1
JOIN %s s2 ON s1.%s = s2.%s
WHERE %s = %d`,
		dst,
		key, key,
		date, date,
		date,
		target,
		src,
		src, key, key,
		dayDiff, horizonWeeks*7,
	)
	return sql, nil
}
