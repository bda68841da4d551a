package pipeline_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/horizonml/horizon/pkg/errs"
	"github.com/horizonml/horizon/pkg/frame"
	"github.com/horizonml/horizon/pkg/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pgDialect mirrors the PostgreSQL dialect for SQL-generation tests
// without pulling in internal/iodb.
type pgDialect struct{}

func (pgDialect) QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (pgDialect) TypeName(t frame.Type) string { return string(t) }

func (pgDialect) DayDiff(later, earlier string) string {
	return fmt.Sprintf("%s::date - %s::date", later, earlier)
}

func (pgDialect) Placeholder(n int) string { return fmt.Sprintf("$%d", n) }

func TestNewRoleAssignment(t *testing.T) {
	tests := []struct {
		name              string
		key, date, target string
		wantErr           bool
	}{
		{
			name: "valid roles",
			key:  "store_id", date: "date", target: "weekly_sales",
		},
		{
			name: "missing key",
			key:  "", date: "date", target: "weekly_sales",
			wantErr: true,
		},
		{
			name: "missing date",
			key:  "store_id", date: "", target: "weekly_sales",
			wantErr: true,
		},
		{
			name: "missing target",
			key:  "store_id", date: "date", target: "",
			wantErr: true,
		},
		{
			name: "key and target share a column",
			key:  "weekly_sales", date: "date", target: "weekly_sales",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ra, err := pipeline.NewRoleAssignment(tt.key, tt.date, tt.target, nil)
			if tt.wantErr {
				var verr *errs.ValidationError
				assert.ErrorAs(t, err, &verr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.key, ra.Key)
			assert.Equal(t, tt.date, ra.Date)
			assert.Equal(t, tt.target, ra.Target)
		})
	}
}

func TestFromFlags(t *testing.T) {
	t.Run("collects roles and features", func(t *testing.T) {
		ra, err := pipeline.FromFlags([]pipeline.RoleFlags{
			{Name: "store_id", IsForecastKey: true},
			{Name: "date", IsDate: true},
			{Name: "weekly_sales", IsTarget: true},
			{Name: "temperature", IsFeature: true},
			{Name: "fuel_price", IsFeature: true},
			{Name: "notes"},
		})
		require.NoError(t, err)
		assert.Equal(t, "store_id", ra.Key)
		assert.Equal(t, "date", ra.Date)
		assert.Equal(t, "weekly_sales", ra.Target)
		assert.Equal(t, []string{"temperature", "fuel_price"}, ra.Features)
	})

	t.Run("rejects duplicate role", func(t *testing.T) {
		_, err := pipeline.FromFlags([]pipeline.RoleFlags{
			{Name: "a", IsDate: true},
			{Name: "b", IsDate: true},
			{Name: "k", IsForecastKey: true},
			{Name: "t", IsTarget: true},
		})
		var verr *errs.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Contains(t, verr.Reason, "date role")
	})
}

func TestFeatureDefinitionRender(t *testing.T) {
	t.Run("substitutes both placeholders", func(t *testing.T) {
		d := pipeline.NewFeatureDefinition(
			"CREATE TABLE {{destination}} AS SELECT * FROM {{source}}")
		sql, err := d.Render("raw_abc", "feature_store_xyz")
		require.NoError(t, err)
		assert.Equal(t,
			"CREATE TABLE feature_store_xyz AS SELECT * FROM raw_abc", sql)
	})

	t.Run("substitutes repeated source occurrences", func(t *testing.T) {
		d := pipeline.NewFeatureDefinition(
			"CREATE TABLE {{destination}} AS " +
				"SELECT a.* FROM {{source}} a JOIN {{source}} b ON a.id = b.id")
		sql, err := d.Render("src", "dst")
		require.NoError(t, err)
		assert.Equal(t, 2, strings.Count(sql, "src"))
		assert.NotContains(t, sql, "{{")
	})

	t.Run("missing source placeholder fails", func(t *testing.T) {
		d := pipeline.NewFeatureDefinition("CREATE TABLE {{destination}} AS SELECT 1")
		_, err := d.Render("s", "d")
		var verr *errs.ValidationError
		assert.ErrorAs(t, err, &verr)
	})

	t.Run("missing destination placeholder fails", func(t *testing.T) {
		d := pipeline.NewFeatureDefinition("SELECT * FROM {{source}}")
		_, err := d.Render("s", "d")
		var verr *errs.ValidationError
		assert.ErrorAs(t, err, &verr)
	})
}

func TestFromRawSQL(t *testing.T) {
	raw := "CREATE TABLE feature_store_1 AS SELECT * FROM target_table__raw_1"
	d := pipeline.FromRawSQL(raw, "target_table__raw_1", "feature_store_1")

	assert.Equal(t,
		"CREATE TABLE {{destination}} AS SELECT * FROM {{source}}",
		d.Template,
	)

	sql, err := d.Render("target_table__raw_2", "prediction_features__9")
	require.NoError(t, err)
	assert.Equal(t,
		"CREATE TABLE prediction_features__9 AS SELECT * FROM target_table__raw_2",
		sql,
	)
}

func TestTargetJoinSQL(t *testing.T) {
	ra, err := pipeline.NewRoleAssignment("store_id", "date", "weekly_sales", nil)
	require.NoError(t, err)

	t.Run("builds a self join at the horizon distance", func(t *testing.T) {
		sql, err := pipeline.TargetJoinSQL(
			pgDialect{}, ra, "raw_ds1", "target_table__raw_ds1", 2)
		require.NoError(t, err)

		assert.Contains(t, sql, `CREATE TABLE "target_table__raw_ds1"`)
		assert.Contains(t, sql, `FROM "raw_ds1" s1`)
		assert.Contains(t, sql, `JOIN "raw_ds1" s2 ON s1."store_id" = s2."store_id"`)
		assert.Contains(t, sql, `s2."date"::date - s1."date"::date = 14`)
		assert.Contains(t, sql, `s2."weekly_sales" AS forecasting_target_value`)
		assert.Contains(t, sql, `s2."date" AS forecasting_date`)
	})

	t.Run("rejects non-positive horizon", func(t *testing.T) {
		_, err := pipeline.TargetJoinSQL(
			pgDialect{}, ra, "raw_ds1", "target_table__raw_ds1", 0)
		var verr *errs.ValidationError
		assert.ErrorAs(t, err, &verr)
	})
}

func TestTableNames(t *testing.T) {
	t.Run("raw table name is deterministic", func(t *testing.T) {
		n := pipeline.RawTableName("8d3f1a2b-0000-1111-2222-333344445555")
		assert.Equal(t, "raw_8d3f1a2b_0000_1111_2222_333344445555", n)
	})

	t.Run("target table name derives from source", func(t *testing.T) {
		assert.Equal(t,
			"target_table__raw_abc",
			pipeline.TargetTableName("raw_abc"),
		)
	})

	t.Run("generated names are unique and prefixed", func(t *testing.T) {
		a := pipeline.NewFeatureTableName()
		b := pipeline.NewFeatureTableName()
		assert.NotEqual(t, a, b)
		assert.True(t, strings.HasPrefix(a, pipeline.FeatureTablePrefix))
		assert.NotContains(t, a, "-")

		r := pipeline.NewResultTableName()
		assert.True(t, strings.HasPrefix(r, pipeline.ResultTablePrefix))

		s := pipeline.NewScoringFeaturesName()
		assert.True(t, strings.HasPrefix(s, pipeline.ScoringFeaturesPrefix))
	})
}
