package statement

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xbrlview/xbrlview/pkg/hierarchy"
	"github.com/xbrlview/xbrlview/pkg/xbrl"
)

const role = "http://example.com/role/IncomeStatement"

func fixtureTables() *xbrl.Tables {
	return &xbrl.Tables{
		Presentation: []xbrl.Arc{
			{Kind: xbrl.Presentation, RoleID: role, FromID: "root", ToID: "A", Order: "1"},
			{Kind: xbrl.Presentation, RoleID: role, FromID: "root", ToID: "B", Order: "2", PreferredLabel: "http://www.xbrl.org/2003/role/totalLabel"},
			{Kind: xbrl.Presentation, RoleID: role, FromID: "A", ToID: "A1", Order: "1"},
		},
		Calculation: []xbrl.Arc{
			{Kind: xbrl.Calculation, RoleID: role, FromID: "B", ToID: "A1", Order: "1", Weight: 1},
		},
		Labels: []xbrl.Label{
			{ElementID: "A1", Role: xbrl.StdLabelRole, Lang: "en-US", Text: "Revenue from contracts"},
			{ElementID: "B", Role: "http://www.xbrl.org/2003/role/totalLabel", Lang: "en-US", Text: "Total revenue"},
			{ElementID: "B", Role: xbrl.StdLabelRole, Lang: "en-US", Text: "Revenue"},
		},
		Contexts: []xbrl.Context{
			{ID: "c-2013", StartDate: "2013-01-01", EndDate: "2013-12-31"},
			{ID: "c-2012", StartDate: "2012-01-01", EndDate: "2012-12-31"},
			{ID: "c-seg", StartDate: "2013-01-01", EndDate: "2013-12-31", Dimensions: map[string]string{"us-gaap:StatementBusinessSegmentsAxis": "Segment1"}},
			{ID: "c-instant", Instant: "2013-12-31"},
		},
		Facts: []xbrl.Fact{
			{ContextID: "c-2013", ElementID: "A1", Value: "100", Decimals: 0},
			{ContextID: "c-2012", ElementID: "A1", Value: "90", Decimals: 0},
			{ContextID: "c-seg", ElementID: "A1", Value: "55", Decimals: 0},
			{ContextID: "c-instant", ElementID: "A1", Value: "42", Decimals: 0},
			{ContextID: "c-2013", ElementID: "B", Value: "100", Decimals: 0},
		},
	}
}

func TestBuildEndToEnd(t *testing.T) {
	st, err := Build(fixtureTables(), role, "en")
	require.NoError(t, err)
	require.Empty(t, st.Report.Cycles)
	require.Empty(t, st.Report.FactErrors)

	assert.Equal(t, []string{"2013-12-31", "2012-12-31"}, st.Periods, "periods render newest first")

	byElement := make(map[string]Row)
	for _, r := range st.Rows {
		byElement[r.ElementID] = r
	}

	a1 := byElement["A1"]
	assert.Equal(t, "0101", a1.PathID)
	assert.Equal(t, 2, a1.Depth)
	require.NotNil(t, a1.Values["2013-12-31"])
	assert.Equal(t, 100.0, *a1.Values["2013-12-31"])
	require.NotNil(t, a1.Values["2012-12-31"])
	assert.Equal(t, 90.0, *a1.Values["2012-12-31"])

	// B reported only 2013; 2012 stays missing rather than zero.
	b := byElement["B"]
	_, has2012 := b.Values["2012-12-31"]
	assert.False(t, has2012)

	// The abstract root keeps its structural row without values.
	root := byElement["root"]
	assert.Empty(t, root.Values)
}

func TestBuildExcludesDimensionalAndInstantFacts(t *testing.T) {
	st, err := Build(fixtureTables(), role, "en")
	require.NoError(t, err)

	for _, r := range st.Rows {
		for _, v := range r.Values {
			require.NotNil(t, v)
			assert.NotEqual(t, 55.0, *v, "segment-context fact must never bind")
			assert.NotEqual(t, 42.0, *v, "instant-only fact must never bind")
		}
	}
}

func TestBuildAnnotations(t *testing.T) {
	st, err := Build(fixtureTables(), role, "en")
	require.NoError(t, err)

	byElement := make(map[string]Row)
	for _, r := range st.Rows {
		byElement[r.ElementID] = r
	}

	assert.Equal(t, "Total revenue", byElement["B"].Label, "preferred label role wins")
	assert.Equal(t, "Revenue from contracts", byElement["A1"].Label, "standard label fallback")
	assert.Equal(t, "root", byElement["root"].Label, "element ID when no label exists")

	assert.True(t, byElement["B"].IsCalculated, "B parents a calculation arc")
	assert.False(t, byElement["A1"].IsCalculated)
}

func TestBuildForestKeepsRootRowsDistinct(t *testing.T) {
	// Two roots share the empty path ID; their rows and cells must not
	// bleed into each other.
	tables := &xbrl.Tables{
		Presentation: []xbrl.Arc{
			{Kind: xbrl.Presentation, RoleID: role, FromID: "R1", ToID: "A", Order: "1"},
			{Kind: xbrl.Presentation, RoleID: role, FromID: "R2", ToID: "B", Order: "1"},
		},
		Contexts: []xbrl.Context{
			{ID: "c-2013", StartDate: "2013-01-01", EndDate: "2013-12-31"},
		},
		Facts: []xbrl.Fact{
			{ContextID: "c-2013", ElementID: "R1", Value: "111", Decimals: 0},
			{ContextID: "c-2013", ElementID: "R2", Value: "222", Decimals: 0},
		},
	}

	st, err := Build(tables, role, "en")
	require.NoError(t, err)

	var order []string
	for _, r := range st.Rows {
		order = append(order, r.ElementID)
	}
	require.Equal(t, []string{"R1", "A", "R2", "B"}, order)

	require.NotNil(t, st.Rows[0].Values["2013-12-31"])
	assert.Equal(t, 111.0, *st.Rows[0].Values["2013-12-31"])
	require.NotNil(t, st.Rows[2].Values["2013-12-31"])
	assert.Equal(t, 222.0, *st.Rows[2].Values["2013-12-31"], "each root keeps its own fact")
	assert.Empty(t, st.Rows[1].Values)
	assert.Empty(t, st.Rows[3].Values)
}

func TestAnnotateResolvesPreferredLabelPerPosition(t *testing.T) {
	tables := &xbrl.Tables{
		Presentation: []xbrl.Arc{
			{Kind: xbrl.Presentation, RoleID: role, FromID: "root", ToID: "A", Order: "1"},
			{Kind: xbrl.Presentation, RoleID: role, FromID: "root", ToID: "B", Order: "2"},
			{Kind: xbrl.Presentation, RoleID: role, FromID: "A", ToID: "Shared", Order: "1", PreferredLabel: "http://www.xbrl.org/2003/role/totalLabel"},
			{Kind: xbrl.Presentation, RoleID: role, FromID: "B", ToID: "Shared", Order: "1", PreferredLabel: "http://www.xbrl.org/2003/role/terseLabel"},
		},
		Labels: []xbrl.Label{
			{ElementID: "Shared", Role: "http://www.xbrl.org/2003/role/totalLabel", Lang: "en-US", Text: "Total widgets"},
			{ElementID: "Shared", Role: "http://www.xbrl.org/2003/role/terseLabel", Lang: "en-US", Text: "Widgets"},
		},
	}

	st, err := Build(tables, role, "en")
	require.NoError(t, err)

	byPath := make(map[string]Row)
	for _, r := range st.Rows {
		byPath[r.PathID] = r
	}
	assert.Equal(t, "Total widgets", byPath["0101"].Label, "placement under A keeps its own label role")
	assert.Equal(t, "Widgets", byPath["0201"].Label, "placement under B keeps its own label role")
}

func TestBuildSurfacesStructuralErrors(t *testing.T) {
	tables := fixtureTables()
	tables.Presentation[0].Order = "not-a-number"

	_, err := Build(tables, role, "en")
	require.Error(t, err)
	assert.IsType(t, &hierarchy.MalformedOrderError{}, err)
}

func TestBindFactsSkipsNonNumeric(t *testing.T) {
	tables := fixtureTables()
	tables.Facts = append(tables.Facts, xbrl.Fact{ContextID: "c-2013", ElementID: "A1", Value: "n/a"})

	st, err := Build(tables, role, "en")
	require.NoError(t, err, "a single bad fact must not abort the build")
	require.Len(t, st.Report.FactErrors, 1)
	assert.Equal(t, "n/a", st.Report.FactErrors[0].Value)

	byElement := make(map[string]Row)
	for _, r := range st.Rows {
		byElement[r.ElementID] = r
	}
	require.NotNil(t, byElement["A1"].Values["2013-12-31"], "good facts for the concept survive")
}

func TestScaledValue(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		decimals int
		want     float64
	}{
		{"positive exponent", "1234", 6, 1234000000},
		{"negative exponent", "1234", -3, 1.234},
		{"zero exponent", "100", 0, 100},
		{"comma separated", "105,056", 3, 105056000},
		{"negative value", "-500", 6, -500000000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ScaledValue(xbrl.Fact{Value: tt.value, Decimals: tt.decimals})
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestScaledValueNonNumeric(t *testing.T) {
	_, err := ScaledValue(xbrl.Fact{ElementID: "A1", ContextID: "c-1", Value: "—"})
	require.Error(t, err)
	assert.IsType(t, &NonNumericFactError{}, err)
}

func TestLanguageMatching(t *testing.T) {
	assert.True(t, matchLang("en-US", "en"))
	assert.True(t, matchLang("en", "en"))
	assert.True(t, matchLang("en-US", ""))
	assert.False(t, matchLang("de", "en"))
}
