// Package statement binds a reconstructed concept tree to its reported
// facts and reshapes the result into the ordered, wide-form rows a
// renderer consumes: one row per concept position, one column per
// reporting period end date.
package statement

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/xbrlview/xbrlview/pkg/hierarchy"
	"github.com/xbrlview/xbrlview/pkg/xbrl"
)

// NonNumericFactError records one fact whose value failed numeric
// coercion. The fact is skipped; the rest of the binding continues.
type NonNumericFactError struct {
	ElementID string `json:"element_id"`
	ContextID string `json:"context_id"`
	Value     string `json:"value"`
}

func (e *NonNumericFactError) Error() string {
	return fmt.Sprintf("non-numeric fact value %q for %s in context %s", e.Value, e.ElementID, e.ContextID)
}

// BoundFact is one fact joined to its tree position: long form, one row
// per concept position per period.
type BoundFact struct {
	PathID    string  `json:"path_id"`
	Depth     int     `json:"depth"`
	ElementID string  `json:"element_id"`
	EndDate   string  `json:"end_date"`
	Scaled    float64 `json:"scaled"`
}

// Row is one wide-form statement line. Values maps a period end date to
// the scaled fact value; a concept with no fact for a period has no
// entry for that date, which renders as missing rather than zero.
type Row struct {
	PathID       string              `json:"path_id"`
	ParentID     string              `json:"parent_id,omitempty"`
	Depth        int                 `json:"depth"`
	ElementID    string              `json:"element_id"`
	Label        string              `json:"label"`
	IsCalculated bool                `json:"is_calculated"`
	Values       map[string]*float64 `json:"values,omitempty"`
}

// Report collects the recoverable problems from one statement build.
type Report struct {
	Cycles     []hierarchy.CycleWarning `json:"cycles,omitempty"`
	FactErrors []NonNumericFactError    `json:"fact_errors,omitempty"`
}

// OK reports whether the build completed without truncating branches or
// skipping facts.
func (r Report) OK() bool {
	return len(r.Cycles) == 0 && len(r.FactErrors) == 0
}

// Statement is the terminal output of one role's reconstruction: rows
// in pre-order, periods newest first.
type Statement struct {
	RoleID  string   `json:"role_id"`
	Title   string   `json:"title"`
	Periods []string `json:"periods,omitempty"`
	Rows    []Row    `json:"rows"`
	Report  Report   `json:"report"`
}

// Build runs the whole pipeline for one role: normalize the role's
// presentation arcs, rebuild the tree, bind base-context facts, reshape
// wide, and annotate labels and calculation membership. Structural
// problems (*hierarchy.MalformedOrderError, *hierarchy.NoRootError)
// abort the build; per-branch and per-fact problems land in the report.
func Build(tables *xbrl.Tables, roleID, lang string) (*Statement, error) {
	edges, err := hierarchy.NormalizeEdges(tables.Presentation, roleID)
	if err != nil {
		return nil, err
	}
	tree, err := hierarchy.Build(roleID, edges)
	if err != nil {
		return nil, err
	}

	bound, factErrs := BindFacts(tree, tables.Facts, tables.ContextByID())

	st := &Statement{
		RoleID: roleID,
		Title:  tables.RoleDefinition(roleID),
		Report: Report{
			Cycles:     tree.Report.Cycles,
			FactErrors: factErrs,
		},
	}
	st.Periods = periodsOf(bound)
	st.Rows = Reshape(tree, bound)
	Annotate(st, tables, lang)
	return st, nil
}

// BindFacts joins tree nodes to reported values. Only facts reported
// against a base context (no dimension members) with a defined period
// end date survive; instant-only facts are dropped because the
// statement renders a period comparison. The scaled value is the raw
// decimal times ten to the reported exponent.
func BindFacts(tree *hierarchy.Tree, facts []xbrl.Fact, contexts map[string]xbrl.Context) ([]BoundFact, []NonNumericFactError) {
	byElement := make(map[string][]xbrl.Fact)
	for _, f := range facts {
		byElement[f.ElementID] = append(byElement[f.ElementID], f)
	}

	var bound []BoundFact
	var factErrs []NonNumericFactError
	for _, node := range tree.PreOrder() {
		for _, f := range byElement[node.ElementID] {
			ctx, ok := contexts[f.ContextID]
			if !ok || !ctx.IsBase() || ctx.EndDate == "" {
				continue
			}
			scaled, err := ScaledValue(f)
			if err != nil {
				factErrs = append(factErrs, NonNumericFactError{
					ElementID: f.ElementID,
					ContextID: f.ContextID,
					Value:     f.Value,
				})
				continue
			}
			bound = append(bound, BoundFact{
				PathID:    node.PathID,
				Depth:     node.Depth,
				ElementID: node.ElementID,
				EndDate:   ctx.EndDate,
				Scaled:    scaled,
			})
		}
	}
	return bound, factErrs
}

// ScaledValue parses a fact's decimal string and applies its exponent.
// Commas are tolerated, matching how filers format inline values.
func ScaledValue(f xbrl.Fact) (float64, error) {
	clean := strings.ReplaceAll(strings.TrimSpace(f.Value), ",", "")
	value, err := strconv.ParseFloat(clean, 64)
	if err != nil {
		return 0, &NonNumericFactError{ElementID: f.ElementID, ContextID: f.ContextID, Value: f.Value}
	}
	return value * math.Pow10(f.Decimals), nil
}

// Reshape pivots long bound facts into one row per tree position with
// one cell per period, preserving pre-order as the row order. Cells are
// keyed by path and element together, because every root shares the
// empty path. Every tree node gets a row; positions with no facts keep
// an empty cell set so the statement's structure survives sparse data.
func Reshape(tree *hierarchy.Tree, bound []BoundFact) []Row {
	cells := make(map[[2]string]map[string]*float64)
	for _, b := range bound {
		pos := [2]string{b.PathID, b.ElementID}
		if cells[pos] == nil {
			cells[pos] = make(map[string]*float64)
		}
		if _, dup := cells[pos][b.EndDate]; !dup {
			v := b.Scaled
			cells[pos][b.EndDate] = &v
		}
	}

	var rows []Row
	for _, node := range tree.PreOrder() {
		rows = append(rows, Row{
			PathID:    node.PathID,
			ParentID:  node.ParentID,
			Depth:     node.Depth,
			ElementID: node.ElementID,
			Values:    cells[[2]string{node.PathID, node.ElementID}],
		})
	}
	return rows
}

// Annotate fills in each row's display label and calculation flag.
// The preferred label role from the row's own presentation arc wins,
// then the standard label role, then the element ID itself. Preferred
// roles are resolved per arc, so a concept placed under two parents
// keeps each placement's label. A concept is flagged as calculated when
// it parents at least one calculation arc in this role, meaning its
// value is an aggregate of its children.
func Annotate(st *Statement, tables *xbrl.Tables, lang string) {
	preferred := make(map[[2]string]string)
	for _, a := range tables.Presentation {
		if a.RoleID == st.RoleID && a.PreferredLabel != "" {
			preferred[[2]string{a.FromID, a.ToID}] = a.PreferredLabel
		}
	}
	calculated := make(map[string]bool)
	for _, a := range tables.Calculation {
		if a.RoleID == st.RoleID {
			calculated[a.FromID] = true
		}
	}

	for i := range st.Rows {
		row := &st.Rows[i]
		row.IsCalculated = calculated[row.ElementID]
		role := preferred[[2]string{row.ParentID, row.ElementID}]
		row.Label = lookupLabel(tables.Labels, row.ElementID, role, lang)
	}
}

func lookupLabel(labels []xbrl.Label, elementID, preferredRole, lang string) string {
	if preferredRole != "" {
		if text := findLabel(labels, elementID, preferredRole, lang); text != "" {
			return text
		}
	}
	if text := findLabel(labels, elementID, xbrl.StdLabelRole, lang); text != "" {
		return text
	}
	return elementID
}

func findLabel(labels []xbrl.Label, elementID, role, lang string) string {
	for _, l := range labels {
		if l.ElementID == elementID && l.Role == role && matchLang(l.Lang, lang) {
			return l.Text
		}
	}
	return ""
}

// matchLang compares language tags loosely: "en" matches "en-US".
func matchLang(labelLang, want string) bool {
	if want == "" || labelLang == "" {
		return true
	}
	labelLang = strings.ToLower(labelLang)
	want = strings.ToLower(want)
	return labelLang == want || strings.HasPrefix(labelLang, want+"-")
}

// periodsOf returns the distinct period end dates in reverse
// chronological order, so the most recent period renders first.
func periodsOf(bound []BoundFact) []string {
	seen := make(map[string]bool)
	var periods []string
	for _, b := range bound {
		if !seen[b.EndDate] {
			seen[b.EndDate] = true
			periods = append(periods, b.EndDate)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(periods)))
	return periods
}
