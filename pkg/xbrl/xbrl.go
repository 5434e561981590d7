// Package xbrl defines the flat relational tables an XBRL filing is
// broken into before any hierarchy is reconstructed: elements, labels,
// contexts, facts, and the three kinds of parent/child link arcs.
// Loaders (pkg/ixbrl, pkg/linkbase) produce these tables; the
// reconstruction engine (pkg/hierarchy, pkg/statement) only reads them.
package xbrl

import "sort"

// ArcKind distinguishes the three link tables published for a taxonomy.
type ArcKind string

const (
	Presentation ArcKind = "presentation"
	Calculation  ArcKind = "calculation"
	Definition   ArcKind = "definition"
)

// StdLabelRole is the default label role used when an arc carries no
// preferred label.
const StdLabelRole = "http://www.xbrl.org/2003/role/label"

// Element is one reportable concept from the taxonomy schema.
type Element struct {
	ID         string `json:"id"`
	Balance    string `json:"balance,omitempty"` // "debit", "credit" or empty
	PeriodType string `json:"period_type,omitempty"`
	Abstract   bool   `json:"abstract,omitempty"`
}

// Label is one human-readable string attached to an element, per label
// role and language.
type Label struct {
	ElementID string `json:"element_id"`
	Role      string `json:"role"`
	Lang      string `json:"lang"`
	Text      string `json:"text"`
}

// Context scopes a fact to a reporting period and an optional set of
// dimensional breakdowns (e.g. a business segment).
type Context struct {
	ID         string            `json:"id"`
	StartDate  string            `json:"start_date,omitempty"`
	EndDate    string            `json:"end_date,omitempty"`
	Instant    string            `json:"instant,omitempty"`
	Dimensions map[string]string `json:"dimensions,omitempty"`
}

// IsBase reports whether the context carries no dimensional breakdown.
// Only base contexts are eligible for statement binding.
func (c Context) IsBase() bool {
	return len(c.Dimensions) == 0
}

// Fact is one reported value. Value is kept as the raw decimal string;
// the reported number is Value × 10^Decimals.
type Fact struct {
	ContextID string `json:"context_id"`
	ElementID string `json:"element_id"`
	Value     string `json:"value"`
	Decimals  int    `json:"decimals"`
	UnitID    string `json:"unit_id,omitempty"`
}

// Arc is one directed parent→child relation within one reporting role.
// Order is kept as the raw attribute string; numeric coercion happens in
// the hierarchy normalizer so malformed sort keys can be reported
// against the arc that carried them.
type Arc struct {
	Kind           ArcKind `json:"kind"`
	RoleID         string  `json:"role_id"`
	FromID         string  `json:"from_id"`
	ToID           string  `json:"to_id"`
	Order          string  `json:"order,omitempty"`
	PreferredLabel string  `json:"preferred_label,omitempty"`
	Arcrole        string  `json:"arcrole,omitempty"`
	Weight         float64 `json:"weight,omitempty"`
}

// Role is one named reporting view (typically one financial statement).
type Role struct {
	ID         string `json:"id"`
	Type       string `json:"type,omitempty"`
	Definition string `json:"definition,omitempty"`
}

// Tables is one filing's worth of flat rows. All slices are append-only
// during loading and read-only afterwards.
type Tables struct {
	Elements     []Element `json:"elements,omitempty"`
	Labels       []Label   `json:"labels,omitempty"`
	Contexts     []Context `json:"contexts,omitempty"`
	Facts        []Fact    `json:"facts,omitempty"`
	Presentation []Arc     `json:"presentation,omitempty"`
	Calculation  []Arc     `json:"calculation,omitempty"`
	Definition   []Arc     `json:"definition,omitempty"`
	Roles        []Role    `json:"roles,omitempty"`
}

// Merge appends another table set into t. Loaders for the instance
// document and each linkbase file each produce a partial Tables; the
// caller merges them into one snapshot.
func (t *Tables) Merge(other Tables) {
	t.Elements = append(t.Elements, other.Elements...)
	t.Labels = append(t.Labels, other.Labels...)
	t.Contexts = append(t.Contexts, other.Contexts...)
	t.Facts = append(t.Facts, other.Facts...)
	t.Presentation = append(t.Presentation, other.Presentation...)
	t.Calculation = append(t.Calculation, other.Calculation...)
	t.Definition = append(t.Definition, other.Definition...)
	t.Roles = append(t.Roles, other.Roles...)
}

// Arcs returns the arc table for the given relation kind.
func (t *Tables) Arcs(kind ArcKind) []Arc {
	switch kind {
	case Presentation:
		return t.Presentation
	case Calculation:
		return t.Calculation
	case Definition:
		return t.Definition
	}
	return nil
}

// ContextByID builds a lookup from context ID to context row.
func (t *Tables) ContextByID() map[string]Context {
	m := make(map[string]Context, len(t.Contexts))
	for _, c := range t.Contexts {
		m[c.ID] = c
	}
	return m
}

// PresentationRoles returns the distinct role IDs present in the
// presentation arc table, sorted for deterministic listing.
func (t *Tables) PresentationRoles() []string {
	seen := make(map[string]bool)
	var roles []string
	for _, a := range t.Presentation {
		if !seen[a.RoleID] {
			seen[a.RoleID] = true
			roles = append(roles, a.RoleID)
		}
	}
	sort.Strings(roles)
	return roles
}

// RoleDefinition returns the human-readable definition for a role ID,
// falling back to the ID itself when the role table has no entry.
func (t *Tables) RoleDefinition(roleID string) string {
	for _, r := range t.Roles {
		if r.ID == roleID && r.Definition != "" {
			return r.Definition
		}
	}
	return roleID
}
