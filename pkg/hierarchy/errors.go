package hierarchy

import "fmt"

// MalformedOrderError is returned when an arc carries a sort key that is
// neither empty nor numeric. It aborts normalization for the role.
type MalformedOrderError struct {
	RoleID string
	FromID string
	ToID   string
	Order  string
}

func (e *MalformedOrderError) Error() string {
	return fmt.Sprintf("malformed order %q on arc %s -> %s in role %s", e.Order, e.FromID, e.ToID, e.RoleID)
}

// NoRootError is returned when a non-empty edge set has no node without
// an incoming edge, which means the role's hierarchy is fully cyclic.
type NoRootError struct {
	RoleID    string
	EdgeCount int
}

func (e *NoRootError) Error() string {
	return fmt.Sprintf("no root found among %d edges in role %s", e.EdgeCount, e.RoleID)
}

// CycleWarning records a branch that was truncated during traversal
// because a child would have revisited one of its ancestors, or because
// the same parent/child pair appeared twice. The build continues.
type CycleWarning struct {
	ParentID  string `json:"parent_id"`
	ElementID string `json:"element_id"`
	PathID    string `json:"path_id"` // position of the parent whose branch was cut
}

func (w CycleWarning) String() string {
	return fmt.Sprintf("cycle at %s: %s revisits %s", w.PathID, w.ParentID, w.ElementID)
}

// Report collects the recoverable problems encountered while building
// one role's tree, so callers can audit data quality without losing the
// rest of the statement.
type Report struct {
	Cycles []CycleWarning `json:"cycles,omitempty"`
}

// OK reports whether the build completed without truncating anything.
func (r Report) OK() bool {
	return len(r.Cycles) == 0
}
