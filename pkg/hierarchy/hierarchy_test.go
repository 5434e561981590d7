package hierarchy

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xbrlview/xbrlview/pkg/xbrl"
)

const role = "http://example.com/role/BalanceSheet"

func TestNormalizeEdges(t *testing.T) {
	arcs := []xbrl.Arc{
		{Kind: xbrl.Presentation, RoleID: role, FromID: "root", ToID: "A", Order: "1"},
		{Kind: xbrl.Presentation, RoleID: role, FromID: "root", ToID: "B", Order: "2.5"},
		{Kind: xbrl.Presentation, RoleID: role, FromID: "root", ToID: "C", Order: ""},
		{Kind: xbrl.Presentation, RoleID: "http://example.com/role/Other", FromID: "X", ToID: "Y", Order: "1"},
	}

	edges, err := NormalizeEdges(arcs, role)
	require.NoError(t, err)
	require.Len(t, edges, 3, "arcs for other roles should be filtered out")
	assert.Equal(t, 1.0, edges[0].Order)
	assert.Equal(t, 2.5, edges[1].Order)
	assert.Equal(t, 0.0, edges[2].Order, "empty order should default to zero")
}

func TestNormalizeEdgesMalformedOrder(t *testing.T) {
	arcs := []xbrl.Arc{
		{RoleID: role, FromID: "root", ToID: "A", Order: "first"},
	}

	_, err := NormalizeEdges(arcs, role)
	require.Error(t, err)
	var malformed *MalformedOrderError
	require.True(t, errors.As(err, &malformed))
	assert.Equal(t, "first", malformed.Order)
	assert.Equal(t, "A", malformed.ToID)
}

func TestBuildAssignsPathsAndDepths(t *testing.T) {
	edges := []Edge{
		{FromID: "root", ToID: "A", Order: 1},
		{FromID: "root", ToID: "B", Order: 2},
		{FromID: "A", ToID: "A1", Order: 1},
	}

	tree, err := Build(role, edges)
	require.NoError(t, err)
	require.True(t, tree.Report.OK())

	byElement := make(map[string]Node)
	for _, n := range tree.Nodes {
		byElement[n.ElementID] = n
	}
	require.Len(t, tree.Nodes, 4, "one node per concept in the edge set")

	assert.Equal(t, "", byElement["root"].PathID)
	assert.Equal(t, 0, byElement["root"].Depth)
	assert.Equal(t, "01", byElement["A"].PathID)
	assert.Equal(t, 1, byElement["A"].Depth)
	assert.Equal(t, "02", byElement["B"].PathID)
	assert.Equal(t, "0101", byElement["A1"].PathID)
	assert.Equal(t, 2, byElement["A1"].Depth)
	assert.Equal(t, "A", byElement["A1"].ParentID)
}

func TestBuildPreOrderContract(t *testing.T) {
	// Sibling order comes from the numeric sort key, with ties broken
	// by element ID, regardless of the order edges arrive in.
	edges := []Edge{
		{FromID: "root", ToID: "Z", Order: 1},
		{FromID: "root", ToID: "M", Order: 1},
		{FromID: "root", ToID: "A", Order: 3},
		{FromID: "Z", ToID: "Z1", Order: 1},
	}

	tree, err := Build(role, edges)
	require.NoError(t, err)

	var order []string
	for _, n := range tree.PreOrder() {
		order = append(order, n.ElementID)
	}
	assert.Equal(t, []string{"root", "M", "Z", "Z1", "A"}, order)

	// A parent's path ID is a strict prefix of every descendant's.
	byElement := make(map[string]Node)
	for _, n := range tree.Nodes {
		byElement[n.ElementID] = n
	}
	for _, n := range tree.Nodes {
		if n.ParentID == "" {
			continue
		}
		parent := byElement[n.ParentID]
		assert.True(t, len(n.PathID) > len(parent.PathID))
		assert.Equal(t, parent.PathID, n.PathID[:len(parent.PathID)])
	}
}

func TestBuildForestOrdersEachRootBeforeItsSubtree(t *testing.T) {
	edges := []Edge{
		{FromID: "R2", ToID: "B", Order: 1},
		{FromID: "R1", ToID: "A", Order: 1},
		{FromID: "A", ToID: "A1", Order: 1},
	}

	tree, err := Build(role, edges)
	require.NoError(t, err)
	require.True(t, tree.Report.OK())

	var order []string
	for _, n := range tree.PreOrder() {
		order = append(order, n.ElementID)
	}
	assert.Equal(t, []string{"R1", "A", "A1", "R2", "B"}, order,
		"each root row precedes its own subtree, not the other root's")
}

func TestBuildIsIdempotent(t *testing.T) {
	edges := []Edge{
		{FromID: "root", ToID: "B", Order: 2},
		{FromID: "root", ToID: "A", Order: 1},
		{FromID: "A", ToID: "C", Order: 1},
		{FromID: "B", ToID: "C", Order: 1},
	}

	first, err := Build(role, edges)
	require.NoError(t, err)
	second, err := Build(role, edges)
	require.NoError(t, err)
	assert.Equal(t, first.Nodes, second.Nodes)
}

func TestBuildPreservesMultiplicity(t *testing.T) {
	// The same concept wired under two parents owns two positions.
	edges := []Edge{
		{FromID: "root", ToID: "A", Order: 1},
		{FromID: "root", ToID: "B", Order: 2},
		{FromID: "A", ToID: "Shared", Order: 1},
		{FromID: "B", ToID: "Shared", Order: 1},
	}

	tree, err := Build(role, edges)
	require.NoError(t, err)
	require.True(t, tree.Report.OK())

	var paths []string
	for _, n := range tree.Nodes {
		if n.ElementID == "Shared" {
			paths = append(paths, n.PathID)
		}
	}
	assert.ElementsMatch(t, []string{"0101", "0201"}, paths)
}

func TestBuildNoRoot(t *testing.T) {
	edges := []Edge{
		{FromID: "A", ToID: "B", Order: 1},
		{FromID: "B", ToID: "A", Order: 1},
	}

	_, err := Build(role, edges)
	require.Error(t, err)
	var noRoot *NoRootError
	require.True(t, errors.As(err, &noRoot))
	assert.Equal(t, 2, noRoot.EdgeCount)
}

func TestBuildTruncatesCycle(t *testing.T) {
	edges := []Edge{
		{FromID: "A", ToID: "B", Order: 1},
		{FromID: "B", ToID: "C", Order: 1},
		{FromID: "C", ToID: "B", Order: 1},
	}

	tree, err := Build(role, edges)
	require.NoError(t, err, "a cycle below a valid root must not abort the build")

	var elements []string
	for _, n := range tree.Nodes {
		elements = append(elements, n.ElementID)
	}
	assert.Equal(t, []string{"A", "B", "C"}, elements, "the revisit is truncated, not re-expanded")

	require.Len(t, tree.Report.Cycles, 1)
	assert.Equal(t, "C", tree.Report.Cycles[0].ParentID)
	assert.Equal(t, "B", tree.Report.Cycles[0].ElementID)
}

func TestBuildDuplicateEdgeWarnsOnce(t *testing.T) {
	edges := []Edge{
		{FromID: "root", ToID: "A", Order: 1},
		{FromID: "root", ToID: "A", Order: 5},
	}

	tree, err := Build(role, edges)
	require.NoError(t, err)

	var positions int
	for _, n := range tree.Nodes {
		if n.ElementID == "A" {
			positions++
		}
	}
	assert.Equal(t, 1, positions, "a repeated parent/child pair is placed once")
	require.Len(t, tree.Report.Cycles, 1)
}

func TestBuildEmptyEdgeSet(t *testing.T) {
	tree, err := Build(role, nil)
	require.NoError(t, err)
	assert.Empty(t, tree.Nodes)
}

func TestBuildLeafGetsPath(t *testing.T) {
	edges := []Edge{{FromID: "root", ToID: "Leaf", Order: 1}}

	tree, err := Build(role, edges)
	require.NoError(t, err)
	require.Len(t, tree.Nodes, 2)
	assert.Equal(t, "01", tree.Nodes[1].PathID)
}
