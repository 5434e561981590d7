// Package hierarchy rebuilds an explicit concept tree from the flat
// parent/child arc tables of one reporting role. The builder walks the
// edge set breadth-first from its roots, assigning every node a depth
// and a lexicographically sortable path ID from which PreOrder recovers
// the traversal order used for rendering.
package hierarchy

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/xbrlview/xbrlview/pkg/xbrl"
)

// Edge is one normalized parent→child relation with its numeric sibling
// sort key.
type Edge struct {
	FromID string
	ToID   string
	Order  float64
}

// Node is one placed concept position. Roots carry an empty PathID and
// depth 0; every other node's PathID is its parent's PathID followed by
// a zero-padded two-digit sibling rank.
type Node struct {
	ElementID string  `json:"element_id"`
	ParentID  string  `json:"parent_id,omitempty"`
	Depth     int     `json:"depth"`
	PathID    string  `json:"path_id"`
	Order     float64 `json:"order"`
}

// Tree is the reconstructed forest for one role, with nodes in
// traversal order and the recoverable problems met along the way.
type Tree struct {
	RoleID string `json:"role_id"`
	Nodes  []Node `json:"nodes"`
	Report Report `json:"report"`
}

// PreOrder returns the nodes in traversal order: a parent's PathID is a
// strict prefix of every descendant's, so the lexicographic PathID sort
// is the pre-order walk. Roots all share the empty path, so each root
// borrows its first child's path as sort key, which places every root
// row immediately before its own subtree.
func (t *Tree) PreOrder() []Node {
	rootKey := make(map[string]string)
	for _, n := range t.Nodes {
		if n.Depth != 1 {
			continue
		}
		if k, ok := rootKey[n.ParentID]; !ok || n.PathID < k {
			rootKey[n.ParentID] = n.PathID
		}
	}
	key := func(n Node) string {
		if n.PathID == "" {
			return rootKey[n.ElementID]
		}
		return n.PathID
	}

	nodes := make([]Node, len(t.Nodes))
	copy(nodes, t.Nodes)
	sort.SliceStable(nodes, func(i, j int) bool {
		ki, kj := key(nodes[i]), key(nodes[j])
		if ki != kj {
			return ki < kj
		}
		return nodes[i].Depth < nodes[j].Depth
	})
	return nodes
}

// NormalizeEdges cleans one relation table down to (from, to, order)
// triples for a single role. An empty order attribute sorts as zero; a
// non-numeric one fails the whole role with *MalformedOrderError.
// Duplicate arcs are preserved: defensive taxonomies legitimately wire
// the same concept into a hierarchy more than once.
func NormalizeEdges(arcs []xbrl.Arc, roleID string) ([]Edge, error) {
	var edges []Edge
	for _, a := range arcs {
		if a.RoleID != roleID {
			continue
		}
		order := 0.0
		if raw := strings.TrimSpace(a.Order); raw != "" {
			parsed, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, &MalformedOrderError{
					RoleID: roleID,
					FromID: a.FromID,
					ToID:   a.ToID,
					Order:  a.Order,
				}
			}
			order = parsed
		}
		edges = append(edges, Edge{FromID: a.FromID, ToID: a.ToID, Order: order})
	}
	return edges, nil
}

// Build reconstructs the forest for one role from its normalized edges.
// Roots are the concepts that never appear as a child; a non-empty edge
// set without any root is degenerate and fails with *NoRootError. A
// child that would revisit one of its ancestors, or a repeated
// parent/child pair, truncates that branch with a CycleWarning instead
// of looping, and the rest of the build continues.
func Build(roleID string, edges []Edge) (*Tree, error) {
	tree := &Tree{RoleID: roleID}
	if len(edges) == 0 {
		return tree, nil
	}

	children := make(map[string][]Edge)
	isChild := make(map[string]bool)
	for _, e := range edges {
		children[e.FromID] = append(children[e.FromID], e)
		isChild[e.ToID] = true
	}
	for _, siblings := range children {
		sort.SliceStable(siblings, func(i, j int) bool {
			if siblings[i].Order != siblings[j].Order {
				return siblings[i].Order < siblings[j].Order
			}
			return siblings[i].ToID < siblings[j].ToID
		})
	}

	var roots []string
	seenRoot := make(map[string]bool)
	for _, e := range edges {
		if !isChild[e.FromID] && !seenRoot[e.FromID] {
			seenRoot[e.FromID] = true
			roots = append(roots, e.FromID)
		}
	}
	if len(roots) == 0 {
		return nil, &NoRootError{RoleID: roleID, EdgeCount: len(edges)}
	}
	sort.Strings(roots)

	// The queue carries indexes into tree.Nodes so ancestry can be
	// recovered by walking parent indexes, without back-links.
	parentIdx := make(map[int]int)
	var queue []int
	for _, root := range roots {
		tree.Nodes = append(tree.Nodes, Node{ElementID: root})
		idx := len(tree.Nodes) - 1
		parentIdx[idx] = -1
		queue = append(queue, idx)
	}

	// Sibling ranks are counted per parent path so that the children
	// of multiple roots, which all share the empty path, keep distinct
	// path IDs.
	rank := make(map[string]int)
	placed := make(map[[2]string]bool)

	for len(queue) > 0 {
		idx := queue[0]
		queue = queue[1:]
		parent := tree.Nodes[idx]

		for _, e := range children[parent.ElementID] {
			pair := [2]string{parent.ElementID, e.ToID}
			if placed[pair] || revisitsAncestor(tree.Nodes, parentIdx, idx, e.ToID) {
				tree.Report.Cycles = append(tree.Report.Cycles, CycleWarning{
					ParentID:  parent.ElementID,
					ElementID: e.ToID,
					PathID:    parent.PathID,
				})
				continue
			}
			placed[pair] = true

			rank[parent.PathID]++
			node := Node{
				ElementID: e.ToID,
				ParentID:  parent.ElementID,
				Depth:     parent.Depth + 1,
				PathID:    parent.PathID + pad(rank[parent.PathID]),
				Order:     e.Order,
			}
			tree.Nodes = append(tree.Nodes, node)
			childIdx := len(tree.Nodes) - 1
			parentIdx[childIdx] = idx
			queue = append(queue, childIdx)
		}
	}

	return tree, nil
}

// revisitsAncestor walks the placement chain from the candidate's
// parent back to its root, checking whether the element is already an
// ancestor of the position it would be placed at.
func revisitsAncestor(nodes []Node, parentIdx map[int]int, idx int, elementID string) bool {
	for i := idx; i >= 0; i = parentIdx[i] {
		if nodes[i].ElementID == elementID {
			return true
		}
	}
	return false
}

func pad(rank int) string {
	return fmt.Sprintf("%02d", rank)
}
