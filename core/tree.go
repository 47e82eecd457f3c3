package core

import (
	"fmt"
	"sort"
	"strings"

	"github.com/m1gwings/treedrawer/tree"
)

// TreeNode is one node of a displayable consumer or provider tree. Trees are
// read-only debugging artifacts built from the registry; the resolution
// algorithm never uses them.
type TreeNode struct {
	Label    string
	Node     *Node  // nil for literal providers
	KeyMap   KeyMap // mapping on the edge from the parent, nil at the root
	Cycle    bool   // true for a truncation marker on a revisited node
	Children []*TreeNode
}

// ConsumerTree builds the tree of everything that consumes from root,
// depth-first in registration order. Traversal is cycle-safe: revisiting a
// node already on the current path emits a marker leaf instead of recursing.
// maxDepth limits descent when positive; zero or negative means unbounded.
func ConsumerTree(root *Node, maxDepth int) *TreeNode {
	return buildTree(root, nil, maxDepth, true, map[*Node]bool{})
}

// ProviderTree is the symmetric, reversed-direction view: everything root
// consumes from, including literal providers.
func ProviderTree(root *Node, maxDepth int) *TreeNode {
	return buildTree(root, nil, maxDepth, false, map[*Node]bool{})
}

func buildTree(n *Node, edge KeyMap, maxDepth int, consumers bool, onPath map[*Node]bool) *TreeNode {
	t := &TreeNode{Label: n.Name(), Node: n, KeyMap: edge}
	if maxDepth == 1 {
		return t
	}
	next := maxDepth
	if next > 0 {
		next--
	}
	onPath[n] = true
	defer delete(onPath, n)

	edges := n.providers
	if consumers {
		edges = n.consumers
	}
	for _, b := range edges {
		child, ok := b.source.(*Node)
		if !ok {
			if lit, isLit := b.Literal(); isLit {
				t.Children = append(t.Children, &TreeNode{
					Label:  literalLabel(lit),
					KeyMap: b.keyMap,
				})
			}
			continue
		}
		if onPath[child] {
			t.Children = append(t.Children, &TreeNode{
				Label:  child.Name(),
				Node:   child,
				KeyMap: b.keyMap,
				Cycle:  true,
			})
			continue
		}
		t.Children = append(t.Children, buildTree(child, b.keyMap, next, consumers, onPath))
	}
	return t
}

// String renders the tree as indented ASCII, one node per line.
func (t *TreeNode) String() string {
	var sb strings.Builder
	sb.WriteString(t.describe())
	sb.WriteString("\n")
	writeChildren(&sb, t, "")
	return sb.String()
}

func writeChildren(sb *strings.Builder, t *TreeNode, prefix string) {
	for i, c := range t.Children {
		connector, childPrefix := "├─> ", prefix+"│   "
		if i == len(t.Children)-1 {
			connector, childPrefix = "└─> ", prefix+"    "
		}
		sb.WriteString(prefix + connector + c.describe() + "\n")
		writeChildren(sb, c, childPrefix)
	}
}

// Draw renders the tree as a box drawing using treedrawer. Useful for wide
// fan-out graphs where the indented form gets hard to scan.
func (t *TreeNode) Draw() string {
	dt := tree.NewTree(tree.NodeString(t.describe()))
	appendTree(dt, t)
	return dt.String()
}

func appendTree(dst *tree.Tree, n *TreeNode) {
	for i, c := range n.Children {
		dst.AddChild(tree.NodeString(c.describe()))
		child, err := dst.Child(i)
		if err != nil {
			continue
		}
		appendTree(child, c)
	}
}

// describe formats one node as "name {mapping}" with a cycle marker when the
// traversal truncated here.
func (t *TreeNode) describe() string {
	label := t.Label
	if km := formatKeyMap(t.KeyMap); km != "" {
		label += " " + km
	}
	if t.Cycle {
		label += " (cycle)"
	}
	return label
}

// formatKeyMap gives a stable, compact rendering of an edge mapping.
func formatKeyMap(km KeyMap) string {
	if len(km) == 0 {
		return ""
	}
	targets := make([]string, 0, len(km))
	for k := range km {
		targets = append(targets, k)
	}
	sort.Strings(targets)
	parts := make([]string, 0, len(targets))
	for _, target := range targets {
		switch r := km[target].(type) {
		case nil:
			parts = append(parts, target+":suppressed")
		case string:
			parts = append(parts, target+"<-"+r)
		case Transform:
			parts = append(parts, target+":fn")
		}
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// literalLabel summarizes a literal provider by its sorted keys.
func literalLabel(m map[string]any) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return fmt.Sprintf("literal{%s}", strings.Join(keys, ", "))
}
