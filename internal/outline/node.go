// Package outline reconstructs a hierarchical section tree from a flat
// page stream and renders/parses its markdown form.
package outline

import (
	"sort"

	"github.com/txxxxz/autonote/internal/layout"
)

// Node is one entry in the table-of-contents tree. A node owns its
// children exclusively; anchors are weak references into layout pages.
// A node's Pages is always a superset of the union of its children's
// Pages (aggregation happens as children are attached).
type Node struct {
	SectionID string             `json:"section_id"`
	Title     string             `json:"title"`
	Summary   string             `json:"summary"`
	Anchors   []layout.AnchorRef `json:"anchors"`
	Level     int                `json:"level"`
	Children  []*Node            `json:"children"`
	Pages     []int              `json:"pages,omitempty"`
	PageStart int                `json:"page_start,omitempty"`
	PageEnd   int                `json:"page_end,omitempty"`
}

// Tree wraps the root node (level 0, empty anchors) and an optional
// rendered markdown representation.
type Tree struct {
	Root     *Node  `json:"root"`
	Markdown string `json:"markdown,omitempty"`
}

// AddPages unions pages into the node's page set, keeping ascending
// order, and extends the page bounds.
func (n *Node) AddPages(pages []int) {
	for _, p := range pages {
		if p <= 0 {
			continue
		}
		idx := sort.SearchInts(n.Pages, p)
		if idx < len(n.Pages) && n.Pages[idx] == p {
			continue
		}
		n.Pages = append(n.Pages, 0)
		copy(n.Pages[idx+1:], n.Pages[idx:])
		n.Pages[idx] = p
		if n.PageStart == 0 || p < n.PageStart {
			n.PageStart = p
		}
		if p > n.PageEnd {
			n.PageEnd = p
		}
	}
}

// AddAnchors appends anchors, deduplicated by (page, ref).
func (n *Node) AddAnchors(anchors []layout.AnchorRef) {
	for _, a := range anchors {
		dup := false
		for _, existing := range n.Anchors {
			if existing.Page == a.Page && existing.Ref == a.Ref {
				dup = true
				break
			}
		}
		if !dup {
			n.Anchors = append(n.Anchors, a)
		}
	}
}

// AttachChild appends child and propagates its pages into the parent,
// preserving the superset invariant.
func (n *Node) AttachChild(child *Node) {
	n.Children = append(n.Children, child)
	n.AddPages(child.Pages)
}

// CoveredPages returns every page this section transitively covers: its
// own pages, anchor pages, and all descendants' pages, ascending and
// deduplicated.
func (n *Node) CoveredPages() []int {
	seen := make(map[int]bool)
	var collect func(node *Node)
	collect = func(node *Node) {
		for _, p := range node.Pages {
			seen[p] = true
		}
		for _, a := range node.Anchors {
			if a.Page > 0 {
				seen[a.Page] = true
			}
		}
		for _, child := range node.Children {
			collect(child)
		}
	}
	collect(n)
	pages := make([]int, 0, len(seen))
	for p := range seen {
		pages = append(pages, p)
	}
	sort.Ints(pages)
	return pages
}
