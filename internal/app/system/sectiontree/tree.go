// Package sectiontree maintains the section category hierarchy.
//
// Sections are persisted flat with parent pointers. Index is an in-memory
// arena keyed by id that answers ancestry questions; Build materializes
// forests for the catalog, navigation, and homepage views.
package sectiontree

import (
	"sort"

	"github.com/dalemusser/stratastore/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Index is an id-keyed view of a flat list of sections.
type Index struct {
	byID     map[primitive.ObjectID]*models.Section
	children map[primitive.ObjectID][]primitive.ObjectID
}

// NewIndex builds an index over sections. The slice is not retained.
func NewIndex(sections []models.Section) *Index {
	x := &Index{
		byID:     make(map[primitive.ObjectID]*models.Section, len(sections)),
		children: make(map[primitive.ObjectID][]primitive.ObjectID),
	}
	for i := range sections {
		s := sections[i]
		x.byID[s.ID] = &s
		if s.ParentID != nil {
			x.children[*s.ParentID] = append(x.children[*s.ParentID], s.ID)
		}
	}
	return x
}

// Get returns the section with the given id.
func (x *Index) Get(id primitive.ObjectID) (*models.Section, bool) {
	s, ok := x.byID[id]
	return s, ok
}

// Ancestors returns the ids above id, nearest parent first.
// The walk stops at a missing parent or a repeated id.
func (x *Index) Ancestors(id primitive.ObjectID) []primitive.ObjectID {
	var out []primitive.ObjectID
	seen := map[primitive.ObjectID]bool{id: true}
	cur, ok := x.byID[id]
	for ok && cur.ParentID != nil {
		pid := *cur.ParentID
		if seen[pid] {
			break
		}
		seen[pid] = true
		out = append(out, pid)
		cur, ok = x.byID[pid]
	}
	return out
}

// Descendants returns every id below id, breadth first.
func (x *Index) Descendants(id primitive.ObjectID) []primitive.ObjectID {
	var out []primitive.ObjectID
	seen := map[primitive.ObjectID]bool{id: true}
	queue := []primitive.ObjectID{id}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, child := range x.children[cur] {
			if seen[child] {
				continue
			}
			seen[child] = true
			out = append(out, child)
			queue = append(queue, child)
		}
	}
	return out
}

// CreatesCycle reports whether making parentID the parent of id would put
// id on its own ancestor chain. It walks up from the proposed parent.
func (x *Index) CreatesCycle(id, parentID primitive.ObjectID) bool {
	if id == parentID {
		return true
	}
	for _, a := range x.Ancestors(parentID) {
		if a == id {
			return true
		}
	}
	return false
}

// Relevel computes the levels of id's subtree when id sits at level.
// The result includes id itself.
func (x *Index) Relevel(id primitive.ObjectID, level int) map[primitive.ObjectID]int {
	levels := map[primitive.ObjectID]int{id: level}
	queue := []primitive.ObjectID{id}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, child := range x.children[cur] {
			if _, done := levels[child]; done {
				continue
			}
			levels[child] = levels[cur] + 1
			queue = append(queue, child)
		}
	}
	return levels
}

// Build materializes a forest from flat sections. Roots are sections with
// no parent; a section whose parent is not in the list is left out along
// with its subtree. Every level is sorted by (level, display order, name).
func Build(sections []models.Section) []*models.SectionNode {
	nodes := make(map[primitive.ObjectID]*models.SectionNode, len(sections))
	for i := range sections {
		nodes[sections[i].ID] = &models.SectionNode{
			Section:  sections[i],
			Children: []*models.SectionNode{},
		}
	}

	roots := []*models.SectionNode{}
	for i := range sections {
		n := nodes[sections[i].ID]
		if n.ParentID == nil {
			roots = append(roots, n)
			continue
		}
		if parent, ok := nodes[*n.ParentID]; ok && parent != n {
			parent.Children = append(parent.Children, n)
		}
	}

	sortForest(roots, map[*models.SectionNode]bool{})
	return roots
}

// Filter keeps sections that are active and satisfy keep. Building the
// result drops any section whose ancestor chain was filtered out, so a
// deep section only appears when its whole chain qualifies.
func Filter(sections []models.Section, keep func(*models.Section) bool) []models.Section {
	out := make([]models.Section, 0, len(sections))
	for i := range sections {
		if sections[i].IsActive && keep(&sections[i]) {
			out = append(out, sections[i])
		}
	}
	return out
}

// InNavbar selects sections flagged for the navigation menu.
func InNavbar(s *models.Section) bool { return s.ShowInNavbar }

// OnHomepage selects sections flagged for homepage carousels.
func OnHomepage(s *models.Section) bool { return s.ShowInHomepage }

func sortForest(level []*models.SectionNode, visited map[*models.SectionNode]bool) {
	sort.SliceStable(level, func(i, j int) bool {
		a, b := level[i], level[j]
		if a.Level != b.Level {
			return a.Level < b.Level
		}
		if a.DisplayOrder != b.DisplayOrder {
			return a.DisplayOrder < b.DisplayOrder
		}
		return a.Name < b.Name
	})
	for _, n := range level {
		if visited[n] {
			continue
		}
		visited[n] = true
		sortForest(n.Children, visited)
	}
}
