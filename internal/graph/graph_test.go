package graph

import (
	"errors"
	"testing"
)

func seedGraph(t *testing.T) *Graph {
	t.Helper()
	c, err := DefaultCurriculum()
	if err != nil {
		t.Fatalf("load default curriculum: %v", err)
	}
	return c.Graph
}

func TestNode_Exists(t *testing.T) {
	g := seedGraph(t)
	kp, err := g.Node("addition")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if kp.Title != "Addition" {
		t.Errorf("got title %q, want %q", kp.Title, "Addition")
	}
	if kp.Layer != 1 {
		t.Errorf("got layer %d, want 1", kp.Layer)
	}
}

func TestNode_NotFound(t *testing.T) {
	g := seedGraph(t)
	_, err := g.Node("nonexistent")
	if !errors.Is(err, ErrNodeNotFound) {
		t.Fatalf("expected ErrNodeNotFound, got %v", err)
	}
}

func TestRoots(t *testing.T) {
	g := seedGraph(t)
	roots := g.Roots()
	if len(roots) != 2 {
		t.Fatalf("got %d roots, want 2", len(roots))
	}
	for _, kp := range roots {
		if len(kp.Prerequisites) != 0 {
			t.Errorf("root %q has prerequisites: %v", kp.ID, kp.Prerequisites)
		}
	}
	if roots[0].ID != "place-value" || roots[1].ID != "shapes" {
		t.Errorf("roots = [%s %s], want [place-value shapes]", roots[0].ID, roots[1].ID)
	}
}

func TestPrerequisites(t *testing.T) {
	g := seedGraph(t)

	prereqs := g.Prerequisites("division")
	if len(prereqs) != 2 {
		t.Fatalf("division: got %d prereqs, want 2", len(prereqs))
	}
	ids := map[string]bool{}
	for _, p := range prereqs {
		ids[p.ID] = true
	}
	if !ids["multiplication"] || !ids["subtraction"] {
		t.Errorf("division prereqs: got %v", ids)
	}

	if got := g.Prerequisites("place-value"); len(got) != 0 {
		t.Errorf("place-value: got %d prereqs, want 0", len(got))
	}
	if got := g.Prerequisites("nope"); got != nil {
		t.Errorf("unknown id: got %v, want nil", got)
	}
}

func TestDependents_DirectOnly(t *testing.T) {
	g := seedGraph(t)
	deps := g.Dependents("place-value")
	got := map[string]bool{}
	for _, d := range deps {
		got[d.ID] = true
	}
	if len(got) != 2 || !got["addition"] || !got["subtraction"] {
		t.Errorf("place-value dependents = %v, want addition and subtraction", got)
	}
	// multiplication depends on addition, not on place-value directly.
	if got["multiplication"] {
		t.Error("Dependents must not return transitive successors")
	}
}

func TestChildren(t *testing.T) {
	g := seedGraph(t)

	roots, err := g.Children("")
	if err != nil {
		t.Fatalf("Children(\"\"): %v", err)
	}
	if len(roots) != 2 {
		t.Errorf("Children(\"\") returned %d nodes, want the 2 roots", len(roots))
	}

	kids, err := g.Children("multiplication")
	if err != nil {
		t.Fatalf("Children(multiplication): %v", err)
	}
	if len(kids) != 3 {
		t.Errorf("multiplication children = %d, want 3", len(kids))
	}

	if _, err := g.Children("missing"); !errors.Is(err, ErrNodeNotFound) {
		t.Errorf("Children(missing) error = %v, want ErrNodeNotFound", err)
	}

	if g.HasChildren("decimals") {
		t.Error("decimals is a leaf")
	}
	if !g.HasChildren("shapes") {
		t.Error("shapes has perimeter as a child")
	}
}

func TestTopologicalOrder(t *testing.T) {
	g := seedGraph(t)
	topo := g.TopologicalOrder()
	if len(topo) != g.Len() {
		t.Fatalf("got %d nodes in topo order, want %d", len(topo), g.Len())
	}

	pos := make(map[string]int, len(topo))
	for i, kp := range topo {
		pos[kp.ID] = i
	}
	for _, kp := range topo {
		for _, prereqID := range kp.Prerequisites {
			if pos[prereqID] >= pos[kp.ID] {
				t.Errorf("%q (pos %d) appears before prerequisite %q (pos %d)",
					kp.ID, pos[kp.ID], prereqID, pos[prereqID])
			}
		}
		if g.TopoIndex(kp.ID) != pos[kp.ID] {
			t.Errorf("TopoIndex(%q) = %d, want %d", kp.ID, g.TopoIndex(kp.ID), pos[kp.ID])
		}
	}
	if g.TopoIndex("missing") != -1 {
		t.Error("TopoIndex of unknown id should be -1")
	}
}

func TestDepths(t *testing.T) {
	g := seedGraph(t)
	tests := []struct {
		id   string
		want int
	}{
		{"place-value", 0},
		{"addition", 1},
		{"division", 3},
		{"decimals", 5},
	}
	for _, tt := range tests {
		if got := g.Depth(tt.id); got != tt.want {
			t.Errorf("Depth(%q) = %d, want %d", tt.id, got, tt.want)
		}
	}
}

func TestEdges(t *testing.T) {
	g := seedGraph(t)
	total := 0
	for _, kp := range g.All() {
		total += len(kp.Prerequisites)
	}
	edges := g.Edges()
	if len(edges) != total {
		t.Fatalf("got %d edges, want %d", len(edges), total)
	}
	for _, e := range edges {
		if !g.Has(e.Source) || !g.Has(e.Target) {
			t.Errorf("edge %v references unknown node", e)
		}
	}
}

func TestIsUnlocked(t *testing.T) {
	g := seedGraph(t)
	if !g.IsUnlocked("place-value", nil) {
		t.Error("root should be unlocked with empty mastered set")
	}
	if g.IsUnlocked("division", map[string]bool{"multiplication": true}) {
		t.Error("division should stay locked with one of two prereqs")
	}
	if !g.IsUnlocked("division", map[string]bool{"multiplication": true, "subtraction": true}) {
		t.Error("division should be unlocked with both prereqs")
	}
}

func TestAll_ReturnsCopy(t *testing.T) {
	g := seedGraph(t)
	a := g.All()
	a[0].Title = "MUTATED"
	a[0].Prerequisites = append(a[0].Prerequisites, "x")
	b := g.All()
	if b[0].Title == "MUTATED" {
		t.Error("All did not return a defensive copy")
	}
}

func TestNew_InputNotAliased(t *testing.T) {
	nodes := []KnowledgePoint{
		{ID: "a"},
		{ID: "b", Prerequisites: []string{"a"}},
	}
	g, err := New(nodes)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	nodes[1].Prerequisites[0] = "zzz"
	kp, _ := g.Node("b")
	if kp.Prerequisites[0] != "a" {
		t.Error("graph shares prerequisite slice with caller")
	}
}
