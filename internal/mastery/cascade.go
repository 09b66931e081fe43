package mastery

import "github.com/abhisek/mathlab/internal/graph"

// UnlockIntent asks for a knowledge point to be made available to a student.
type UnlockIntent struct {
	StudentID        string
	KnowledgePointID string
}

// Topology is the part of the knowledge graph unlock planning reads.
// *graph.Graph implements it.
type Topology interface {
	Has(id string) bool
	Dependents(id string) []graph.KnowledgePoint
	IsUnlocked(id string, mastered map[string]bool) bool
}

// DanglingFunc is called for every prerequisite id that does not resolve to
// a node in the graph.
type DanglingFunc func(dependentID, prerequisiteID string)

// PlanUnlocks computes the unlocks caused by masteredID becoming mastered.
// Only direct dependents are considered. A dependent is unlocked when every
// one of its prerequisites is mastered in statuses; a missing status or an
// unresolvable prerequisite counts as not mastered. Dependents that already
// have a status past locked produce no intent, so planning twice for the
// same state yields the same intents.
func PlanUnlocks(g Topology, studentID, masteredID string, statuses map[string]Status, onDangling DanglingFunc) []UnlockIntent {
	mastered := make(map[string]bool, len(statuses))
	for id, st := range statuses {
		if st == StatusMastered {
			mastered[id] = true
		}
	}

	var intents []UnlockIntent
	for _, dep := range g.Dependents(masteredID) {
		if s, ok := statuses[dep.ID]; ok && s != StatusLocked {
			continue
		}
		if hasDangling(g, dep, onDangling) || !g.IsUnlocked(dep.ID, mastered) {
			continue
		}
		intents = append(intents, UnlockIntent{StudentID: studentID, KnowledgePointID: dep.ID})
	}
	return intents
}

// hasDangling reports every unresolvable prerequisite of kp to onDangling.
func hasDangling(g Topology, kp graph.KnowledgePoint, onDangling DanglingFunc) bool {
	found := false
	for _, prereqID := range kp.Prerequisites {
		if g.Has(prereqID) {
			continue
		}
		if onDangling != nil {
			onDangling(kp.ID, prereqID)
		}
		found = true
	}
	return found
}
