package graph

import (
	"fmt"
	"sort"
	"strings"
)

// ValidationError describes every structural problem found in a node set.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("knowledge graph validation failed:\n  %s", strings.Join(e.Problems, "\n  "))
}

// Validate performs all structural checks on the given nodes.
// Returns a *ValidationError describing all problems found, or nil if valid.
func Validate(nodes []KnowledgePoint) error {
	var errs []string

	idSet := make(map[string]bool, len(nodes))

	for _, kp := range nodes {
		if strings.TrimSpace(kp.ID) == "" {
			errs = append(errs, "knowledge point with empty ID")
			continue
		}
		if idSet[kp.ID] {
			errs = append(errs, fmt.Sprintf("duplicate knowledge point ID: %q", kp.ID))
		}
		idSet[kp.ID] = true
	}

	for _, kp := range nodes {
		if kp.Layer < 0 {
			errs = append(errs, fmt.Sprintf("knowledge point %q has negative layer %d", kp.ID, kp.Layer))
		}
		seen := make(map[string]bool, len(kp.Prerequisites))
		for _, prereqID := range kp.Prerequisites {
			switch {
			case prereqID == kp.ID:
				errs = append(errs, fmt.Sprintf("knowledge point %q lists itself as a prerequisite", kp.ID))
			case !idSet[prereqID]:
				errs = append(errs, fmt.Sprintf("knowledge point %q references nonexistent prerequisite %q", kp.ID, prereqID))
			case seen[prereqID]:
				errs = append(errs, fmt.Sprintf("knowledge point %q lists prerequisite %q twice", kp.ID, prereqID))
			}
			seen[prereqID] = true
		}
		for _, link := range kp.InterferenceLinks {
			if !idSet[link.KnowledgePointID] {
				errs = append(errs, fmt.Sprintf("knowledge point %q has interference link to nonexistent %q", kp.ID, link.KnowledgePointID))
			}
		}
	}

	// Cycle check with Kahn's algorithm. Dangling edges are ignored here
	// since they were reported above.
	inDegree := make(map[string]int, len(nodes))
	adjList := make(map[string][]string)
	for _, kp := range nodes {
		for _, prereqID := range kp.Prerequisites {
			if idSet[prereqID] {
				inDegree[kp.ID]++
				adjList[prereqID] = append(adjList[prereqID], kp.ID)
			}
		}
	}

	var queue []string
	for id := range idSet {
		if inDegree[id] == 0 {
			queue = append(queue, id)
		}
	}

	visited := 0
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		visited++
		for _, depID := range adjList[id] {
			inDegree[depID]--
			if inDegree[depID] == 0 {
				queue = append(queue, depID)
			}
		}
	}

	if visited < len(idSet) {
		var cycleNodes []string
		for id := range idSet {
			if inDegree[id] > 0 {
				cycleNodes = append(cycleNodes, id)
			}
		}
		sort.Strings(cycleNodes)
		errs = append(errs, fmt.Sprintf("cycle detected involving knowledge points: %s", strings.Join(cycleNodes, ", ")))
	}

	hasRoot := false
	for _, kp := range nodes {
		if kp.IsRoot() {
			hasRoot = true
			break
		}
	}
	if len(nodes) > 0 && !hasRoot {
		errs = append(errs, "no root knowledge points found (at least one must have no prerequisites)")
	}

	if len(errs) > 0 {
		return &ValidationError{Problems: errs}
	}
	return nil
}
