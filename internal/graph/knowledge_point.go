package graph

// KnowledgePoint is a single learnable concept in the prerequisite DAG.
type KnowledgePoint struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`

	// Layer is a coarse depth hint for layout. Several topics may share a
	// layer and it is not guaranteed to be a topological level.
	Layer int `json:"layer"`

	// Prerequisites lists the ids that must be mastered before this node
	// becomes reachable. Empty means a root topic.
	Prerequisites []string `json:"prerequisites,omitempty"`

	InterferenceLinks []InterferenceLink `json:"interference_links,omitempty"`
}

// InterferenceLink marks another topic that learners tend to confuse with
// this one. It is surfaced as a UI warning and has no effect on progression.
type InterferenceLink struct {
	KnowledgePointID string `json:"knowledge_point_id"`
	Reason           string `json:"reason"`
}

// IsRoot reports whether the node has no prerequisites.
func (kp KnowledgePoint) IsRoot() bool {
	return len(kp.Prerequisites) == 0
}

// Edge is a prerequisite edge from Source (the prerequisite) to Target.
type Edge struct {
	Source string `json:"source"`
	Target string `json:"target"`
}
