package rewards

import (
	"sort"

	"github.com/abhisek/mathlab/internal/graph"
)

// Rarity grades a mastery badge.
type Rarity string

const (
	RarityCommon    Rarity = "common"
	RarityRare      Rarity = "rare"
	RarityEpic      Rarity = "epic"
	RarityLegendary Rarity = "legendary"
)

// DisplayName returns a human-readable label for the rarity.
func (r Rarity) DisplayName() string {
	switch r {
	case RarityCommon:
		return "Common"
	case RarityRare:
		return "Rare"
	case RarityEpic:
		return "Epic"
	case RarityLegendary:
		return "Legendary"
	default:
		return string(r)
	}
}

// Badge is awarded once per mastered topic.
type Badge struct {
	KnowledgePointID string `json:"knowledge_point_id"`
	Title            string `json:"title"`
	Rarity           Rarity `json:"rarity"`
}

// Badges grades mastery badges by how deep the topic sits in the graph.
// Deeper topics take more prerequisite work, so they are rarer.
type Badges struct {
	graph      *graph.Graph
	depths     map[string]int
	boundaries [3]int // Q1/Q2, Q2/Q3, Q3/Q4
}

// NewBadges computes depth quartiles over g.
func NewBadges(g *graph.Graph) *Badges {
	depths := g.Depths()
	vals := make([]int, 0, len(depths))
	for _, d := range depths {
		vals = append(vals, d)
	}
	sort.Ints(vals)

	var boundaries [3]int
	if n := len(vals); n > 0 {
		boundaries = [3]int{vals[n/4], vals[n/2], vals[3*n/4]}
	}
	return &Badges{graph: g, depths: depths, boundaries: boundaries}
}

// RarityFor returns the rarity of the badge for kpID. Unknown ids are common.
func (b *Badges) RarityFor(kpID string) Rarity {
	depth := b.depths[kpID]
	switch {
	case depth > b.boundaries[2]:
		return RarityLegendary
	case depth > b.boundaries[1]:
		return RarityEpic
	case depth > b.boundaries[0]:
		return RarityRare
	default:
		return RarityCommon
	}
}

// ForMastery returns the badge for mastering kpID, or nil when the id is
// not in the graph.
func (b *Badges) ForMastery(kpID string) *Badge {
	kp, err := b.graph.Node(kpID)
	if err != nil {
		return nil
	}
	return &Badge{KnowledgePointID: kp.ID, Title: kp.Title, Rarity: b.RarityFor(kp.ID)}
}
