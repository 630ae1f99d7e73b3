// Package scenario owns the interview question graph: node and
// scenario types, loading with a generated fallback, traversal and the
// role-profile capability table. Scenarios are immutable after load
// and safe for concurrent readers.
package scenario

import (
	"fmt"
	"strings"
)

// DefaultDrillThreshold is the global score cutoff below which the
// engine branches to the fail edge. Overridden per scenario policy or
// per role profile.
const DefaultDrillThreshold = 0.7

// Node is a single question in a scenario graph. NextIfFail and
// NextIfPass reference sibling node ids; an empty reference marks a
// terminal edge. Both edges pointing at the same node is a legitimate
// plateau.
type Node struct {
	ID              string   `json:"id"`
	Category        string   `json:"category"`
	Order           int      `json:"order"`
	Question        string   `json:"question"`
	Weight          float64  `json:"weight"`
	SuccessCriteria []string `json:"success_criteria"`
	Followups       []string `json:"followups,omitempty"`
	NextIfFail      string   `json:"next_if_fail,omitempty"`
	NextIfPass      string   `json:"next_if_pass,omitempty"`
}

// Terminal reports whether the node has no outgoing edges.
func (n *Node) Terminal() bool {
	return n.NextIfFail == "" && n.NextIfPass == ""
}

// Scenario is an immutable directed graph of question nodes. Node
// order in Nodes is irrelevant to traversal.
type Scenario struct {
	SchemaVersion string             `json:"schema_version"`
	Policy        map[string]float64 `json:"policy"`
	Nodes         []Node             `json:"nodes"`
	StartID       string             `json:"start_id"`

	byID map[string]*Node
}

// DrillThreshold returns the scenario's branching cutoff, falling back
// to the global default when the policy does not carry one.
func (s *Scenario) DrillThreshold() float64 {
	if s == nil {
		return DefaultDrillThreshold
	}
	if thr, ok := s.Policy["drill_threshold"]; ok {
		return thr
	}
	return DefaultDrillThreshold
}

// NodeByID resolves a node id against the scenario's adjacency index.
func (s *Scenario) NodeByID(id string) (*Node, bool) {
	if s == nil || id == "" {
		return nil, false
	}
	node, ok := s.byID[id]
	return node, ok
}

// Start returns the scenario's entry node.
func (s *Scenario) Start() (*Node, bool) {
	return s.NodeByID(s.StartID)
}

func (s *Scenario) index() {
	s.byID = make(map[string]*Node, len(s.Nodes))
	for i := range s.Nodes {
		s.byID[s.Nodes[i].ID] = &s.Nodes[i]
	}
}

// Validate indexes the scenario and checks referential integrity:
// start_id and every edge must resolve to a node in the same scenario.
func (s *Scenario) Validate() error {
	if s == nil {
		return fmt.Errorf("scenario is nil")
	}
	if len(s.Nodes) == 0 {
		return fmt.Errorf("scenario has no nodes")
	}

	s.index()

	if strings.TrimSpace(s.StartID) == "" {
		return fmt.Errorf("scenario start_id is empty")
	}
	if _, ok := s.byID[s.StartID]; !ok {
		return fmt.Errorf("start_id %q does not reference a node", s.StartID)
	}

	for i := range s.Nodes {
		node := &s.Nodes[i]
		if strings.TrimSpace(node.ID) == "" {
			return fmt.Errorf("node %d has an empty id", i)
		}
		for _, ref := range []string{node.NextIfFail, node.NextIfPass} {
			if ref == "" {
				continue
			}
			if _, ok := s.byID[ref]; !ok {
				return fmt.Errorf("node %q references unknown node %q", node.ID, ref)
			}
		}
	}

	return nil
}

// Walk follows edges from the given node, preferring the pass edge,
// until it reaches a terminal node, revisits a node, or exhausts the
// hop budget (the node count). The graph permits plateau edges, so the
// visited set and the hop cap are what guarantee termination.
func (s *Scenario) Walk(fromID string) []string {
	node, ok := s.NodeByID(fromID)
	if !ok {
		return nil
	}

	visited := make(map[string]struct{}, len(s.Nodes))
	path := make([]string, 0, len(s.Nodes))

	for hops := 0; hops < len(s.Nodes); hops++ {
		if _, seen := visited[node.ID]; seen {
			break
		}
		visited[node.ID] = struct{}{}
		path = append(path, node.ID)

		nextID := node.NextIfPass
		if nextID == "" {
			nextID = node.NextIfFail
		}
		if nextID == "" {
			break
		}

		next, ok := s.NodeByID(nextID)
		if !ok {
			break
		}
		node = next
	}

	return path
}
