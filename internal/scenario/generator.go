package scenario

import "fmt"

// Generate synthesizes a 3-node fallback chain for a category so the
// engine is never blocked by a missing or broken scenario artifact.
// The intro question branches past the basics on a strong answer; the
// basics node plateaus into the advanced one.
func Generate(category string) *Scenario {
	l1 := fmt.Sprintf("%s_l1_intro", category)
	l2 := fmt.Sprintf("%s_l2_basics", category)
	l3 := fmt.Sprintf("%s_l3_advanced", category)

	s := &Scenario{
		SchemaVersion: "0.1",
		Policy:        map[string]float64{"drill_threshold": DefaultDrillThreshold},
		StartID:       l1,
		Nodes: []Node{
			{
				ID:              l1,
				Category:        category,
				Order:           1,
				Question:        fmt.Sprintf("Tell me about your hands-on experience with %s.", category),
				Weight:          1.0,
				SuccessCriteria: []string{"experience", "projects", "skills"},
				Followups:       []string{"Which projects did you work on?"},
				NextIfFail:      l2,
				NextIfPass:      l3,
			},
			{
				ID:              l2,
				Category:        category,
				Order:           2,
				Question:        fmt.Sprintf("Explain the core concepts of %s.", category),
				Weight:          0.8,
				SuccessCriteria: []string{"fundamentals", "concepts", "principles"},
				Followups:       []string{"What matters most and why?"},
				NextIfFail:      l3,
				NextIfPass:      l3,
			},
			{
				ID:              l3,
				Category:        category,
				Order:           3,
				Question:        fmt.Sprintf("Walk me through a hard problem you solved in %s.", category),
				Weight:          0.9,
				SuccessCriteria: []string{"hard problems", "solutions", "optimization"},
				Followups:       []string{"Give a concrete example."},
			},
		},
	}

	// A generated chain is well-formed by construction.
	s.index()
	return s
}
