package scenario

// NextNode maps a scored answer to the node the interview should move
// to: the fail edge below the threshold, the pass edge otherwise. An
// empty result marks the end of the scenario. Termination across turns
// is the caller's concern (see Walk); this function stays pure.
func NextNode(current *Node, score, threshold float64) string {
	if current == nil {
		return ""
	}
	if score < threshold {
		return current.NextIfFail
	}
	return current.NextIfPass
}

// ResolveThreshold picks the drill threshold for one turn. Resolution
// order: role-profile capability, scenario policy, global default.
func ResolveThreshold(profile RoleProfile, scen *Scenario) float64 {
	if caps, ok := profile.Capabilities(); ok && caps.DrillThreshold > 0 {
		return caps.DrillThreshold
	}
	if scen != nil {
		return scen.DrillThreshold()
	}
	return DefaultDrillThreshold
}
