package scenario

// RoleProfile is a closed enumeration of the interview role profiles
// the engine knows how to serve. Unknown inputs resolve to RoleGeneric
// instead of producing silent empty lookups.
type RoleProfile string

const (
	// RoleBAAntiFraud covers business-analyst interviews in the
	// anti-fraud domain.
	RoleBAAntiFraud RoleProfile = "ba_anti_fraud"
	// RoleITDCOps covers datacenter operations engineering interviews.
	RoleITDCOps RoleProfile = "it_dc_ops"
	// RoleGeneric is the documented default for any unrecognized
	// profile string, including the empty one.
	RoleGeneric RoleProfile = "generic"
)

// Capabilities describes what a role profile contributes to a turn:
// its branching threshold, its block weights for aggregate scoring and
// the phrase bank used for canned replies.
type Capabilities struct {
	DrillThreshold float64
	BlockWeights   map[string]float64
	PhraseBank     string
}

// Read-only after process start.
var profileCapabilities = map[RoleProfile]Capabilities{
	RoleBAAntiFraud: {
		DrillThreshold: 0.75,
		BlockWeights: map[string]float64{
			"fraud_detection": 0.4,
			"data_analysis":   0.3,
			"communication":   0.3,
		},
		PhraseBank: string(RoleBAAntiFraud),
	},
	RoleITDCOps: {
		DrillThreshold: 0.65,
		BlockWeights: map[string]float64{
			"infrastructure": 0.4,
			"incidents":      0.35,
			"automation":     0.25,
		},
		PhraseBank: string(RoleITDCOps),
	},
	// The generic profile carries no threshold opinion: the scenario
	// policy (then the global default) decides.
	RoleGeneric: {
		PhraseBank: string(RoleGeneric),
	},
}

// ResolveProfile maps an arbitrary profile string to a supported
// variant, defaulting to RoleGeneric.
func ResolveProfile(raw string) RoleProfile {
	switch RoleProfile(raw) {
	case RoleBAAntiFraud:
		return RoleBAAntiFraud
	case RoleITDCOps:
		return RoleITDCOps
	default:
		return RoleGeneric
	}
}

// KnownProfiles lists the supported role profiles.
func KnownProfiles() []RoleProfile {
	return []RoleProfile{RoleBAAntiFraud, RoleITDCOps, RoleGeneric}
}

// Capabilities returns the capability entry for the profile. The
// second result is false only for profile values that bypass
// ResolveProfile.
func (p RoleProfile) Capabilities() (Capabilities, bool) {
	caps, ok := profileCapabilities[p]
	return caps, ok
}

// BlockWeights returns the profile's aggregate scoring weights, nil
// for profiles without an opinion (callers then use their own).
func (p RoleProfile) BlockWeights() map[string]float64 {
	caps, ok := profileCapabilities[p]
	if !ok {
		return nil
	}
	return caps.BlockWeights
}
