package stat

// CapProposal is a layer-scoped cap a subsystem proposes for a dimension.
type CapProposal struct {
	// Layer names the cap layer the proposal targets.
	Layer string `json:"layer"`
	// Dimension is the stat the cap constrains.
	Dimension string `json:"dimension"`
	// Caps is the proposed [min, max] range.
	Caps Caps `json:"caps"`
}

// SubsystemOutput is the result of one subsystem contribution pass.
// Contributions preserve the order the subsystem emitted them in; the
// aggregator classifies dimensions as primary or derived, not the
// subsystem. Context and Meta never participate in arithmetic.
type SubsystemOutput struct {
	SystemID string `json:"system_id"`
	Priority int64  `json:"priority"`

	Contributions []Contribution `json:"contributions,omitempty"`
	Caps          []CapProposal  `json:"caps,omitempty"`

	Context map[string]any    `json:"context,omitempty"`
	Meta    map[string]string `json:"meta,omitempty"`
}

// NewSubsystemOutput creates an empty output for a subsystem.
func NewSubsystemOutput(systemID string, priority int64) *SubsystemOutput {
	return &SubsystemOutput{SystemID: systemID, Priority: priority}
}

// AddContribution appends a contribution, preserving emission order.
func (o *SubsystemOutput) AddContribution(c Contribution) {
	o.Contributions = append(o.Contributions, c)
}

// AddCap appends a layer-scoped cap proposal.
func (o *SubsystemOutput) AddCap(p CapProposal) {
	o.Caps = append(o.Caps, p)
}
