package stat

import "time"

// DiagnosticSeverity grades a diagnostic recorded during resolution.
type DiagnosticSeverity string

const (
	SeverityWarn  DiagnosticSeverity = "WARN"
	SeverityError DiagnosticSeverity = "ERROR"
)

// Diagnostic records a recovered, per-dimension or per-subsystem problem
// that degraded but did not abort a resolution.
type Diagnostic struct {
	Severity  DiagnosticSeverity `json:"severity"`
	Code      string             `json:"code"`
	Dimension string             `json:"dimension,omitempty"`
	System    string             `json:"system,omitempty"`
	Message   string             `json:"message"`
}

// Snapshot is the immutable result of one full stat resolution.
type Snapshot struct {
	ActorID string `json:"actor_id"`
	// Version is the actor version the snapshot was computed against.
	Version int64 `json:"version"`

	Primary map[string]float64 `json:"primary"`
	Derived map[string]float64 `json:"derived"`
	// CapsUsed holds the effective caps actually applied, keyed by
	// dimension. Dimensions without any registered cap layer are absent.
	CapsUsed map[string]Caps `json:"caps_used"`

	// SubsystemsProcessed lists contributing subsystems in merge order.
	SubsystemsProcessed []string `json:"subsystems_processed"`

	ProcessingTime time.Duration `json:"processing_time,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`

	// Diagnostics lists recovered problems: dropped contributions,
	// failed subsystems, unclamped dimensions after cap conflicts.
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
}

// NewSnapshot creates an empty snapshot for an actor at a version.
func NewSnapshot(actorID string, version int64) *Snapshot {
	return &Snapshot{
		ActorID:   actorID,
		Version:   version,
		Primary:   map[string]float64{},
		Derived:   map[string]float64{},
		CapsUsed:  map[string]Caps{},
		CreatedAt: time.Now().UTC(),
	}
}

// IsValid reports whether the snapshot satisfies structural invariants.
func (s *Snapshot) IsValid() bool {
	return s != nil && s.ActorID != "" && s.Version > 0
}

// GetPrimary returns a primary stat value.
func (s *Snapshot) GetPrimary(dimension string) (float64, bool) {
	v, ok := s.Primary[dimension]
	return v, ok
}

// GetDerived returns a derived stat value.
func (s *Snapshot) GetDerived(dimension string) (float64, bool) {
	v, ok := s.Derived[dimension]
	return v, ok
}

// GetCaps returns the effective caps applied to a dimension.
func (s *Snapshot) GetCaps(dimension string) (Caps, bool) {
	c, ok := s.CapsUsed[dimension]
	return c, ok
}
