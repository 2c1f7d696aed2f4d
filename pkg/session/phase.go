package session

// Phase tags where a session currently sits in its lifecycle.
type Phase int

const (
	// PhaseIdle means no strokes are recorded and no work is pending.
	PhaseIdle Phase = iota
	// PhaseAccumulating means strokes are being collected and the debounce
	// timer is (re)armed.
	PhaseAccumulating
	// PhaseRefining means a refinement operation is in flight.
	PhaseRefining
	// PhaseReadyToApply means a refined mask is available and awaiting
	// application.
	PhaseReadyToApply
	// PhaseApplying means the inpainting collaborator is working.
	PhaseApplying
)

// String returns a human-readable phase name.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseAccumulating:
		return "accumulating"
	case PhaseRefining:
		return "refining"
	case PhaseReadyToApply:
		return "ready-to-apply"
	case PhaseApplying:
		return "applying"
	default:
		return "unknown"
	}
}
