package packet

// State is where a packet stands relative to the income stage.
// It is derived from the fields present and never stored in the body.
type State int

const (
	StateUnprocessed State = iota
	StateEnriched
	StateFailed
	StateOverridden
	StateIncomplete
)

var stateNames = map[State]string{
	StateUnprocessed: "unprocessed",
	StateEnriched:    "enriched",
	StateFailed:      "failed",
	StateOverridden:  "overridden",
	StateIncomplete:  "incomplete",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// Terminal reports whether the income stage is done with packets in this state.
func (s State) Terminal() bool {
	return s != StateUnprocessed
}

// State derives the packet's state. A problem wins over a result.
func (p *Packet) State() State {
	switch {
	case p.HasProblem():
		return StateFailed
	case p.HasField(FieldInntekt):
		return StateEnriched
	case p.HasField(FieldManueltGrunnlag):
		return StateOverridden
	case !p.HasFields(FieldAktorID, FieldVedtakID, FieldBeregningsDato):
		return StateIncomplete
	default:
		return StateUnprocessed
	}
}
