package stego

// State is a step of a hide or extract operation.
type State int

const (
	StateIdle State = iota
	StateAnalyzing
	StateHiding
	StateExtracting
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAnalyzing:
		return "analyzing"
	case StateHiding:
		return "hiding"
	case StateExtracting:
		return "extracting"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}
