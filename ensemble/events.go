package ensemble

import (
	"time"
)

// State is the selection state of a run.
type State int

const (
	NotAttempted State = iota
	Attempting
	Scored
	Selected
	Fallback
)

func (s State) String() string {
	switch s {
	case NotAttempted:
		return "not_attempted"
	case Attempting:
		return "attempting"
	case Scored:
		return "scored"
	case Selected:
		return "selected"
	case Fallback:
		return "fallback"
	default:
		return "unknown"
	}
}

// EventKind identifies what happened during a run.
type EventKind int

const (
	// EventAttempted is emitted once per applicable family before any fit runs.
	EventAttempted EventKind = iota
	// EventConfigFailed is emitted for each configuration that did not fit.
	EventConfigFailed
	// EventFitterFailed is emitted when every configuration of a family failed.
	EventFitterFailed
	// EventScored is emitted with the best candidate of a family.
	EventScored
	// EventRejected is emitted for a candidate that failed the plausibility scan.
	EventRejected
	// EventSelected is emitted with the chosen candidate.
	EventSelected
	// EventFallback is emitted when no family produced a candidate.
	EventFallback
)

func (k EventKind) String() string {
	switch k {
	case EventAttempted:
		return "attempted"
	case EventConfigFailed:
		return "config_failed"
	case EventFitterFailed:
		return "fitter_failed"
	case EventScored:
		return "scored"
	case EventRejected:
		return "rejected"
	case EventSelected:
		return "selected"
	case EventFallback:
		return "fallback"
	default:
		return "unknown"
	}
}

// Event describes one step of a run. Order, AIC and Err are set when they
// apply to the kind.
type Event struct {
	Kind    EventKind
	Family  Family
	Order   string
	AIC     float64
	Err     error
	Elapsed time.Duration
}

// Observer receives events in a deterministic order from the goroutine
// that called Run. It must not block for long.
type Observer func(Event)

// Observers fans events out to several observers.
func Observers(obs ...Observer) Observer {
	return func(e Event) {
		for _, o := range obs {
			if o != nil {
				o(e)
			}
		}
	}
}
