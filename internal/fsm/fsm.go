// Package fsm models the primary instance's serving lifecycle.
package fsm

import "fmt"

type State string

type Event string

const (
	StateIdle      State = "idle"
	StateServing   State = "serving"
	StateRebinding State = "rebinding"
	StateStopped   State = "stopped"
	StateFailed    State = "failed"
)

const (
	EventServe      Event = "serve"
	EventBindFailed Event = "bind_failed"
	EventStop       Event = "stop"
	EventFail       Event = "fail"
)

func Transition(current State, event Event) (State, error) {
	if current == StateStopped || current == StateFailed {
		return current, invalidTransition(current, event)
	}
	if event == EventFail {
		return StateFailed, nil
	}

	switch current {
	case StateIdle:
		switch event {
		case EventServe:
			return StateServing, nil
		case EventStop:
			return StateStopped, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateServing:
		switch event {
		case EventBindFailed:
			return StateRebinding, nil
		case EventStop:
			return StateStopped, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateRebinding:
		switch event {
		case EventServe:
			return StateServing, nil
		case EventStop:
			return StateStopped, nil
		default:
			return current, invalidTransition(current, event)
		}
	default:
		return current, fmt.Errorf("unknown state %q", current)
	}
}

func invalidTransition(state State, event Event) error {
	return fmt.Errorf("invalid transition: %s --(%s)--> ?", state, event)
}
