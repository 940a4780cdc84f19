package payment

type State string

const (
	StateIdle              State = "IDLE"
	StateAwaitingRecipient State = "AWAITING_RECIPIENT"
	StateReadyToPay        State = "READY_TO_PAY"
	StateSubmitting        State = "SUBMITTING"
	StateSucceeded         State = "SUCCEEDED"
	StateFailed            State = "FAILED"
	StateCancelled         State = "CANCELLED"
)

// Failed and Cancelled are left immediately for ReadyToPay, so they only
// show up in logs and in the allowed transitions below.
var transitions = map[State][]State{
	StateIdle:              {StateAwaitingRecipient, StateReadyToPay},
	StateAwaitingRecipient: {StateAwaitingRecipient, StateReadyToPay, StateIdle},
	StateReadyToPay:        {StateAwaitingRecipient, StateReadyToPay, StateSubmitting, StateIdle},
	StateSubmitting:        {StateSucceeded, StateFailed, StateCancelled},
	StateSucceeded:         {StateIdle, StateAwaitingRecipient, StateReadyToPay},
	StateFailed:            {StateReadyToPay},
	StateCancelled:         {StateReadyToPay},
}

func CanTransitionTo(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func (s State) IsTerminal() bool {
	return s == StateSucceeded || s == StateFailed || s == StateCancelled
}

// String representation (for logging)
func (s State) String() string {
	return string(s)
}
