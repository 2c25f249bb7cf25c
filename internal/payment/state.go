package payment

import (
	"errors"
	"fmt"
)

type State string

const (
	StateInit             State = "INIT"
	StateIntentCreated    State = "INTENT_CREATED"
	StateConfirming       State = "CONFIRMING"
	StateConfirmedClient  State = "CONFIRMED_CLIENT"
	StateConfirmedBackend State = "CONFIRMED_BACKEND"
	StateTerminalSuccess  State = "TERMINAL_SUCCESS"
	StateFailed           State = "FAILED"
	// The charge went through but the booking backend never acknowledged it.
	StateAmbiguous State = "AMBIGUOUS_NEEDS_SUPPORT"
)

var ErrInvalidTransition = errors.New("invalid payment state transition")

var transitions = map[State][]State{
	StateInit:             {StateIntentCreated, StateFailed},
	StateIntentCreated:    {StateConfirming, StateFailed},
	StateConfirming:       {StateConfirming, StateConfirmedClient, StateFailed},
	StateConfirmedClient:  {StateConfirmedBackend, StateFailed, StateAmbiguous},
	StateConfirmedBackend: {StateTerminalSuccess},
	StateFailed:           {StateInit},
}

func (s State) CanTransitionTo(next State) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition can leave s. FAILED is
// excluded; whether it can be left depends on the recoverable flag.
func (s State) IsTerminal() bool {
	return s == StateTerminalSuccess || s == StateAmbiguous
}

// HasOutstandingIntent reports whether a payment intent exists that has not
// yet been confirmed or abandoned.
func (s State) HasOutstandingIntent() bool {
	return s == StateIntentCreated || s == StateConfirming
}

// HoldsPayment reports whether a controller in s still stands between the
// booking and a payment: an intent may be live, a charge may have been taken,
// or the outcome needs support. Such a controller must not be forgotten.
func (s State) HoldsPayment() bool {
	switch s {
	case StateIntentCreated, StateConfirming, StateConfirmedClient, StateConfirmedBackend, StateAmbiguous:
		return true
	}
	return false
}

func (s State) String() string {
	return string(s)
}

func transitionError(from, to State) error {
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}
