package orders

import (
	"fmt"
	"slices"
)

var orderStateTransitions = map[Status][]Status{
	StatusPending:   {StatusCompleted, StatusCancelled},
	StatusCompleted: {StatusCancelled},
	StatusCancelled: {StatusPending},
}

// CanTransition reports whether an order may move from current to target.
// Staying in the same state is always allowed and is treated as a no-op.
func CanTransition(current, target Status) bool {
	if current == target {
		return true
	}
	next, ok := orderStateTransitions[current]
	if !ok {
		return false
	}
	return slices.Contains(next, target)
}

// AvailableTransitions returns the statuses reachable from current in one step.
func AvailableTransitions(current Status) []Status {
	return slices.Clone(orderStateTransitions[current])
}

// ValidateTransition returns a *StatusTransitionError when current cannot move to target.
func ValidateTransition(current, target Status) error {
	if !target.Valid() {
		return &StatusTransitionError{From: current, To: target, Reason: "unknown target status"}
	}
	if CanTransition(current, target) {
		return nil
	}
	if current == StatusCompleted && target == StatusPending {
		return &StatusTransitionError{From: current, To: target, Reason: "completed orders cannot be reopened"}
	}
	return &StatusTransitionError{From: current, To: target}
}

// TransitionResult describes the outcome of a status change applied to the store.
type TransitionResult struct {
	Order    Order
	Previous Status
	Changed  bool
}

// Transition validates and applies a status change atomically. Unknown ids and
// forbidden transitions leave the store unchanged. Requesting the current status
// succeeds without modifying the record.
func (s *Store) Transition(id string, target Status) (TransitionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pos, ok := s.index[id]
	if !ok {
		return TransitionResult{}, fmt.Errorf("%w: %s", ErrOrderNotFound, id)
	}
	current := s.orders[pos]
	if err := ValidateTransition(current.Status, target); err != nil {
		return TransitionResult{}, err
	}
	if current.Status == target {
		return TransitionResult{Order: current.clone(), Previous: current.Status}, nil
	}

	previous := current.Status
	current.Status = target
	s.orders[pos] = current
	return TransitionResult{Order: current.clone(), Previous: previous, Changed: true}, nil
}
