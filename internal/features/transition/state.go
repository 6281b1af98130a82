package transition

import "fmt"

// Queue state machine:
//
//	pending    --lease-->                      processing
//	processing --success-->                    success (terminal)
//	processing --failure, attempts < max-->    pending (after backoff)
//	processing --failure, attempts >= max-->   dead (terminal)
//	processing --lease expired-->              pending
//	dead       --operator requeue-->           pending
//
// "failed" is the outcome of a single attempt. It is recorded in the audit
// trail and events but an item never rests in it.
var allowed = map[Status][]Status{
	StatusPending:    {StatusProcessing},
	StatusProcessing: {StatusSuccess, StatusPending, StatusDead},
	StatusDead:       {StatusPending},
}

func (s Status) IsTerminal() bool {
	return s == StatusSuccess || s == StatusDead
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusSuccess, StatusFailed, StatusDead:
		return true
	}
	return false
}

// CanTransition reports whether the queue may move an item from one status to another.
func CanTransition(from, to Status) bool {
	for _, s := range allowed[from] {
		if s == to {
			return true
		}
	}
	return false
}

// NextOnFailure decides where a failed attempt goes. attempts already counts
// the attempt that just failed.
func NextOnFailure(attempts, maxAttempts int) Status {
	if attempts >= maxAttempts {
		return StatusDead
	}
	return StatusPending
}

// ParseStatus validates a status from a query string.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.Valid() {
		return "", fmt.Errorf("unknown status %q", s)
	}
	return st, nil
}
