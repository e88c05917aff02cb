package contracts

// Outcome classifies a remote read.
type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeEmpty
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeEmpty:
		return "empty"
	default:
		return "failed"
	}
}

// Result is a remote collection read that keeps "nothing there" apart from
// "could not ask".
type Result[T any] struct {
	items   []T
	outcome Outcome
	err     error
}

// ResultOf wraps fetched items; no items is OutcomeEmpty.
func ResultOf[T any](items []T) Result[T] {
	if len(items) == 0 {
		return Result[T]{outcome: OutcomeEmpty}
	}
	return Result[T]{items: items, outcome: OutcomeOK}
}

// FailedResult records a read that did not complete.
func FailedResult[T any](err error) Result[T] {
	return Result[T]{outcome: OutcomeFailed, err: err}
}

// Items returns the items, or none when the read failed.
func (r Result[T]) Items() []T {
	return r.items
}

func (r Result[T]) Outcome() Outcome {
	return r.outcome
}

func (r Result[T]) Err() error {
	return r.err
}

func (r Result[T]) Failed() bool {
	return r.outcome == OutcomeFailed
}

// Unwrap returns the items, or the error for a failed read.
func (r Result[T]) Unwrap() ([]T, error) {
	if r.Failed() {
		return nil, r.err
	}
	return r.items, nil
}

// First returns the first item if any.
func (r Result[T]) First() (T, bool) {
	var zero T
	if len(r.items) == 0 {
		return zero, false
	}
	return r.items[0], true
}
