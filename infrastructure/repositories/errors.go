package repositories

import "fmt"

// ErrSiteMismatch occurs when a cached record is written for a different tenant than it was read for
type ErrSiteMismatch struct {
	Expected string
	Actual   string
}

func (e ErrSiteMismatch) Error() string {
	return fmt.Sprintf("site mismatch: record belongs to %s, but was stored for %s", e.Actual, e.Expected)
}
