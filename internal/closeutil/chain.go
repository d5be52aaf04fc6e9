// Package closeutil chains fallible cleanup steps so a build stage can close
// several open file handles and surface every failure, not just the first.
package closeutil

import "strings"

// Errors aggregates multiple errors from independent cleanup steps.
type Errors []error

func (e Errors) Error() string {
	switch len(e) {
	case 0:
		return ""
	case 1:
		return e[0].Error()
	}
	parts := make([]string, len(e))
	for i, err := range e {
		parts[i] = err.Error()
	}
	return "multiple close errors: " + strings.Join(parts, "; ")
}

// Chain collects the non-nil results of closing a sequence of resources.
type Chain struct {
	errs Errors
}

// Close runs f and records its error, if any, without stopping the chain.
// Unlike a fatal build step, closing file handles must always run to
// completion so every handle is released.
func (c *Chain) Close(f func() error) *Chain {
	if err := f(); err != nil {
		c.errs = append(c.errs, err)
	}
	return c
}

// Err returns nil if every Close call in the chain succeeded, or the
// aggregated Errors otherwise.
func (c *Chain) Err() error {
	if len(c.errs) == 0 {
		return nil
	}
	return c.errs
}
