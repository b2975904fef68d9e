// Package filter implements priority-bucketed request and response filter pipelines and
// the executor driving a request through them.
//
// Filters are registered in batches of (filter, priority) entries. Every batch is split into
// at most three buckets, high to low, each keeping the registration order of its filters.
// Buckets are appended to the pipeline and never merged with the ones from previous batches.
package filter

import (
	"errors"
	"fmt"

	"github.com/indigo-web/turnstile/http"
)

type Priority uint8

const (
	Low Priority = iota + 1
	Medium
	High
)

func (p Priority) String() string {
	switch p {
	case High:
		return "high"
	case Medium:
		return "medium"
	case Low:
		return "low"
	default:
		return "unknown"
	}
}

func (p Priority) valid() bool {
	return p >= Low && p <= High
}

// priorities lists priority tiers in the order their buckets are emitted.
var priorities = [...]Priority{High, Medium, Low}

// Filter pre- or post-processes a request/response pair. Filter may block, which suspends
// only the connection it serves. A filter that fails must write the response itself and
// report Halt.
type Filter interface {
	Apply(req *http.Request, resp *http.Response) Outcome
}

// Func is a Filter in a form of a function.
type Func func(req *http.Request, resp *http.Response) Outcome

func (f Func) Apply(req *http.Request, resp *http.Response) Outcome {
	return f(req, resp)
}

// Entry is a single filter registration.
type Entry struct {
	Filter   Filter
	Priority Priority
}

// With is a shorthand for constructing an Entry.
func With(filter Filter, priority Priority) Entry {
	return Entry{Filter: filter, Priority: priority}
}

var (
	ErrUnknownPriority = errors.New("filter: unknown priority")
	ErrNilFilter       = errors.New("filter: nil filter")
)

// Validate reports the first entry that can't be registered: one without a filter or with
// a priority other than High, Medium or Low. The zero Entry is never valid.
func Validate(entries ...Entry) error {
	for i, entry := range entries {
		if entry.Filter == nil {
			return fmt.Errorf("entry #%d: %w", i, ErrNilFilter)
		}

		if !entry.Priority.valid() {
			return fmt.Errorf("entry #%d: %w: %d", i, ErrUnknownPriority, entry.Priority)
		}
	}

	return nil
}
