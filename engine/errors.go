package engine

import (
	"errors"
	"fmt"
)

// ErrNoEntry is returned by Run when the compiled program declares
// definitions but no entry pattern to apply.
var ErrNoEntry = errors.New("pattern program has no entry pattern")

// errNoSpan marks a rewrite whose matched target is an empty node run; there
// is no source range to replace. Run records it as a diagnostic.
var errNoSpan = errors.New("rewrite target is empty; nothing to replace")

// RenderError reports a template interpolation whose variable has no
// binding at render time.
type RenderError struct {
	Var string
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render: variable $%s is unbound", e.Var)
}

// RewriteConflict reports two overlapping edits that disagree about the
// replacement.
type RewriteConflict struct {
	A, B Edit
}

func (e *RewriteConflict) Error() string {
	return fmt.Sprintf("rewrite conflict: edit [%d,%d) overlaps edit [%d,%d)",
		e.A.Span.Start, e.A.Span.End, e.B.Span.Start, e.B.Span.End)
}

// ResourceExhausted reports a match attempt that exceeded its step or depth
// budget.
type ResourceExhausted struct {
	Limit string
	Max   int
}

func (e *ResourceExhausted) Error() string {
	return fmt.Sprintf("match aborted: %s budget exhausted (%d)", e.Limit, e.Max)
}
