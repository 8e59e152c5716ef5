// Package engine executes compiled pattern programs against syntax trees:
// matching with backtracking, where-clause evaluation, template rendering,
// and the final splice of accumulated edits back into source text.
package engine

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/termfx/graft/lang"
	"github.com/termfx/graft/pattern"
)

// Limits bounds one top-level match attempt.
type Limits struct {
	MaxSteps int
	MaxDepth int
}

// DefaultLimits returns the standard per-attempt budgets.
func DefaultLimits() Limits {
	return Limits{MaxSteps: 1_000_000, MaxDepth: 512}
}

// Options configures an Engine. The zero value gets default limits and a
// no-op logger.
type Options struct {
	Limits Limits
	Logger *zerolog.Logger
}

// Engine runs one compiled program against parsed trees. It is safe for
// concurrent use; every Run carries its own state.
type Engine struct {
	prog   *pattern.Program
	limits Limits
	log    zerolog.Logger
}

// New creates an engine for a compiled program.
func New(prog *pattern.Program, opts Options) *Engine {
	limits := opts.Limits
	if limits.MaxSteps <= 0 {
		limits.MaxSteps = DefaultLimits().MaxSteps
	}
	if limits.MaxDepth <= 0 {
		limits.MaxDepth = DefaultLimits().MaxDepth
	}
	log := zerolog.Nop()
	if opts.Logger != nil {
		log = *opts.Logger
	}
	return &Engine{prog: prog, limits: limits, log: log}
}

// Match is one successful top-level pattern application.
type Match struct {
	Kind     string            `json:"kind"`
	Span     lang.Span         `json:"span"`
	Bindings map[string]string `json:"bindings,omitempty"`
	Edits    int               `json:"edits"`
}

// Diagnostic is a non-fatal failure of one match attempt, such as a
// template rendering in a branch that never bound its variable.
type Diagnostic struct {
	Span lang.Span `json:"span"`
	Msg  string    `json:"msg"`
	Err  error     `json:"-"`
}

// Result collects everything one Run produced.
type Result struct {
	Matches     []Match
	Edits       []Edit
	Diagnostics []Diagnostic
}

// Run applies the program's entry pattern at every node of the tree in
// document order. A node whose match commits edits claims its whole
// subtree and scanning resumes after it; nested rewrites inside an already
// rewritten range would only manufacture overlap conflicts. Cancellation
// is observed between attempts, never inside one.
func (e *Engine) Run(ctx context.Context, tree *lang.Tree) (*Result, error) {
	if e.prog.Entry == nil {
		return nil, ErrNoEntry
	}
	res := &Result{}
	if err := e.walk(ctx, tree.Root(), res); err != nil {
		return nil, err
	}
	e.log.Debug().
		Int("matches", len(res.Matches)).
		Int("edits", len(res.Edits)).
		Int("diagnostics", len(res.Diagnostics)).
		Msg("pattern run complete")
	return res, nil
}

func (e *Engine) walk(ctx context.Context, n lang.Node, res *Result) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	claimed, err := e.attempt(n, res)
	if err != nil {
		return err
	}
	if claimed {
		return nil
	}
	for _, child := range n.Children() {
		if err := e.walk(ctx, child, res); err != nil {
			return err
		}
	}
	return nil
}

// attempt runs the entry pattern once against n with a fresh scope. It
// reports true when the match committed edits, which excludes the subtree
// from further scanning. Render failures and empty rewrite targets are
// recorded as diagnostics and the scan moves on; exhausted budgets abort
// the whole run.
func (e *Engine) attempt(n lang.Node, res *Result) (bool, error) {
	st := &matchState{env: NewEnv(), limits: e.limits}
	m := &matcher{defs: e.prog.Defs, st: st}

	ok, err := m.match(e.prog.Entry, nodeTarget(n))
	if err != nil {
		var exhausted *ResourceExhausted
		if errors.As(err, &exhausted) {
			return false, err
		}
		var render *RenderError
		if errors.As(err, &render) || errors.Is(err, errNoSpan) {
			res.Diagnostics = append(res.Diagnostics, Diagnostic{
				Span: n.Span(),
				Msg:  err.Error(),
				Err:  err,
			})
			return false, nil
		}
		return false, err
	}
	if !ok {
		return false, nil
	}

	e.log.Trace().
		Str("kind", n.Kind()).
		Int("start", n.Span().Start).
		Int("edits", len(st.edits)).
		Msg("pattern matched")

	res.Matches = append(res.Matches, Match{
		Kind:     n.Kind(),
		Span:     n.Span(),
		Bindings: st.env.Snapshot(),
		Edits:    len(st.edits),
	})
	res.Edits = append(res.Edits, st.edits...)
	return len(st.edits) > 0, nil
}
