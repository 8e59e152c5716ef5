package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/termfx/graft/lang"
	"github.com/termfx/graft/pattern"
)

const requireImportProgram = `
language javascript

pattern require_call($mod) {
    call_expression(
        function = ` + "`require`" + `,
        arguments = arguments(items = [string(fragments = [$mod])]),
    )
}

pattern import_entry($imports) {
    or {
        shorthand_property_identifier_pattern() as $prop where {
            $imports += ` + "`$prop, `" + `
        },
        pair_pattern(key = $key, value = $value) where {
            $imports += ` + "`$key as $value, `" + `
        }
    }
}

pattern require_to_import() {
    or {
        lexical_declaration(declarators = [variable_declarator(
            name = object_pattern(properties = some [import_entry(imports = $imports)]),
            value = require_call(mod = $mod),
        )]) => ` + "`import { $imports} from $mod;`" + `,
        lexical_declaration(declarators = [variable_declarator(
            name = $name,
            value = member_expression(object = require_call(mod = $mod), property = ` + "`default`" + `),
        )]) => ` + "`import * as $name from $mod`" + `,
        lexical_declaration(declarators = [variable_declarator(
            name = $name,
            value = member_expression(object = require_call(mod = $mod), property = $prop),
        )]) => ` + "`import $prop as $name from $mod`" + `,
        lexical_declaration(declarators = [variable_declarator(
            name = $name,
            value = require_call(mod = $mod),
        )]) => ` + "`import $name from $mod`" + `,
        expression_statement(expression = require_call(mod = $mod)) => ` + "`import $mod`" + `
    }
}

require_to_import()
`

func compileProgram(t *testing.T, src string) *pattern.Program {
	t.Helper()
	prog, err := pattern.Compile(src)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	return prog
}

func runProgram(t *testing.T, progSrc string, tree *lang.Tree) *Result {
	t.Helper()
	eng := New(compileProgram(t, progSrc), Options{})
	res, err := eng.Run(context.Background(), tree)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	return res
}

func TestRequireToImportScenarios(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		want     string
		wantKind string
		tree     func(t *testing.T, src string) *lang.Tree
	}{
		{
			name:     "destructured require",
			src:      "const { a, b } = require('mod')",
			want:     "import { a, b, } from mod;",
			wantKind: "lexical_declaration",
			tree: func(t *testing.T, src string) *lang.Tree {
				return destructuredTree(t, src, []lang.Node{
					nodeAt(t, src, "shorthand_property_identifier_pattern", "a"),
					nodeAt(t, src, "shorthand_property_identifier_pattern", "b"),
				})
			},
		},
		{
			name:     "renamed destructuring",
			src:      "const { x: y } = require('mod')",
			want:     "import { x as y, } from mod;",
			wantKind: "lexical_declaration",
			tree: func(t *testing.T, src string) *lang.Tree {
				pair := withFields(nodeAt(t, src, "pair_pattern", "x: y"),
					map[string][]lang.Node{
						"key":   {nodeAt(t, src, "property_identifier", "x")},
						"value": {nodeAt(t, src, "identifier", "y")},
					})
				return destructuredTree(t, src, []lang.Node{pair})
			},
		},
		{
			name:     "plain require",
			src:      "const name = require('mod')",
			want:     "import name from mod",
			wantKind: "lexical_declaration",
			tree: func(t *testing.T, src string) *lang.Tree {
				return constRequireTree(t, src,
					nodeAt(t, src, "identifier", "name"),
					requireCallNode(t, src))
			},
		},
		{
			name:     "default member require",
			src:      "const name = require('mod').default",
			want:     "import * as name from mod",
			wantKind: "lexical_declaration",
			tree: func(t *testing.T, src string) *lang.Tree {
				member := withFields(
					nodeAt(t, src, "member_expression", "require('mod').default"),
					map[string][]lang.Node{
						"object":   {requireCallNode(t, src)},
						"property": {nodeAt(t, src, "property_identifier", "default")},
					})
				return constRequireTree(t, src,
					nodeAt(t, src, "identifier", "name"), member)
			},
		},
		{
			name:     "named member require",
			src:      "const name = require('mod').helper",
			want:     "import helper as name from mod",
			wantKind: "lexical_declaration",
			tree: func(t *testing.T, src string) *lang.Tree {
				member := withFields(
					nodeAt(t, src, "member_expression", "require('mod').helper"),
					map[string][]lang.Node{
						"object":   {requireCallNode(t, src)},
						"property": {nodeAt(t, src, "property_identifier", "helper")},
					})
				return constRequireTree(t, src,
					nodeAt(t, src, "identifier", "name"), member)
			},
		},
		{
			name:     "bare require statement",
			src:      "require('mod');",
			want:     "import mod",
			wantKind: "expression_statement",
			tree: func(t *testing.T, src string) *lang.Tree {
				call := requireCallNode(t, src)
				stmt := withFields(nodeAt(t, src, "expression_statement", src),
					map[string][]lang.Node{"expression": {call}})
				stmt.children = []lang.Node{call}
				root := withFields(nodeAt(t, src, "program", src),
					map[string][]lang.Node{"statements": {stmt}})
				root.children = []lang.Node{stmt}
				return fakeTree(root)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := runProgram(t, requireImportProgram, tt.tree(t, tt.src))

			if len(res.Matches) != 1 {
				t.Fatalf("matches = %d, want 1", len(res.Matches))
			}
			if res.Matches[0].Kind != tt.wantKind {
				t.Errorf("matched kind = %q, want %q", res.Matches[0].Kind, tt.wantKind)
			}

			got, err := Apply([]byte(tt.src), res.Edits)
			if err != nil {
				t.Fatalf("apply: %v", err)
			}
			if got != tt.want {
				t.Errorf("rewrite = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRunSkipsNonMatchingElements(t *testing.T) {
	// The rest element matches neither import_entry alternative; it is
	// skipped and the surviving entries accumulate in document order.
	src := "const { a, ...r, b } = require('mod')"
	tree := destructuredTree(t, src, []lang.Node{
		nodeAt(t, src, "shorthand_property_identifier_pattern", "a"),
		nodeAt(t, src, "rest_pattern", "...r"),
		nodeAt(t, src, "shorthand_property_identifier_pattern", "b"),
	})

	res := runProgram(t, requireImportProgram, tree)
	got, err := Apply([]byte(src), res.Edits)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if want := "import { a, b, } from mod;"; got != want {
		t.Errorf("rewrite = %q, want %q", got, want)
	}
}

func TestRunNoMatchIsNoOp(t *testing.T) {
	src := "function f() {}"
	fn := nodeAt(t, src, "function_declaration", src)
	root := withFields(nodeAt(t, src, "program", src),
		map[string][]lang.Node{"statements": {fn}})
	root.children = []lang.Node{fn}

	res := runProgram(t, requireImportProgram, fakeTree(root))

	if len(res.Matches) != 0 || len(res.Edits) != 0 {
		t.Fatalf("matches = %d, edits = %d, want none", len(res.Matches), len(res.Edits))
	}
	got, err := Apply([]byte(src), res.Edits)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if got != src {
		t.Errorf("source changed without a match: %q", got)
	}
}

func TestRunReportsMatchesWithoutEdits(t *testing.T) {
	src := "a; b"
	a := nodeAt(t, src, "identifier", "a")
	b := nodeAt(t, src, "identifier", "b")
	root := withFields(nodeAt(t, src, "program", src),
		map[string][]lang.Node{"statements": {a, b}})
	root.children = []lang.Node{a, b}

	res := runProgram(t, "language javascript\nidentifier() as $id", fakeTree(root))

	if len(res.Matches) != 2 {
		t.Fatalf("matches = %d, want 2", len(res.Matches))
	}
	if len(res.Edits) != 0 {
		t.Errorf("edits = %d, want 0", len(res.Edits))
	}
	if got := res.Matches[0].Bindings["id"]; got != "a" {
		t.Errorf("first binding = %q, want a", got)
	}
	if got := res.Matches[1].Bindings["id"]; got != "b" {
		t.Errorf("second binding = %q, want b", got)
	}
}

func TestRunClaimsRewrittenSubtree(t *testing.T) {
	src := "f(g())"
	inner := nodeAt(t, src, "call_expression", "g()")
	outer := nodeAt(t, src, "call_expression", "f(g())")
	outer.children = []lang.Node{inner}
	root := withFields(nodeAt(t, src, "program", src),
		map[string][]lang.Node{"statements": {outer}})
	root.children = []lang.Node{outer}

	res := runProgram(t, "language javascript\ncall_expression() => `X()`", fakeTree(root))

	if len(res.Edits) != 1 {
		t.Fatalf("edits = %d, want 1 (inner call must not be visited)", len(res.Edits))
	}
	got, err := Apply([]byte(src), res.Edits)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if want := "X()"; got != want {
		t.Errorf("rewrite = %q, want %q", got, want)
	}
}

func TestRunRecordsRenderDiagnostics(t *testing.T) {
	src := "a"
	id := nodeAt(t, src, "identifier", "a")
	root := withFields(nodeAt(t, src, "program", src),
		map[string][]lang.Node{"statements": {id}})
	root.children = []lang.Node{id}

	res := runProgram(t, "language javascript\nidentifier() => `$nope`", fakeTree(root))

	if len(res.Edits) != 0 {
		t.Fatalf("edits = %d, want 0", len(res.Edits))
	}
	if len(res.Diagnostics) != 1 {
		t.Fatalf("diagnostics = %d, want 1", len(res.Diagnostics))
	}
	var rerr *RenderError
	if !errors.As(res.Diagnostics[0].Err, &rerr) || rerr.Var != "nope" {
		t.Errorf("diagnostic = %v, want unbound $nope", res.Diagnostics[0].Err)
	}
}

func TestRunDepthBudget(t *testing.T) {
	prog := compileProgram(t, `
language javascript
pattern loop() { loop() }
loop()
`)
	src := "a"
	root := nodeAt(t, src, "program", src)
	eng := New(prog, Options{Limits: Limits{MaxSteps: 100000, MaxDepth: 16}})

	_, err := eng.Run(context.Background(), fakeTree(root))
	var exhausted *ResourceExhausted
	if !errors.As(err, &exhausted) {
		t.Fatalf("err = %v, want ResourceExhausted", err)
	}
	if exhausted.Limit != "depth" {
		t.Errorf("limit = %q, want depth", exhausted.Limit)
	}
}

func TestRunStepBudget(t *testing.T) {
	prog := compileProgram(t, `
language javascript
and { $_, $_, $_, $_, $_, $_, $_, $_, $_, $_, $_, $_ }
`)
	src := "a"
	root := nodeAt(t, src, "program", src)
	eng := New(prog, Options{Limits: Limits{MaxSteps: 8, MaxDepth: 512}})

	_, err := eng.Run(context.Background(), fakeTree(root))
	var exhausted *ResourceExhausted
	if !errors.As(err, &exhausted) {
		t.Fatalf("err = %v, want ResourceExhausted", err)
	}
	if exhausted.Limit != "step" {
		t.Errorf("limit = %q, want step", exhausted.Limit)
	}
}

func TestRunWithoutEntry(t *testing.T) {
	prog := compileProgram(t, `
language javascript
pattern lib() { identifier() }
`)
	src := "a"
	root := nodeAt(t, src, "program", src)

	_, err := New(prog, Options{}).Run(context.Background(), fakeTree(root))
	if !errors.Is(err, ErrNoEntry) {
		t.Fatalf("err = %v, want ErrNoEntry", err)
	}
}

func TestRunHonorsCancellation(t *testing.T) {
	src := "a"
	root := nodeAt(t, src, "program", src)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(compileProgram(t, "language javascript\nidentifier()"), Options{}).
		Run(ctx, fakeTree(root))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
