package engine

import (
	"strings"

	"github.com/termfx/graft/pattern"
)

// render substitutes the scope's bindings into a compiled template. Literal
// segments pass through untouched; an interpolation of an unbound variable
// is a RenderError.
func render(tpl *pattern.Template, env *Env) (string, error) {
	var b strings.Builder
	b.Grow(len(tpl.Source))
	for _, seg := range tpl.Segments {
		if seg.Var == "" {
			b.WriteString(seg.Text)
			continue
		}
		v, ok := env.Lookup(seg.Var)
		if !ok {
			return "", &RenderError{Var: seg.Var}
		}
		b.WriteString(v.Text())
	}
	return b.String(), nil
}
