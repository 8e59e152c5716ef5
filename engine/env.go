package engine

// Env is one match attempt's variable scope. Ordinary binds are append-only
// and a rebind must agree with the existing value; only accumulation and
// call copy-out replace values. Branch points snapshot the whole scope and
// swap the snapshot back in on failure, so a failed branch never leaks
// bindings into its siblings.
type Env struct {
	vars map[string]Value
}

// NewEnv returns an empty scope.
func NewEnv() *Env {
	return &Env{vars: make(map[string]Value)}
}

// Lookup returns the binding for name, if any.
func (e *Env) Lookup(name string) (Value, bool) {
	v, ok := e.vars[name]
	return v, ok
}

// Bind binds name to v, or checks v against an existing binding of name.
// It reports false when name is already bound to a non-equivalent value.
func (e *Env) Bind(name string, v Value) bool {
	if prev, ok := e.vars[name]; ok {
		return prev.Equal(v)
	}
	e.vars[name] = v
	return true
}

// Set stores v under name unconditionally. Call copy-out uses this;
// everything else goes through Bind or Append.
func (e *Env) Set(name string, v Value) {
	e.vars[name] = v
}

// Append appends text to the string bound to name, starting from the empty
// string when name is unbound. A node or list binding flattens to its text
// on first append.
func (e *Env) Append(name, text string) {
	prev := ""
	if v, ok := e.vars[name]; ok {
		prev = v.Text()
	}
	e.vars[name] = StringValue(prev + text)
}

// Clone returns an independent copy of the scope.
func (e *Env) Clone() *Env {
	c := &Env{vars: make(map[string]Value, len(e.vars))}
	for k, v := range e.vars {
		c.vars[k] = v
	}
	return c
}

// Snapshot returns the current bindings as rendered text, keyed by variable
// name. It returns nil for an empty scope.
func (e *Env) Snapshot() map[string]string {
	if len(e.vars) == 0 {
		return nil
	}
	out := make(map[string]string, len(e.vars))
	for name, v := range e.vars {
		out[name] = v.Text()
	}
	return out
}
