package core

// ---------------------------------------------------------------------------
// Typing contexts.
//
// A Context is an ordered sequence of (name, type) bindings. Extending never
// mutates the receiver: each binder push builds a fresh context whose stored
// types are shifted so they remain valid under the new binder. Shadowing is
// structural: lookup counts same-named bindings from the innermost outward.
// ---------------------------------------------------------------------------

type binding struct {
	name string
	typ  Term
}

// Context is an immutable typing context. The zero value is the empty
// context.
type Context struct {
	bindings []binding // innermost last
}

// EmptyContext is the context for closed terms.
func EmptyContext() Context {
	return Context{}
}

// Extend pushes a new binding. Every stored type, the new one included, is
// shifted across the new binder so free variables keep their meaning.
func (c Context) Extend(name string, typ Term) Context {
	v := Var{Name: name}
	out := make([]binding, 0, len(c.bindings)+1)
	for _, b := range c.bindings {
		out = append(out, binding{name: b.name, typ: Shift(1, v, b.typ)})
	}
	out = append(out, binding{name: name, typ: Shift(1, v, typ)})
	return Context{bindings: out}
}

// Lookup finds the type of the variable name@index, or false when the
// variable is unbound.
func (c Context) Lookup(name string, index int) (Term, bool) {
	seen := 0
	for i := len(c.bindings) - 1; i >= 0; i-- {
		if c.bindings[i].name != name {
			continue
		}
		if seen == index {
			return c.bindings[i].typ, true
		}
		seen++
	}
	return nil, false
}

// Len reports the number of bindings.
func (c Context) Len() int {
	return len(c.bindings)
}
