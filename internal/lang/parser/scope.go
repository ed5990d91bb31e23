package parser

import (
	"fmt"

	"github.com/organic-audio/organic/internal/lang/ast"
)

// bindingKind distinguishes what a name resolves to within a Scope.
type bindingKind int

const (
	bindNone bindingKind = iota
	bindInput
	bindVariable
	bindFunction
)

// orderedSet is an insertion-ordered, unique string set. It backs each of a
// Scope's three bindings (inputs, variables, functions), mirroring the
// spec's "ordered mappings (by insertion order, names unique within scope)".
type orderedSet struct {
	order []string
	has   map[string]bool
}

func newOrderedSet() *orderedSet {
	return &orderedSet{has: make(map[string]bool)}
}

func (o *orderedSet) add(name string) bool {
	if o.has[name] {
		return false
	}
	o.has[name] = true
	o.order = append(o.order, name)
	return true
}

func (o *orderedSet) contains(name string) bool {
	return o.has[name]
}

// Scope is a ParserContext: a chain of lexical scopes, each tracking three
// ordered name sets plus the enclosing function's own name for
// self-recursion detection.
type Scope struct {
	parent    *Scope
	funcName  string // "" outside any Define body
	inputs    *orderedSet
	variables *orderedSet
	functions *orderedSet
	funcArity map[string]int
}

// NewScope creates a root scope with no parent.
func NewScope() *Scope {
	return &Scope{
		inputs:    newOrderedSet(),
		variables: newOrderedSet(),
		functions: newOrderedSet(),
		funcArity: make(map[string]int),
	}
}

// Child creates a nested scope used to parse a Define's or Lambda's body.
// funcName labels the enclosing function for self-recursion checks.
func (s *Scope) Child(funcName string) *Scope {
	c := NewScope()
	c.parent = s
	c.funcName = funcName
	return c
}

func checkReserved(name string) error {
	if ast.Intrinsics[name] {
		return fmt.Errorf("%q is a reserved intrinsic name", name)
	}
	return nil
}

// DeclareInput registers a Define/Lambda parameter in this scope.
func (s *Scope) DeclareInput(name string) error {
	if err := checkReserved(name); err != nil {
		return err
	}
	if !s.inputs.add(name) {
		return fmt.Errorf("duplicate parameter %q", name)
	}
	return nil
}

// DeclareVariable registers an assignment target in this scope.
func (s *Scope) DeclareVariable(name string) error {
	if err := checkReserved(name); err != nil {
		return err
	}
	if !s.variables.add(name) {
		return fmt.Errorf("variable %q already defined in this scope", name)
	}
	return nil
}

// DeclareFunction registers a user function in this scope. Redefining a
// function from within its own body (anywhere in the ancestor chain's
// funcName labels) is rejected.
func (s *Scope) DeclareFunction(name string, arity int) error {
	if err := checkReserved(name); err != nil {
		return err
	}
	if s.isSelfName(name) {
		return fmt.Errorf("function %q cannot be redefined inside its own body", name)
	}
	if !s.functions.add(name) {
		return fmt.Errorf("function %q already defined in this scope", name)
	}
	s.funcArity[name] = arity
	return nil
}

func (s *Scope) isSelfName(name string) bool {
	for cur := s; cur != nil; cur = cur.parent {
		if cur.funcName == name {
			return true
		}
	}
	return false
}

// Find walks inputs -> variables -> functions -> parent, returning the kind
// of binding the name resolves to.
func (s *Scope) Find(name string) bindingKind {
	for cur := s; cur != nil; cur = cur.parent {
		if cur.inputs.contains(name) {
			return bindInput
		}
		if cur.variables.contains(name) {
			return bindVariable
		}
		if cur.functions.contains(name) {
			return bindFunction
		}
	}
	return bindNone
}

// FunctionArity looks up a function's declared parameter count, walking the
// parent chain.
func (s *Scope) FunctionArity(name string) (int, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if cur.functions.contains(name) {
			return cur.funcArity[name], true
		}
	}
	return 0, false
}

// MergeFrom folds another scope's top-level variables and functions into s,
// as performed after parsing an included file. Name collisions fail.
func (s *Scope) MergeFrom(other *Scope) error {
	for _, name := range other.variables.order {
		if err := s.DeclareVariable(name); err != nil {
			return fmt.Errorf("include merge: %w", err)
		}
	}
	for _, name := range other.functions.order {
		if err := s.DeclareFunction(name, other.funcArity[name]); err != nil {
			return fmt.Errorf("include merge: %w", err)
		}
	}
	return nil
}
