// Package walk provides helpers for traversing all values in a SiMAL
// AST. It is used by the signature enrichment pass and is also useful
// for tooling that needs to inspect every node of a parsed system.
package walk

import (
	"github.com/simal-lang/simal/ast"
)

// System walks every value reachable from sys, in source order, calling
// fn for each. If fn returns a non-nil error, the walk is aborted and
// that error is returned.
func System(sys *ast.System, fn func(ast.Value) error) error {
	return SystemEnterAndExit(sys, fn, nil)
}

// SystemEnterAndExit walks every value reachable from sys. The enter
// function is called before a value's children are visited and the exit
// function (if not nil) after. If either returns a non-nil error, the
// walk is aborted and that error is returned.
func SystemEnterAndExit(sys *ast.System, enter, exit func(ast.Value) error) error {
	if sys == nil {
		return nil
	}
	for _, e := range attrsOf(sys.Attributes) {
		if err := value(e, enter, exit); err != nil {
			return err
		}
	}
	for _, svc := range sys.Services {
		for _, e := range attrsOf(svc.Attributes) {
			if err := value(e, enter, exit); err != nil {
				return err
			}
		}
	}
	return nil
}

// Endpoints calls fn for every endpoint in the system, in source order.
func Endpoints(sys *ast.System, fn func(*ast.Endpoint) error) error {
	return System(sys, func(v ast.Value) error {
		if ep, ok := v.(*ast.Endpoint); ok {
			return fn(ep)
		}
		return nil
	})
}

// Methods calls fn for every method in the system, in source order.
func Methods(sys *ast.System, fn func(*ast.Method) error) error {
	return System(sys, func(v ast.Value) error {
		if m, ok := v.(*ast.Method); ok {
			return fn(m)
		}
		return nil
	})
}

func attrsOf(m *ast.Map) []*ast.Attribute {
	if m == nil {
		return nil
	}
	return m.Entries
}

func value(v ast.Value, enter, exit func(ast.Value) error) error {
	if v == nil {
		return nil
	}
	if err := enter(v); err != nil {
		return err
	}
	switch v := v.(type) {
	case *ast.Attribute:
		if err := value(v.Value, enter, exit); err != nil {
			return err
		}
	case *ast.Map:
		for _, e := range v.Entries {
			if err := value(e, enter, exit); err != nil {
				return err
			}
		}
	case *ast.List:
		for _, item := range v.Items {
			if err := value(item, enter, exit); err != nil {
				return err
			}
		}
	case *ast.Block:
		for _, e := range attrsOf(v.Attributes) {
			if err := value(e, enter, exit); err != nil {
				return err
			}
		}
	case *ast.Method:
		for _, e := range attrsOf(v.Attributes) {
			if err := value(e, enter, exit); err != nil {
				return err
			}
		}
	case *ast.Endpoint:
		for _, e := range attrsOf(v.Attributes) {
			if err := value(e, enter, exit); err != nil {
				return err
			}
		}
	}
	if exit != nil {
		return exit(v)
	}
	return nil
}
