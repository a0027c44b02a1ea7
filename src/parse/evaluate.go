package parse

import (
	"fmt"

	"github.com/bazelbuild/buildtools/build"

	"github.com/plzbuild/blade/src/core"
	"github.com/plzbuild/blade/src/targets"
)

// evaluate creates the targets declared in a parsed BUILD file.
func (p *parser) evaluate(dir string, f *build.File) error {
	return p.state.WithDir(dir, func() error {
		for _, stmt := range f.Stmt {
			switch stmt := stmt.(type) {
			case *build.CommentBlock:
			case *build.CallExpr:
				if err := p.call(f.Path, stmt); err != nil {
					return err
				}
			default:
				return locationError(location(f.Path, stmt), "Only calls to target functions are allowed at the top level of a %s file", p.buildFileName())
			}
		}
		return nil
	})
}

// call creates the target declared by a single call.
func (p *parser) call(filename string, call *build.CallExpr) error {
	loc := location(filename, call)
	rule := &build.Rule{Call: call}
	kind := rule.Kind()
	if kind == "" {
		return locationError(loc, "Unsupported function call")
	}
	args := core.TargetArgs{
		Type:     kind,
		Location: loc,
		Extra:    map[string]interface{}{},
	}
	for _, arg := range call.List {
		assign, ok := arg.(*build.AssignExpr)
		if !ok {
			return locationError(loc, "%s: positional arguments aren't supported, use name = value", kind)
		}
		key, ok := assign.LHS.(*build.Ident)
		if !ok {
			return locationError(loc, "%s: invalid keyword argument", kind)
		}
		value, err := literal(assign.RHS)
		if err != nil {
			return locationError(location(filename, assign.RHS), "%s: %s %s", kind, key.Name, err)
		}
		switch key.Name {
		case "name":
			s, ok := value.(string)
			if !ok {
				return locationError(loc, "%s: name must be a string", kind)
			}
			args.Name = s
		case "srcs":
			if args.Srcs, err = stringList(value); err != nil {
				return locationError(loc, "%s: srcs %s", kind, err)
			}
		case "deps":
			if args.Deps, err = stringList(value); err != nil {
				return locationError(loc, "%s: deps %s", kind, err)
			}
		case "visibility":
			if args.Visibility, err = stringList(value); err != nil {
				return locationError(loc, "%s: visibility %s", kind, err)
			}
		default:
			args.Extra[key.Name] = value
		}
	}
	if args.Name == "" {
		return locationError(loc, "%s: missing name", kind)
	}
	_, err := targets.New(p.state, args)
	return err
}

// literal converts an expression to a string, list of strings or bool.
func literal(expr build.Expr) (interface{}, error) {
	switch expr := expr.(type) {
	case *build.StringExpr:
		return expr.Value, nil
	case *build.Ident:
		switch expr.Name {
		case "True":
			return true, nil
		case "False":
			return false, nil
		}
	case *build.ListExpr:
		ret := make([]string, len(expr.List))
		for i, e := range expr.List {
			s, ok := e.(*build.StringExpr)
			if !ok {
				return nil, fmt.Errorf("must be a list of strings")
			}
			ret[i] = s.Value
		}
		return ret, nil
	}
	return nil, fmt.Errorf("must be a literal string, list of strings, True or False")
}

// stringList accepts a list of strings, or a single string which is treated as a list of one.
func stringList(value interface{}) ([]string, error) {
	switch v := value.(type) {
	case string:
		return []string{v}, nil
	case []string:
		return v, nil
	}
	return nil, fmt.Errorf("must be a string or a list of strings")
}

func location(filename string, expr build.Expr) core.SourceLocation {
	start, _ := expr.Span()
	return core.SourceLocation{File: filename, Line: start.Line}
}

func locationError(loc core.SourceLocation, msg string, args ...interface{}) error {
	return fmt.Errorf("%s error: %s", loc, fmt.Sprintf(msg, args...))
}
