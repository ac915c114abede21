package testrun

import (
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Test is one selectable test as reported by the runner's listing.
type Test struct {
	// ID is the fully qualified test identifier.
	ID string
	// Tags are the dotted components of the ID, letting expressions match
	// on suite or class names without string surgery.
	Tags []string
}

// filterEnv is the expression environment: one test's attributes.
type filterEnv struct {
	ID   string   `expr:"id"`
	Tags []string `expr:"tags"`
}

// Filter is a compiled test-selection expression, e.g.
// "id contains 'hotplug'" or "'sched' in tags".
type Filter struct {
	program *vm.Program
	source  string
}

// CompileFilter compiles a selection expression. The expression must
// evaluate to a boolean.
func CompileFilter(source string) (*Filter, error) {
	program, err := expr.Compile(source,
		expr.Env(filterEnv{}),
		expr.AsBool(),
	)
	if err != nil {
		return nil, fmt.Errorf("invalid filter expression %q: %w", source, err)
	}
	return &Filter{program: program, source: source}, nil
}

// Match evaluates the filter against one test.
func (f *Filter) Match(t Test) (bool, error) {
	out, err := expr.Run(f.program, filterEnv{ID: t.ID, Tags: t.Tags})
	if err != nil {
		return false, fmt.Errorf("filter %q failed on %s: %w", f.source, t.ID, err)
	}
	return out.(bool), nil
}

// Select returns the tests matching the filter, preserving order.
func (f *Filter) Select(tests []Test) ([]Test, error) {
	var selected []Test
	for _, t := range tests {
		ok, err := f.Match(t)
		if err != nil {
			return nil, err
		}
		if ok {
			selected = append(selected, t)
		}
	}
	return selected, nil
}

// ParseListing turns the runner's test listing (one identifier per line)
// into Tests.
func ParseListing(out string) []Test {
	var tests []Test
	for _, line := range strings.Split(out, "\n") {
		id := strings.TrimSpace(line)
		if id == "" {
			continue
		}
		tests = append(tests, Test{ID: id, Tags: tagsFromID(id)})
	}
	return tests
}

func tagsFromID(id string) []string {
	return strings.FieldsFunc(id, func(r rune) bool {
		return r == '.' || r == ':'
	})
}
