package harness

import (
	"fmt"
	"sort"

	"github.com/roach88/fluentchain/internal/shapes"
)

// targets builds a fresh proxy for each scenario run.
var targets = map[string]func() any{
	"shapes":    func() any { return shapes.New() },
	"square":    func() any { return shapes.NewSquare(0) },
	"rectangle": func() any { return shapes.NewRectangle(0, 0) },
	"triangle":  func() any { return shapes.NewTriangle(0, 0) },
	"record":    func() any { return map[string]any{} },
	"adder":     func() any { return shapes.Sum },
}

// Targets returns the registered target names, sorted.
func Targets() []string {
	names := make([]string, 0, len(targets))
	for name := range targets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewTarget builds a fresh instance of the named target.
func NewTarget(name string) (any, error) {
	build, ok := targets[name]
	if !ok {
		return nil, fmt.Errorf("unknown target %q", name)
	}
	return build(), nil
}
