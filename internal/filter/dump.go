package filter

import (
	"fmt"
	"io"
	"reflect"
	"strings"
)

// Dump writes a readable description of f and, recursively, the filters
// attached to it:
//
//	Filter[main.Entity, main.Layer]
//	  key:      e => e.layer_id
//	  criteria: l => !l.locked
//	  match:    s => lookup[main.Layer](s)
//	  cache:    3 entries, 3 resolutions
//
// It is meant for debugging composed graphs.
func (f *Filter[S, R]) Dump(w io.Writer) error {
	return f.dump(w, 0)
}

func (f *Filter[S, R]) dump(w io.Writer, depth int) error {
	var sb strings.Builder
	indent := strings.Repeat("  ", depth)
	stats := f.cache.Stats()

	fmt.Fprintf(&sb, "%sFilter[%s, %s]\n", indent, reflect.TypeFor[S]().String(), f.key.Type)
	fmt.Fprintf(&sb, "%s  key:      %s\n", indent, f.KeySelector())
	fmt.Fprintf(&sb, "%s  criteria: %s\n", indent, f.CriteriaExpression())
	fmt.Fprintf(&sb, "%s  match:    %s\n", indent, f.MatchExpression())
	fmt.Fprintf(&sb, "%s  cache:    %d entries, %d resolutions\n", indent, f.cache.Len(), stats.Resolutions)
	if _, err := io.WriteString(w, sb.String()); err != nil {
		return err
	}

	children := f.graph.Children(f.key)
	if len(children) == 0 {
		return nil
	}
	if _, err := fmt.Fprintf(w, "%s  children:\n", indent); err != nil {
		return err
	}
	for _, child := range children {
		if err := child.dump(w, depth+2); err != nil {
			return err
		}
	}
	return nil
}
