package queryplan

import (
	"sort"
	"strconv"
	"strings"
)

// PlanNode is one physical operator from EXPLAIN (FORMAT JSON) output.
// Fields holds every per-node attribute other than "Node Type" and
// "Plans", keyed by the label Postgres emits (e.g. "Relation Name").
type PlanNode struct {
	NodeType string
	Plans    []*PlanNode
	Fields   map[string]any
}

// Field returns the raw value of an attribute, if present.
func (n *PlanNode) Field(key string) (any, bool) {
	v, ok := n.Fields[key]
	return v, ok
}

// FieldString returns an attribute formatted for display.
// Missing attributes report ok=false instead of an empty string so
// that callers can distinguish absence from an empty value.
func (n *PlanNode) FieldString(key string) (string, bool) {
	v, ok := n.Fields[key]
	if !ok {
		return "", false
	}
	return FormatValue(v), true
}

// ListField returns an attribute known to be a list (e.g. "Sort Key")
// as its elements, without joining them.
func (n *PlanNode) ListField(key string) ([]string, bool) {
	v, ok := n.Fields[key]
	if !ok {
		return nil, false
	}
	return StringSlice(v), true
}

// KeyFields returns the names of all attributes whose label contains
// "Key", sorted for deterministic iteration.
func (n *PlanNode) KeyFields() []string {
	var keys []string
	for k := range n.Fields {
		if strings.Contains(k, "Key") {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// FormatValue renders a decoded JSON/YAML scalar the way EXPLAIN's
// text format would print it. Lists are comma-joined.
func FormatValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case uint64:
		return strconv.FormatUint(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case []any:
		return strings.Join(StringSlice(t), ",")
	default:
		return ""
	}
}

// StringSlice renders a decoded JSON/YAML value as a list of strings.
// Scalars become a single-element list.
func StringSlice(v any) []string {
	if items, ok := v.([]any); ok {
		result := make([]string, 0, len(items))
		for _, item := range items {
			result = append(result, FormatValue(item))
		}
		return result
	}
	return []string{FormatValue(v)}
}
