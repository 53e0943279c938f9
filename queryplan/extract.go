package queryplan

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/goccy/go-yaml"

	"github.com/pgpipeviz/pgpipeviz/stats"
)

// ExplainResult is one decoded EXPLAIN (ANALYZE, FORMAT JSON) document:
// the plan tree plus the statement-level figures.
type ExplainResult struct {
	Plan  *PlanNode
	Stats stats.AnalyzeStats
}

// Extract decodes EXPLAIN output. It accepts the shapes Postgres and
// common tooling produce: the top-level one-element array, a bare
// `{"Plan": ...}` object, or a bare plan node. YAML input is accepted
// as a superset of JSON.
func Extract(b []byte) (*ExplainResult, error) {
	var doc any
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("invalid explain input: %w", err)
	}

	if items, ok := doc.([]any); ok {
		if len(items) == 0 {
			return nil, errors.New("explain input is an empty array")
		}
		doc = items[0]
	}

	obj, ok := doc.(map[string]any)
	if !ok {
		return nil, errors.New("unknown explain input format")
	}

	if planObj, ok := obj["Plan"]; ok {
		planMap, ok := planObj.(map[string]any)
		if !ok {
			return nil, errors.New(`"Plan" is not an object`)
		}

		var st stats.AnalyzeStats
		if err := jsonRoundtrip(obj, &st, false); err != nil {
			return nil, err
		}
		return &ExplainResult{Plan: nodeFromMap(planMap), Stats: st}, nil
	}

	if _, ok := obj["Node Type"]; ok {
		return &ExplainResult{Plan: nodeFromMap(obj)}, nil
	}

	return nil, errors.New("unknown explain input format")
}

func nodeFromMap(m map[string]any) *PlanNode {
	node := &PlanNode{Fields: make(map[string]any, len(m))}
	for k, v := range m {
		switch k {
		case "Node Type":
			node.NodeType = FormatValue(v)
		case "Plans":
			children, _ := v.([]any)
			for _, child := range children {
				childMap, ok := child.(map[string]any)
				if !ok {
					continue
				}
				node.Plans = append(node.Plans, nodeFromMap(childMap))
			}
		default:
			node.Fields[k] = v
		}
	}
	return node
}

func jsonRoundtrip(input any, output any, disallowUnknownFields bool) error {
	b, err := json.Marshal(input)
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	if disallowUnknownFields {
		dec.DisallowUnknownFields()
	}
	return dec.Decode(output)
}
