package pipeline

import (
	"github.com/pgpipeviz/pgpipeviz/queryplan"
)

// Flatten walks the plan tree breadth-first and produces the ordered
// stage sequence, root (outermost operator) first. A stage never
// precedes its parent's stage. Unclassified nodes are dropped but
// their children are still visited, so a tree of only unknown
// operators yields an empty sequence rather than an error.
func Flatten(root *queryplan.PlanNode) StageSequence {
	if root == nil {
		return nil
	}

	var seq StageSequence
	queue := []*queryplan.PlanNode{root}
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		queue = append(queue, node.Plans...)

		kind := classifyNode(node)
		if kind == KindUnclassified {
			continue
		}

		stage := newStage(kind)
		for _, key := range node.KeyFields() {
			if elems, ok := node.ListField(key); ok {
				stage.Keys[key] = elems
			}
		}
		for _, name := range attrWhitelist {
			if v, ok := node.FieldString(name); ok {
				stage.Attrs[name] = v
			}
		}

		// Limit is rendered with its row estimate.
		if kind == KindLimit {
			if v, ok := node.FieldString("Plan Rows"); ok {
				stage.Attrs["Plan Rows"] = v
			}
		}

		// Parallel plans report the same aggregation twice; only the
		// finalized one is kept.
		if kind == KindAggregate && stage.Attrs["Partial Mode"] == "Partial" {
			continue
		}

		seq = append(seq, stage)
	}
	return seq
}
