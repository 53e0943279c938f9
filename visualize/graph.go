package visualize

import (
	"fmt"

	"github.com/pgpipeviz/pgpipeviz/pipeline"
)

// This file contains logic which is purely building the stage-graph
// model. It must not depend on graphviz; both renderers share it.

// stageNode is one vertex of the stage graph.
type stageNode struct {
	// Index is the stage's position in the (pre-reverse) sequence and
	// doubles as the node identity.
	Index int
	Stage *pipeline.Stage
}

func (n stageNode) Name() string {
	return fmt.Sprintf("stage_%d", n.Index)
}

func (n stageNode) Label() string {
	label := n.Stage.Label()
	if details := n.Stage.Details(); details != "" {
		label += "\n" + details
	}
	if t := n.Stage.TotalTime(); t != "" {
		label += "\n" + t + " ms"
	}
	return label
}

// stageEdge points from a source stage to the stage consuming it,
// matching the bottom-up direction plan diagrams are drawn in.
type stageEdge struct {
	From int
	To   int
}

// buildStageGraph reconstructs the data-flow graph from the flat
// sequence. The sequence is outer-to-inner, so it is walked from the
// end (innermost first) with a stack of pending sources: From stages
// are sources, a Join consumes two, every other stage consumes one.
// Edges therefore follow sequence adjacency except at joins, which
// fan out to each of their source stages.
func buildStageGraph(seq pipeline.StageSequence) ([]stageNode, []stageEdge) {
	nodes := make([]stageNode, 0, len(seq))
	for i, stage := range seq {
		nodes = append(nodes, stageNode{Index: i, Stage: stage})
	}

	var edges []stageEdge
	var sources []int
	pop := func() (int, bool) {
		if len(sources) == 0 {
			return 0, false
		}
		top := sources[len(sources)-1]
		sources = sources[:len(sources)-1]
		return top, true
	}

	for i := len(seq) - 1; i >= 0; i-- {
		switch seq[i].Kind {
		case pipeline.KindFrom:
			sources = append(sources, i)
		case pipeline.KindJoin:
			for range 2 {
				if src, ok := pop(); ok {
					edges = append(edges, stageEdge{From: src, To: i})
				}
			}
			sources = append(sources, i)
		default:
			if src, ok := pop(); ok {
				edges = append(edges, stageEdge{From: src, To: i})
			}
			sources = append(sources, i)
		}
	}
	return nodes, edges
}
