// Package visualize draws the final stage sequence as a node/edge
// diagram, via graphviz or mermaid.
package visualize

import (
	"context"
	"fmt"
	"io"
	"log"

	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"

	"github.com/pgpipeviz/pgpipeviz/option"
	"github.com/pgpipeviz/pgpipeviz/pipeline"
)

// RenderImage renders the stage graph to writer in the requested
// graphviz format. When param.ShowQuery is set, the query text is
// attached as an extra node above the terminal stage.
func RenderImage(ctx context.Context, seq pipeline.StageSequence, rawSQL string, format graphviz.Format, writer io.Writer, param option.Options) error {
	if len(seq) == 0 {
		return fmt.Errorf("cannot render image: stage sequence is empty")
	}

	g, err := graphviz.New(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := g.Close(); err != nil {
			log.Print(err)
		}
	}()

	graph, err := g.Graph()
	if err != nil {
		return err
	}
	defer func() {
		if err := graph.Close(); err != nil {
			log.Print(err)
		}
	}()

	// The default start type for Graphviz can be random, leading to
	// inconsistent renderings across runs.
	graph.SetStart(graphviz.RegularStart)

	if err := renderGraph(graph, seq, rawSQL, param); err != nil {
		return fmt.Errorf("failed to render graph content: %w", err)
	}

	return g.Render(ctx, graph, format, writer)
}

func renderGraph(graph *cgraph.Graph, seq pipeline.StageSequence, rawSQL string, param option.Options) error {
	graph.SetRankDir(cgraph.BTRank)

	nodes, edges := buildStageGraph(seq)

	gvNodes := make([]*cgraph.Node, len(nodes))
	for i, node := range nodes {
		n, err := graph.CreateNodeByName(node.Name())
		if err != nil {
			return err
		}
		n.SetShape(cgraph.BoxShape)
		n.SetLabel(node.Label())
		gvNodes[i] = n
	}

	for _, edge := range edges {
		if _, err := graph.CreateEdgeByName("", gvNodes[edge.From], gvNodes[edge.To]); err != nil {
			return err
		}
	}

	if param.ShowQuery && rawSQL != "" {
		// The terminal stage is position 0 of the pre-reverse sequence.
		if err := renderQueryNodeWithEdge(graph, rawSQL, gvNodes[0]); err != nil {
			return err
		}
	}
	return nil
}

func renderQueryNodeWithEdge(graph *cgraph.Graph, rawSQL string, terminal *cgraph.Node) error {
	n, err := graph.CreateNodeByName("query")
	if err != nil {
		return err
	}
	n.SetShape(cgraph.BoxShape)
	n.SetStyle(cgraph.RoundedNodeStyle)
	n.SetLabel(rawSQL)

	_, err = graph.CreateEdgeByName("", terminal, n)
	return err
}
