package visualize

import (
	"fmt"
	"io"
	"strings"

	"github.com/pgpipeviz/pgpipeviz/pipeline"
)

// RenderMermaid writes the stage graph as a mermaid flowchart,
// bottom-up like the graphviz output: sources at the bottom, the
// terminal stage on top.
func RenderMermaid(seq pipeline.StageSequence, writer io.Writer) error {
	if len(seq) == 0 {
		return fmt.Errorf("cannot render mermaid: stage sequence is empty")
	}

	nodes, edges := buildStageGraph(seq)

	var sb strings.Builder
	sb.WriteString("graph BT\n")
	for _, node := range nodes {
		sb.WriteString(fmt.Sprintf("    %s[\"%s\"]\n", node.Name(), escapeMermaidLabel(node.Label())))
		sb.WriteString(fmt.Sprintf("    style %s text-align:left;\n", node.Name()))
	}
	for _, edge := range edges {
		sb.WriteString(fmt.Sprintf("    %s --> %s\n", nodes[edge.From].Name(), nodes[edge.To].Name()))
	}

	_, err := writer.Write([]byte(sb.String()))
	return err
}

var mermaidLabelReplacer = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "#quot;",
	"\n", "<br/>",
)

func escapeMermaidLabel(s string) string {
	return mermaidLabelReplacer.Replace(s)
}
