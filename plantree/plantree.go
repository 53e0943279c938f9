// Package plantree renders the raw plan tree as ascii art, one line
// per operator, in the shape EXPLAIN users already read.
package plantree

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xlab/treeprint"

	"github.com/pgpipeviz/pgpipeviz/queryplan"
)

func init() {
	// Use only ascii characters to mitigate ambiguous width problem
	treeprint.EdgeTypeLink = "|"
	treeprint.EdgeTypeMid = "+-"
	treeprint.EdgeTypeEnd = "+-"

	treeprint.IndentSize = 2
}

// Row is one rendered line of the plan tree.
type Row struct {
	TreePart  string
	NodeText  string
	TotalTime string
}

func (r Row) Text() string {
	return r.TreePart + r.NodeText
}

// ProcessPlan lays out the plan tree and returns its rows in
// depth-first order, root first.
func ProcessPlan(root *queryplan.PlanNode) ([]Row, error) {
	if root == nil {
		return nil, fmt.Errorf("plan is empty")
	}

	tree := treeprint.New()
	var nodes []*queryplan.PlanNode
	layoutTree(tree, root, &nodes)

	var rows []Row
	for _, line := range strings.Split(tree.String(), "\n") {
		if line == "" {
			continue
		}

		split := strings.SplitN(line, "\t", 2)
		if len(split) != 2 {
			return nil, fmt.Errorf("unexpected tree line: %q", line)
		}
		branchText, ordinalText := split[0], split[1]

		ordinal, err := strconv.Atoi(ordinalText)
		if err != nil || ordinal >= len(nodes) {
			return nil, fmt.Errorf("unexpected tree payload, tree line = %q", line)
		}

		node := nodes[ordinal]
		totalTime, _ := node.FieldString("Actual Total Time")
		rows = append(rows, Row{
			TreePart:  branchText,
			NodeText:  NodeTitle(node),
			TotalTime: totalTime,
		})
	}
	return rows, nil
}

// Render returns the whole tree as text, with per-operator times.
func Render(root *queryplan.PlanNode) (string, error) {
	rows, err := ProcessPlan(root)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, row := range rows {
		sb.WriteString(row.Text())
		if row.TotalTime != "" {
			sb.WriteString("  (" + row.TotalTime + " ms)")
		}
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

// layoutTree mirrors the plan into a treeprint tree whose node values
// are tab-prefixed ordinals, so rows can be matched back to plan
// nodes after treeprint computes the branch art.
func layoutTree(tree treeprint.Tree, node *queryplan.PlanNode, nodes *[]*queryplan.PlanNode) {
	// Prefixed by tab to ease to split
	value := "\t" + strconv.Itoa(len(*nodes))
	*nodes = append(*nodes, node)

	var branch treeprint.Tree
	switch {
	case len(*nodes) == 1:
		tree.SetValue(value)
		branch = tree
	case len(node.Plans) > 0:
		branch = tree.AddBranch(value)
	default:
		branch = tree.AddNode(value)
	}

	for _, child := range node.Plans {
		layoutTree(branch, child, nodes)
	}
}

// NodeTitle composes the display label for one operator, the way
// EXPLAIN's text format names it: node type plus its target.
func NodeTitle(node *queryplan.PlanNode) string {
	title := node.NodeType

	if relation, ok := node.FieldString("Relation Name"); ok {
		title += " on " + relation
	}

	var extras []string
	if index, ok := node.FieldString("Index Name"); ok {
		extras = append(extras, "using "+index)
	}
	if joinType, ok := node.FieldString("Join Type"); ok {
		extras = append(extras, joinType)
	}
	if mode, ok := node.FieldString("Partial Mode"); ok && mode != "" && mode != "Simple" {
		extras = append(extras, mode)
	}
	if len(extras) > 0 {
		title += " (" + strings.Join(extras, ", ") + ")"
	}
	return title
}
