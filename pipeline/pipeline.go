package pipeline

import (
	"github.com/pgpipeviz/pgpipeviz/queryplan"
	"github.com/pgpipeviz/pgpipeviz/sqlparse"
)

// Result carries both transform artifacts: the final stage sequence
// (for the table and graph views) and its pipe-syntax rendering.
type Result struct {
	Stages StageSequence
	Text   string
}

// Transform runs the full pipeline over one plan tree: flatten,
// normalize against the query's aliases, inject synthetic stages,
// render. It holds no state across calls and is safe to run
// concurrently over independent plans. On any fatal error both
// artifacts are withheld.
func Transform(root *queryplan.PlanNode, query *sqlparse.Query) (*Result, error) {
	return TransformWithRenderer(root, query, NewRenderer())
}

// TransformWithRenderer is Transform with a custom pipe token.
func TransformWithRenderer(root *queryplan.PlanNode, query *sqlparse.Query, r *Renderer) (*Result, error) {
	aliases := query.ResolveAliases()

	seq := Flatten(root)
	Normalize(seq, aliases)

	seq, err := Inject(seq, query.Raw(), aliases)
	if err != nil {
		return nil, err
	}

	text, err := r.Render(seq)
	if err != nil {
		return nil, err
	}
	return &Result{Stages: seq, Text: text}, nil
}
