package pipeline

import (
	"fmt"
	"strings"

	"github.com/pgpipeviz/pgpipeviz/internal/lox"
)

// DefaultPipeToken prefixes every rendered stage block.
const DefaultPipeToken = "▸"

// RenderError reports a stage missing a field its template requires.
// It indicates an upstream flattening or injection bug, so rendering
// fails loudly instead of emitting a misleading blank.
type RenderError struct {
	Kind  StageKind
	Field string
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("cannot render %s stage: missing required field %q", e.Kind, e.Field)
}

// Renderer emits the pipe-syntax text for a stage sequence.
type Renderer struct {
	PipeToken string
}

func NewRenderer() *Renderer {
	return &Renderer{PipeToken: DefaultPipeToken}
}

// Render renders the sequence with the default pipe token.
func Render(seq StageSequence) (string, error) {
	return NewRenderer().Render(seq)
}

// Render reverses the sequence exactly once, so the innermost
// (earliest-executed) stage renders first and the outermost last, and
// concatenates the per-stage blocks.
func (r *Renderer) Render(seq StageSequence) (string, error) {
	blocks := make([]string, 0, len(seq))
	for i := len(seq) - 1; i >= 0; i-- {
		block, err := r.renderStage(seq[i])
		if err != nil {
			return "", err
		}
		blocks = append(blocks, block)
	}
	return strings.Join(blocks, "\n"), nil
}

func (r *Renderer) renderStage(s *Stage) (string, error) {
	token := r.PipeToken
	if token == "" {
		token = DefaultPipeToken
	}

	switch s.Kind {
	case KindSelect:
		projection, err := requireAttr(s, "Index Name")
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s SELECT %s", token, projection), nil

	case KindFrom:
		relation, err := requireAttr(s, "Relation Name")
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s FROM %s%s", token, relation, timeSuffix(s)), nil

	case KindWhere:
		cond, err := requireAttr(s, "Index Name")
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s WHERE %s", token, cond), nil

	case KindJoin:
		joinType, err := requireAttr(s, "Join Type")
		if err != nil {
			return "", err
		}
		var sb strings.Builder
		fmt.Fprintf(&sb, "%s %s JOIN", token, joinType)
		cond := joinCondition(s)
		filter := s.Attrs["Filter"]
		switch {
		case cond != "" && filter != "":
			fmt.Fprintf(&sb, " ON %s AND %s", cond, filter)
		case cond != "":
			fmt.Fprintf(&sb, " ON %s", cond)
		case filter != "":
			fmt.Fprintf(&sb, " ON %s", filter)
		}
		// A nested loop without any condition is a cartesian join and
		// renders with no ON clause.
		sb.WriteString(timeSuffix(s))
		return sb.String(), nil

	case KindOrder:
		sortKey, err := requireAttr(s, "Sort Key")
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s ORDER BY %s%s", token, sortKey, timeSuffix(s)), nil

	case KindLimit:
		rows, err := requireAttr(s, "Plan Rows")
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s LIMIT %s%s", token, rows, timeSuffix(s)), nil

	case KindAggregate:
		var sb strings.Builder
		sb.WriteString(token)
		sb.WriteString(" AGGREGATE")
		if agg := s.Attrs["Index Name"]; agg != "" {
			sb.WriteString(" " + agg)
		}
		if groupKey := s.Attrs["Group Key"]; groupKey != "" {
			sb.WriteString(" GROUP BY " + groupKey)
		}
		if having := s.Attrs["Filter"]; having != "" {
			sb.WriteString(" HAVING " + having)
		}
		sb.WriteString(timeSuffix(s))
		return sb.String(), nil

	case KindWindowAggregate:
		return fmt.Sprintf("%s WINDOWAGG%s", token, timeSuffix(s)), nil

	case KindUpdate:
		relation, err := requireAttr(s, "Relation Name")
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s UPDATE %s%s", token, relation, timeSuffix(s)), nil

	case KindSet:
		clause, err := requireAttr(s, "Set Statement")
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s SET %s", token, clause), nil

	default:
		return "", &RenderError{Kind: s.Kind, Field: "Node Type"}
	}
}

func requireAttr(s *Stage, name string) (string, error) {
	v := s.Attrs[name]
	if v == "" {
		return "", &RenderError{Kind: s.Kind, Field: name}
	}
	return v, nil
}

// timeSuffix appends the operator's measured time when the plan has
// actuals; plain EXPLAIN output has none and the suffix is omitted.
func timeSuffix(s *Stage) string {
	t := s.TotalTime()
	return lox.IfOrEmpty(t != "", "  Total Time: "+t)
}
