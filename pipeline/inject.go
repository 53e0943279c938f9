package pipeline

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/pgpipeviz/pgpipeviz/internal/lox"
	"github.com/pgpipeviz/pgpipeviz/sqlparse"
)

// SetClauseError reports an UPDATE plan whose query text has no
// locatable SET clause: the structural and textual views of the query
// disagree, which is a data inconsistency rather than a render
// problem.
type SetClauseError struct {
	Query string
}

func (e *SetClauseError) Error() string {
	return fmt.Sprintf("plan contains an UPDATE stage but no SET clause was found in query text %q", e.Query)
}

// aggregateFuncs are the callee names treated as aggregate
// expressions during SELECT synthesis.
var aggregateFuncs = map[string]struct{}{
	"count":  {},
	"sum":    {},
	"avg":    {},
	"min":    {},
	"max":    {},
	"first":  {},
	"last":   {},
	"median": {},
	"mode":   {},
}

func isAggregateExpr(expr string) bool {
	open := strings.Index(expr, "(")
	if open <= 0 {
		return false
	}
	_, ok := aggregateFuncs[strings.ToLower(strings.TrimSpace(expr[:open]))]
	return ok
}

// Inject synthesizes the stages the plan tree does not natively
// express. Three passes, in this order: SELECT synthesis, WHERE
// synthesis, SET synthesis. Each pass builds a new sequence instead
// of juggling shifting indices; existing stages are never reordered.
func Inject(seq StageSequence, rawSQL string, aliases *sqlparse.AliasMap) (StageSequence, error) {
	seq = injectSelect(seq, aliases)
	seq = injectWhere(seq)
	return injectSet(seq, rawSQL, aliases)
}

// injectSelect pairs aggregate-kind aliases with the Aggregate stages
// (reverse declaration order, positional) and prepends one Select
// stage carrying the remaining projection, if any.
func injectSelect(seq StageSequence, aliases *sqlparse.AliasMap) StageSequence {
	var aggEntries []sqlparse.AliasEntry
	var selectExprs []string
	for _, e := range aliases.Entries() {
		switch {
		case aliases.IsSubqueryLocal(e.Alias):
			// Pass-through subquery columns are not part of the
			// top-level projection.
		case isAggregateExpr(e.Expr):
			aggEntries = append(aggEntries, e)
		default:
			selectExprs = append(selectExprs, e.Expr)
		}
	}

	aggStages := lox.FilterWithoutIndex(seq, func(s *Stage) bool {
		return s.Kind == KindAggregate
	})
	if len(aggStages) > 0 {
		slices.Reverse(aggEntries)
		for i, stage := range aggStages {
			if i >= len(aggEntries) {
				break
			}
			e := aggEntries[i]
			if e.Alias != e.Expr {
				stage.Attrs["Index Name"] = fmt.Sprintf("%s AS %s", e.Expr, e.Alias)
			} else {
				stage.Attrs["Index Name"] = e.Expr
			}
		}
	}

	if len(selectExprs) > 0 {
		stage := newStage(KindSelect)
		stage.Attrs["Index Name"] = strings.Join(selectExprs, ",")
		seq = slices.Insert(seq, 0, stage)
	}
	return seq
}

// injectWhere puts a Where stage immediately before every From stage
// that carries a filter, so the row filter renders right after its
// source. A From with both a Filter and an Index Cond gets two.
func injectWhere(seq StageSequence) StageSequence {
	out := make(StageSequence, 0, len(seq))
	for _, stage := range seq {
		if stage.Kind == KindFrom {
			for _, name := range []string{"Filter", "Index Cond"} {
				if cond, ok := stage.Attrs[name]; ok && cond != "" {
					where := newStage(KindWhere)
					where.Attrs["Index Name"] = cond
					out = append(out, where)
				}
			}
		}
		out = append(out, stage)
	}
	return out
}

// setClausePattern captures the SET clause body of an UPDATE
// statement up to the next FROM/WHERE clause or the end of the text.
var setClausePattern = regexp.MustCompile(`(?is)\bSET\b\s+(.*?)(?:\bFROM\b|\bWHERE\b|;|$)`)

// injectSet places a Set stage before the Update stage, holding the
// SET clause extracted from the raw query text with known aliases
// lower-cased. A synthetic Select immediately preceding the Update is
// removed; an UPDATE has no projection to show.
func injectSet(seq StageSequence, rawSQL string, aliases *sqlparse.AliasMap) (StageSequence, error) {
	idx := slices.IndexFunc(seq, func(s *Stage) bool { return s.Kind == KindUpdate })
	if idx == -1 {
		return seq, nil
	}

	m := setClausePattern.FindStringSubmatch(rawSQL)
	if m == nil {
		return nil, &SetClauseError{Query: rawSQL}
	}
	clause := strings.TrimSpace(m[1])
	for _, e := range aliases.Entries() {
		aliasPattern := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(e.Alias) + `\b`)
		clause = aliasPattern.ReplaceAllString(clause, strings.ToLower(e.Alias))
	}

	set := newStage(KindSet)
	set.Attrs["Set Statement"] = clause
	seq = slices.Insert(seq, idx, set)

	if idx-1 >= 0 && seq[idx-1].Kind == KindSelect {
		seq = slices.Delete(seq, idx-1, idx)
	}
	return seq, nil
}
