// Package sqlparse resolves a query's output aliases against its
// parsed form. Parsing uses the real Postgres grammar via
// pganalyze/pg_query_go, so anything the server accepts is accepted
// here.
package sqlparse

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"
)

// ParseError reports query text the Postgres grammar rejected. The
// parser's original message is preserved verbatim.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid SQL: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Query is one parsed SQL statement.
type Query struct {
	raw  string
	stmt *pg_query.Node
}

// Parse parses a single SQL statement. Malformed text is rejected
// with a *ParseError before it can reach the transform pipeline.
func Parse(sql string) (*Query, error) {
	result, err := pg_query.Parse(sql)
	if err != nil {
		return nil, &ParseError{Err: err}
	}
	if len(result.Stmts) == 0 {
		return nil, &ParseError{Err: errors.New("no statements found")}
	}
	return &Query{raw: sql, stmt: result.Stmts[0].GetStmt()}, nil
}

// Raw returns the original query text.
func (q *Query) Raw() string {
	return q.raw
}

// IsUpdate reports whether the statement is an UPDATE.
func (q *Query) IsUpdate() bool {
	return q.stmt.GetUpdateStmt() != nil
}

var windowPattern = regexp.MustCompile(`over\s*\(`)

// ResolveAliases builds the alias map for the statement.
//
// For each top-level selected expression the alias is the declared
// alias if present, else the expression's first lexical token; the
// mapped value is the first token, except window expressions which
// are kept verbatim (reducing them to one token would lose the
// OVER clause needed for later matching). Subquery column aliases are
// then zipped positionally with the subquery's select list and merged
// in; a subquery alias that maps to itself is a pass-through column
// and is flagged as subquery-local. Everything is lower-cased.
func (q *Query) ResolveAliases() *AliasMap {
	m := NewAliasMap()

	for _, target := range q.topLevelTargets() {
		rt := target.GetResTarget()
		if rt == nil {
			continue
		}
		expr := strings.ToLower(deparseExpr(rt.GetVal()))
		if expr == "" || expr == "*" {
			// A bare star carries no alias information.
			continue
		}

		alias := strings.ToLower(rt.GetName())
		if alias == "" {
			alias = firstToken(expr)
		}

		value := firstToken(expr)
		if windowPattern.MatchString(expr) {
			value = expr
		}
		m.Put(alias, value)
	}

	for _, sub := range q.subselects() {
		mergeSubqueryAliases(m, sub)
	}
	return m
}

func mergeSubqueryAliases(m *AliasMap, sub *pg_query.RangeSubselect) {
	colnames := sub.GetAlias().GetColnames()
	targets := sub.GetSubquery().GetSelectStmt().GetTargetList()

	for i, colname := range colnames {
		if i >= len(targets) {
			break
		}
		alias := strings.ToLower(colname.GetString_().GetSval())
		if alias == "" {
			continue
		}
		expr := strings.ToLower(deparseExpr(targets[i].GetResTarget().GetVal()))
		if expr == "" {
			continue
		}
		m.Put(alias, expr)
		if alias == expr {
			m.MarkSubqueryLocal(alias)
		}
	}
}

func (q *Query) topLevelTargets() []*pg_query.Node {
	if sel := q.stmt.GetSelectStmt(); sel != nil {
		return sel.GetTargetList()
	}
	return nil
}

// subselects collects every FROM-clause subquery in the statement,
// including ones nested inside joins or inner subqueries.
func (q *Query) subselects() []*pg_query.RangeSubselect {
	var from []*pg_query.Node
	if sel := q.stmt.GetSelectStmt(); sel != nil {
		from = sel.GetFromClause()
	} else if upd := q.stmt.GetUpdateStmt(); upd != nil {
		from = upd.GetFromClause()
	}

	var result []*pg_query.RangeSubselect
	var walk func(nodes []*pg_query.Node)
	walk = func(nodes []*pg_query.Node) {
		for _, n := range nodes {
			switch {
			case n.GetJoinExpr() != nil:
				walk([]*pg_query.Node{n.GetJoinExpr().GetLarg(), n.GetJoinExpr().GetRarg()})
			case n.GetRangeSubselect() != nil:
				sub := n.GetRangeSubselect()
				result = append(result, sub)
				walk(sub.GetSubquery().GetSelectStmt().GetFromClause())
			}
		}
	}
	walk(from)
	return result
}

// deparseExpr renders a single expression node back to SQL text by
// wrapping it in a one-target SELECT and stripping the keyword.
func deparseExpr(n *pg_query.Node) string {
	if n == nil {
		return ""
	}
	wrapper := &pg_query.ParseResult{
		Stmts: []*pg_query.RawStmt{{
			Stmt: &pg_query.Node{Node: &pg_query.Node_SelectStmt{
				SelectStmt: &pg_query.SelectStmt{
					TargetList: []*pg_query.Node{{
						Node: &pg_query.Node_ResTarget{
							ResTarget: &pg_query.ResTarget{Val: n},
						},
					}},
				},
			}},
		}},
	}
	s, err := pg_query.Deparse(wrapper)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(s, "SELECT ")
}

func firstToken(expr string) string {
	fields := strings.Fields(expr)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
