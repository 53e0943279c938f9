// Package pipeline turns a Postgres execution-plan tree and the
// original query text into a flat sequence of typed stages and a
// pipe-syntax rendering of it.
package pipeline

import (
	"github.com/pgpipeviz/pgpipeviz/queryplan"
)

// StageKind classifies one flattened plan operator. The set is closed;
// operator names outside the classification table map to
// KindUnclassified and are dropped during flattening.
type StageKind int

const (
	KindUnclassified StageKind = iota
	KindSelect
	KindFrom
	KindWhere
	KindJoin
	KindOrder
	KindLimit
	KindAggregate
	KindWindowAggregate
	KindUpdate
	KindSet
)

var kindNames = map[StageKind]string{
	KindUnclassified:    "UNCLASSIFIED",
	KindSelect:          "SELECT",
	KindFrom:            "FROM",
	KindWhere:           "WHERE",
	KindJoin:            "JOIN",
	KindOrder:           "ORDER",
	KindLimit:           "LIMIT",
	KindAggregate:       "AGGREGATE",
	KindWindowAggregate: "WINDOWAGG",
	KindUpdate:          "UPDATE",
	KindSet:             "SET",
}

func (k StageKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "UNCLASSIFIED"
}

// kindByNodeType maps EXPLAIN "Node Type" labels to stage kinds.
// Unknown labels are not an error; optimizer vocabularies vary across
// server versions and unknown operators are simply dropped.
var kindByNodeType = map[string]StageKind{
	"Seq Scan":         KindFrom,
	"Index Scan":       KindFrom,
	"Index Only Scan":  KindFrom,
	"Bitmap Heap Scan": KindFrom,
	"Tid Scan":         KindFrom,
	"Subquery Scan":    KindFrom,
	"Function Scan":    KindFrom,
	"CTE Scan":         KindFrom,
	"Foreign Scan":     KindFrom,
	"Nested Loop":      KindJoin,
	"Hash Join":        KindJoin,
	"Merge Join":       KindJoin,
	"Sort":             KindOrder,
	"Incremental Sort": KindOrder,
	"Limit":            KindLimit,
	"Aggregate":        KindAggregate,
	"GroupAggregate":   KindAggregate,
	"HashAggregate":    KindAggregate,
	"Group":            KindAggregate,
	"WindowAgg":        KindWindowAggregate,
	"ModifyTable":      KindUpdate,
}

// classifyNode resolves a plan node to its stage kind. ModifyTable
// covers all DML; only the Update operation is a stage here.
func classifyNode(node *queryplan.PlanNode) StageKind {
	kind, ok := kindByNodeType[node.NodeType]
	if !ok {
		return KindUnclassified
	}
	if kind == KindUpdate {
		if op, _ := node.FieldString("Operation"); op != "Update" {
			return KindUnclassified
		}
	}
	return kind
}

// attrWhitelist is the fixed set of per-node fields that survive
// flattening; everything else the optimizer reports is irrelevant to
// rendering.
var attrWhitelist = []string{
	"Hash Cond",
	"Merge Cond",
	"Partial Mode",
	"Filter",
	"Relation Name",
	"Index Name",
	"Index Cond",
	"Scan Direction",
	"Join Filter",
	"Join Type",
	"Actual Total Time",
}

// Stage is one classified, flattened operator. Attrs holds the
// whitelisted scalar attributes; Keys holds the element lists of
// "Key" attributes (sort keys, group keys) until normalization
// comma-joins them into Attrs. Identity is positional within the
// sequence.
type Stage struct {
	Kind  StageKind
	Attrs map[string]string
	Keys  map[string][]string
}

func newStage(kind StageKind) *Stage {
	return &Stage{
		Kind:  kind,
		Attrs: make(map[string]string),
		Keys:  make(map[string][]string),
	}
}

// Attr returns a scalar attribute by its EXPLAIN label.
func (s *Stage) Attr(name string) string {
	return s.Attrs[name]
}

// Label returns the stage kind name, e.g. "FROM".
func (s *Stage) Label() string {
	return s.Kind.String()
}

// TotalTime returns the operator's actual total time, or "" when the
// plan carries no actuals.
func (s *Stage) TotalTime() string {
	return s.Attrs["Actual Total Time"]
}

// Details returns the one attribute that best summarizes the stage,
// used by the table and graph views.
func (s *Stage) Details() string {
	switch s.Kind {
	case KindSelect, KindWhere:
		return s.Attrs["Index Name"]
	case KindFrom, KindUpdate:
		return s.Attrs["Relation Name"]
	case KindJoin:
		return joinCondition(s)
	case KindOrder:
		return s.Attrs["Sort Key"]
	case KindLimit:
		return s.Attrs["Plan Rows"]
	case KindAggregate:
		return s.Attrs["Group Key"]
	case KindSet:
		return s.Attrs["Set Statement"]
	default:
		return ""
	}
}

// joinCondition returns the first join condition present, in the
// order the optimizer is likely to have one.
func joinCondition(s *Stage) string {
	for _, name := range []string{"Hash Cond", "Merge Cond", "Join Filter"} {
		if v, ok := s.Attrs[name]; ok && v != "" {
			return v
		}
	}
	return ""
}

// StageSequence is the ordered stage list threaded through the
// transform. Until rendering it stays in flattening order: outer
// operators first, source operators last.
type StageSequence []*Stage
