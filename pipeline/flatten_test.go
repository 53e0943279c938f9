package pipeline

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/pgpipeviz/pgpipeviz/queryplan"
)

func mustExtract(t *testing.T, input string) *queryplan.PlanNode {
	t.Helper()
	result, err := queryplan.Extract([]byte(input))
	if err != nil {
		t.Fatal(err)
	}
	return result.Plan
}

func TestFlatten(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  StageSequence
	}{
		{
			name: "limit over index scan",
			input: `[{"Plan": {
				"Node Type": "Limit", "Actual Total Time": 0.55, "Plan Rows": 100,
				"Plans": [{
					"Node Type": "Index Only Scan", "Index Name": "cust_pkey",
					"Relation Name": "customer", "Scan Direction": "Forward",
					"Actual Total Time": 1.205}]},
				"Execution Time": 1.755}]`,
			want: StageSequence{
				{
					Kind: KindLimit,
					Attrs: map[string]string{
						"Actual Total Time": "0.55",
						"Plan Rows":         "100",
					},
					Keys: map[string][]string{},
				},
				{
					Kind: KindFrom,
					Attrs: map[string]string{
						"Index Name":        "cust_pkey",
						"Relation Name":     "customer",
						"Scan Direction":    "Forward",
						"Actual Total Time": "1.205",
					},
					Keys: map[string][]string{},
				},
			},
		},
		{
			name: "partial aggregate suppressed",
			input: `{"Plan": {
				"Node Type": "Aggregate", "Group Key": ["c_custkey"], "Actual Total Time": 5.5,
				"Plans": [
					{"Node Type": "Gather", "Plans": [
						{"Node Type": "Aggregate", "Partial Mode": "Partial", "Group Key": ["c_custkey"],
						 "Plans": [{"Node Type": "Seq Scan", "Relation Name": "customer"}]}]}]}}`,
			want: StageSequence{
				{
					Kind:  KindAggregate,
					Attrs: map[string]string{"Actual Total Time": "5.5"},
					Keys:  map[string][]string{"Group Key": {"c_custkey"}},
				},
				{
					Kind:  KindFrom,
					Attrs: map[string]string{"Relation Name": "customer"},
					Keys:  map[string][]string{},
				},
			},
		},
		{
			name: "sort keys stay as elements",
			input: `{"Plan": {
				"Node Type": "Sort", "Sort Key": ["customer.c_name", "price_rank"],
				"Plans": [{"Node Type": "Seq Scan", "Relation Name": "customer"}]}}`,
			want: StageSequence{
				{
					Kind:  KindOrder,
					Attrs: map[string]string{},
					Keys:  map[string][]string{"Sort Key": {"customer.c_name", "price_rank"}},
				},
				{
					Kind:  KindFrom,
					Attrs: map[string]string{"Relation Name": "customer"},
					Keys:  map[string][]string{},
				},
			},
		},
		{
			name: "modify table update",
			input: `{"Plan": {
				"Node Type": "ModifyTable", "Operation": "Update", "Relation Name": "customer",
				"Actual Total Time": 9.1,
				"Plans": [{"Node Type": "Seq Scan", "Relation Name": "customer",
					"Filter": "(c_mktsegment = 'FURNITURE')"}]}}`,
			want: StageSequence{
				{
					Kind: KindUpdate,
					Attrs: map[string]string{
						"Relation Name":     "customer",
						"Actual Total Time": "9.1",
					},
					Keys: map[string][]string{},
				},
				{
					Kind: KindFrom,
					Attrs: map[string]string{
						"Relation Name": "customer",
						"Filter":        "(c_mktsegment = 'FURNITURE')",
					},
					Keys: map[string][]string{},
				},
			},
		},
		{
			name: "only unclassified nodes yields empty sequence",
			input: `{"Plan": {
				"Node Type": "Gather",
				"Plans": [{"Node Type": "Materialize"}, {"Node Type": "Hash"}]}}`,
			want: nil,
		},
		{
			name: "missing total time is not an error",
			input: `{"Plan": {
				"Node Type": "Seq Scan", "Relation Name": "customer"}}`,
			want: StageSequence{
				{
					Kind:  KindFrom,
					Attrs: map[string]string{"Relation Name": "customer"},
					Keys:  map[string][]string{},
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Flatten(mustExtract(t, tt.input))
			if diff := cmp.Diff(got, tt.want); diff != "" {
				t.Errorf("Flatten() mismatch (-got +want):\n%s", diff)
			}
		})
	}
}

func TestFlattenModifyTableInsertIsDropped(t *testing.T) {
	plan := mustExtract(t, `{"Plan": {
		"Node Type": "ModifyTable", "Operation": "Insert", "Relation Name": "customer",
		"Plans": [{"Node Type": "Seq Scan", "Relation Name": "staging"}]}}`)

	got := Flatten(plan)
	if len(got) != 1 || got[0].Kind != KindFrom {
		t.Fatalf("unexpected sequence: %v", got)
	}
}

func TestFlattenBreadthFirstOrder(t *testing.T) {
	// A join's sources must come after the join, level by level.
	plan := mustExtract(t, `{"Plan": {
		"Node Type": "Sort", "Sort Key": ["c_name"],
		"Plans": [{
			"Node Type": "Hash Join", "Join Type": "Inner",
			"Hash Cond": "(c_custkey = o_custkey)",
			"Plans": [
				{"Node Type": "Seq Scan", "Relation Name": "customer"},
				{"Node Type": "Hash", "Plans": [
					{"Node Type": "Seq Scan", "Relation Name": "orders"}]}]}]}}`)

	want := []StageKind{KindOrder, KindJoin, KindFrom, KindFrom}
	if diff := cmp.Diff(kinds(Flatten(plan)), want); diff != "" {
		t.Errorf("stage order mismatch (-got +want):\n%s", diff)
	}
}
