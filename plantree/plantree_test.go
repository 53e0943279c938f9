package plantree

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/pgpipeviz/pgpipeviz/queryplan"
)

func TestProcessPlan(t *testing.T) {
	root := &queryplan.PlanNode{
		NodeType: "Hash Join",
		Fields:   map[string]any{"Join Type": "Left", "Actual Total Time": 51.889},
		Plans: []*queryplan.PlanNode{
			{
				NodeType: "Seq Scan",
				Fields:   map[string]any{"Relation Name": "customer", "Actual Total Time": 10.918},
			},
			{
				NodeType: "Hash",
				Fields:   map[string]any{},
				Plans: []*queryplan.PlanNode{
					{
						NodeType: "Seq Scan",
						Fields:   map[string]any{"Relation Name": "orders", "Actual Total Time": 28.708},
					},
				},
			},
		},
	}

	rows, err := ProcessPlan(root)
	if err != nil {
		t.Fatal(err)
	}

	var titles []string
	for _, row := range rows {
		titles = append(titles, row.NodeText)
	}
	want := []string{
		"Hash Join (Left)",
		"Seq Scan on customer",
		"Hash",
		"Seq Scan on orders",
	}
	if diff := cmp.Diff(titles, want); diff != "" {
		t.Fatalf("node titles mismatch (-got +want):\n%s", diff)
	}

	if rows[0].TreePart != "" {
		t.Errorf("root row has branch art: %q", rows[0].TreePart)
	}
	for _, row := range rows[1:] {
		if !strings.Contains(row.TreePart, "+-") {
			t.Errorf("child row lacks branch art: %q", row.TreePart)
		}
	}
	if rows[0].TotalTime != "51.889" {
		t.Errorf("unexpected total time %q", rows[0].TotalTime)
	}
	if rows[2].TotalTime != "" {
		t.Errorf("hash node should have no total time, got %q", rows[2].TotalTime)
	}
}

func TestProcessPlanEmpty(t *testing.T) {
	if _, err := ProcessPlan(nil); err == nil {
		t.Error("expected an error for a nil plan")
	}
}

func TestRender(t *testing.T) {
	root := &queryplan.PlanNode{
		NodeType: "Limit",
		Fields:   map[string]any{"Actual Total Time": 0.55},
		Plans: []*queryplan.PlanNode{
			{
				NodeType: "Index Only Scan",
				Fields: map[string]any{
					"Relation Name":     "customer",
					"Index Name":        "cust_pkey",
					"Actual Total Time": 1.205,
				},
			},
		},
	}

	got, err := Render(root)
	if err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimRight(got, "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d:\n%s", len(lines), got)
	}
	if want := "Limit  (0.55 ms)"; lines[0] != want {
		t.Errorf("unexpected first line %q, want %q", lines[0], want)
	}
	if !strings.HasSuffix(lines[1], "Index Only Scan on customer (using cust_pkey)  (1.205 ms)") {
		t.Errorf("unexpected second line %q", lines[1])
	}
}

func TestNodeTitle(t *testing.T) {
	tests := []struct {
		name string
		node *queryplan.PlanNode
		want string
	}{
		{
			name: "scan with relation",
			node: &queryplan.PlanNode{NodeType: "Seq Scan", Fields: map[string]any{"Relation Name": "customer"}},
			want: "Seq Scan on customer",
		},
		{
			name: "index scan",
			node: &queryplan.PlanNode{NodeType: "Index Scan", Fields: map[string]any{
				"Relation Name": "customer", "Index Name": "cust_pkey",
			}},
			want: "Index Scan on customer (using cust_pkey)",
		},
		{
			name: "join",
			node: &queryplan.PlanNode{NodeType: "Nested Loop", Fields: map[string]any{"Join Type": "Inner"}},
			want: "Nested Loop (Inner)",
		},
		{
			name: "partial aggregate",
			node: &queryplan.PlanNode{NodeType: "Aggregate", Fields: map[string]any{"Partial Mode": "Partial"}},
			want: "Aggregate (Partial)",
		},
		{
			name: "simple aggregate hides its mode",
			node: &queryplan.PlanNode{NodeType: "Aggregate", Fields: map[string]any{"Partial Mode": "Simple"}},
			want: "Aggregate",
		},
		{
			name: "bare node",
			node: &queryplan.PlanNode{NodeType: "Materialize", Fields: map[string]any{}},
			want: "Materialize",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NodeTitle(tt.node); got != tt.want {
				t.Errorf("unexpected title %q, want %q", got, tt.want)
			}
		})
	}
}
