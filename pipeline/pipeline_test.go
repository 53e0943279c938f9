package pipeline

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/pgpipeviz/pgpipeviz/sqlparse"
)

func mustParse(t *testing.T, sql string) *sqlparse.Query {
	t.Helper()
	q, err := sqlparse.Parse(sql)
	if err != nil {
		t.Fatal(err)
	}
	return q
}

func TestTransformSelectLimit(t *testing.T) {
	plan := mustExtract(t, `[{"Plan": {
		"Node Type": "Limit", "Actual Total Time": 0.55, "Plan Rows": 100,
		"Plans": [{
			"Node Type": "Index Only Scan", "Index Name": "cust_pkey",
			"Relation Name": "customer", "Scan Direction": "Forward",
			"Actual Total Time": 1.205}]},
		"Execution Time": 1.755}]`)

	got, err := Transform(plan, mustParse(t, "SELECT * FROM customer LIMIT 100"))
	if err != nil {
		t.Fatal(err)
	}

	want := "▸ FROM customer  Total Time: 1.205\n▸ LIMIT 100  Total Time: 0.55"
	if diff := cmp.Diff(got.Text, want); diff != "" {
		t.Errorf("text mismatch (-got +want):\n%s", diff)
	}
	if diff := cmp.Diff(kinds(got.Stages), []StageKind{KindLimit, KindFrom}); diff != "" {
		t.Errorf("stage kinds mismatch (-got +want):\n%s", diff)
	}
}

func TestTransformAggregateQuery(t *testing.T) {
	// TPC-H Q13 shape: a grouped count over a counted left join.
	plan := mustExtract(t, `[{"Plan": {
		"Node Type": "Sort", "Actual Total Time": 89.7,
		"Sort Key": ["count(*) DESC", "c_count DESC"],
		"Plans": [{
			"Node Type": "Aggregate", "Strategy": "Hashed",
			"Group Key": ["c_count"], "Actual Total Time": 89.3,
			"Plans": [{
				"Node Type": "Aggregate", "Strategy": "Hashed",
				"Group Key": ["c_custkey"], "Actual Total Time": 84.33,
				"Plans": [{
					"Node Type": "Hash Join", "Join Type": "Left",
					"Hash Cond": "(c_custkey = o_custkey)",
					"Filter": "(o_comment !~~ '%special%requests%'::text)",
					"Actual Total Time": 51.889,
					"Plans": [
						{"Node Type": "Seq Scan", "Relation Name": "customer", "Actual Total Time": 10.918},
						{"Node Type": "Seq Scan", "Relation Name": "orders", "Actual Total Time": 28.708}
					]}]}]}]},
		"Execution Time": 90.1}]`)

	query := mustParse(t, `SELECT c_count, count(*) AS custdist
		FROM (SELECT c_custkey, count(o_orderkey)
		      FROM customer LEFT OUTER JOIN orders
		        ON c_custkey = o_custkey AND o_comment NOT LIKE '%special%requests%'
		      GROUP BY c_custkey) AS c_orders (c_custkey, c_count)
		GROUP BY c_count
		ORDER BY custdist DESC, c_count DESC`)

	got, err := Transform(plan, query)
	if err != nil {
		t.Fatal(err)
	}

	want := "▸ FROM orders  Total Time: 28.708\n" +
		"▸ FROM customer  Total Time: 10.918\n" +
		"▸ Left JOIN ON (c_custkey = o_custkey) AND (o_comment NOT LIKE '%special%requests%'  Total Time: 51.889\n" +
		"▸ AGGREGATE count(o_orderkey) AS c_count GROUP BY c_custkey  Total Time: 84.33\n" +
		"▸ AGGREGATE count(*) AS custdist GROUP BY c_count  Total Time: 89.3\n" +
		"▸ ORDER BY custdist DESC,c_count DESC  Total Time: 89.7"
	if diff := cmp.Diff(got.Text, want); diff != "" {
		t.Errorf("text mismatch (-got +want):\n%s", diff)
	}
}

func TestTransformUpdate(t *testing.T) {
	plan := mustExtract(t, `[{"Plan": {
		"Node Type": "ModifyTable", "Operation": "Update",
		"Relation Name": "customer", "Actual Total Time": 4.2,
		"Plans": [{
			"Node Type": "Index Scan", "Index Name": "cust_pkey",
			"Relation Name": "customer", "Scan Direction": "Forward",
			"Index Cond": "(c_custkey = 42)", "Actual Total Time": 0.1}]},
		"Execution Time": 4.5}]`)

	query := mustParse(t, "UPDATE customer SET c_comment = 'Preferred' WHERE c_custkey = 42")

	got, err := Transform(plan, query)
	if err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff(kinds(got.Stages), []StageKind{KindSet, KindUpdate, KindWhere, KindFrom}); diff != "" {
		t.Fatalf("stage kinds mismatch (-got +want):\n%s", diff)
	}
	want := "▸ FROM customer  Total Time: 0.1\n" +
		"▸ WHERE (c_custkey = 42)\n" +
		"▸ UPDATE customer  Total Time: 4.2\n" +
		"▸ SET c_comment = 'Preferred'"
	if diff := cmp.Diff(got.Text, want); diff != "" {
		t.Errorf("text mismatch (-got +want):\n%s", diff)
	}
}

func TestTransformSetClauseMismatch(t *testing.T) {
	// An UPDATE plan paired with query text that has no SET clause is a
	// data inconsistency and must not produce partial output.
	plan := mustExtract(t, `[{"Plan": {
		"Node Type": "ModifyTable", "Operation": "Update",
		"Relation Name": "customer", "Plans": []}}]`)

	got, err := Transform(plan, mustParse(t, "SELECT 1"))
	var scErr *SetClauseError
	if !errors.As(err, &scErr) {
		t.Fatalf("expected *SetClauseError, got %v", err)
	}
	if got != nil {
		t.Errorf("partial result returned on fatal error: %+v", got)
	}
}

func TestTransformWithRendererToken(t *testing.T) {
	plan := mustExtract(t, `[{"Plan": {
		"Node Type": "Seq Scan", "Relation Name": "orders"}}]`)

	got, err := TransformWithRenderer(plan, mustParse(t, "SELECT * FROM orders"), &Renderer{PipeToken: "|>"})
	if err != nil {
		t.Fatal(err)
	}
	if want := "|> FROM orders"; got.Text != want {
		t.Errorf("unexpected text %q, want %q", got.Text, want)
	}
}
