package stats

import (
	"fmt"
	"strconv"
	"strings"
)

// AnalyzeStats are the statement-level figures EXPLAIN ANALYZE reports
// next to the plan tree. Plain EXPLAIN leaves the actuals at zero.
type AnalyzeStats struct {
	PlanningTime  float64   `json:"Planning Time"`
	ExecutionTime float64   `json:"Execution Time"`
	Triggers      []Trigger `json:"Triggers"`
}

type Trigger struct {
	TriggerName string  `json:"Trigger Name"`
	Relation    string  `json:"Relation"`
	Time        float64 `json:"Time"`
	Calls       float64 `json:"Calls"`
}

func (s AnalyzeStats) String() string {
	var parts []string
	if s.PlanningTime != 0 {
		parts = append(parts, fmt.Sprintf("Planning Time: %s ms", formatMillis(s.PlanningTime)))
	}
	if s.ExecutionTime != 0 {
		parts = append(parts, fmt.Sprintf("Execution Time: %s ms", formatMillis(s.ExecutionTime)))
	}
	if n := len(s.Triggers); n > 0 {
		parts = append(parts, fmt.Sprintf("Triggers: %d", n))
	}
	return strings.Join(parts, "\n")
}

func formatMillis(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
