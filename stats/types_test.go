package stats

import "testing"

func TestAnalyzeStatsString(t *testing.T) {
	tests := []struct {
		name  string
		stats AnalyzeStats
		want  string
	}{
		{
			name:  "planning and execution",
			stats: AnalyzeStats{PlanningTime: 0.062, ExecutionTime: 1.755},
			want:  "Planning Time: 0.062 ms\nExecution Time: 1.755 ms",
		},
		{
			name:  "plain explain has no actuals",
			stats: AnalyzeStats{},
			want:  "",
		},
		{
			name: "triggers counted",
			stats: AnalyzeStats{
				ExecutionTime: 4.5,
				Triggers:      []Trigger{{TriggerName: "audit", Calls: 3}},
			},
			want: "Execution Time: 4.5 ms\nTriggers: 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.stats.String(); got != tt.want {
				t.Errorf("unexpected string %q, want %q", got, tt.want)
			}
		})
	}
}
