// api/schemas/report.go
package schemas

// RunState is the terminal state of a supervised run's loop.
type RunState string

const (
	StateRunning   RunState = "RUNNING"
	StateAborted   RunState = "ABORTED"
	StateCompleted RunState = "COMPLETED"
)

// ExtendedReport is the frozen result of one supervised monitoring run.
// Passed is true iff the run recorded zero interventions and zero issues;
// the run state (completed vs aborted) does not factor into the verdict.
type ExtendedReport struct {
	RunID         string          `json:"run_id"`
	Test          string          `json:"test"`
	Feature       string          `json:"feature"`
	State         RunState        `json:"state"`
	Duration      int             `json:"duration"`
	Monitoring    *MonitoringData `json:"monitoring_data"`
	Issues        []string        `json:"issues"`
	Passed        bool            `json:"passed"`
	FailureReason string          `json:"failure_reason,omitempty"`
	Stats         RunStats        `json:"stats"`
	Analysis      string          `json:"llm_analysis,omitempty"`

	// SetupError is set when the precondition bridge call failed and the
	// monitoring loop never started.
	SetupError string `json:"error,omitempty"`
}

// RunStats summarizes the accumulator counts for quick inspection.
type RunStats struct {
	Cycles        int `json:"cycles"`
	Kills         int `json:"kills"`
	CombatEvents  int `json:"combat_events"`
	HpChanges     int `json:"hp_changes"`
	Errors        int `json:"errors"`
	Decisions     int `json:"llm_decisions"`
	Interventions int `json:"interventions"`
}

// StatsFrom derives RunStats from a finished accumulator.
func StatsFrom(m *MonitoringData) RunStats {
	if m == nil {
		return RunStats{}
	}
	return RunStats{
		Cycles:        m.Cycles,
		Kills:         m.MonstersKilled,
		CombatEvents:  len(m.CombatEvents),
		HpChanges:     len(m.HpChanges),
		Errors:        len(m.Errors),
		Decisions:     len(m.Decisions),
		Interventions: len(m.Interventions),
	}
}
