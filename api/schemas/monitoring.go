// api/schemas/monitoring.go
package schemas

// MonitoringData is the mutable accumulator for one supervised run. It only
// grows while the run is active: the event logs are append-only and the
// counters are monotonic non-decreasing. Once the run finishes it is frozen
// into the final report and discarded.
type MonitoringData struct {
	Cycles         int              `json:"cycles"`
	MonstersKilled int              `json:"monsters_killed"`
	CombatEvents   []CombatEvent    `json:"combat_events"`
	HpChanges      []HpChange       `json:"hp_changes"`
	Errors         []ErrorRecord    `json:"errors"`
	Interventions  []Intervention   `json:"interventions"`
	Decisions      []DecisionRecord `json:"llm_decisions"`
}

// NewMonitoringData returns an empty accumulator with non-nil logs so the
// serialized report always carries arrays rather than nulls.
func NewMonitoringData() *MonitoringData {
	return &MonitoringData{
		CombatEvents:  []CombatEvent{},
		HpChanges:     []HpChange{},
		Errors:        []ErrorRecord{},
		Interventions: []Intervention{},
		Decisions:     []DecisionRecord{},
	}
}

// HasError reports whether an error with the exact message text has already
// been recorded. Dedup is by verbatim string equality.
func (m *MonitoringData) HasError(message string) bool {
	for _, e := range m.Errors {
		if e.Message == message {
			return true
		}
	}
	return false
}

// CombatEvent is recorded on every poll while the character is in combat,
// not only on combat transitions.
type CombatEvent struct {
	Time      int     `json:"time"`
	Target    string  `json:"target"`
	HP        int     `json:"hp"`
	HPPercent float64 `json:"hpPercent"`
}

// HpChange records an observed hit-point delta between two polls.
type HpChange struct {
	Time    int     `json:"time"`
	From    int     `json:"from"`
	To      int     `json:"to"`
	Percent float64 `json:"percent"`
}

// ErrorRecord is one keyword-matched line from the game output.
type ErrorRecord struct {
	Time    int    `json:"time"`
	Message string `json:"message"`
}

// Intervention records an oracle-directed corrective action, or an
// oracle-issued abort.
type Intervention struct {
	Time     int       `json:"time"`
	Reason   string    `json:"reason"`
	Action   string    `json:"action"`
	Commands []string  `json:"commands,omitempty"`
	Details  *Decision `json:"details,omitempty"`
}

// Intervention reason tags.
const (
	ReasonOracleAbort        = "ORACLE_ABORT"
	ReasonOracleIntervention = "ORACLE_INTERVENTION"
)
