// api/schemas/decision.go
package schemas

// DecisionAction enumerates the actions the oracle may direct during a
// supervised run.
type DecisionAction string

const (
	DecisionContinue  DecisionAction = "continue"
	DecisionIntervene DecisionAction = "intervene"
	DecisionAbort     DecisionAction = "abort"
)

// Decision is the structured verdict returned by the oracle for one
// consultation. Commands and WaitForResult are only meaningful when Action
// is "intervene"; NextConcern only appears on follow-up assessments.
type Decision struct {
	Action        DecisionAction `json:"action"`
	Reasoning     string         `json:"reasoning"`
	Assessment    string         `json:"assessment,omitempty"`
	Commands      []string       `json:"commands,omitempty"`
	WaitForResult int            `json:"wait_for_result,omitempty"`
	NextConcern   string         `json:"next_concern,omitempty"`
}

// DecisionRecord captures one oracle consultation in the run log.
type DecisionRecord struct {
	Time     int      `json:"time"`
	Decision Decision `json:"decision"`
	// Type distinguishes the scheduled periodic check from the
	// post-intervention follow-up.
	Type DecisionType `json:"type"`
}

// DecisionType tags the consultation kind in DecisionRecord.
type DecisionType string

const (
	DecisionPeriodic DecisionType = "periodic"
	DecisionFollowup DecisionType = "followup"
)
