// api/schemas/plan.go
package schemas

import "encoding/json"

// TestPlan is the step sequence the oracle generates for a single-shot
// feature test.
type TestPlan struct {
	TestName    string     `json:"test_name"`
	Description string     `json:"description"`
	Steps       []TestStep `json:"steps"`
}

// TestStep is one bridge tool invocation within a plan. WaitFor, when set,
// names a substring to wait for in the game output after the call.
// VerifyOutput requests an oracle verification of the actual result against
// Expected instead of the heuristic check.
type TestStep struct {
	Action       string                 `json:"action"`
	Params       map[string]interface{} `json:"params,omitempty"`
	Expected     string                 `json:"expected,omitempty"`
	WaitFor      string                 `json:"wait_for,omitempty"`
	VerifyOutput bool                   `json:"verify_output,omitempty"`
}

// Verification is the oracle's judgement of a single step's outcome.
type Verification struct {
	Passed       bool   `json:"passed"`
	Analysis     string `json:"analysis"`
	GameEvidence string `json:"game_evidence,omitempty"`
}

// StepResult pairs a plan step with its raw bridge result and verdict.
type StepResult struct {
	Step         TestStep        `json:"step"`
	Result       json.RawMessage `json:"result"`
	Verification *Verification   `json:"llm_verification,omitempty"`
	Passed       bool            `json:"passed"`
}

// FeatureReport is the result of a single-shot feature test. OverallPass is
// the logical AND over all step results. When the oracle's plan could not be
// parsed, Error and RawResponse are set and no steps are present.
type FeatureReport struct {
	RunID        string       `json:"run_id"`
	Feature      string       `json:"feature"`
	Plan         *TestPlan    `json:"test_plan,omitempty"`
	Results      []StepResult `json:"results,omitempty"`
	OverallPass  bool         `json:"overall_pass"`
	CustomPrompt string       `json:"custom_prompt,omitempty"`
	Analysis     string       `json:"llm_analysis,omitempty"`
	Error        string       `json:"error,omitempty"`
	RawResponse  string       `json:"llm_response,omitempty"`
}
