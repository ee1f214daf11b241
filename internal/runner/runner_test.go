// internal/runner/runner_test.go
package runner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/devbot920-ux/DoorTelnet/api/schemas"
)

// instantClock makes step pacing free in tests.
type instantClock struct{ now time.Time }

func (c *instantClock) Now() time.Time { return c.now }

func (c *instantClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.now = c.now.Add(d)
	return nil
}

type MockGameBridge struct {
	mock.Mock
}

func (m *MockGameBridge) CallTool(ctx context.Context, method string, params map[string]interface{}) schemas.RawResult {
	args := m.Called(ctx, method, params)
	return args.Get(0).(schemas.RawResult)
}

func (m *MockGameBridge) ObserveState(ctx context.Context) schemas.Snapshot {
	args := m.Called(ctx)
	return args.Get(0).(schemas.Snapshot)
}

func (m *MockGameBridge) SendCommand(ctx context.Context, command string) schemas.RawResult {
	args := m.Called(ctx, command)
	return args.Get(0).(schemas.RawResult)
}

func (m *MockGameBridge) GetRecentOutput(ctx context.Context, count int) []string {
	args := m.Called(ctx, count)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]string)
}

func (m *MockGameBridge) SetAutomation(ctx context.Context, feature string, enabled bool) schemas.ToolResult {
	args := m.Called(ctx, feature, enabled)
	return args.Get(0).(schemas.ToolResult)
}

func (m *MockGameBridge) WaitForOutput(ctx context.Context, pattern string, timeout time.Duration) schemas.WaitResult {
	args := m.Called(ctx, pattern, timeout)
	return args.Get(0).(schemas.WaitResult)
}

func (m *MockGameBridge) NavigateTo(ctx context.Context, destination string) schemas.RawResult {
	args := m.Called(ctx, destination)
	return args.Get(0).(schemas.RawResult)
}

type MockOracle struct {
	mock.Mock
}

func (m *MockOracle) GeneratePlan(ctx context.Context, feature, instructions string, state schemas.Snapshot, recentOutput []string) (*schemas.TestPlan, string, error) {
	args := m.Called(ctx, feature, instructions, state, recentOutput)
	plan, _ := args.Get(0).(*schemas.TestPlan)
	return plan, args.String(1), args.Error(2)
}

func (m *MockOracle) GenerateCustomPlan(ctx context.Context, feature, customPrompt string, state schemas.Snapshot, recentOutput []string) (*schemas.TestPlan, string, error) {
	args := m.Called(ctx, feature, customPrompt, state, recentOutput)
	plan, _ := args.Get(0).(*schemas.TestPlan)
	return plan, args.String(1), args.Error(2)
}

func (m *MockOracle) VerifyStep(ctx context.Context, action string, params map[string]interface{}, result schemas.RawResult, expected string) schemas.Verification {
	args := m.Called(ctx, action, params, result, expected)
	return args.Get(0).(schemas.Verification)
}

func setupRunner(t *testing.T) (*Runner, *MockGameBridge, *MockOracle) {
	t.Helper()
	bridge := new(MockGameBridge)
	orc := new(MockOracle)
	r := New(bridge, orc, &instantClock{now: time.Unix(1700000000, 0)}, zaptest.NewLogger(t))
	return r, bridge, orc
}

func TestRunner_TestFeature_ExecutesPlan(t *testing.T) {
	r, bridge, orc := setupRunner(t)

	plan := &schemas.TestPlan{
		TestName:    "AutoGong Feature Test",
		Description: "rings the gong and fights what shows up",
		Steps: []schemas.TestStep{
			{
				Action:   "set_automation",
				Params:   map[string]interface{}{"feature": "autogong", "enabled": true},
				Expected: "AutoGong enabled",
				WaitFor:  "AutoGong",
			},
			{
				Action:       "observe_game_state",
				Params:       map[string]interface{}{},
				Expected:     "in combat",
				VerifyOutput: true,
			},
		},
	}

	bridge.On("ObserveState", mock.Anything).Return(schemas.Snapshot{}).Once()
	bridge.On("GetRecentOutput", mock.Anything, 30).Return([]string{"The gong sounds."}).Once()
	orc.On("GeneratePlan", mock.Anything, "autogong", "ring the gong", mock.Anything, mock.Anything).
		Return(plan, "raw", nil).Once()

	bridge.On("CallTool", mock.Anything, "set_automation", plan.Steps[0].Params).
		Return(schemas.RawResult(`{"success": true}`)).Once()
	bridge.On("WaitForOutput", mock.Anything, "AutoGong", 5*time.Second).
		Return(schemas.WaitResult{Found: true, MatchingLine: "AutoGong: ON"}).Once()
	bridge.On("CallTool", mock.Anything, "observe_game_state", plan.Steps[1].Params).
		Return(schemas.RawResult(`{"combat": {"inCombat": true}}`)).Once()
	orc.On("VerifyStep", mock.Anything, "observe_game_state", plan.Steps[1].Params, mock.Anything, "in combat").
		Return(schemas.Verification{Passed: true, Analysis: "combat is active"}).Once()

	report := r.TestFeature(context.Background(), "autogong", "ring the gong")

	assert.NotEmpty(t, report.RunID)
	assert.True(t, report.OverallPass)
	assert.Equal(t, plan, report.Plan)
	assert.Empty(t, report.Error)
	require.Len(t, report.Results, 2)
	assert.True(t, report.Results[0].Passed)
	assert.Nil(t, report.Results[0].Verification)
	require.NotNil(t, report.Results[1].Verification)
	assert.Equal(t, "combat is active", report.Results[1].Verification.Analysis)
	bridge.AssertExpectations(t)
	orc.AssertExpectations(t)
}

func TestRunner_TestFeature_PlanGenerationFailure(t *testing.T) {
	r, bridge, orc := setupRunner(t)

	bridge.On("ObserveState", mock.Anything).Return(schemas.Snapshot{}).Once()
	bridge.On("GetRecentOutput", mock.Anything, 30).Return(nil).Once()
	orc.On("GeneratePlan", mock.Anything, "autogong", "instructions", mock.Anything, mock.Anything).
		Return((*schemas.TestPlan)(nil), "here is a plan: just wing it", errors.New("failed to parse test plan")).Once()

	report := r.TestFeature(context.Background(), "autogong", "instructions")

	assert.False(t, report.OverallPass)
	assert.Equal(t, "Failed to parse test plan", report.Error)
	assert.Equal(t, "here is a plan: just wing it", report.RawResponse)
	assert.Empty(t, report.Results)
	bridge.AssertNotCalled(t, "CallTool", mock.Anything, mock.Anything, mock.Anything)
}

func TestRunner_TestFeature_FailedVerificationFailsRun(t *testing.T) {
	r, bridge, orc := setupRunner(t)

	plan := &schemas.TestPlan{
		TestName: "shield check",
		Steps: []schemas.TestStep{
			{Action: "observe_game_state", Params: map[string]interface{}{}, Expected: "shield up", VerifyOutput: true},
			{Action: "send_command", Params: map[string]interface{}{"command": ""}, Expected: "status shown"},
		},
	}

	bridge.On("ObserveState", mock.Anything).Return(schemas.Snapshot{}).Once()
	bridge.On("GetRecentOutput", mock.Anything, 30).Return(nil).Once()
	orc.On("GeneratePlan", mock.Anything, "autoshield", "check shield", mock.Anything, mock.Anything).
		Return(plan, "raw", nil).Once()

	bridge.On("CallTool", mock.Anything, "observe_game_state", mock.Anything).
		Return(schemas.RawResult(`{"automation": {"autoShield": false}}`)).Once()
	orc.On("VerifyStep", mock.Anything, "observe_game_state", mock.Anything, mock.Anything, "shield up").
		Return(schemas.Verification{Passed: false, Analysis: "shield never raised"}).Once()
	bridge.On("CallTool", mock.Anything, "send_command", mock.Anything).
		Return(schemas.RawResult(`{"success": true}`)).Once()

	report := r.TestFeature(context.Background(), "autoshield", "check shield")

	assert.False(t, report.OverallPass, "one failed step fails the run")
	require.Len(t, report.Results, 2)
	assert.False(t, report.Results[0].Passed)
	assert.True(t, report.Results[1].Passed)
}

func TestRunner_TestWithCustomPrompt(t *testing.T) {
	r, bridge, orc := setupRunner(t)

	plan := &schemas.TestPlan{
		TestName: "custom run",
		Steps: []schemas.TestStep{
			{Action: "navigate_to", Params: map[string]interface{}{"destination": "gong"}, Expected: "arrived at gong"},
		},
	}

	bridge.On("ObserveState", mock.Anything).Return(schemas.Snapshot{}).Once()
	bridge.On("GetRecentOutput", mock.Anything, 20).Return([]string{"You are standing in town."}).Once()
	orc.On("GenerateCustomPlan", mock.Anything, "custom", "walk to the gong", mock.Anything, mock.Anything).
		Return(plan, "raw", nil).Once()
	bridge.On("CallTool", mock.Anything, "navigate_to", plan.Steps[0].Params).
		Return(schemas.RawResult(`{"arrived": true, "location": "arrived at gong"}`)).Once()

	report := r.TestWithCustomPrompt(context.Background(), "custom", "walk to the gong")

	assert.Equal(t, "walk to the gong", report.CustomPrompt)
	assert.True(t, report.OverallPass)
	require.Len(t, report.Results, 1)
	bridge.AssertExpectations(t)
}

func TestRunner_InterruptedRunFails(t *testing.T) {
	r, bridge, orc := setupRunner(t)

	plan := &schemas.TestPlan{
		TestName: "interrupted",
		Steps: []schemas.TestStep{
			{Action: "observe_game_state", Params: map[string]interface{}{}, Expected: ""},
			{Action: "observe_game_state", Params: map[string]interface{}{}, Expected: ""},
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	bridge.On("ObserveState", mock.Anything).Return(schemas.Snapshot{}).Once()
	bridge.On("GetRecentOutput", mock.Anything, 30).Return(nil).Once()
	orc.On("GeneratePlan", mock.Anything, "autogong", "x", mock.Anything, mock.Anything).
		Return(plan, "raw", nil).Once()
	bridge.On("CallTool", mock.Anything, "observe_game_state", mock.Anything).
		Return(schemas.RawResult(`{}`)).Once().
		Run(func(mock.Arguments) { cancel() })

	report := r.TestFeature(ctx, "autogong", "x")

	assert.False(t, report.OverallPass)
	require.Len(t, report.Results, 1, "remaining steps are skipped after cancellation")
	bridge.AssertNumberOfCalls(t, "CallTool", 1)
}

func TestCheckExpectation(t *testing.T) {
	tests := []struct {
		name     string
		result   string
		expected string
		want     bool
	}{
		{"explicit success flag", `{"success": true}`, "", true},
		{"success false falls through", `{"success": false}`, "", true},
		{"expected text match", `{"status": "AutoGong enabled"}`, "autogong ENABLED", true},
		{"error key fails", `{"error": "no session"}`, "", false},
		{"success flag beats error key", `{"success": true, "error": "stale"}`, "", true},
		{"expected match beats error key", `{"error": "target not found"}`, "not found", true},
		{"no signals passes", `{"lines": []}`, "something else", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := checkExpectation(schemas.RawResult(tt.result), tt.expected)
			assert.Equal(t, tt.want, got)
		})
	}
}
