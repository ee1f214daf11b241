package oracle

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/devbot920-ux/DoorTelnet/api/schemas"
)

// -- Mocks --

type MockLLMClient struct {
	mock.Mock
}

func (m *MockLLMClient) Generate(ctx context.Context, req schemas.GenerationRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
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

// -- Test Setup --

func setupOracle(t *testing.T) (*Oracle, *MockLLMClient, *MockGameBridge, *observer.ObservedLogs) {
	t.Helper()
	loggerCore, observedLogs := observer.New(zap.DebugLevel)
	logger := zap.New(loggerCore)

	llm := new(MockLLMClient)
	gameBridge := new(MockGameBridge)
	archiver := NewArchiver(t.TempDir(), false, logger)

	o := New(llm, gameBridge, archiver, "", logger)
	return o, llm, gameBridge, observedLogs
}

func testSnapshot() schemas.Snapshot {
	return schemas.Snapshot{
		Character: schemas.Character{Name: "Tester", HP: 90, HPPercent: 90},
		Location:  schemas.Location{Name: "Arena", Monsters: []string{"goblin"}},
		Combat:    schemas.Combat{InCombat: true, TargetedMonster: "goblin"},
	}
}

// -- Decide --

func TestDecide_Continue(t *testing.T) {
	o, llm, _, _ := setupOracle(t)

	llm.On("Generate", mock.Anything, mock.MatchedBy(func(req schemas.GenerationRequest) bool {
		return req.Tier == schemas.TierFast &&
			strings.Contains(req.UserPrompt, "TIME: 30s elapsed of 60s total")
	})).Return(`{"action": "continue", "reasoning": "all good", "assessment": "nominal"}`, nil).Once()

	decision := o.Decide(context.Background(), testSnapshot(), []string{"You strike the goblin."}, schemas.NewMonitoringData(), 30, 60)

	assert.Equal(t, schemas.DecisionContinue, decision.Action)
	assert.Equal(t, "all good", decision.Reasoning)
	llm.AssertExpectations(t)
}

func TestDecide_InterveneWithFencedJSON(t *testing.T) {
	o, llm, _, _ := setupOracle(t)

	response := "```json\n{\"action\": \"intervene\", \"reasoning\": \"hp low\", \"commands\": [\"stop\"], \"wait_for_result\": 5}\n```"
	llm.On("Generate", mock.Anything, mock.Anything).Return(response, nil).Once()

	decision := o.Decide(context.Background(), testSnapshot(), nil, schemas.NewMonitoringData(), 10, 60)

	assert.Equal(t, schemas.DecisionIntervene, decision.Action)
	assert.Equal(t, []string{"stop"}, decision.Commands)
	assert.Equal(t, 5, decision.WaitForResult)
}

func TestDecide_LLMFailureDefaultsToContinue(t *testing.T) {
	o, llm, _, observedLogs := setupOracle(t)

	llm.On("Generate", mock.Anything, mock.Anything).Return("", errors.New("connection refused")).Once()

	decision := o.Decide(context.Background(), testSnapshot(), nil, schemas.NewMonitoringData(), 10, 60)

	assert.Equal(t, schemas.DecisionContinue, decision.Action)
	assert.Contains(t, decision.Reasoning, "connection refused")
	assert.Equal(t, "LLM consultation failed", decision.Assessment)

	warnLogs := observedLogs.FilterLevelExact(zap.WarnLevel)
	require.Equal(t, 1, warnLogs.Len())
	assert.Equal(t, "Monitoring consultation failed", warnLogs.All()[0].Message)
}

func TestDecide_MalformedResponseDefaultsToContinue(t *testing.T) {
	o, llm, _, _ := setupOracle(t)

	llm.On("Generate", mock.Anything, mock.Anything).Return("I think everything is fine!", nil).Once()

	decision := o.Decide(context.Background(), testSnapshot(), nil, schemas.NewMonitoringData(), 10, 60)

	assert.Equal(t, schemas.DecisionContinue, decision.Action)
	assert.Contains(t, decision.Reasoning, "LLM error")
}

func TestDecide_PromptIncludesStatistics(t *testing.T) {
	o, llm, _, _ := setupOracle(t)

	data := schemas.NewMonitoringData()
	data.Cycles = 4
	data.MonstersKilled = 2
	data.Errors = append(data.Errors, schemas.ErrorRecord{Time: 5, Message: "You can't afford that."})

	var captured schemas.GenerationRequest
	llm.On("Generate", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			captured = args.Get(1).(schemas.GenerationRequest)
		}).
		Return(`{"action": "continue"}`, nil).Once()

	o.Decide(context.Background(), testSnapshot(), nil, data, 20, 60)

	assert.Contains(t, captured.UserPrompt, "Gong cycles: 4")
	assert.Contains(t, captured.UserPrompt, "Monsters killed: 2")
	assert.Contains(t, captured.UserPrompt, "You can't afford that.")
}

// -- Followup --

func TestFollowup_Abort(t *testing.T) {
	o, llm, _, _ := setupOracle(t)

	llm.On("Generate", mock.Anything, mock.MatchedBy(func(req schemas.GenerationRequest) bool {
		return req.Tier == schemas.TierFast
	})).Return(`{"action": "abort", "reasoning": "hp still dropping", "assessment": "Intervention failed"}`, nil).Once()

	intervention := schemas.Intervention{Time: 30, Reason: schemas.ReasonOracleIntervention, Commands: []string{"stop"}}
	decision := o.Followup(context.Background(), intervention, testSnapshot(), []string{"You are badly hurt."}, 35)

	assert.Equal(t, schemas.DecisionAbort, decision.Action)
	assert.Equal(t, "Intervention failed", decision.Assessment)
}

func TestFollowup_LLMFailureDefaultsToContinue(t *testing.T) {
	o, llm, _, _ := setupOracle(t)

	llm.On("Generate", mock.Anything, mock.Anything).Return("", errors.New("timeout")).Once()

	decision := o.Followup(context.Background(), schemas.Intervention{}, testSnapshot(), nil, 35)

	assert.Equal(t, schemas.DecisionContinue, decision.Action)
	assert.Equal(t, "Unable to assess intervention results", decision.Assessment)
}

// -- VerifyStep --

func TestVerifyStep_Passed(t *testing.T) {
	o, llm, gameBridge, _ := setupOracle(t)

	gameBridge.On("GetRecentOutput", mock.Anything, 15).
		Return([]string{"AutoGong enabled."}).Once()
	llm.On("Generate", mock.Anything, mock.MatchedBy(func(req schemas.GenerationRequest) bool {
		return req.Tier == schemas.TierFast && strings.Contains(req.UserPrompt, "AutoGong enabled.")
	})).Return(`{"passed": true, "analysis": "output confirms it", "game_evidence": "AutoGong enabled."}`, nil).Once()

	verification := o.VerifyStep(context.Background(), "set_automation",
		map[string]interface{}{"feature": "autogong", "enabled": true},
		schemas.RawResult(`{"success": true}`), "AutoGong enabled")

	assert.True(t, verification.Passed)
	assert.Equal(t, "AutoGong enabled.", verification.GameEvidence)
	gameBridge.AssertExpectations(t)
}

func TestVerifyStep_LLMFailureFails(t *testing.T) {
	o, llm, gameBridge, _ := setupOracle(t)

	gameBridge.On("GetRecentOutput", mock.Anything, 15).Return(nil).Once()
	llm.On("Generate", mock.Anything, mock.Anything).Return("", errors.New("model offline")).Once()

	verification := o.VerifyStep(context.Background(), "send_command", nil, schemas.RawResult(`{}`), "anything")

	assert.False(t, verification.Passed)
	assert.Contains(t, verification.Analysis, "model offline")
	assert.Equal(t, "N/A", verification.GameEvidence)
}

// -- AnalyzeFailure --

func TestAnalyzeFailure_StripsMarkdownFence(t *testing.T) {
	o, llm, _, _ := setupOracle(t)

	llm.On("Generate", mock.Anything, mock.MatchedBy(func(req schemas.GenerationRequest) bool {
		return req.Tier == schemas.TierPowerful && strings.Contains(req.UserPrompt, "autogong stalled")
	})).Return("```markdown\n## Root Cause\nTimer race.\n```", nil).Once()

	analysis, err := o.AnalyzeFailure(context.Background(), "autogong stalled", map[string]int{"cycles": 3})

	require.NoError(t, err)
	assert.Equal(t, "## Root Cause\nTimer race.", analysis)
}

func TestAnalyzeFailure_PropagatesError(t *testing.T) {
	o, llm, _, _ := setupOracle(t)

	llm.On("Generate", mock.Anything, mock.Anything).Return("", errors.New("quota exceeded")).Once()

	_, err := o.AnalyzeFailure(context.Background(), "autogong stalled", nil)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failure analysis request failed")
}

// -- GeneratePlan --

func TestGeneratePlan_Success(t *testing.T) {
	o, llm, _, _ := setupOracle(t)

	planJSON := `{
		"test_name": "AutoGong Feature Test",
		"description": "continuous combat",
		"steps": [
			{"action": "observe_game_state", "params": {}, "expected": "state retrieved"},
			{"action": "set_automation", "params": {"feature": "autogong", "enabled": true}, "expected": "enabled", "wait_for": "AutoGong", "verify_output": true}
		]
	}`
	llm.On("Generate", mock.Anything, mock.Anything).Return(planJSON, nil).Once()

	plan, raw, err := o.GeneratePlan(context.Background(), "AutoGong", "verify continuous combat", testSnapshot(), nil)

	require.NoError(t, err)
	assert.Equal(t, planJSON, raw)
	assert.Equal(t, "AutoGong Feature Test", plan.TestName)
	require.Len(t, plan.Steps, 2)
	assert.Equal(t, "AutoGong", plan.Steps[1].WaitFor)
	assert.True(t, plan.Steps[1].VerifyOutput)
}

func TestGeneratePlan_UnparseableResponseKeepsRaw(t *testing.T) {
	o, llm, _, _ := setupOracle(t)

	rawResponse := "Sorry, I cannot produce a plan right now."
	llm.On("Generate", mock.Anything, mock.Anything).Return(rawResponse, nil).Once()

	plan, raw, err := o.GeneratePlan(context.Background(), "AutoGong", "instructions", testSnapshot(), nil)

	assert.Error(t, err)
	assert.Nil(t, plan)
	assert.Equal(t, rawResponse, raw)
}

func TestGenerateCustomPlan_IncludesUserPrompt(t *testing.T) {
	o, llm, _, _ := setupOracle(t)

	var captured schemas.GenerationRequest
	llm.On("Generate", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			captured = args.Get(1).(schemas.GenerationRequest)
		}).
		Return(`{"test_name": "Custom", "description": "d", "steps": []}`, nil).Once()

	_, _, err := o.GenerateCustomPlan(context.Background(), "Navigation", "walk to the arena and back", testSnapshot(), nil)

	require.NoError(t, err)
	assert.Contains(t, captured.UserPrompt, "USER'S CUSTOM TEST REQUEST:")
	assert.Contains(t, captured.UserPrompt, "walk to the arena and back")
}

// -- Archiver --

func TestArchiver_WritesPromptRecord(t *testing.T) {
	dir := t.TempDir()
	core, _ := observer.New(zap.DebugLevel)
	archiver := NewArchiver(dir, true, zap.New(core))

	archiver.Save("line one\nline two", "decision", "elapsed_10s")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasPrefix(entries[0].Name(), "prompt_monitor_decision_elapsed_10s_"))

	data, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)

	var record promptRecord
	require.NoError(t, json.Unmarshal(data, &record))
	assert.Equal(t, "monitor_decision", record.PromptType)
	assert.Equal(t, "elapsed_10s", record.ContextInfo)
	assert.Equal(t, "line one\nline two", record.PromptText)
	assert.Equal(t, len("line one\nline two"), record.PromptLength)
	assert.Equal(t, 2, record.LineCount)
}

func TestArchiver_DisabledWritesNothing(t *testing.T) {
	dir := t.TempDir()
	core, _ := observer.New(zap.DebugLevel)
	archiver := NewArchiver(dir, false, zap.New(core))

	archiver.Save("prompt", "decision", "")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "elapsed_10s", sanitizeFilename("elapsed_10s"))
	assert.Equal(t, "set_automation", sanitizeFilename("set automation"))
	assert.Equal(t, "a_b_c-d", sanitizeFilename("a/b:c-d"))
}
