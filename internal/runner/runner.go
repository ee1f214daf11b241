// internal/runner/runner.go

// Package runner executes single-shot, plan-driven feature tests: the oracle
// generates a step plan from the live game state, the runner replays the
// steps against the bridge and records per-step verdicts.
package runner

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/devbot920-ux/DoorTelnet/api/schemas"
	"github.com/devbot920-ux/DoorTelnet/internal/monitor"
)

const (
	// stepPause spaces out bridge calls so the game loop can keep up.
	stepPause = 500 * time.Millisecond
	// waitTimeout bounds a step's wait_for pattern match.
	waitTimeout = 5 * time.Second
	// planOutputLines / customOutputLines size the recent-output window fed
	// into plan generation.
	planOutputLines   = 30
	customOutputLines = 20
)

// Oracle is the plan-generation and verification surface the runner uses.
type Oracle interface {
	GeneratePlan(ctx context.Context, feature, instructions string, state schemas.Snapshot, recentOutput []string) (*schemas.TestPlan, string, error)
	GenerateCustomPlan(ctx context.Context, feature, customPrompt string, state schemas.Snapshot, recentOutput []string) (*schemas.TestPlan, string, error)
	VerifyStep(ctx context.Context, action string, params map[string]interface{}, result schemas.RawResult, expected string) schemas.Verification
}

// Runner drives one feature test at a time against the bridge.
type Runner struct {
	bridge schemas.GameBridge
	oracle Oracle
	clock  monitor.Clock
	logger *zap.Logger
}

// New wires a runner from its collaborators. A nil clock selects wall time.
func New(bridge schemas.GameBridge, oracle Oracle, clock monitor.Clock, logger *zap.Logger) *Runner {
	if clock == nil {
		clock = monitor.NewClock()
	}
	return &Runner{
		bridge: bridge,
		oracle: oracle,
		clock:  clock,
		logger: logger.Named("runner"),
	}
}

// TestFeature generates and executes a test plan for the named feature.
// A plan the oracle could not produce yields an error report carrying the
// raw model response.
func (r *Runner) TestFeature(ctx context.Context, feature, instructions string) *schemas.FeatureReport {
	report := &schemas.FeatureReport{RunID: uuid.NewString(), Feature: feature, Results: []schemas.StepResult{}}

	state := r.bridge.ObserveState(ctx)
	recent := r.bridge.GetRecentOutput(ctx, planOutputLines)

	r.logger.Info("generating test plan", zap.String("run_id", report.RunID), zap.String("feature", feature))
	plan, raw, err := r.oracle.GeneratePlan(ctx, feature, instructions, state, recent)
	if err != nil {
		r.logger.Error("test plan generation failed", zap.String("feature", feature), zap.Error(err))
		report.Error = "Failed to parse test plan"
		report.RawResponse = raw
		return report
	}

	report.Plan = plan
	r.execute(ctx, plan, report)
	return report
}

// TestWithCustomPrompt is TestFeature with caller-supplied test directions
// instead of the built-in instruction set.
func (r *Runner) TestWithCustomPrompt(ctx context.Context, feature, customPrompt string) *schemas.FeatureReport {
	report := &schemas.FeatureReport{RunID: uuid.NewString(), Feature: feature, CustomPrompt: customPrompt, Results: []schemas.StepResult{}}

	state := r.bridge.ObserveState(ctx)
	recent := r.bridge.GetRecentOutput(ctx, customOutputLines)

	r.logger.Info("generating custom test plan", zap.String("run_id", report.RunID), zap.String("feature", feature))
	plan, raw, err := r.oracle.GenerateCustomPlan(ctx, feature, customPrompt, state, recent)
	if err != nil {
		r.logger.Error("custom test plan generation failed", zap.String("feature", feature), zap.Error(err))
		report.Error = "Failed to parse test plan"
		report.RawResponse = raw
		return report
	}

	report.Plan = plan
	r.execute(ctx, plan, report)
	return report
}

func (r *Runner) execute(ctx context.Context, plan *schemas.TestPlan, report *schemas.FeatureReport) {
	r.logger.Info("executing test plan",
		zap.String("test_name", plan.TestName),
		zap.Int("steps", len(plan.Steps)))

	overall := true
	for i, step := range plan.Steps {
		r.logger.Info("executing step",
			zap.Int("step", i+1),
			zap.String("action", step.Action),
			zap.Any("params", step.Params))

		result := r.bridge.CallTool(ctx, step.Action, step.Params)
		sr := schemas.StepResult{Step: step, Result: result}

		// The wait outcome is informational; a timeout alone does not fail
		// the step.
		if step.WaitFor != "" {
			wait := r.bridge.WaitForOutput(ctx, step.WaitFor, waitTimeout)
			if wait.Found {
				r.logger.Debug("pattern found", zap.String("pattern", step.WaitFor), zap.String("line", wait.MatchingLine))
			} else {
				r.logger.Debug("pattern not found before timeout", zap.String("pattern", step.WaitFor))
			}
		}

		if step.VerifyOutput {
			verification := r.oracle.VerifyStep(ctx, step.Action, step.Params, result, step.Expected)
			sr.Verification = &verification
			sr.Passed = verification.Passed
		} else {
			sr.Passed = checkExpectation(result, step.Expected)
		}

		r.logger.Info("step finished",
			zap.Int("step", i+1),
			zap.Bool("passed", sr.Passed),
			zap.String("expected", step.Expected))

		report.Results = append(report.Results, sr)
		overall = overall && sr.Passed

		if err := r.clock.Sleep(ctx, stepPause); err != nil {
			r.logger.Warn("test run interrupted", zap.Error(err))
			overall = false
			break
		}
	}
	report.OverallPass = overall
}

// checkExpectation is the non-LLM step verdict: an explicit success flag
// passes, the expected text appearing anywhere in the result passes, an
// error key fails, anything else passes.
func checkExpectation(result schemas.RawResult, expected string) bool {
	parsed := gjson.ParseBytes(result)
	if parsed.Get("success").Bool() {
		return true
	}
	if expected != "" && strings.Contains(strings.ToLower(string(result)), strings.ToLower(expected)) {
		return true
	}
	if parsed.Get("error").Exists() {
		return false
	}
	return true
}
