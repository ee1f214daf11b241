// internal/oracle/oracle.go

// Package oracle is the reasoning layer of the tester. It frames game
// telemetry as prompts, sends them through the LLM router, and decodes the
// model's judgements into typed decisions, verifications, and analyses.
package oracle

import (
	"context"
	"fmt"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/devbot920-ux/DoorTelnet/api/schemas"
	"github.com/devbot920-ux/DoorTelnet/internal/llmutil"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Oracle consults the model for monitoring decisions, intervention
// assessments, step verifications, plan generation, and failure analysis.
//
// Monitoring consultations degrade gracefully: an unreachable model or a
// malformed response becomes a default "continue" decision carrying the error
// text, never a crashed run.
type Oracle struct {
	llm         schemas.LLMClient
	bridge      schemas.GameBridge
	archiver    *Archiver
	logger      *zap.Logger
	gameContext string
}

// New creates an Oracle. gameContext is optional background lore injected
// into planning and verification prompts; pass "" when none is available.
func New(llm schemas.LLMClient, bridge schemas.GameBridge, archiver *Archiver, gameContext string, logger *zap.Logger) *Oracle {
	return &Oracle{
		llm:         llm,
		bridge:      bridge,
		archiver:    archiver,
		logger:      logger.Named("oracle"),
		gameContext: gameContext,
	}
}

// continueDecision is the degraded default when a consultation fails.
func continueDecision(err error, assessment string) schemas.Decision {
	return schemas.Decision{
		Action:     schemas.DecisionContinue,
		Reasoning:  fmt.Sprintf("LLM error: %v, continuing cautiously", err),
		Assessment: assessment,
	}
}

// Decide runs a periodic monitoring consultation and returns the model's
// decision. Any failure along the way degrades to a continue decision.
func (o *Oracle) Decide(ctx context.Context, state schemas.Snapshot, recentOutput []string, data *schemas.MonitoringData, elapsed, duration int) schemas.Decision {
	prompt := buildDecisionPrompt(state, recentOutput, data, elapsed, duration)
	o.archiver.Save(prompt, "decision", fmt.Sprintf("elapsed_%ds", elapsed))

	response, err := o.llm.Generate(ctx, schemas.GenerationRequest{
		SystemPrompt: decisionSystemPrompt,
		UserPrompt:   prompt,
		Tier:         schemas.TierFast,
		Options:      schemas.GenerationOptions{ForceJSONFormat: true},
	})
	if err != nil {
		o.logger.Warn("Monitoring consultation failed", zap.Error(err))
		return continueDecision(err, "LLM consultation failed")
	}

	decision, err := llmutil.ParseJSONResponse[schemas.Decision](response)
	if err != nil {
		o.logger.Warn("Failed to parse monitoring decision", zap.Error(err))
		return continueDecision(err, "LLM consultation failed")
	}

	return *decision
}

// Followup asks the model whether its intervention worked. Failures degrade
// to a continue decision, so a broken followup never aborts a run on its own.
func (o *Oracle) Followup(ctx context.Context, intervention schemas.Intervention, postState schemas.Snapshot, postOutput []string, elapsed int) schemas.Decision {
	prompt := buildFollowupPrompt(intervention, postState, postOutput, elapsed)
	o.archiver.Save(prompt, "followup", fmt.Sprintf("elapsed_%ds", elapsed))

	response, err := o.llm.Generate(ctx, schemas.GenerationRequest{
		SystemPrompt: followupSystemPrompt,
		UserPrompt:   prompt,
		Tier:         schemas.TierFast,
		Options:      schemas.GenerationOptions{ForceJSONFormat: true},
	})
	if err != nil {
		o.logger.Warn("Intervention followup failed", zap.Error(err))
		return continueDecision(err, "Unable to assess intervention results")
	}

	decision, err := llmutil.ParseJSONResponse[schemas.Decision](response)
	if err != nil {
		o.logger.Warn("Failed to parse followup decision", zap.Error(err))
		return continueDecision(err, "Unable to assess intervention results")
	}

	return *decision
}

// VerifyStep asks the model whether a test step's actual result matches its
// expectation, with recent game output as evidence. The fast tier handles
// these; a failed consultation counts as a failed verification.
func (o *Oracle) VerifyStep(ctx context.Context, action string, params map[string]interface{}, result schemas.RawResult, expected string) schemas.Verification {
	gameOutput := o.bridge.GetRecentOutput(ctx, 15)

	prompt := buildVerificationPrompt(action, params, result, expected, gameOutput, o.gameContext != "")
	o.archiver.Save(prompt, "verification", action)

	response, err := o.llm.Generate(ctx, schemas.GenerationRequest{
		SystemPrompt: verificationSystemPrompt,
		UserPrompt:   prompt,
		Tier:         schemas.TierFast,
		Options:      schemas.GenerationOptions{ForceJSONFormat: true},
	})
	if err != nil {
		o.logger.Warn("Step verification failed", zap.String("action", action), zap.Error(err))
		return schemas.Verification{
			Passed:       false,
			Analysis:     fmt.Sprintf("LLM verification failed: %v", err),
			GameEvidence: "N/A",
		}
	}

	verification, err := llmutil.ParseJSONResponse[schemas.Verification](response)
	if err != nil {
		o.logger.Warn("Failed to parse verification", zap.String("action", action), zap.Error(err))
		return schemas.Verification{
			Passed:       false,
			Analysis:     fmt.Sprintf("LLM verification failed: %v", err),
			GameEvidence: "N/A",
		}
	}

	return *verification
}

// AnalyzeFailure asks the model for a root cause analysis of a failed run.
// The result is markdown. Unlike monitoring calls, analysis failures are
// returned to the caller; the report writer decides what to do without one.
func (o *Oracle) AnalyzeFailure(ctx context.Context, bugDescription string, contextData interface{}) (string, error) {
	prompt := buildAnalysisPrompt(bugDescription, contextData)

	contextInfo := bugDescription
	if len(contextInfo) > 30 {
		contextInfo = contextInfo[:30]
	}
	o.archiver.Save(prompt, "bug_analysis", contextInfo)

	response, err := o.llm.Generate(ctx, schemas.GenerationRequest{
		SystemPrompt: analysisSystemPrompt,
		UserPrompt:   prompt,
		Tier:         schemas.TierPowerful,
	})
	if err != nil {
		return "", fmt.Errorf("failure analysis request failed: %w", err)
	}

	return llmutil.CleanTextOutput(response), nil
}

// GeneratePlan asks the model for a test plan for a named feature. The raw
// model response is returned alongside the plan so an unparseable response
// can be preserved in the report.
func (o *Oracle) GeneratePlan(ctx context.Context, feature, instructions string, state schemas.Snapshot, recentOutput []string) (*schemas.TestPlan, string, error) {
	prompt := buildPlanPrompt(feature, instructions, state, recentOutput, o.gameContext)
	o.archiver.Save(prompt, "plan", feature)

	return o.requestPlan(ctx, prompt)
}

// GenerateCustomPlan asks the model for a test plan driven by a user-authored
// prompt rather than built-in feature instructions.
func (o *Oracle) GenerateCustomPlan(ctx context.Context, feature, customPrompt string, state schemas.Snapshot, recentOutput []string) (*schemas.TestPlan, string, error) {
	prompt := buildCustomPlanPrompt(feature, customPrompt, state, recentOutput, o.gameContext)
	o.archiver.Save(prompt, "plan", feature)

	return o.requestPlan(ctx, prompt)
}

func (o *Oracle) requestPlan(ctx context.Context, prompt string) (*schemas.TestPlan, string, error) {
	response, err := o.llm.Generate(ctx, schemas.GenerationRequest{
		SystemPrompt: planSystemPrompt,
		UserPrompt:   prompt,
		Tier:         schemas.TierPowerful,
		Options:      schemas.GenerationOptions{ForceJSONFormat: true},
	})
	if err != nil {
		return nil, "", fmt.Errorf("plan generation request failed: %w", err)
	}

	plan, err := llmutil.ParseJSONResponse[schemas.TestPlan](response)
	if err != nil {
		o.logger.Warn("Failed to parse test plan", zap.Error(err))
		return nil, response, fmt.Errorf("failed to parse test plan: %w", err)
	}

	return plan, response, nil
}
