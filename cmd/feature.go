// -- cmd/feature.go --
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/devbot920-ux/DoorTelnet/internal/observability"
	"github.com/devbot920-ux/DoorTelnet/internal/runner"
)

// autoGongInstructions is the built-in test brief for the AutoGong feature.
const autoGongInstructions = `Test the AutoGong automation feature (CONTINUOUS COMBAT MODE):

CRITICAL UNDERSTANDING:
- AutoGong implements its own combat logic using shared attack methods
- Maintains CONTINUOUS COMBAT - no idle time when AT/AC = 0

Expected Behavior:
1. Rings gong ("r g") immediately when AT/AC = 0 (~1.5s interval)
2. Attacks all aggressive monsters continuously
3. Loots gold/silver after kills
4. Immediately rings gong again (no resting/idle periods)
5. Repeats until HP < threshold or out of gold

Test Steps:
1. Verify current game state (character, location, stats)
2. Check current automation state (should show autoGong: false initially)
3. Enable AutoGong using set_automation
4. Verify AutoGong is enabled (automation.autoGong should be true)
5. Verify AutoAttack is enabled (automation.autoAttack should be true)
6. Observe game output for gong activity ("r g" command)
7. Observe immediate monster attacks after gong
8. Verify NO extended idle periods (AT/AC = 0 for > 2 seconds)
9. Monitor several gong cycles for consistency
10. Disable AutoGong
11. Verify AutoGong is disabled
12. Verify AutoAttack is disabled

Key Verification Points:
- automation.autoGong changes to true
- automation.autoAttack changes to true
- Gong rings every ~1.5 seconds when timers ready
- Continuous combat maintained (no idle time)
- Immediate attack response to summoned monsters
- System respects HP thresholds`

// builtinInstructions maps feature names to their canned test briefs.
var builtinInstructions = map[string]string{
	"AutoGong": autoGongInstructions,
	"autogong": autoGongInstructions,
}

// newFeatureCmd creates and configures the `feature` command.
func newFeatureCmd() *cobra.Command {
	featureCmd := &cobra.Command{
		Use:   "feature [name]",
		Short: "Generates and executes an LLM test plan for a feature",
		Long: `Asks the LLM to produce a step-by-step test plan for the named feature
from the live game state, then replays the steps against the game and
records per-step verdicts. AutoGong ships with built-in test instructions;
other features need --instructions.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()
			feature := args[0]

			instructions, _ := cmd.Flags().GetString("instructions")
			if instructions == "" {
				instructions = builtinInstructions[feature]
			}
			if instructions == "" {
				return fmt.Errorf("no built-in instructions for feature %q, provide --instructions", feature)
			}

			c, err := buildComponents(appConfig, logger)
			if err != nil {
				return err
			}

			logger.Info("Running feature test", zap.String("feature", feature))
			r := runner.New(c.bridge, c.oracle, nil, logger)
			report := r.TestFeature(ctx, feature, instructions)

			outputPath, _ := cmd.Flags().GetString("output")
			if _, err := c.writer.SaveResult(feature, report, outputPath); err != nil {
				return err
			}

			if report.Error != "" {
				return fmt.Errorf("feature test did not run: %s", report.Error)
			}
			if !report.OverallPass {
				saveFailureAnalysis(cmd, c, feature, report)
				return fmt.Errorf("feature test failed: %s", feature)
			}
			logger.Info("Feature test passed", zap.String("feature", feature), zap.Int("steps", len(report.Results)))
			return nil
		},
	}

	featureCmd.Flags().String("instructions", "", "test instructions for the LLM (defaults to built-in brief where available)")
	featureCmd.Flags().StringP("output", "o", "", "output file path (default: auto-generated)")
	return featureCmd
}

// saveFailureAnalysis asks the LLM for a post-mortem of a failed plan run
// and writes it next to the result file. Best effort.
func saveFailureAnalysis(cmd *cobra.Command, c *components, feature string, report interface{}) {
	logger := observability.GetLogger()
	analysis, err := c.oracle.AnalyzeFailure(cmd.Context(), fmt.Sprintf("Test '%s' failed", feature), report)
	if err != nil {
		logger.Warn("Failure analysis unavailable", zap.Error(err))
		return
	}
	if _, err := c.writer.SaveAnalysis(feature, analysis); err != nil {
		logger.Warn("Could not save bug analysis", zap.Error(err))
	}
}
