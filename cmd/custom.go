// -- cmd/custom.go --
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/devbot920-ux/DoorTelnet/internal/observability"
	"github.com/devbot920-ux/DoorTelnet/internal/runner"
)

// newCustomCmd creates and configures the `custom` command.
func newCustomCmd() *cobra.Command {
	customCmd := &cobra.Command{
		Use:   "custom",
		Short: "Runs a plan-driven test from a free-form prompt",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			feature, _ := cmd.Flags().GetString("feature")
			prompt, _ := cmd.Flags().GetString("prompt")

			c, err := buildComponents(appConfig, logger)
			if err != nil {
				return err
			}

			logger.Info("Running custom test", zap.String("feature", feature))
			r := runner.New(c.bridge, c.oracle, nil, logger)
			report := r.TestWithCustomPrompt(ctx, feature, prompt)

			outputPath, _ := cmd.Flags().GetString("output")
			if _, err := c.writer.SaveResult(feature, report, outputPath); err != nil {
				return err
			}

			if report.Error != "" {
				return fmt.Errorf("custom test did not run: %s", report.Error)
			}
			if !report.OverallPass {
				saveFailureAnalysis(cmd, c, feature, report)
				return fmt.Errorf("custom test failed: %s", feature)
			}
			logger.Info("Custom test passed", zap.String("feature", feature), zap.Int("steps", len(report.Results)))
			return nil
		},
	}

	customCmd.Flags().String("feature", "Custom Feature", "feature name used in prompts and report files")
	customCmd.Flags().String("prompt", "", "test directions for the LLM (required)")
	customCmd.Flags().StringP("output", "o", "", "output file path (default: auto-generated)")
	_ = customCmd.MarkFlagRequired("prompt")
	return customCmd
}
