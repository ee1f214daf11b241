// -- cmd/extended.go --
package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/devbot920-ux/DoorTelnet/internal/config"
	"github.com/devbot920-ux/DoorTelnet/internal/monitor"
	"github.com/devbot920-ux/DoorTelnet/internal/observability"
)

// newExtendedCmd creates and configures the `extended` command.
func newExtendedCmd() *cobra.Command {
	extendedCmd := &cobra.Command{
		Use:   "extended",
		Short: "Runs a long supervised automation test with periodic LLM oversight",
		Long: `Enables an automation feature (autogong by default), then polls the game
state on a fixed tick, tracking gong cycles, kills, HP changes and output
errors. At each check interval an LLM reviews the accumulated data and may
continue, intervene with corrective commands, or abort the run.`,
		Args: cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			// Bind flags to their corresponding Viper keys so command-line
			// flags correctly override values from the config file and
			// environment variables.
			if err := viper.BindPFlag("monitor.duration", cmd.Flags().Lookup("duration")); err != nil {
				return err
			}
			if err := viper.BindPFlag("monitor.check_interval", cmd.Flags().Lookup("check-interval")); err != nil {
				return err
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			// Re-resolve the config so the flag overrides bound in PreRunE
			// apply with the right precedence.
			cfg, err := config.NewConfigFromViper(viper.GetViper())
			if err != nil {
				return err
			}

			feature, _ := cmd.Flags().GetString("feature")

			c, err := buildComponents(cfg, logger)
			if err != nil {
				return err
			}

			logger.Info("Running extended test",
				zap.String("feature", feature),
				zap.Duration("duration", cfg.Monitor.Duration),
				zap.Duration("check_interval", cfg.Monitor.CheckInterval))

			sup := monitor.NewSupervisor(c.bridge, c.oracle, cfg.Monitor, nil, logger)
			report := sup.Run(ctx, feature)

			outputPath, _ := cmd.Flags().GetString("output")
			if _, err := c.writer.SaveResult(feature+"-extended", report, outputPath); err != nil {
				return err
			}
			if report.Analysis != "" {
				if _, err := c.writer.SaveAnalysis(feature+"-extended", report.Analysis); err != nil {
					logger.Warn("Could not save bug analysis", zap.Error(err))
				}
			}

			if report.SetupError != "" {
				return fmt.Errorf("extended test setup failed: %s", report.SetupError)
			}
			if !report.Passed {
				return fmt.Errorf("extended test failed: %s", report.FailureReason)
			}
			logger.Info("Extended test passed",
				zap.Int("cycles", report.Stats.Cycles),
				zap.Int("kills", report.Stats.Kills))
			return nil
		},
	}

	extendedCmd.Flags().String("feature", "autogong", "automation feature to supervise")
	extendedCmd.Flags().Duration("duration", 4*time.Minute, "total test duration")
	extendedCmd.Flags().Duration("check-interval", 10*time.Second, "interval between LLM oversight checks")
	extendedCmd.Flags().StringP("output", "o", "", "output file path (default: auto-generated)")
	return extendedCmd
}
