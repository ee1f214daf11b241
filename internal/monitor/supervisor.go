// internal/monitor/supervisor.go
package monitor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/devbot920-ux/DoorTelnet/api/schemas"
	"github.com/devbot920-ux/DoorTelnet/internal/config"
)

// teardownTimeout bounds the automation-disable call that runs after the
// loop exits, including when the run context is already cancelled.
const teardownTimeout = 10 * time.Second

// Oracle is the consultation surface the supervisor depends on.
type Oracle interface {
	Decide(ctx context.Context, state schemas.Snapshot, recentOutput []string, data *schemas.MonitoringData, elapsed, duration int) schemas.Decision
	Followup(ctx context.Context, intervention schemas.Intervention, postState schemas.Snapshot, postOutput []string, elapsed int) schemas.Decision
	AnalyzeFailure(ctx context.Context, bugDescription string, contextData interface{}) (string, error)
}

// Supervisor runs the extended monitoring loop: poll the game state on a
// fixed tick, fold deltas into the accumulator, and periodically consult the
// oracle, executing any intervention it directs.
type Supervisor struct {
	bridge schemas.GameBridge
	oracle Oracle
	cfg    config.MonitorConfig
	clock  Clock
	logger *zap.Logger
}

// NewSupervisor wires a supervisor from its collaborators. A nil clock
// selects wall time.
func NewSupervisor(bridge schemas.GameBridge, oracle Oracle, cfg config.MonitorConfig, clock Clock, logger *zap.Logger) *Supervisor {
	if clock == nil {
		clock = NewClock()
	}
	return &Supervisor{
		bridge: bridge,
		oracle: oracle,
		cfg:    cfg,
		clock:  clock,
		logger: logger.Named("supervisor"),
	}
}

// Run executes one supervised run of the named automation feature and
// returns the frozen report. The feature is always disabled again before
// Run returns, except when enabling it failed in the first place.
func (s *Supervisor) Run(ctx context.Context, feature string) *schemas.ExtendedReport {
	data := schemas.NewMonitoringData()
	report := &schemas.ExtendedReport{
		RunID:      uuid.NewString(),
		Test:       "extended_" + feature,
		Feature:    feature,
		State:      schemas.StateRunning,
		Monitoring: data,
		Issues:     []string{},
	}

	s.logger.Info("starting supervised run",
		zap.String("run_id", report.RunID),
		zap.String("feature", feature),
		zap.Duration("duration", s.cfg.Duration),
		zap.Duration("tick_interval", s.cfg.TickInterval),
		zap.Duration("check_interval", s.cfg.CheckInterval))

	if enable := s.bridge.SetAutomation(ctx, feature, true); !enable.Success {
		msg := enable.Error
		if msg == "" {
			msg = "automation enable rejected"
		}
		report.SetupError = fmt.Sprintf("failed to enable %s: %s", feature, msg)
		report.State = schemas.StateAborted
		report.Stats = schemas.StatsFrom(data)
		s.logger.Error("supervised run setup failed",
			zap.String("feature", feature),
			zap.String("error", msg))
		return report
	}
	defer s.teardown(feature)

	start := s.clock.Now()
	tracker := NewTracker(s.bridge.ObserveState(ctx))
	lastCheck := start

loop:
	for {
		if err := s.clock.Sleep(ctx, s.cfg.TickInterval); err != nil {
			s.interrupt(report, start, err)
			break
		}

		cur := s.bridge.ObserveState(ctx)
		elapsed := s.elapsed(start)
		lines := s.bridge.GetRecentOutput(ctx, s.cfg.OutputWindow)
		report.Issues = append(report.Issues, tracker.Update(cur, lines, elapsed, data)...)

		if s.clock.Now().Sub(start) >= s.cfg.Duration {
			report.State = schemas.StateCompleted
			break
		}

		if s.clock.Now().Sub(lastCheck) >= s.cfg.CheckInterval {
			decision := s.oracle.Decide(ctx, cur, lines, data, elapsed, int(s.cfg.Duration.Seconds()))
			data.Decisions = append(data.Decisions, schemas.DecisionRecord{
				Time:     elapsed,
				Decision: decision,
				Type:     schemas.DecisionPeriodic,
			})

			switch decision.Action {
			case schemas.DecisionContinue:
				s.logger.Debug("oracle check passed",
					zap.Int("elapsed", elapsed),
					zap.String("reasoning", decision.Reasoning))
			case schemas.DecisionAbort:
				data.Interventions = append(data.Interventions, schemas.Intervention{
					Time:    elapsed,
					Reason:  schemas.ReasonOracleAbort,
					Action:  decision.Reasoning,
					Details: &decision,
				})
				report.Issues = append(report.Issues, fmt.Sprintf("[%ds] ORACLE ABORT: %s", elapsed, decision.Reasoning))
				report.State = schemas.StateAborted
				s.logger.Warn("oracle aborted run",
					zap.Int("elapsed", elapsed),
					zap.String("reasoning", decision.Reasoning))
				break loop
			case schemas.DecisionIntervene:
				if abort := s.intervene(ctx, decision, data, report, start); abort {
					break loop
				}
			default:
				s.logger.Warn("unknown oracle action, continuing",
					zap.String("action", string(decision.Action)))
			}
			lastCheck = s.clock.Now()
		}
	}

	report.Duration = s.elapsed(start)
	report.Stats = schemas.StatsFrom(data)
	report.Passed = len(data.Interventions) == 0 && len(report.Issues) == 0
	if !report.Passed {
		if n := len(data.Interventions); n > 0 {
			report.FailureReason = fmt.Sprintf("%d LLM intervention(s) required", n)
		} else {
			report.FailureReason = fmt.Sprintf("%d issue(s) detected", len(report.Issues))
		}
		s.analyzeFailure(ctx, report, data)
	}

	s.logger.Info("supervised run finished",
		zap.String("state", string(report.State)),
		zap.Bool("passed", report.Passed),
		zap.Int("duration", report.Duration),
		zap.Int("cycles", data.Cycles),
		zap.Int("kills", data.MonstersKilled),
		zap.Int("interventions", len(data.Interventions)),
		zap.Int("issues", len(report.Issues)))
	return report
}

// intervene executes an oracle-directed correction and reports whether the
// run must abort afterwards.
func (s *Supervisor) intervene(ctx context.Context, decision schemas.Decision, data *schemas.MonitoringData, report *schemas.ExtendedReport, start time.Time) bool {
	elapsed := s.elapsed(start)
	intervention := schemas.Intervention{
		Time:     elapsed,
		Reason:   schemas.ReasonOracleIntervention,
		Action:   decision.Reasoning,
		Commands: decision.Commands,
		Details:  &decision,
	}
	data.Interventions = append(data.Interventions, intervention)
	s.logger.Warn("oracle intervention",
		zap.Int("elapsed", elapsed),
		zap.Strings("commands", decision.Commands),
		zap.String("reasoning", decision.Reasoning))

	for _, cmd := range decision.Commands {
		s.bridge.SendCommand(ctx, cmd)
		if err := s.clock.Sleep(ctx, s.cfg.CommandPause); err != nil {
			s.interrupt(report, start, err)
			return true
		}
	}

	if decision.WaitForResult <= 0 {
		return false
	}
	if err := s.clock.Sleep(ctx, time.Duration(decision.WaitForResult)*time.Second); err != nil {
		s.interrupt(report, start, err)
		return true
	}

	postState := s.bridge.ObserveState(ctx)
	postOutput := s.bridge.GetRecentOutput(ctx, s.cfg.OutputWindow)
	followupTime := elapsed + decision.WaitForResult
	followup := s.oracle.Followup(ctx, intervention, postState, postOutput, followupTime)
	data.Decisions = append(data.Decisions, schemas.DecisionRecord{
		Time:     followupTime,
		Decision: followup,
		Type:     schemas.DecisionFollowup,
	})
	s.logger.Info("intervention follow-up",
		zap.String("action", string(followup.Action)),
		zap.String("assessment", followup.Assessment))

	if followup.Action == schemas.DecisionAbort {
		report.Issues = append(report.Issues, fmt.Sprintf("[%ds] ORACLE ABORT after intervention: %s", followupTime, followup.Reasoning))
		report.State = schemas.StateAborted
		return true
	}
	return false
}

// interrupt records a context cancellation as an aborted run.
func (s *Supervisor) interrupt(report *schemas.ExtendedReport, start time.Time, err error) {
	elapsed := s.elapsed(start)
	report.Issues = append(report.Issues, fmt.Sprintf("[%ds] run interrupted: %v", elapsed, err))
	report.State = schemas.StateAborted
	s.logger.Warn("supervised run interrupted", zap.Int("elapsed", elapsed), zap.Error(err))
}

// teardown disables the automation feature. It runs on its own context so
// cancellation of the run never leaves the feature switched on.
func (s *Supervisor) teardown(feature string) {
	ctx, cancel := context.WithTimeout(context.Background(), teardownTimeout)
	defer cancel()
	if res := s.bridge.SetAutomation(ctx, feature, false); !res.Success {
		s.logger.Warn("failed to disable automation during teardown",
			zap.String("feature", feature),
			zap.String("error", res.Error))
		return
	}
	s.logger.Info("automation disabled", zap.String("feature", feature))
}

func (s *Supervisor) analyzeFailure(ctx context.Context, report *schemas.ExtendedReport, data *schemas.MonitoringData) {
	var b strings.Builder
	fmt.Fprintf(&b, "Supervised %s run failed: %s.\n", report.Feature, report.FailureReason)
	for _, iv := range data.Interventions {
		fmt.Fprintf(&b, "- [%ds] %s: %s\n", iv.Time, iv.Reason, iv.Action)
	}
	for _, issue := range report.Issues {
		fmt.Fprintf(&b, "- %s\n", issue)
	}

	contextData := map[string]interface{}{
		"test_duration": report.Duration,
		"interventions": data.Interventions,
		"issues":        report.Issues,
		"monitoring_data": map[string]interface{}{
			"cycles":        data.Cycles,
			"kills":         data.MonstersKilled,
			"combat_events": lastN(data.CombatEvents, 10),
			"hp_changes":    lastN(data.HpChanges, 10),
			"errors":        data.Errors,
			"llm_decisions": data.Decisions,
		},
	}

	analysis, err := s.oracle.AnalyzeFailure(ctx, b.String(), contextData)
	if err != nil {
		s.logger.Warn("failure analysis unavailable", zap.Error(err))
		return
	}
	report.Analysis = analysis
}

func (s *Supervisor) elapsed(start time.Time) int {
	return int(s.clock.Now().Sub(start).Seconds())
}

func lastN[T any](s []T, n int) []T {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
