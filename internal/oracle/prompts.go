// internal/oracle/prompts.go
package oracle

import (
	"fmt"
	"strings"

	"github.com/devbot920-ux/DoorTelnet/api/schemas"
)

const decisionSystemPrompt = `You are actively monitoring an automated AutoGong test in "The Rose" MUD game. You watch the game state, decide whether the automation is healthy, and intervene with game commands when it is not. Respond with ONLY valid JSON.`

const followupSystemPrompt = `You previously intervened in an AutoGong test in "The Rose" MUD game. Assess whether your intervention worked. Respond with ONLY valid JSON.`

const verificationSystemPrompt = `You are verifying the outcome of a test step in a MUD game. Respond with ONLY valid JSON.`

const analysisSystemPrompt = `You are debugging a MUD game client written in C# (.NET 8, WPF).`

const planSystemPrompt = `You are a test engineer generating test plans for a MUD game client for "The Rose - Council of Guardians". You respond with ONLY valid JSON, no explanations and no markdown.`

// jsonIndent marshals v for inclusion in a prompt, substituting a
// placeholder on failure so a broken value never kills a consultation.
func jsonIndent(v interface{}) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("(unserializable: %v)", err)
	}
	return string(data)
}

// buildDecisionPrompt assembles the periodic monitoring consultation.
func buildDecisionPrompt(state schemas.Snapshot, recentOutput []string, data *schemas.MonitoringData, elapsed, duration int) string {
	recentHP := data.HpChanges
	if len(recentHP) > 5 {
		recentHP = recentHP[len(recentHP)-5:]
	}
	hpSection := "None yet"
	if len(recentHP) > 0 {
		hpSection = jsonIndent(recentHP)
	}
	errSection := "None"
	if len(data.Errors) > 0 {
		errSection = jsonIndent(data.Errors)
	}

	return fmt.Sprintf(`TIME: %ds elapsed of %ds total

CURRENT GAME STATE note(AutoAttack is always off when doing AutoGong):
%s

RECENT GAME OUTPUT (last 20 lines):
%s

TEST STATISTICS SO FAR:
- Gong cycles: %d
- Monsters killed: %d
- Combat events: %d
- HP changes: %d
- Errors: %d

RECENT HP CHANGES:
%s

RECENT ERRORS:
%s

YOUR TASK:
Analyze the current situation and decide what to do.

DECISION OPTIONS:
1. "continue" - Everything looks good, continue testing
2. "intervene" - Send commands to fix a problem, then continue
3. "abort" - Critical issue detected, stop test immediately

WHEN TO INTERVENE:
- HP < 30%% and dropping
- Aggressive monster attacking but not being fought
- AutoGong seems stuck or disabled
- Gold running low (might fail soon)
- Character not attacking/looting properly

WHEN TO ABORT:
- HP < 20%% (critical danger)
- AutoGong failed completely
- Character appears dead or disconnected
- Unrecoverable error state

RESPOND WITH ONLY VALID JSON:
{
  "action": "continue" | "intervene" | "abort",
  "reasoning": "Brief explanation of why you chose this action",
  "commands": ["stop", "look"],
  "wait_for_result": 3,
  "assessment": "Current situation looks safe/dangerous/critical"
}

Examples:

SAFE SITUATION:
{
  "action": "continue",
  "reasoning": "HP at 85%%, combat proceeding normally, no errors detected",
  "assessment": "All systems nominal"
}

INTERVENTION NEEDED:
{
  "action": "intervene",
  "reasoning": "HP dropped to 28%%, need to stop combat and assess",
  "commands": ["stop"],
  "wait_for_result": 5,
  "assessment": "HP critically low, intervening"
}

ABORT NEEDED:
{
  "action": "abort",
  "reasoning": "HP at 12%%, character will die if we continue",
  "assessment": "Critical danger, aborting test"
}

Analyze the situation and respond with JSON only.`,
		elapsed, duration,
		jsonIndent(state),
		strings.Join(recentOutput, "\n"),
		data.Cycles,
		data.MonstersKilled,
		len(data.CombatEvents),
		len(data.HpChanges),
		len(data.Errors),
		hpSection,
		errSection,
	)
}

// buildFollowupPrompt assembles the post-intervention assessment.
func buildFollowupPrompt(intervention schemas.Intervention, postState schemas.Snapshot, postOutput []string, elapsed int) string {
	return fmt.Sprintf(`YOUR PREVIOUS INTERVENTION:
%s

TIME: %ds

POST-INTERVENTION GAME STATE:
%s

POST-INTERVENTION OUTPUT (last 20 lines):
%s

YOUR TASK:
Did your intervention work? Should we continue the test?

RESPOND WITH ONLY VALID JSON:
{
  "action": "continue" | "abort",
  "reasoning": "Did intervention work? What happened?",
  "assessment": "Intervention successful/failed",
  "next_concern": "What to watch for next" or null
}

Examples:

INTERVENTION SUCCESSFUL:
{
  "action": "continue",
  "reasoning": "Stop command worked, HP stabilized at 65%%, combat ended safely",
  "assessment": "Intervention successful, safe to continue",
  "next_concern": "Monitor HP during next combat"
}

INTERVENTION FAILED:
{
  "action": "abort",
  "reasoning": "HP still dropping despite stop command, now at 15%%, character in danger",
  "assessment": "Intervention failed, aborting for safety",
  "next_concern": null
}

Respond with JSON only.`,
		jsonIndent(intervention),
		elapsed,
		jsonIndent(postState),
		strings.Join(postOutput, "\n"),
	)
}

// buildVerificationPrompt assembles the single-step outcome check.
func buildVerificationPrompt(action string, params map[string]interface{}, result schemas.RawResult, expected string, gameOutput []string, hasGameContext bool) string {
	contextHint := ""
	if hasGameContext {
		contextHint = "\n\nNote: This is 'The Rose' MUD game. Consider game-specific mechanics when verifying.\n"
	}

	return fmt.Sprintf(`%s
Action taken: %s
Parameters: %s
Expected outcome: %s

Actual result from MCP:
%s

Recent game output (last 15 lines):
%s

Analyze whether the actual outcome matches the expected outcome.
Consider:
1. Did the MCP tool succeed?
2. Does the game output show the expected behavior?
3. Are there any error messages or unexpected results?

Respond with ONLY valid JSON:
{
  "passed": true or false,
  "analysis": "Brief explanation of why it passed or failed",
  "game_evidence": "Relevant line(s) from game output that support your conclusion"
}`,
		contextHint,
		action,
		jsonIndent(params),
		expected,
		string(result),
		strings.Join(gameOutput, "\n"),
	)
}

// buildAnalysisPrompt assembles the failure analysis request. The output is
// markdown, not JSON.
func buildAnalysisPrompt(bugDescription string, contextData interface{}) string {
	return fmt.Sprintf(`Bug description:
%s

Test context and results:
%s

Analyze this bug and provide:
1. Root cause analysis - what is the likely cause of the failure?
2. Based on observations from the game itself, what is the most likely fix?
3. A detailed, but concise GitHub Copilot prompt that would fix this bug

The application has these main components, you can reference them, but dont assume the location of various classes/methods:
- DoorTelnet.Wpf: WPF UI layer with ViewModels and Services
- DoorTelnet.Core: Core game logic (Telnet, Automation, Combat, Navigation, World tracking)
- Services: AutomationFeatureService, NavigationFeatureService, GameApiService
- Trackers: StatsTracker, RoomTracker, CombatTracker
- TelnetClient: Handles game connection and command sending

Format your response as:
## Root Cause
[Your analysis]

## GitHub Copilot Prompt
`+"```"+`
[Detailed prompt that can be pasted into GitHub Copilot to fix the bug]
`+"```",
		bugDescription,
		jsonIndent(contextData),
	)
}

const mcpToolList = `Available MCP tools:
- observe_game_state: Get current game state (character, location, combat, automation)
- send_command: Send a command to the game (use "" to press ENTER for status check)
- wait_for_output: Wait for specific text in game output
- get_recent_output: Get last N lines from game
- set_automation: Enable/disable automation features (autogong, autoattack, autoshield)
- navigate_to: Navigate to a destination
- verify_stat_change: Check if a stat changed as expected
- verify_room_change: Check if room changed
- verify_combat_initiated: Check if combat started`

const autogongPrimer = `CRITICAL: Understanding AutoGong vs AutoAttack:
**AutoGong Behavior**:
- AutoGong does NOT enable the "AutoAttack" feature flag
- AutoGong implements its OWN combat logic internally
- CONTINUOUS COMBAT MODE: no idle time when AT/AC = 0
  - Rings gong ("r g") immediately when timers reset (~1.5s interval)
  - Attacks all aggressive monsters continuously
  - Loots gold/silver after kills
  - Repeats until HP drops below threshold or out of gold

**AutoAttack Behavior** (separate feature):
- Reactive: only attacks existing aggressive monsters
- Runs independently when AutoGong is OFF

**Key Difference**:
- AutoGong = Proactive grinding (creates combat by ringing gong)
- AutoAttack = Reactive defense (responds to existing threats)`

const safetyGuidelines = `IMPORTANT AUTONOMY AND SAFETY GUIDELINES:
You have FULL AUTHORITY to intervene during testing to protect the player:
1. Player survival > Test completion
2. HP < 30% + under attack: send 'stop' immediately
3. HP < 20%: disconnect (send 'stop' first, then assess)
4. Aggressive monster attacking: 'attack <monster>' immediately
5. Use send_command with {"command": ""} (empty) to press ENTER and check status
6. Trust game output over tracked state if they conflict
7. For AutoGong: verify AT/AC timers are not idle for long periods`

// buildPlanPrompt assembles the feature test plan generation request.
func buildPlanPrompt(feature, instructions string, state schemas.Snapshot, recentOutput []string, gameContext string) string {
	contextSection := ""
	if gameContext != "" {
		contextSection = fmt.Sprintf("GAME CONTEXT - The Rose (Council of Guardians):\n%s\n\n", gameContext)
	}

	return fmt.Sprintf(`You are testing the '%s' feature in a MUD game client for "The Rose - Council of Guardians".

%sCurrent game state:
%s

Recent game output:
%s

Test instructions:
%s

%s

%s

%s

IMPORTANT: Respond with ONLY valid JSON in this exact format (no explanations, no markdown):
{
  "test_name": "AutoGong Feature Test",
  "description": "Test AutoGong automation feature - continuous combat mode",
  "steps": [
    {
      "action": "observe_game_state",
      "params": {},
      "expected": "Current state retrieved"
    },
    {
      "action": "set_automation",
      "params": {"feature": "autogong", "enabled": true},
      "expected": "AutoGong enabled",
      "wait_for": "AutoGong",
      "verify_output": true
    }
  ]
}

Set "verify_output": true on steps where you want to verify the actual game output matches expectations.
Keep test steps simple and verifiable. Each step should have a clear expected outcome.
Return ONLY the JSON, nothing else.`,
		feature,
		contextSection,
		jsonIndent(state),
		strings.Join(recentOutput, "\n"),
		instructions,
		autogongPrimer,
		safetyGuidelines,
		mcpToolList,
	)
}

// buildCustomPlanPrompt wraps a user-authored test request with the same
// context and safety framing as the built-in plans.
func buildCustomPlanPrompt(feature, customPrompt string, state schemas.Snapshot, recentOutput []string, gameContext string) string {
	contextSection := ""
	if gameContext != "" {
		contextSection = fmt.Sprintf("GAME CONTEXT - The Rose (Council of Guardians):\n%s\n\n", gameContext)
	}

	return fmt.Sprintf(`You are testing the '%s' feature in "The Rose - Council of Guardians" MUD game client.

%sCurrent game state:
%s

Recent game output:
%s

%s

%s

%s

USER'S CUSTOM TEST REQUEST:
%s

Generate a test plan as JSON in this format:
{
  "test_name": "...",
  "description": "...",
  "steps": [
    {
      "action": "tool_name",
      "params": {},
      "expected": "expected outcome",
      "verify_output": true
    }
  ]
}

IMPORTANT:
- Add safety checks (observe_game_state, send_command "") throughout
- Prioritize player safety over test objectives
- Use verify_output: true when you want to analyze actual game output

Return ONLY valid JSON, no explanations.`,
		feature,
		contextSection,
		jsonIndent(state),
		strings.Join(recentOutput, "\n"),
		autogongPrimer,
		safetyGuidelines,
		mcpToolList,
		customPrompt,
	)
}
