// api/schemas/state.go
package schemas

import "encoding/json"

// Snapshot is a point-in-time capture of the observable game session state,
// as reported by the MCP bridge's observe_game_state tool. A Snapshot is
// immutable once captured; each poll supersedes the previous one.
type Snapshot struct {
	Character  Character  `json:"character"`
	Location   Location   `json:"location"`
	Combat     Combat     `json:"combat"`
	Automation Automation `json:"automation"`

	// Error is set when the observation itself failed (bridge unreachable,
	// malformed payload). Transport failures surface in-band rather than as
	// Go errors so the polling loop can carry on with a zero snapshot.
	Error string `json:"error,omitempty"`
}

// Character holds the player's vital statistics.
type Character struct {
	Name      string  `json:"name,omitempty"`
	HP        int     `json:"hp"`
	HPPercent float64 `json:"hpPercent"`
	Gold      int     `json:"gold,omitempty"`
}

// Location describes the current room and its occupants. Monsters is the set
// of monster identifiers visible in the room.
type Location struct {
	Name     string   `json:"name,omitempty"`
	Monsters []string `json:"monsters,omitempty"`
}

// Combat reflects the bridge's combat tracker.
type Combat struct {
	InCombat        bool   `json:"inCombat"`
	TargetedMonster string `json:"targetedMonster,omitempty"`
}

// Automation mirrors the client's automation feature flags.
type Automation struct {
	AutoGong   bool `json:"autoGong"`
	AutoAttack bool `json:"autoAttack"`
	AutoShield bool `json:"autoShield,omitempty"`
}

// ToolResult is the decoded outcome of a set_automation style bridge call.
type ToolResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// WaitResult is the decoded outcome of a wait_for_output bridge call.
type WaitResult struct {
	Found        bool   `json:"found"`
	MatchingLine string `json:"matching_line,omitempty"`
	Error        string `json:"error,omitempty"`
}

// RawResult wraps an untyped bridge tool result. Transport failures are
// encoded as {"error": "..."} payloads, matching what the bridge itself
// returns for tool-level failures.
type RawResult = json.RawMessage
