// api/schemas/interfaces.go
package schemas

import (
	"context"
	"time"
)

// ModelTier selects which configured model a generation request runs on.
type ModelTier string

const (
	// TierFast is for cheap, frequent calls: periodic monitoring decisions,
	// intervention follow-ups, and step verification.
	TierFast ModelTier = "fast"
	// TierPowerful is for calls that need the stronger model, such as plan
	// generation and failure analysis. It is the default when a request
	// leaves the tier unset.
	TierPowerful ModelTier = "powerful"
)

// GenerationOptions are per-request generation knobs.
type GenerationOptions struct {
	Temperature     float32
	ForceJSONFormat bool
}

// GenerationRequest is a single prompt to an LLM backend.
type GenerationRequest struct {
	SystemPrompt string
	UserPrompt   string
	Tier         ModelTier
	Options      GenerationOptions
}

// LLMClient generates text from a prompt. Implementations handle their own
// retry and rate limiting.
type LLMClient interface {
	Generate(ctx context.Context, req GenerationRequest) (string, error)
}

// GameBridge is the tool surface of the game's control endpoint. Transport
// failures are reported in-band: typed results carry an Error field and raw
// results come back as an error JSON object, so callers never branch on a
// Go error for bridge calls.
type GameBridge interface {
	// CallTool invokes an arbitrary method and returns the raw result
	// payload.
	CallTool(ctx context.Context, method string, params map[string]interface{}) RawResult

	// ObserveState returns the current game snapshot.
	ObserveState(ctx context.Context) Snapshot

	// SendCommand sends a single game command.
	SendCommand(ctx context.Context, command string) RawResult

	// GetRecentOutput returns up to count recent terminal lines, oldest
	// first. A transport failure yields an empty slice.
	GetRecentOutput(ctx context.Context, count int) []string

	// SetAutomation toggles an automation feature such as autogong.
	SetAutomation(ctx context.Context, feature string, enabled bool) ToolResult

	// WaitForOutput blocks until pattern appears in the game output or the
	// timeout elapses.
	WaitForOutput(ctx context.Context, pattern string, timeout time.Duration) WaitResult

	// NavigateTo walks the character to a named destination.
	NavigateTo(ctx context.Context, destination string) RawResult
}
