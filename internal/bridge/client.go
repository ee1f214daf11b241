// internal/bridge/client.go

// Package bridge talks to the DoorTelnet MCP bridge, the HTTP endpoint that
// exposes the running game client as a set of callable tools.
package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/devbot920-ux/DoorTelnet/api/schemas"
	"github.com/devbot920-ux/DoorTelnet/internal/config"
)

// Client implements the schemas.GameBridge interface over a single-endpoint
// HTTP protocol: every tool call is a POST of {"method": ..., "params": ...}
// and the bridge answers with {"result": ...}.
//
// Transport failures never surface as Go errors. They come back in-band as
// an error payload, so a flaky bridge degrades a run instead of crashing it.
type Client struct {
	url        string
	httpClient *http.Client
	logger     *zap.Logger
}

type toolRequest struct {
	Method string                 `json:"method"`
	Params map[string]interface{} `json:"params"`
}

type toolResponse struct {
	Result json.RawMessage `json:"result"`
}

// NewClient initializes the bridge client.
func NewClient(cfg config.BridgeConfig, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		url: cfg.URL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger.Named("bridge"),
	}
}

// errorResult encodes a transport or protocol failure as an in-band error
// payload.
func errorResult(err error) schemas.RawResult {
	payload, marshalErr := json.Marshal(map[string]string{"error": err.Error()})
	if marshalErr != nil {
		return schemas.RawResult(`{"error":"bridge call failed"}`)
	}
	return payload
}

// CallTool invokes an arbitrary bridge method and returns the raw result
// payload.
func (c *Client) CallTool(ctx context.Context, method string, params map[string]interface{}) schemas.RawResult {
	if params == nil {
		params = map[string]interface{}{}
	}

	body, err := json.Marshal(toolRequest{Method: method, Params: params})
	if err != nil {
		return errorResult(fmt.Errorf("failed to marshal tool request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewBuffer(body))
	if err != nil {
		return errorResult(fmt.Errorf("failed to create HTTP request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Warn("Bridge call failed", zap.String("method", method), zap.Error(err))
		return errorResult(fmt.Errorf("bridge request failed: %w", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return errorResult(fmt.Errorf("failed to read bridge response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("Bridge returned error status",
			zap.String("method", method),
			zap.Int("status", resp.StatusCode),
		)
		return errorResult(fmt.Errorf("bridge returned status %d: %s", resp.StatusCode, string(respBody)))
	}

	var envelope toolResponse
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return errorResult(fmt.Errorf("failed to decode bridge response: %w", err))
	}
	if len(envelope.Result) == 0 {
		return errorResult(fmt.Errorf("bridge response missing result field"))
	}

	c.logger.Debug("Bridge call complete", zap.String("method", method))
	return schemas.RawResult(envelope.Result)
}

// ObserveState returns the current game snapshot. A transport failure yields
// a zero snapshot with the Error field set.
func (c *Client) ObserveState(ctx context.Context) schemas.Snapshot {
	raw := c.CallTool(ctx, "observe_game_state", nil)

	var snapshot schemas.Snapshot
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		return schemas.Snapshot{Error: fmt.Sprintf("failed to decode game state: %v", err)}
	}
	return snapshot
}

// SendCommand sends a single game command.
func (c *Client) SendCommand(ctx context.Context, command string) schemas.RawResult {
	return c.CallTool(ctx, "send_command", map[string]interface{}{"command": command})
}

// GetRecentOutput returns up to count recent terminal lines, oldest first.
// A transport failure yields an empty slice.
func (c *Client) GetRecentOutput(ctx context.Context, count int) []string {
	raw := c.CallTool(ctx, "get_recent_output", map[string]interface{}{"count": count})

	var result struct {
		Lines []string `json:"lines"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil
	}
	return result.Lines
}

// SetAutomation toggles an automation feature such as autogong.
func (c *Client) SetAutomation(ctx context.Context, feature string, enabled bool) schemas.ToolResult {
	raw := c.CallTool(ctx, "set_automation", map[string]interface{}{
		"feature": feature,
		"enabled": enabled,
	})

	var result schemas.ToolResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return schemas.ToolResult{Error: fmt.Sprintf("failed to decode automation result: %v", err)}
	}
	return result
}

// WaitForOutput blocks until pattern appears in the game output or the
// timeout elapses. The bridge does the waiting server-side.
func (c *Client) WaitForOutput(ctx context.Context, pattern string, timeout time.Duration) schemas.WaitResult {
	raw := c.CallTool(ctx, "wait_for_output", map[string]interface{}{
		"pattern":    pattern,
		"timeout_ms": int(timeout / time.Millisecond),
	})

	var result schemas.WaitResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return schemas.WaitResult{Error: fmt.Sprintf("failed to decode wait result: %v", err)}
	}
	return result
}

// NavigateTo walks the character to a named destination.
func (c *Client) NavigateTo(ctx context.Context, destination string) schemas.RawResult {
	return c.CallTool(ctx, "navigate_to", map[string]interface{}{"destination": destination})
}

// VerifyStatChange asks the bridge to confirm a character stat moved in the
// expected direction.
func (c *Client) VerifyStatChange(ctx context.Context, stat, expectedChange string) schemas.RawResult {
	return c.CallTool(ctx, "verify_stat_change", map[string]interface{}{
		"stat":            stat,
		"expected_change": expectedChange,
	})
}

// VerifyRoomChange asks the bridge to confirm the character changed rooms.
func (c *Client) VerifyRoomChange(ctx context.Context) schemas.RawResult {
	return c.CallTool(ctx, "verify_room_change", nil)
}

// VerifyCombatInitiated asks the bridge to confirm combat started.
func (c *Client) VerifyCombatInitiated(ctx context.Context) schemas.RawResult {
	return c.CallTool(ctx, "verify_combat_initiated", nil)
}
