package mcpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// Handlers holds the handler functions for each MCP tool.
type Handlers struct {
	client *ShieldClient
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(client *ShieldClient) *Handlers {
	return &Handlers{client: client}
}

// HandleCheckNumber runs the full resolution flow for a number.
func (h *Handlers) HandleCheckNumber(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	number := req.GetString("number", "")
	if number == "" {
		return mcp.NewToolResultError("number is required"), nil
	}

	var silenceUnknown *bool
	if raw := req.GetArguments()["silence_unknown"]; raw != nil {
		if b, ok := raw.(bool); ok {
			silenceUnknown = &b
		}
	}

	raw, err := h.client.CheckNumber(ctx, number, silenceUnknown)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Check failed: %v", err)), nil
	}

	text, err := formatVerdict(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse verdict: %v", err)), nil
	}
	return mcp.NewToolResultText(text), nil
}

// HandleLookupNumber queries the local cache only.
func (h *Handlers) HandleLookupNumber(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	number := req.GetString("number", "")
	if number == "" {
		return mcp.NewToolResultError("number is required"), nil
	}

	raw, err := h.client.LookupNumber(ctx, number)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Lookup failed: %v", err)), nil
	}

	text, err := formatLookup(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse lookup: %v", err)), nil
	}
	return mcp.NewToolResultText(text), nil
}

// HandleReportNumber files a user report.
func (h *Handlers) HandleReportNumber(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	number := req.GetString("number", "")
	if number == "" {
		return mcp.NewToolResultError("number is required"), nil
	}
	category := req.GetString("category", "")
	comment := req.GetString("comment", "")

	confidence := 0.0
	if raw := req.GetArguments()["confidence"]; raw != nil {
		if f, ok := raw.(float64); ok {
			confidence = f
		}
	}

	raw, err := h.client.ReportNumber(ctx, number, category, confidence, comment)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Report failed: %v", err)), nil
	}

	label := category
	if label == "" {
		label = "spam"
	}
	return mcp.NewToolResultText(fmt.Sprintf(
		"Reported %s as %s.\n\n%s", number, label, formatJSON(raw))), nil
}

// HandleAddToWhitelist marks a number as always safe.
func (h *Handlers) HandleAddToWhitelist(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	number := req.GetString("number", "")
	if number == "" {
		return mcp.NewToolResultError("number is required"), nil
	}

	if _, err := h.client.AddToWhitelist(ctx, number); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Whitelist add failed: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf(
		"%s is now whitelisted. Calls from this number will always be allowed.", number)), nil
}

// HandleRemoveFromWhitelist removes a whitelist entry.
func (h *Handlers) HandleRemoveFromWhitelist(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	number := req.GetString("number", "")
	if number == "" {
		return mcp.NewToolResultError("number is required"), nil
	}

	if _, err := h.client.RemoveFromWhitelist(ctx, number); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Whitelist remove failed: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf(
		"%s removed from the whitelist. Future calls will be screened again.", number)), nil
}

// HandleGetShieldStats returns shield-wide statistics.
func (h *Handlers) HandleGetShieldStats(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := h.client.GetStats(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to get stats: %v", err)), nil
	}

	text, err := formatStats(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse stats: %v", err)), nil
	}
	return mcp.NewToolResultText(text), nil
}

// --- Formatters ---

func formatVerdict(raw json.RawMessage) (string, error) {
	var resp map[string]any
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", err
	}

	// Verdict might be at top level or nested under "verdict".
	v := resp
	if nested, ok := resp["verdict"].(map[string]any); ok {
		v = nested
	}

	action := getString(v, "action")
	var sb strings.Builder
	fmt.Fprintf(&sb, "Verdict: %s\n", strings.ToUpper(action))
	if n := getString(v, "number"); n != "" {
		fmt.Fprintf(&sb, "  Number: %s\n", n)
	}
	if level := getString(v, "riskLevel", "risk_level"); level != "" {
		fmt.Fprintf(&sb, "  Risk: %s", level)
		if conf, ok := getFloat(v, "confidence"); ok {
			fmt.Fprintf(&sb, " (confidence %.0f%%)", conf*100)
		}
		sb.WriteString("\n")
	}
	if state := getString(v, "state"); state != "" {
		fmt.Fprintf(&sb, "  Resolved via: %s\n", state)
	}

	switch action {
	case "auto_reject":
		sb.WriteString("\nThis caller is a confirmed scam. The call was rejected before ringing.")
	case "block":
		sb.WriteString("\nThis caller is high risk. The call was terminated.")
	case "silence":
		sb.WriteString("\nUnknown or low-confidence caller. The ringer was muted; voicemail is still reachable.")
	}
	return sb.String(), nil
}

func formatLookup(raw json.RawMessage) (string, error) {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return "", err
	}

	outcome := getString(m, "outcome", "result")
	if outcome == "" || outcome == "miss" {
		return "Cache miss: this number has no local risk record. Use check_number for a full screen.", nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Cache hit: %s\n", outcome)
	record, ok := m["record"].(map[string]any)
	if !ok {
		return sb.String(), nil
	}
	if level := getString(record, "riskLevel", "risk_level"); level != "" {
		fmt.Fprintf(&sb, "  Risk: %s", level)
		if conf, ok := getFloat(record, "confidence"); ok {
			fmt.Fprintf(&sb, " (confidence %.0f%%)", conf*100)
		}
		sb.WriteString("\n")
	}
	if source := getString(record, "source"); source != "" {
		fmt.Fprintf(&sb, "  Source: %s\n", source)
	}
	if reports, ok := getFloat(record, "reportCount", "report_count"); ok && reports > 1 {
		fmt.Fprintf(&sb, "  Reports: %.0f\n", reports)
	}
	if expires := getString(record, "expiresAt", "expires_at"); expires != "" {
		fmt.Fprintf(&sb, "  Expires: %s\n", expires)
	}
	return sb.String(), nil
}

func formatStats(raw json.RawMessage) (string, error) {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString("ScamShield statistics:\n")

	if counters, ok := m["calls"].(map[string]any); ok {
		sb.WriteString("  Calls resolved:\n")
		for _, name := range []string{"allowed", "silenced", "blocked", "auto_rejected"} {
			if v, ok := getFloat(counters, name); ok {
				fmt.Fprintf(&sb, "    %-13s %.0f\n", name+":", v)
			}
		}
	}
	if cache, ok := m["cache"].(map[string]any); ok {
		sb.WriteString("  Cache tiers:\n")
		for _, tier := range []string{"whitelist", "scam", "spam"} {
			if v, ok := getFloat(cache, tier); ok {
				fmt.Fprintf(&sb, "    %-10s %.0f entries\n", tier+":", v)
			}
		}
	}
	if sessions, ok := m["sessions"].(map[string]any); ok {
		if v, ok := getFloat(sessions, "activeSessions", "active_sessions"); ok {
			fmt.Fprintf(&sb, "  Active sessions: %.0f\n", v)
		}
	}

	// Fall back to raw JSON when the shape is unexpected.
	if sb.Len() <= len("ScamShield statistics:\n") {
		return "ScamShield statistics:\n" + formatJSON(raw), nil
	}
	return sb.String(), nil
}

func formatJSON(raw json.RawMessage) string {
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, raw, "", "  "); err != nil {
		return string(raw)
	}
	return pretty.String()
}

// getString extracts a string value from a map, trying multiple key names.
func getString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			if s, ok := v.(string); ok {
				return s
			}
			if f, ok := v.(float64); ok {
				return fmt.Sprintf("%g", f)
			}
		}
	}
	return ""
}

// getFloat extracts a float64 value from a map, trying multiple key names.
func getFloat(m map[string]any, keys ...string) (float64, bool) {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			if f, ok := v.(float64); ok {
				return f, true
			}
		}
	}
	return 0, false
}
