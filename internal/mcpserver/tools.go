package mcpserver

import "github.com/mark3labs/mcp-go/mcp"

// Tool definitions for the ScamShield MCP server.
// Descriptions are what the LLM reads to decide which tool to use.

var ToolCheckNumber = mcp.NewTool("check_number",
	mcp.WithDescription(
		"Screen a phone number through the full ScamShield resolution flow: "+
			"whitelist, scam/spam cache, and remote risk providers. "+
			"Returns the verdict (allow, silence, block, or auto_reject) with risk level and confidence. "+
			"Use this to decide how an incoming call should be handled."),
	mcp.WithString("number",
		mcp.Required(),
		mcp.Description("The phone number to check (e.g. '+27821234567' or '082 123 4567')")),
	mcp.WithBoolean("silence_unknown",
		mcp.Description("Silence callers with unknown risk instead of letting them ring")),
)

var ToolLookupNumber = mcp.NewTool("lookup_number",
	mcp.WithDescription(
		"Look a phone number up in the local risk cache only. "+
			"Faster than check_number and never contacts remote providers, "+
			"but returns a miss for numbers the shield has not seen before."),
	mcp.WithString("number",
		mcp.Required(),
		mcp.Description("The phone number to look up")),
)

var ToolReportNumber = mcp.NewTool("report_number",
	mcp.WithDescription(
		"Report a phone number as a scam or spam caller. "+
			"Reports feed the shared risk cache so future calls from this number are blocked or silenced."),
	mcp.WithString("number",
		mcp.Required(),
		mcp.Description("The phone number to report")),
	mcp.WithString("category",
		mcp.Description("Report category: 'scam' (fraud attempt) or 'spam' (unwanted marketing). Defaults to spam."),
		mcp.Enum("scam", "spam")),
	mcp.WithNumber("confidence",
		mcp.Description("How confident the report is, between 0 and 1 (default 0.5)")),
	mcp.WithString("comment",
		mcp.Description("Optional free-text description of the call")),
)

var ToolAddToWhitelist = mcp.NewTool("add_to_whitelist",
	mcp.WithDescription(
		"Mark a phone number as always safe. Whitelisted numbers bypass all "+
			"scam and spam checks and never expire until explicitly removed."),
	mcp.WithString("number",
		mcp.Required(),
		mcp.Description("The phone number to whitelist")),
)

var ToolRemoveFromWhitelist = mcp.NewTool("remove_from_whitelist",
	mcp.WithDescription(
		"Remove a phone number from the whitelist so it is screened again."),
	mcp.WithString("number",
		mcp.Required(),
		mcp.Description("The phone number to remove")),
)

var ToolGetShieldStats = mcp.NewTool("get_shield_stats",
	mcp.WithDescription(
		"Get ScamShield statistics: calls resolved per action (allowed, silenced, "+
			"blocked, auto-rejected), cache tier sizes, and active call sessions."),
)
