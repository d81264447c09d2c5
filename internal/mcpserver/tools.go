package mcpserver

import "github.com/mark3labs/mcp-go/mcp"

// Tool definitions for the ScamSquatch MCP server.
// Descriptions are what the LLM reads to decide which tool to use.

var ToolAnalyzeSwap = mcp.NewTool("analyze_swap",
	mcp.WithDescription(
		"Fetch swap routes and risk-score them before signing anything. "+
			"Returns every candidate route with a combined risk assessment, the safest "+
			"recommended route, and safer alternatives to the top pick. "+
			"Use this before approving any swap or bridge transaction."),
	mcp.WithString("from_token",
		mcp.Required(),
		mcp.Description("Source token contract address (e.g. '0xfFf9...')")),
	mcp.WithString("to_token",
		mcp.Required(),
		mcp.Description("Destination token contract address")),
	mcp.WithString("amount",
		mcp.Required(),
		mcp.Description("Input amount in the token's smallest unit (wei for 18-decimal tokens)")),
	mcp.WithString("from_chain_id",
		mcp.Required(),
		mcp.Description("Source chain ID (e.g. '11155111' for Sepolia)")),
	mcp.WithString("to_chain_id",
		mcp.Required(),
		mcp.Description("Destination chain ID. Differs from from_chain_id for cross-chain swaps.")),
	mcp.WithString("user_address",
		mcp.Description("Wallet address the swap will be sent from")),
)

var ToolGetBridgeQuote = mcp.NewTool("get_bridge_quote",
	mcp.WithDescription(
		"Get a cross-chain bridge quote with fee, output amount, and estimated transfer time. "+
			"The quote is risk-assessed separately by analyze_swap; use this when you only need "+
			"the bridge economics."),
	mcp.WithNumber("from_chain",
		mcp.Required(),
		mcp.Description("Source chain ID")),
	mcp.WithNumber("to_chain",
		mcp.Required(),
		mcp.Description("Destination chain ID")),
	mcp.WithString("from_token",
		mcp.Required(),
		mcp.Description("Source token contract address")),
	mcp.WithString("to_token",
		mcp.Required(),
		mcp.Description("Destination token contract address")),
	mcp.WithString("from_amount",
		mcp.Required(),
		mcp.Description("Amount to bridge in the token's smallest unit")),
)

var ToolBridgeStatus = mcp.NewTool("bridge_status",
	mcp.WithDescription(
		"Check the status of an in-flight bridge transfer by source-chain transaction hash. "+
			"Returns pending, completed (with the destination-chain transaction), or failed."),
	mcp.WithString("tx_hash",
		mcp.Required(),
		mcp.Description("Source chain transaction hash (0x + 64 hex chars)")),
)

var ToolSimulateSwap = mcp.NewTool("simulate_swap",
	mcp.WithDescription(
		"Preview a swap before signing: gas estimate, required token approval, "+
			"security checks for drain patterns, and expected output after fees and slippage."),
	mcp.WithString("route_json",
		mcp.Required(),
		mcp.Description("A route object from a previous analyze_swap result, as JSON")),
	mcp.WithString("user_address",
		mcp.Required(),
		mcp.Description("Wallet address the swap will be sent from")),
	mcp.WithString("from_amount",
		mcp.Required(),
		mcp.Description("Input amount in the token's smallest unit")),
	mcp.WithString("to_amount",
		mcp.Description("Expected output amount, used for the preview")),
)

var ToolListTokens = mcp.NewTool("list_tokens",
	mcp.WithDescription(
		"List the tradable tokens known on a chain, with symbols, names, and contract addresses."),
	mcp.WithString("chain_id",
		mcp.Description("Chain ID to list tokens for (defaults to the server's configured chain)")),
)

var ToolRecentAssessments = mcp.NewTool("recent_assessments",
	mcp.WithDescription(
		"Show recently recorded risk assessments: route, chains, overall score, and risk level. "+
			"Useful for reviewing what was scored and how risky it looked."),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of assessments to return (default 20, max 100)")),
)
