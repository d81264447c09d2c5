package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// Handlers holds the handler functions for each MCP tool.
type Handlers struct {
	client *APIClient
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(client *APIClient) *Handlers {
	return &Handlers{client: client}
}

// HandleAnalyzeSwap fetches and risk-scores routes for a swap.
func (h *Handlers) HandleAnalyzeSwap(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	body := map[string]string{
		"fromToken":   req.GetString("from_token", ""),
		"toToken":     req.GetString("to_token", ""),
		"amount":      req.GetString("amount", ""),
		"fromChainId": req.GetString("from_chain_id", ""),
		"toChainId":   req.GetString("to_chain_id", ""),
	}
	for field, v := range body {
		if v == "" {
			return mcp.NewToolResultError(field + " is required"), nil
		}
	}
	if v := req.GetString("user_address", ""); v != "" {
		body["userAddress"] = v
	}

	raw, err := h.client.GetQuote(ctx, body)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to analyze swap: %v", err)), nil
	}

	text, err := formatQuote(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse quote: %v", err)), nil
	}

	return mcp.NewToolResultText(text), nil
}

// HandleGetBridgeQuote fetches a cross-chain bridge quote.
func (h *Handlers) HandleGetBridgeQuote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	fromChain := req.GetInt("from_chain", 0)
	toChain := req.GetInt("to_chain", 0)
	if fromChain == 0 || toChain == 0 {
		return mcp.NewToolResultError("from_chain and to_chain are required"), nil
	}

	body := map[string]any{
		"fromChain":  fromChain,
		"toChain":    toChain,
		"fromToken":  req.GetString("from_token", ""),
		"toToken":    req.GetString("to_token", ""),
		"fromAmount": req.GetString("from_amount", ""),
	}

	raw, err := h.client.GetBridgeQuote(ctx, body)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to get bridge quote: %v", err)), nil
	}

	text, err := formatBridgeQuote(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse bridge quote: %v", err)), nil
	}

	return mcp.NewToolResultText(text), nil
}

// HandleBridgeStatus checks an in-flight bridge transfer.
func (h *Handlers) HandleBridgeStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	txHash := req.GetString("tx_hash", "")
	if txHash == "" {
		return mcp.NewToolResultError("tx_hash is required"), nil
	}

	raw, err := h.client.GetBridgeStatus(ctx, txHash)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to check bridge status: %v", err)), nil
	}

	text, err := formatBridgeStatus(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse status: %v", err)), nil
	}

	return mcp.NewToolResultText(text), nil
}

// HandleSimulateSwap previews a swap before signing.
func (h *Handlers) HandleSimulateSwap(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	routeJSON := req.GetString("route_json", "")
	userAddress := req.GetString("user_address", "")
	fromAmount := req.GetString("from_amount", "")
	if routeJSON == "" || userAddress == "" || fromAmount == "" {
		return mcp.NewToolResultError("route_json, user_address and from_amount are required"), nil
	}

	var route map[string]any
	if err := json.Unmarshal([]byte(routeJSON), &route); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("route_json is not valid JSON: %v", err)), nil
	}

	body := map[string]any{
		"route":       route,
		"userAddress": userAddress,
		"fromAmount":  fromAmount,
	}
	if v := req.GetString("to_amount", ""); v != "" {
		body["toAmount"] = v
	}

	raw, err := h.client.Simulate(ctx, body)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Simulation failed: %v", err)), nil
	}

	text, err := formatSimulation(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse simulation: %v", err)), nil
	}

	return mcp.NewToolResultText(text), nil
}

// HandleListTokens lists tradable tokens on a chain.
func (h *Handlers) HandleListTokens(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	chainID := req.GetString("chain_id", "")

	raw, err := h.client.ListTokens(ctx, chainID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list tokens: %v", err)), nil
	}

	text, err := formatTokenList(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse tokens: %v", err)), nil
	}

	return mcp.NewToolResultText(text), nil
}

// HandleRecentAssessments lists recently recorded risk assessments.
func (h *Handlers) HandleRecentAssessments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := req.GetInt("limit", 0)

	raw, err := h.client.RecentAssessments(ctx, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to load assessments: %v", err)), nil
	}

	text, err := formatAssessmentList(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse assessments: %v", err)), nil
	}

	return mcp.NewToolResultText(text), nil
}

// ---------------------------------------------------------------------------
// Response formatting
// ---------------------------------------------------------------------------

func formatQuote(raw json.RawMessage) (string, error) {
	var resp struct {
		IsCrossChain bool `json:"isCrossChain"`
		Routes       []struct {
			Route      map[string]any `json:"route"`
			Assessment map[string]any `json:"riskAssessment"`
		} `json:"routes"`
		BestRoute *struct {
			Route      map[string]any `json:"route"`
			Assessment map[string]any `json:"riskAssessment"`
		} `json:"bestRoute"`
		SaferAlternatives []struct {
			Route      map[string]any `json:"route"`
			Assessment map[string]any `json:"riskAssessment"`
		} `json:"saferAlternatives"`
		BridgeQuote map[string]any `json:"bridgeQuote"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", err
	}

	var sb strings.Builder
	if resp.IsCrossChain {
		sb.WriteString("Cross-chain swap.\n")
		if resp.BridgeQuote != nil {
			fmt.Fprintf(&sb, "Bridge: %s, fee %s, ~%gs\n",
				getString(resp.BridgeQuote, "bridgeProvider"),
				getString(resp.BridgeQuote, "bridgeFee"),
				floatOrZero(resp.BridgeQuote, "estimatedTime"))
		}
	}

	fmt.Fprintf(&sb, "Found %d route(s):\n\n", len(resp.Routes))
	for i, r := range resp.Routes {
		writeCandidate(&sb, i+1, r.Route, r.Assessment)
	}

	if resp.BestRoute != nil {
		sb.WriteString("\nRecommended route: ")
		sb.WriteString(getString(resp.BestRoute.Route, "id"))
		fmt.Fprintf(&sb, " (risk %s, %.0f/100)\n",
			getString(resp.BestRoute.Assessment, "riskLevel"),
			floatOrZero(resp.BestRoute.Assessment, "overallRiskScore"))
	} else {
		sb.WriteString("\nNo route scored below the safety threshold. Do not sign this swap.\n")
	}

	if len(resp.SaferAlternatives) > 0 {
		sb.WriteString("Safer alternatives:\n")
		for _, alt := range resp.SaferAlternatives {
			fmt.Fprintf(&sb, "  %s (risk %s, %.0f/100)\n",
				getString(alt.Route, "id"),
				getString(alt.Assessment, "riskLevel"),
				floatOrZero(alt.Assessment, "overallRiskScore"))
		}
	}

	return sb.String(), nil
}

func writeCandidate(sb *strings.Builder, n int, route, assessment map[string]any) {
	fmt.Fprintf(sb, "%d. %s via %s\n", n, getString(route, "id"), protocolsOf(route))
	fmt.Fprintf(sb, "   Output: %s\n", getString(route, "toAmount"))
	fmt.Fprintf(sb, "   Risk: %s (%.0f/100)\n",
		getString(assessment, "riskLevel"),
		floatOrZero(assessment, "overallRiskScore"))
	if warnings, ok := assessment["warnings"].([]any); ok && len(warnings) > 0 {
		for _, w := range warnings {
			if s, ok := w.(string); ok {
				fmt.Fprintf(sb, "   Warning: %s\n", s)
			}
		}
	}
}

func protocolsOf(route map[string]any) string {
	raw, ok := route["protocols"].([]any)
	if !ok || len(raw) == 0 {
		return "unknown"
	}
	parts := make([]string, 0, len(raw))
	for _, p := range raw {
		if s, ok := p.(string); ok {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " -> ")
}

func formatBridgeQuote(raw json.RawMessage) (string, error) {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString("Bridge Quote:\n")
	fmt.Fprintf(&sb, "  Provider: %s\n", getString(m, "bridgeProvider"))
	fmt.Fprintf(&sb, "  From chain %g to chain %g\n", floatOrZero(m, "fromChain"), floatOrZero(m, "toChain"))
	fmt.Fprintf(&sb, "  Amount in:  %s\n", getString(m, "fromAmount"))
	fmt.Fprintf(&sb, "  Amount out: %s\n", getString(m, "toAmount"))
	fmt.Fprintf(&sb, "  Bridge fee: %s\n", getString(m, "bridgeFee"))
	fmt.Fprintf(&sb, "  Estimated time: %gs\n", floatOrZero(m, "estimatedTime"))
	fmt.Fprintf(&sb, "  Quote ID: %s\n", getString(m, "id"))

	return sb.String(), nil
}

func formatBridgeStatus(raw json.RawMessage) (string, error) {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return "", err
	}

	status := getString(m, "status")
	var sb strings.Builder
	fmt.Fprintf(&sb, "Bridge transfer: %s\n", status)
	if v := getString(m, "sourceChainTx"); v != "" {
		fmt.Fprintf(&sb, "  Source tx: %s\n", v)
	}
	if v := getString(m, "targetChainTx"); v != "" {
		fmt.Fprintf(&sb, "  Target tx: %s\n", v)
	}
	if v := getString(m, "error"); v != "" {
		fmt.Fprintf(&sb, "  Error: %s\n", v)
	}

	return sb.String(), nil
}

func formatSimulation(raw json.RawMessage) (string, error) {
	var resp struct {
		Simulation map[string]any `json:"simulation"`
		Approval   map[string]any `json:"approval"`
		Security   struct {
			Checks []map[string]any `json:"checks"`
		} `json:"security"`
		Preview map[string]any `json:"preview"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString("Swap Preview:\n")
	fmt.Fprintf(&sb, "  Gas: %s (limit %s) at %s wei\n",
		getString(resp.Simulation, "gasUsed"),
		getString(resp.Simulation, "gasLimit"),
		getString(resp.Simulation, "gasPrice"))
	fmt.Fprintf(&sb, "  Total gas cost: %s wei\n", getString(resp.Simulation, "totalCost"))

	if required, ok := resp.Approval["required"].(bool); ok && required {
		sb.WriteString("  Approval: required before the swap\n")
	} else {
		sb.WriteString("  Approval: not required\n")
	}

	flagged := 0
	for _, check := range resp.Security.Checks {
		if passed, ok := check["passed"].(bool); ok && !passed {
			flagged++
			fmt.Fprintf(&sb, "  Security: FAILED %s: %s\n",
				getString(check, "name"), getString(check, "detail"))
		}
	}
	if flagged == 0 {
		sb.WriteString("  Security: all checks passed\n")
	}

	fmt.Fprintf(&sb, "  Expected output: %s (slippage %g%%)\n",
		getString(resp.Preview, "outputAmount"),
		floatOrZero(resp.Preview, "slippage"))

	return sb.String(), nil
}

func formatTokenList(raw json.RawMessage) (string, error) {
	var resp struct {
		ChainID int64            `json:"chainId"`
		Tokens  []map[string]any `json:"tokens"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", err
	}

	if len(resp.Tokens) == 0 {
		return "No tokens found.", nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d token(s) on chain %d:\n\n", len(resp.Tokens), resp.ChainID)
	for i, tok := range resp.Tokens {
		fmt.Fprintf(&sb, "%d. %s (%s)\n   %s\n",
			i+1, getString(tok, "symbol"), getString(tok, "name"), getString(tok, "address"))
	}
	return sb.String(), nil
}

func formatAssessmentList(raw json.RawMessage) (string, error) {
	var resp struct {
		Assessments []map[string]any `json:"assessments"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", err
	}

	if len(resp.Assessments) == 0 {
		return "No assessments recorded yet.", nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Last %d assessment(s):\n\n", len(resp.Assessments))
	for i, a := range resp.Assessments {
		fmt.Fprintf(&sb, "%d. Route %s (chain %g -> %g)\n",
			i+1, getString(a, "routeId"), floatOrZero(a, "fromChain"), floatOrZero(a, "toChain"))
		fmt.Fprintf(&sb, "   Risk: %s (%.0f/100) at %s\n",
			getString(a, "riskLevel"), floatOrZero(a, "overallRiskScore"), getString(a, "assessedAt"))
		if warnings, ok := a["warnings"].([]any); ok {
			for _, w := range warnings {
				if s, ok := w.(string); ok {
					fmt.Fprintf(&sb, "   Warning: %s\n", s)
				}
			}
		}
	}
	return sb.String(), nil
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

func floatOrZero(m map[string]any, key string) float64 {
	if v, ok := m[key].(float64); ok {
		return v
	}
	return 0
}
