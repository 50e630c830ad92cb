package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/wricardo/telemetry-dashboard/board/counter"
	"github.com/wricardo/telemetry-dashboard/board/service"
	"github.com/wricardo/telemetry-dashboard/telemetry"
	"github.com/wricardo/telemetry-dashboard/view"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Telemetry Dashboard",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Telemetry Dashboard - MCP Interface

This is a thin client that proxies all requests to the dashboard REST API.

The dashboard is a fixed set of named counters (for example orders, customers
and products). Every change is pushed to connected dashboard views.

AVAILABLE TOOLS:
- dashboard_state: Show every counter as a card
- list_metrics: List the metric names
- add_metric: Add one to a metric
- remove_metric: Remove one from a metric (fails at zero)
- reset_dashboard: Set every metric back to zero`),
	)

	c.registerTools()
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "dashboard_state",
		Description: "Show the current value of every metric as text cards",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleDashboardState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_metrics",
		Description: "List the metric names in display order",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListMetrics)

	metricArg := map[string]interface{}{
		"metric": map[string]interface{}{
			"type":        "string",
			"description": "Metric name, e.g. orders",
		},
	}

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "add_metric",
		Description: "Add one to a metric",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: metricArg,
			Required:   []string{"metric"},
		},
	}, c.handleAddMetric)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "remove_metric",
		Description: "Remove one from a metric. Fails when the metric is already zero",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: metricArg,
			Required:   []string{"metric"},
		},
	}, c.handleRemoveMetric)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "reset_dashboard",
		Description: "Set every metric back to zero",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleReset)
}

// GetMCPServer returns the underlying MCP server
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// ServeHTTP answers one JSON-RPC message per POST request
func (c *Client) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	response := c.mcpServer.HandleMessage(r.Context(), body)
	if response == nil {
		// notifications have no response
		w.WriteHeader(http.StatusAccepted)
		return
	}

	responseData, err := json.Marshal(response)
	if err != nil {
		http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(responseData)
}

// apiCall makes an HTTP request to the REST API
func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

// Tool handlers

func (c *Client) handleDashboardState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var snapshot counter.Snapshot
	if err := c.apiCall(ctx, "GET", "/api/dashboard", nil, &snapshot); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	text, err := formatSnapshot(&snapshot)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(text), nil
}

func (c *Client) handleListMetrics(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var resp struct {
		Metrics []string `json:"metrics"`
	}
	if err := c.apiCall(ctx, "GET", "/api/metrics", nil, &resp); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d metrics:\n", len(resp.Metrics))
	for _, m := range resp.Metrics {
		fmt.Fprintf(&b, "- %s\n", m)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleAddMetric(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return c.changeMetric(ctx, request, "POST")
}

func (c *Client) handleRemoveMetric(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return c.changeMetric(ctx, request, "DELETE")
}

func (c *Client) changeMetric(ctx context.Context, request mcp.CallToolRequest, method string) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	metric, _ := args["metric"].(string)
	metric = strings.TrimSpace(metric)
	if metric == "" {
		return mcp.NewToolResultError("metric is required"), nil
	}

	var result service.UpdateResult
	if err := c.apiCall(ctx, method, "/api/metrics/"+url.PathEscape(metric), nil, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatUpdateResult(&result)), nil
}

func (c *Client) handleReset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var snapshot counter.Snapshot
	if err := c.apiCall(ctx, "POST", "/api/reset", nil, &snapshot); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	text, err := formatSnapshot(&snapshot)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText("Dashboard reset.\n\n" + text), nil
}

// Formatting helpers

// formatSnapshot renders a snapshot the way the dashboard view shows it
func formatSnapshot(snapshot *counter.Snapshot) (string, error) {
	payload, err := snapshot.Payload()
	if err != nil {
		return "", err
	}
	pairs, err := telemetry.ParseMessage(payload)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	if len(pairs) == 0 {
		b.WriteString("(no data)\n")
	}
	for _, card := range view.CardsFor(pairs) {
		b.WriteString(card.Text())
	}
	if !snapshot.UpdatedAt.IsZero() {
		fmt.Fprintf(&b, "Updated: %s\n", snapshot.UpdatedAt.Format(time.RFC3339))
	}
	return b.String(), nil
}

func formatUpdateResult(result *service.UpdateResult) string {
	var b strings.Builder
	if result.Message != "" {
		b.WriteString(result.Message)
	} else {
		fmt.Fprintf(&b, "%s is now %d", result.Metric, result.Value)
	}
	b.WriteString("\n")

	if result.Snapshot != nil {
		if text, err := formatSnapshot(result.Snapshot); err == nil {
			b.WriteString("\n")
			b.WriteString(text)
		}
	}
	return b.String()
}
