// Package mcp provides the Model Context Protocol interface of the dashboard.
//
// Client is a thin MCP server whose tools proxy to the REST API, so an agent
// changes the dashboard exactly like any other HTTP caller and every
// connected view sees the result.
//
// MCP Tools:
//   - dashboard_state: Every metric rendered as a text card
//   - list_metrics: Metric names in display order
//   - add_metric: Add one to a metric
//   - remove_metric: Remove one from a metric
//   - reset_dashboard: Set every metric to zero
//
// Transport Modes:
//   - Stdio: server.ServeStdio(client.GetMCPServer())
//   - HTTP: mount the client itself, it answers POST /mcp
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8082")
//	mux.Handle("/mcp", client)
package mcp
