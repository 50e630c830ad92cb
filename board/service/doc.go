// Package service provides the business logic layer for the dashboard.
//
// DashboardService wraps a counter.Board and takes care of the side effects
// of every change: the new snapshot is persisted through a
// store.SnapshotStore and its payload is published to connected views.
//
// Usage:
//
//	svc := service.NewDashboardService(board, fileStore, hub, logger)
//	if _, err := svc.Restore(ctx); err != nil { ... }
//	result, err := svc.Add(ctx, counter.Orders)
//
// HTTP handlers, MCP tools and the Kafka consumer all go through this
// interface so every path produces the same persisted and published state.
package service
