// Package api provides the HTTP surface of the dashboard server.
//
// Endpoints:
//
// Feed:
//   - GET /dashboard - WebSocket; sends the current snapshot on connect and
//     every new snapshot afterwards, one JSON object per text frame
//   - GET /view - The current snapshot rendered as HTML cards
//
// Shortcuts for the default metrics:
//   - POST /sign-up, DELETE /sign-off - customers
//   - POST /order, DELETE /order - orders
//   - POST /product, DELETE /product - products
//
// REST:
//   - GET /api/dashboard - Current snapshot with its update time
//   - GET /api/metrics - Metric names in display order
//   - POST /api/metrics/{name} - Add one to a metric
//   - DELETE /api/metrics/{name} - Remove one from a metric
//   - POST /api/reset - Set every metric to zero
//   - GET /api/schema - JSON schema of the feed payload
//
// Misc:
//   - GET / - Alive page
//   - GET /health - Health check with the number of connected views
//
// Error Handling:
//
// Errors are returned as JSON with appropriate HTTP status codes:
//
//	{"error": "nothing to remove: no order remains to remove"}
//
// Removing from a metric at zero is 400, an unknown metric is 404.
package api
