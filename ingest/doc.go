// Package ingest feeds the dashboard from a Kafka topic.
//
// Each Kafka message carries one counter event:
//
//	{"metric": "orders", "op": "add"}
//	{"metric": "products", "op": "remove"}
//
// Consumer applies events to a service.DashboardService in partition order.
// Malformed events and rejected changes are logged and skipped; they never
// stop the consumer. Producer writes the same events and is used by the
// simulator.
package ingest
