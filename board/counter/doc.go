// Package counter holds the named counters that make up the dashboard.
//
// A Board is a fixed, ordered set of non-negative integer counters. The
// default board tracks orders, customers and products. Counters are added
// to and removed from one at a time; removing from a counter at zero is an
// error rather than a no-op so callers can report it.
//
// Snapshots:
//
// Snapshot copies every counter in board order. Payload renders it as the
// flat JSON object that dashboard views display:
//
//	board, _ := counter.New(counter.DefaultMetrics()...)
//	board.Add(counter.Orders)
//	payload, _ := board.Snapshot().Payload()
//	// {"orders":1,"customers":0,"products":0}
//
// Board is safe for concurrent use.
package counter
