// Package telemetry decodes dashboard telemetry messages.
//
// A telemetry message is a single JSON object carried in one WebSocket text
// frame. Its keys are not known in advance and its values may be any JSON
// type. The package turns such an object into an ordered list of display
// pairs without losing type information:
//
//	pairs, err := telemetry.ParseMessage([]byte(`{"temp": 21.5, "humidity": 60}`))
//	// pairs[0] = {Label: "temp", Value: 21.5}
//	// pairs[1] = {Label: "humidity", Value: 60}
//
// Ordering:
//
// Pairs are returned in the order their keys appear in the document. When a
// key is repeated, the last value wins but the pair keeps the position of the
// first occurrence. Nested objects keep their key order as well.
//
// Values:
//
// Value is a tagged union over null, boolean, number, string, object and
// array. Numbers keep their original literal so "60" renders as 60 and not
// 60.000000. String() is the canonical text shown on a card.
package telemetry
