// Package trace records spans around the analysis core.
//
// The driver opens a span per operation, the database wraps the entry
// points (infer, trait_solve) and, at detail level, every derived query
// evaluation gets a span tagged with its runtime, revision and key. Nothing
// in the query engine reads trace output back.
//
//	tyinc check --trace=- --trace-level=detail workspace.toml
//	tyinc check --trace=run.msgpack --trace-mode=both workspace.toml
//
// Levels gate scopes: phase emits driver and entry spans, detail adds
// query spans, debug adds waits and cycle recovery.
//
// Output is text or NDJSON through zap encoders, or a msgpack stream that
// ReadMsgpack decodes back. A ring keeps the most recent events in memory
// so a failed run can be dumped after the fact.
package trace
