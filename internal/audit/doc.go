// Package audit queues link and session events and hands them to a sink from a
// single goroutine.
//
// Sinks: [NoOpSink], [ChannelSink] (tests), [JSONWriterSink] (one JSON object
// per line) and [SlogSink]. The [Dispatcher] stamps missing timestamps and
// counts drops; which events exist is decided by the engine.
package audit
