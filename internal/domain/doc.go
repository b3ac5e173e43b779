// Package domain holds the plain values the relay moves around and the
// sentinel errors it reports. It imports nothing outside the standard library.
//
// A [Frame] is the bytes returned by one read on an upstream connection; the
// relay never parses it. A [Source] names one RFLink gateway and its
// [Endpoint]; a Source without host or port is disabled. [EnqueueResult]
// tells a producer whether the queue kept its frame.
package domain
