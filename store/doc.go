// Package store implements the hub's differential, TTL-bounded data
// stores: one generic record store instantiated for each SIRI data
// category (SX, VM, ET, PT), a per-consumer change tracker, and the
// distribution service that composes the two to answer snapshot and delta
// reads.
//
// Records are keyed by "datasetID:naturalKey" and replaced only by a
// strictly newer ResponseTimestamp; out-of-order and duplicate arrivals
// are discarded. Every accepted change fans out into the pending set of
// every consumer that has polled recently, giving each consumer its own
// independent delta stream.
package store
