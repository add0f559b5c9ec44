// Package ttlkv provides a TTL-indexed concurrent key-value map.
//
// Every entry carries its own expiration horizon; expired entries are
// treated as absent on read and reclaimed in the background. Two
// implementations share the Map interface:
//
//   - Local: an in-process map for single-instance deployments
//   - KV: a NATS JetStream KeyValue bucket so several hub instances can
//     share record and subscription state
//
// The Map contract is deliberately non-failing: the backing store is
// treated as available, and transient backend errors degrade to cache
// misses rather than surfacing to callers.
package ttlkv
