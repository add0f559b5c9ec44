// Package subscription manages the lifecycle and health of upstream feed
// subscriptions.
//
// A subscription's configuration (Setup) is immutable apart from its
// active flag; its runtime counters (last activity, activation time, hit
// and byte counts) live in separate maps with an independent lifecycle:
// soft removal deactivates the setup but preserves the counters, forced
// removal clears everything.
//
// Health is a derived predicate, not a stored state: a subscription is
// unhealthy once it has been silent for five heartbeat intervals, or (for
// SUBSCRIBE-mode subscriptions only) once its lease has run out. The
// Monitor polls the registry periodically and asks a Reconnector to
// re-establish unhealthy feeds.
package subscription
