// Package dedupe provides inbound message deduplication using a time-based
// cache, guaranteeing at-most-one forwarding per message id within the TTL
// window. The cache is memory-resident: ids redelivered after the window has
// elapsed are treated as new.
package dedupe
