// Package router maps inbound bus messages to typed domain events.
//
// A Table lists every topic the controller understands together with the
// codec that decodes its payload. The table is validated once at startup:
// duplicate topics, wildcard topics and topics that no subscription filter
// covers are configuration errors and stop the process before it connects.
//
// After startup, routing is a single map lookup. Unknown topics produce no
// events and no error, since the subscription filters are broader than the
// table on purpose.
//
//	r, err := router.New(router.FromConfig(cfg.Topics))
//	events, err := r.Route("sensor/greenhouse/moisture", []byte("41.5"))
package router
