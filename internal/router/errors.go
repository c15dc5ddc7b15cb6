package router

import "errors"

var (
	// ErrAmbiguousTopic is returned when two routes share a topic.
	ErrAmbiguousTopic = errors.New("router: ambiguous topic")

	// ErrInvalidRoute is returned when a route is incomplete or its topic
	// is empty or contains wildcards.
	ErrInvalidRoute = errors.New("router: invalid route")

	// ErrUncoveredTopic is returned when no subscription filter matches a route topic.
	ErrUncoveredTopic = errors.New("router: topic not covered by any subscription")
)
