package reconciler

import "errors"

var (
	// ErrCommandNotSent is returned by Toggle when the command could not be
	// published. It wraps the publisher's error (typically
	// mqtt.ErrNotConnected). The optimistic local update is kept.
	ErrCommandNotSent = errors.New("reconciler: command not sent")

	// ErrNoTopic is returned when no topic is configured for a command.
	ErrNoTopic = errors.New("reconciler: no topic configured for command")
)
