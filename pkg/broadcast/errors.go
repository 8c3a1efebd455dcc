package broadcast

import "errors"

var (
	ErrBroadcasterClosed = errors.New("broadcaster is closed")
	ErrUnknownPolicy     = errors.New("unknown overflow policy")
)
