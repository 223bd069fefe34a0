package mpsc

import "github.com/pkg/errors"

// ErrClosed is returned by Send once every Sender clone has been closed.
var ErrClosed = errors.New("mpsc: channel closed")
