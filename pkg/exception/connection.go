package exception

import "github.com/yanun0323/errors"

// Push-channel errors
var (
	ErrConnectionClosed  = errors.New("push: connection closed")
	ErrAuthRejected      = errors.New("push: authentication rejected")
	ErrAuthTimeout       = errors.New("push: authentication timed out")
	ErrRetriesExhausted  = errors.New("push: retries exhausted, manual reconnect required")
	ErrManagerNotRunning = errors.New("push: connection manager not running")
)
