package enum

// ConnState is the push-channel lifecycle state.
type ConnState uint8

const (
	ConnDisconnected ConnState = iota
	ConnConnecting
	ConnAuthenticating
	ConnConnected
	// ConnSuspended means automatic retries are exhausted; only an external
	// connectivity-restored trigger resumes connection attempts.
	ConnSuspended
)

func (s ConnState) String() string {
	switch s {
	case ConnDisconnected:
		return "disconnected"
	case ConnConnecting:
		return "connecting"
	case ConnAuthenticating:
		return "authenticating"
	case ConnConnected:
		return "connected"
	case ConnSuspended:
		return "suspended"
	default:
		return "unknown"
	}
}
