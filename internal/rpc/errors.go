package rpc

import "fmt"

// TransportError reports that the backend could not be reached or returned
// a non-2xx status before any JSON-RPC envelope was read.
type TransportError struct {
	Status int // zero when the request never completed
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("backend returned status %d", e.Status)
	}
	return fmt.Sprintf("backend unreachable: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ProtocolError reports a malformed JSON-RPC envelope: undecodable body,
// or a response carrying neither result nor error.
type ProtocolError struct {
	Reason string
	Err    error
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("protocol violation: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("protocol violation: %s", e.Reason)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// RemoteError carries a well-formed error member returned by the backend.
// The message content is the server's; it never panics the caller.
type RemoteError struct {
	Code    int
	Message string
}

func (e *RemoteError) Error() string { return e.Message }
