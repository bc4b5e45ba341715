package uci

import "fmt"

// SpawnError reports that the engine process could not be started. This is a
// configuration or environment problem (missing binary, bad permissions), not
// an engine misbehavior, so it is kept distinct from ProtocolError and carries
// the path that was attempted.
type SpawnError struct {
	Path string
	Err  error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("failed to start engine '%s': %v", e.Path, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// ProtocolError reports that the engine violated the line protocol: it closed
// its output early, never produced an expected token within the line budget,
// or finished an analysis without any usable data. A session that returned a
// ProtocolError is in an undefined state and should be closed, not reused.
type ProtocolError struct {
	Reason string
}

func (e *ProtocolError) Error() string { return e.Reason }

func protocolErrorf(format string, args ...any) *ProtocolError {
	return &ProtocolError{Reason: fmt.Sprintf(format, args...)}
}
