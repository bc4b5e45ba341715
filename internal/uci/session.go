// Package uci drives an external UCI engine as a subprocess. A Session owns
// the engine process and its pipes, performs the startup handshake, issues
// analysis commands, and folds the streamed info lines into ranked MultiPV
// results. I/O is fully synchronous and blocking: a session supports one
// in-flight analysis at a time and the caller is responsible for
// serialization. Independent sessions are independent processes and may run
// concurrently. Teardown always sends a best-effort quit and always reaps
// the process, whether Close is called, construction fails midway, or the
// session is abandoned to the garbage collector.
package uci

import (
	"fmt"
	"runtime"

	"chessprep/internal/rules"
)

// Session is a live, handshaken engine process. The zero value is not
// usable; sessions come from Start and a returned session has always
// completed the handshake.
type Session struct {
	tr        *transport
	translate Translator
	cleanup   runtime.Cleanup
}

// Option configures a Session before its handshake runs.
type Option func(*Session)

// WithTranslator replaces the default display-notation translator
// (rules.TranslatePV). Passing nil disables translation; results then carry
// protocol move tokens only.
func WithTranslator(fn Translator) Option {
	return func(s *Session) { s.translate = fn }
}

// Start launches the engine at enginePath and performs the startup
// handshake: "uci" awaiting "uciok", then "isready" awaiting "readyok".
// On any handshake failure the spawned process is torn down before the
// error is returned, so a failed Start never leaks a process.
func Start(enginePath string, opts ...Option) (*Session, error) {
	tr, err := spawnTransport(enginePath)
	if err != nil {
		return nil, err
	}

	s := &Session{tr: tr, translate: rules.TranslatePV}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.handshake(); err != nil {
		_ = tr.close()
		return nil, err
	}

	// Backstop for sessions abandoned without Close: quit-and-reap still
	// runs at collection time. Callers should still defer Close; this only
	// guarantees the process is never orphaned.
	s.cleanup = runtime.AddCleanup(s, func(tr *transport) { _ = tr.close() }, tr)
	return s, nil
}

func (s *Session) handshake() error {
	if err := s.tr.send("uci"); err != nil {
		return err
	}
	if err := awaitToken(s.tr, "uciok", awaitTokenMaxLines); err != nil {
		return err
	}
	if err := s.tr.send("isready"); err != nil {
		return err
	}
	return awaitToken(s.tr, "readyok", awaitTokenMaxLines)
}

// Analyze runs a single-PV analysis of the position at the given depth.
// Depth 0 selects DefaultDepth.
func (s *Session) Analyze(fen string, depth int) (*Analysis, error) {
	return s.AnalyzeMultiPV(fen, depth, 1)
}

// AnalyzeMultiPV analyzes the position tracking up to multipv ranked lines.
// The width is clamped into [1, MaxMultiPV] and depth 0 selects
// DefaultDepth. The readiness exchange is repeated after setting the option
// so the engine has applied it before the position is sent. The call blocks
// until the engine's terminal bestmove line (or a protocol failure); there
// is no cancellation short of Close.
func (s *Session) AnalyzeMultiPV(fen string, depth, multipv int) (*Analysis, error) {
	depth = normalizeDepth(depth)
	multipv = normalizeMultiPV(multipv)

	if err := s.tr.send(fmt.Sprintf("setoption name MultiPV value %d", multipv)); err != nil {
		return nil, err
	}
	if err := s.tr.send("isready"); err != nil {
		return nil, err
	}
	if err := awaitToken(s.tr, "readyok", awaitTokenMaxLines); err != nil {
		return nil, err
	}
	if err := s.tr.send("position fen " + fen); err != nil {
		return nil, err
	}
	if err := s.tr.send(fmt.Sprintf("go depth %d", depth)); err != nil {
		return nil, err
	}

	return collectAnalysis(s.tr, s.translate, fen, depth, multipv)
}

// Close tears the session down: best-effort quit, then wait, killing the
// process if it outstays the grace window. Idempotent; always reaps.
func (s *Session) Close() error {
	s.cleanup.Stop()
	return s.tr.close()
}

// AnalyzePosition spawns a throwaway session for one single-PV analysis.
func AnalyzePosition(enginePath, fen string, depth int) (*Analysis, error) {
	return AnalyzePositionMultiPV(enginePath, fen, depth, 1)
}

// AnalyzePositionMultiPV spawns a throwaway session for one MultiPV
// analysis. The session is torn down on every path.
func AnalyzePositionMultiPV(enginePath, fen string, depth, multipv int) (*Analysis, error) {
	s, err := Start(enginePath)
	if err != nil {
		return nil, err
	}
	defer s.Close()
	return s.AnalyzeMultiPV(fen, depth, multipv)
}
