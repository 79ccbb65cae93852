// Package strategy is the engine's pure wiring object (component G):
// a small set of caller-supplied hooks that the connection driver
// calls out to, validated once at construction time rather than
// nil-checked on every request.
package strategy

import (
	"context"
	"errors"
	"net"

	"github.com/yourusername/originserver/http11"
)

// Session is opaque per-connection application state (e.g. an
// authenticated user, a request-scoped logger). The driver passes it
// as an explicit argument to Authenticate on every request of the
// connection; it is not stored in context.Context, and the driver
// passes nil as NewConnection's sess.
type Session interface{}

// Strategy bundles the hooks a connection driver needs beyond the
// wire protocol itself: who the caller is, how to build a response
// for an error, and how (or whether) to hand a raw connection off to
// a different protocol after a successful Upgrade.
type Strategy struct {
	// NewSession is called once per accepted connection, before the
	// first request is parsed.
	NewSession func(ctx context.Context, conn net.Conn) (Session, error)

	// Authenticate runs before dispatch on every request; returning a
	// non-nil error short-circuits routing entirely (the error is
	// rendered via WrapError).
	Authenticate func(ctx context.Context, sess Session, req *http11.Request) error

	// WrapError converts any error raised during request processing
	// (parsing, routing, handler, authentication) into the status
	// code and body actually written to the client.
	WrapError func(err error) (status int, body []byte)

	// NewConnection hands off the raw net.Conn after a successful
	// Upgrade (status 101). req is the request that asked for the
	// Upgrade, carried through so a handshake library (gorilla/
	// websocket's Upgrader, for instance) can read the Sec-WebSocket-*
	// headers it needs to complete its own handshake. unconsumed holds
	// any request bytes already read off the wire but not yet
	// processed (e.g. a second pipelined request-line that arrived
	// before the Upgrade completed). handlerWritten holds whatever
	// response bytes the handler itself composed through the normal
	// ResponseWriter; the driver deliberately does NOT put these on
	// the wire, since a library-driven handshake needs to write its
	// own response and would conflict with one already sent — callers
	// that DO want the handler's own bytes honored (a hand-rolled
	// upgrade not using such a library) write handlerWritten to conn
	// themselves before anything else. The driver closes conn as soon
	// as this returns, so the hook serves the upgraded connection
	// before returning.
	NewConnection func(ctx context.Context, sess Session, conn net.Conn, req *http11.Request, unconsumed, handlerWritten []byte, protocol string)

	// MaxMemoryReceiver is the in-memory threshold (bytes) past which
	// a request body backed by Spill migrates to a temp file.
	MaxMemoryReceiver int64

	// Dispatcher resolves a request to a handler; normally a
	// *router.Router, accepted here as an interface so the driver
	// doesn't need to import the router package directly.
	Dispatcher interface {
		Dispatch(req *http11.Request, rw *http11.ResponseWriter) error
	}
}

var (
	ErrMissingAuthenticate  = errors.New("strategy: Authenticate hook is required")
	ErrMissingWrapError     = errors.New("strategy: WrapError hook is required")
	ErrMissingDispatcher    = errors.New("strategy: Dispatcher hook is required")
	ErrMissingNewConnection = errors.New("strategy: NewConnection hook is required")
	ErrInvalidMemoryLimit   = errors.New("strategy: MaxMemoryReceiver must be positive")
)

// Validate checks that every required hook is present and the
// configured limits make sense, so construction-time mistakes never
// surface as a nil-pointer panic deep in a connection's hot path.
// NewSession may be left nil (sessions are optional).
func (s *Strategy) Validate() error {
	if s.Authenticate == nil {
		return ErrMissingAuthenticate
	}
	if s.WrapError == nil {
		return ErrMissingWrapError
	}
	if s.Dispatcher == nil {
		return ErrMissingDispatcher
	}
	if s.NewConnection == nil {
		return ErrMissingNewConnection
	}
	if s.MaxMemoryReceiver <= 0 {
		return ErrInvalidMemoryLimit
	}
	return nil
}

// New constructs and validates a Strategy in one step.
func New(s Strategy) (*Strategy, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}
