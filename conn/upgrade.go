package conn

import (
	"bufio"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/yourusername/originserver/http11"
)

// BufferedConn adapts a net.Conn plus a slice of already-read-but-
// unconsumed bytes back into a single io.ReadWriteCloser: reads drain
// the prefix first, then fall through to the underlying connection.
// This is the generic primitive any Strategy.NewConnection hook uses
// to keep serving a connection that the engine handed off mid-stream.
type BufferedConn struct {
	net.Conn
	prefix []byte
}

// NewBufferedConn wraps c so that prefix is returned by Read calls
// before c itself is read from.
func NewBufferedConn(c net.Conn, prefix []byte) *BufferedConn {
	return &BufferedConn{Conn: c, prefix: prefix}
}

func (b *BufferedConn) Read(p []byte) (int, error) {
	if len(b.prefix) > 0 {
		n := copy(p, b.prefix)
		b.prefix = b.prefix[n:]
		return n, nil
	}
	return b.Conn.Read(p)
}

// wsHijackShim implements http.ResponseWriter and http.Hijacker over
// a raw connection the engine already accepted and parsed a request
// from. It exists so gorilla/websocket's Upgrader — which insists on
// owning the handshake through the standard library's Hijacker
// interface — can write the real 101 response itself, instead of the
// engine's own ResponseWriter racing it.
type wsHijackShim struct {
	conn    net.Conn
	prefix  []byte
	header  http.Header
	status  int
	hijacked bool
}

func (s *wsHijackShim) Header() http.Header { return s.header }
func (s *wsHijackShim) Write(b []byte) (int, error) {
	return 0, errors.New("conn: websocket upgrader must hijack, not Write")
}
func (s *wsHijackShim) WriteHeader(status int) { s.status = status }

func (s *wsHijackShim) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	s.hijacked = true
	bc := NewBufferedConn(s.conn, s.prefix)
	rw := bufio.NewReadWriter(bufio.NewReader(bc), bufio.NewWriter(bc))
	return bc, rw, nil
}

// UpgradeToWebSocket performs the real gorilla/websocket handshake
// over a connection this engine has already handed off via
// Strategy.NewConnection. req carries the original request's method,
// path and headers (Upgrade, Connection, Sec-WebSocket-Key/Version)
// which gorilla validates before writing the 101 response through the
// shim's Hijack.
//
// The engine's handler still answers 101 (that is what triggers the
// handoff), but those composed bytes must not be written to rawConn
// before calling this (see NewConnection's doc comment on
// handlerWritten) — gorilla writes the handshake response itself.
func UpgradeToWebSocket(upgrader *websocket.Upgrader, req *http11.Request, rawConn net.Conn, unconsumed []byte, responseHeader http.Header) (*websocket.Conn, error) {
	httpReq, err := http.NewRequest(req.Method(), req.Path(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.VisitAll(func(name, value []byte) bool {
		httpReq.Header.Add(string(name), string(value))
		return true
	})

	shim := &wsHijackShim{conn: rawConn, prefix: unconsumed, header: make(http.Header)}
	wsConn, err := upgrader.Upgrade(shim, httpReq, responseHeader)
	if err != nil {
		return nil, err
	}
	return wsConn, nil
}

// PumpWebSocket is a minimal demonstration loop: it echoes every
// text/binary message back to the sender until the connection closes
// or idleTimeout elapses without a message. Real deployments replace
// this with their own message routing; it exists to exercise the
// handed-off *websocket.Conn end to end.
func PumpWebSocket(wsConn *websocket.Conn, idleTimeout time.Duration) error {
	for {
		if idleTimeout > 0 {
			wsConn.SetReadDeadline(time.Now().Add(idleTimeout))
		}
		msgType, data, err := wsConn.ReadMessage()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if err := wsConn.WriteMessage(msgType, data); err != nil {
			return err
		}
	}
}
