package main

import (
	"bytes"
	"context"
	"log"
	"net"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yourusername/originserver/conn"
	"github.com/yourusername/originserver/http11"
	"github.com/yourusername/originserver/router"
	"github.com/yourusername/originserver/server"
	"github.com/yourusername/originserver/strategy"
)

func isWebSocketUpgradeRequest(req *http11.Request) bool {
	return bytes.EqualFold(req.GetHeader([]byte("Upgrade")), []byte("websocket")) &&
		bytes.Contains(bytes.ToLower(req.GetHeader([]byte("Connection"))), []byte("upgrade"))
}

// wrapError maps the sentinel errors http11 and router can raise to the
// HTTP status they imply (RFC 7231/7230 status semantics), so a
// malformed or oversized request gets the specific status it earned
// rather than a blanket 500.
func wrapError(err error) (int, []byte) {
	switch err {
	case http11.ErrNotFound, http11.ErrPathTraversal:
		return 404, []byte("not found")
	case http11.ErrMethodNotAllowed:
		return 405, []byte("method not allowed")
	case http11.ErrRequestLineTooLarge, http11.ErrURITooLong:
		return 414, []byte("request-uri too long")
	case http11.ErrHeadersTooLarge, http11.ErrTooManyHeaders, http11.ErrHeaderTooLarge:
		return 431, []byte("request header fields too large")
	case http11.ErrUnsupportedExpect:
		return 417, []byte("expectation failed")
	case http11.ErrBodyTooLarge:
		return 413, []byte("payload too large")
	case http11.ErrInvalidRequestLine, http11.ErrInvalidMethod, http11.ErrInvalidPath,
		http11.ErrInvalidProtocol, http11.ErrInvalidHeader, http11.ErrInvalidContentLength,
		http11.ErrContentLengthWithTransferEncoding, http11.ErrDuplicateContentLength,
		http11.ErrMissingHost, http11.ErrNonChunkedTransferEncoding, http11.ErrChunkedEncoding:
		return 400, []byte("bad request")
	}

	// *router.MethodNotAllowedError is normally written by the router
	// itself (with its Allow header) before WrapError is ever
	// consulted; this is a fallback for callers that bypass Dispatch's
	// own error rendering.
	if _, ok := err.(*router.MethodNotAllowedError); ok {
		return 405, []byte("method not allowed")
	}

	return 500, []byte("internal error")
}

func main() {
	cfg := server.DefaultConfig()
	upgrader := &websocket.Upgrader{}

	rt := router.New()

	rt.Add("GET", "/", "", 0, func(req *http11.Request, rw *http11.ResponseWriter) error {
		return rw.WriteText(200, []byte("hello from the origin server\n"))
	})

	rt.Add("GET", "/users/:id", "", 0, func(req *http11.Request, rw *http11.ResponseWriter) error {
		return rw.WriteJSON(200, []byte(`{"id":"`+req.Param("id")+`"}`))
	})

	rt.Add("GET", "/ws", "", 0, func(req *http11.Request, rw *http11.ResponseWriter) error {
		if !isWebSocketUpgradeRequest(req) {
			return rw.WriteUpgradeRequired("websocket")
		}
		rw.WriteHeader(101)
		rw.Header().Set([]byte("Upgrade"), []byte("websocket"))
		rw.Header().Set([]byte("Connection"), []byte("Upgrade"))
		return rw.Flush()
	})

	st, err := strategy.New(strategy.Strategy{
		Authenticate: func(ctx context.Context, sess strategy.Session, req *http11.Request) error {
			return nil
		},
		WrapError:         wrapError,
		Dispatcher:        rt,
		MaxMemoryReceiver: http11.DefaultMaxMemoryReceiver,
		NewConnection: func(ctx context.Context, sess strategy.Session, rawConn net.Conn, req *http11.Request, unconsumed, handlerWritten []byte, protocol string) {
			if protocol != "websocket" {
				rawConn.Close()
				return
			}
			wsConn, err := conn.UpgradeToWebSocket(upgrader, req, rawConn, unconsumed, nil)
			if err != nil {
				log.Printf("websocket handshake failed: %v", err)
				rawConn.Close()
				return
			}
			if err := conn.PumpWebSocket(wsConn, cfg.ConnConfig.IdleTimeout); err != nil {
				log.Printf("websocket session ended: %v", err)
			}
		},
	})
	if err != nil {
		log.Fatalf("invalid strategy: %v", err)
	}

	srv := server.New(cfg, st)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		log.Println("metrics listening on :9090/metrics")
		log.Fatal(http.ListenAndServe(":9090", mux))
	}()

	log.Printf("listening on %s", cfg.Addr)
	if err := srv.ListenAndServe(ctx); err != nil {
		log.Fatal(err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ConnConfig.KeepAliveTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
