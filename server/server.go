// Package server accepts connections on a net.Listener and hands each
// one to a conn.Connection, following the accept-loop/connection-
// tracking/graceful-shutdown shape of shockwave/pkg/shockwave/server's
// BaseServer, rebuilt here around this engine's own connection driver
// and strategy wiring instead of shockwave's Handler/LegacyHandler
// split.
package server

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yourusername/originserver/conn"
	"github.com/yourusername/originserver/strategy"
)

// Config holds the listening address, per-connection limits and an
// optional cap on concurrently open connections.
type Config struct {
	Addr                     string
	ConnConfig               conn.Config
	MaxConcurrentConnections int // 0 = unlimited
}

// DefaultConfig returns sensible defaults for Config.
func DefaultConfig() Config {
	return Config{
		Addr:       ":8080",
		ConnConfig: conn.DefaultConfig(),
	}
}

// Stats mirrors the counters shockwave's BaseServer.Stats exposes,
// narrowed to what this engine's accept loop itself tracks (per-
// request counters live in internal/metrics instead of here).
type Stats struct {
	TotalConnections  atomic.Uint64
	ActiveConnections atomic.Int64
	ConnectionErrors  atomic.Uint64
	StartTime         time.Time
}

// Server accepts connections and drives each one with a
// conn.Connection built from the given strategy.
type Server struct {
	config   Config
	strategy *strategy.Strategy
	stats    Stats

	mu       sync.Mutex
	listener net.Listener
	conns    map[*conn.Connection]struct{}

	shutdown atomic.Bool
	done     chan struct{}
	wg       sync.WaitGroup

	connSem chan struct{}
}

// New builds a Server for st, which must already satisfy
// strategy.Strategy.Validate (strategy.New does this for callers).
func New(cfg Config, st *strategy.Strategy) *Server {
	s := &Server{
		config:   cfg,
		strategy: st,
		conns:    make(map[*conn.Connection]struct{}),
		done:     make(chan struct{}),
	}
	s.stats.StartTime = time.Now()
	if cfg.MaxConcurrentConnections > 0 {
		s.connSem = make(chan struct{}, cfg.MaxConcurrentConnections)
	}
	return s
}

// ListenAndServe opens a TCP listener on s.config.Addr and serves it
// until ctx is cancelled or Shutdown/Close is called.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections from ln until ctx is cancelled or the
// listener is closed, spawning a goroutine per connection.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			ln.Close()
		case <-s.done:
		}
	}()

	for {
		if s.connSem != nil {
			s.connSem <- struct{}{}
		}

		rawConn, err := ln.Accept()
		if err != nil {
			if s.connSem != nil {
				<-s.connSem
			}
			if s.shutdown.Load() || errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.stats.ConnectionErrors.Add(1)
			continue
		}

		s.stats.TotalConnections.Add(1)
		s.wg.Add(1)
		go s.serveOne(ctx, rawConn)
	}
}

func (s *Server) serveOne(ctx context.Context, rawConn net.Conn) {
	defer s.wg.Done()
	if s.connSem != nil {
		defer func() { <-s.connSem }()
	}

	c := conn.New(rawConn, s.strategy, s.config.ConnConfig)

	s.mu.Lock()
	s.conns[c] = struct{}{}
	s.mu.Unlock()
	s.stats.ActiveConnections.Add(1)

	defer func() {
		s.mu.Lock()
		delete(s.conns, c)
		s.mu.Unlock()
		s.stats.ActiveConnections.Add(-1)
	}()

	c.Serve(ctx)
}

// Shutdown stops accepting new connections and waits for in-flight
// connections to finish serving on their own, or force-closes them
// once ctx expires. conn.Connection.Close closes the socket at once;
// a response still being written at that point is cut off.
func (s *Server) Shutdown(ctx context.Context) error {
	if !s.shutdown.CompareAndSwap(false, true) {
		return nil
	}

	s.mu.Lock()
	if s.listener != nil {
		s.listener.Close()
	}
	s.mu.Unlock()
	close(s.done)

	finished := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		s.closeAll()
		return ctx.Err()
	}
}

// Close immediately closes the listener and every active connection.
func (s *Server) Close() error {
	if !s.shutdown.CompareAndSwap(false, true) {
		return nil
	}
	s.mu.Lock()
	if s.listener != nil {
		s.listener.Close()
	}
	s.mu.Unlock()
	close(s.done)
	s.closeAll()
	s.wg.Wait()
	return nil
}

func (s *Server) closeAll() {
	s.mu.Lock()
	conns := make([]*conn.Connection, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		c.Close()
	}
}

// Stats returns the server's accept-loop level counters.
func (s *Server) Stats() *Stats { return &s.stats }
