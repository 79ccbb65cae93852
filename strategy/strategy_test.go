package strategy

import (
	"context"
	"net"
	"testing"

	"github.com/yourusername/originserver/http11"
)

func validStrategy() Strategy {
	return Strategy{
		Authenticate: func(ctx context.Context, sess Session, req *http11.Request) error { return nil },
		WrapError:    func(err error) (int, []byte) { return 500, nil },
		Dispatcher:   dispatcherStub{},
		NewConnection: func(ctx context.Context, sess Session, conn net.Conn, req *http11.Request, unconsumed, handlerWritten []byte, protocol string) {
		},
		MaxMemoryReceiver: 1024,
	}
}

type dispatcherStub struct{}

func (dispatcherStub) Dispatch(req *http11.Request, rw *http11.ResponseWriter) error { return nil }

func TestStrategy_ValidateAcceptsCompleteConfig(t *testing.T) {
	s := validStrategy()
	if err := s.Validate(); err != nil {
		t.Fatalf("expected valid strategy, got %v", err)
	}
}

func TestStrategy_ValidateRequiresAuthenticate(t *testing.T) {
	s := validStrategy()
	s.Authenticate = nil
	if err := s.Validate(); err != ErrMissingAuthenticate {
		t.Fatalf("expected ErrMissingAuthenticate, got %v", err)
	}
}

func TestStrategy_ValidateRequiresWrapError(t *testing.T) {
	s := validStrategy()
	s.WrapError = nil
	if err := s.Validate(); err != ErrMissingWrapError {
		t.Fatalf("expected ErrMissingWrapError, got %v", err)
	}
}

func TestStrategy_ValidateRequiresDispatcher(t *testing.T) {
	s := validStrategy()
	s.Dispatcher = nil
	if err := s.Validate(); err != ErrMissingDispatcher {
		t.Fatalf("expected ErrMissingDispatcher, got %v", err)
	}
}

func TestStrategy_ValidateRequiresNewConnection(t *testing.T) {
	s := validStrategy()
	s.NewConnection = nil
	if err := s.Validate(); err != ErrMissingNewConnection {
		t.Fatalf("expected ErrMissingNewConnection, got %v", err)
	}
}

func TestStrategy_ValidateRequiresPositiveMemoryLimit(t *testing.T) {
	s := validStrategy()
	s.MaxMemoryReceiver = 0
	if err := s.Validate(); err != ErrInvalidMemoryLimit {
		t.Fatalf("expected ErrInvalidMemoryLimit, got %v", err)
	}
}

func TestStrategy_ValidateAllowsNilSession(t *testing.T) {
	s := validStrategy()
	s.NewSession = nil
	if err := s.Validate(); err != nil {
		t.Fatalf("expected NewSession to be optional, got %v", err)
	}
}

func TestNew_ReturnsErrorForInvalidStrategy(t *testing.T) {
	s := validStrategy()
	s.Authenticate = nil
	if _, err := New(s); err == nil {
		t.Fatal("expected New to reject an invalid strategy")
	}
}

func TestNew_ReturnsUsableStrategy(t *testing.T) {
	s := validStrategy()
	got, err := New(s)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil {
		t.Fatal("expected a non-nil *Strategy")
	}
}
