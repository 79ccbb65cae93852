package http11

import "testing"

func TestHeader_SetAndGet(t *testing.T) {
	var h Header
	if err := h.Set([]byte("Host"), []byte("example.com")); err != nil {
		t.Fatalf("set: %v", err)
	}
	if got := h.GetString([]byte("host")); got != "example.com" {
		t.Fatalf("expected case-insensitive lookup to find example.com, got %q", got)
	}
}

func TestHeader_AddCombinesRepeatedNames(t *testing.T) {
	var h Header
	if err := h.Add([]byte("X-Forwarded-For"), []byte("1.1.1.1")); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := h.Add([]byte("X-Forwarded-For"), []byte("2.2.2.2")); err != nil {
		t.Fatalf("add: %v", err)
	}
	if got := h.GetString([]byte("X-Forwarded-For")); got != "1.1.1.1, 2.2.2.2" {
		t.Fatalf("expected combined value, got %q", got)
	}
}

func TestHeader_SetReplacesRatherThanCombines(t *testing.T) {
	var h Header
	h.Add([]byte("Connection"), []byte("keep-alive"))
	h.Set([]byte("Connection"), []byte("close"))
	if got := h.GetString([]byte("Connection")); got != "close" {
		t.Fatalf("expected Set to replace, got %q", got)
	}
}

func TestHeader_Del(t *testing.T) {
	var h Header
	h.Set([]byte("X-Test"), []byte("1"))
	h.Del([]byte("X-Test"))
	if h.Has([]byte("X-Test")) {
		t.Fatal("expected header to be removed")
	}
}

func TestHeader_RejectsCROrLFInjection(t *testing.T) {
	var h Header
	if err := h.Add([]byte("X-Evil"), []byte("value\r\nSet-Cookie: x=y")); err != ErrInvalidHeader {
		t.Fatalf("expected ErrInvalidHeader, got %v", err)
	}
}

func TestHeader_OverflowsPastInlineCapacity(t *testing.T) {
	var h Header
	for i := 0; i < MaxHeaders+5; i++ {
		name := []byte{'X', byte('A' + i%26), byte('0' + i/26)}
		if err := h.Add(name, []byte("v")); err != nil {
			t.Fatalf("add %d: %v", i, err)
		}
	}
	if h.Len() != MaxHeaders+5 {
		t.Fatalf("expected %d headers, got %d", MaxHeaders+5, h.Len())
	}
}

func TestHeader_ResetClearsEverything(t *testing.T) {
	var h Header
	h.Set([]byte("Host"), []byte("example.com"))
	h.Reset()
	if h.Len() != 0 {
		t.Fatalf("expected 0 headers after reset, got %d", h.Len())
	}
	if h.Has([]byte("Host")) {
		t.Fatal("expected Host to be gone after reset")
	}
}

func TestHeader_VisitAllCoversInlineAndOverflow(t *testing.T) {
	var h Header
	for i := 0; i < MaxHeaders+2; i++ {
		name := []byte{'X', byte('A' + i%26), byte('0' + i/26)}
		h.Add(name, []byte("v"))
	}
	seen := 0
	h.VisitAll(func(name, value []byte) bool {
		seen++
		return true
	})
	if seen != MaxHeaders+2 {
		t.Fatalf("expected VisitAll to cover %d headers, saw %d", MaxHeaders+2, seen)
	}
}
