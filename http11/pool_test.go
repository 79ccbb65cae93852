package http11

import (
	"bytes"
	"testing"
)

func TestRequestPool_ResetsOnPut(t *testing.T) {
	req := GetRequest()
	req.MethodID = MethodPOST
	req.Close = true
	PutRequest(req)

	req2 := GetRequest()
	if req2.MethodID != MethodUnknown {
		t.Fatalf("expected reset MethodID, got %d", req2.MethodID)
	}
	if req2.Close {
		t.Fatal("expected reset Close flag")
	}
}

func TestResponseWriterPool_ResetsTarget(t *testing.T) {
	var buf bytes.Buffer
	rw := GetResponseWriter(&buf)
	rw.WriteHeader(404)
	PutResponseWriter(rw)

	var buf2 bytes.Buffer
	rw2 := GetResponseWriter(&buf2)
	if rw2.Status() != 200 {
		t.Fatalf("expected reset status 200, got %d", rw2.Status())
	}
}

func TestParserPool_ResetsBuffer(t *testing.T) {
	p := GetParser()
	PutParser(p)

	p2 := GetParser()
	if p2.buf.Len() != 0 {
		t.Fatalf("expected a freshly reset buffer, got Len() %d", p2.buf.Len())
	}
}

func TestReadBufferPool_ResetsCursors(t *testing.T) {
	b := GetReadBuffer()
	space, _ := b.Space()
	n := copy(space, "hello")
	b.Commit(n)
	PutReadBuffer(b)

	b2 := GetReadBuffer()
	if b2.Len() != 0 {
		t.Fatalf("expected a freshly reset buffer, got Len() %d", b2.Len())
	}
}

func TestWarmupPools_DoesNotPanic(t *testing.T) {
	WarmupPools(4)
}
