package http11

import (
	"bufio"
	"io"
	"sync"
)

var requestPool = sync.Pool{
	New: func() interface{} { return NewRequest() },
}

// GetRequest returns a pooled, zeroed Request.
func GetRequest() *Request {
	return requestPool.Get().(*Request)
}

// PutRequest resets req and returns it to the pool. Callers must not
// retain req (or any of its zero-copy byte slices) after calling this.
func PutRequest(req *Request) {
	req.Reset()
	requestPool.Put(req)
}

var responseWriterPool = sync.Pool{
	New: func() interface{} { return &ResponseWriter{status: 200} },
}

// GetResponseWriter returns a pooled ResponseWriter writing to w.
func GetResponseWriter(w io.Writer) *ResponseWriter {
	rw := responseWriterPool.Get().(*ResponseWriter)
	rw.Reset(w)
	return rw
}

func PutResponseWriter(rw *ResponseWriter) {
	responseWriterPool.Put(rw)
}

var parserPool = sync.Pool{
	New: func() interface{} { return NewParser() },
}

// GetParser returns a pooled Parser with a freshly reset ReadBuffer.
func GetParser() *Parser {
	p := parserPool.Get().(*Parser)
	p.buf.Reset()
	return p
}

func PutParser(p *Parser) {
	parserPool.Put(p)
}

var readBufferPool = sync.Pool{
	New: func() interface{} { return NewReadBuffer(DefaultBufferSize) },
}

// GetReadBuffer returns a pooled ReadBuffer of DefaultBufferSize
// (distinct from a Parser's own header-region buffer). The connection
// driver does not use it; it reads through a pooled bufio.Reader.
func GetReadBuffer() *ReadBuffer {
	b := readBufferPool.Get().(*ReadBuffer)
	b.Reset()
	return b
}

func PutReadBuffer(b *ReadBuffer) {
	readBufferPool.Put(b)
}

var bufioReaderPool = sync.Pool{
	New: func() interface{} { return bufio.NewReaderSize(nil, DefaultBufferSize) },
}

func GetBufioReader(r io.Reader) *bufio.Reader {
	br := bufioReaderPool.Get().(*bufio.Reader)
	br.Reset(r)
	return br
}

func PutBufioReader(br *bufio.Reader) {
	bufioReaderPool.Put(br)
}

var bufioWriterPool = sync.Pool{
	New: func() interface{} { return bufio.NewWriterSize(nil, DefaultBufferSize) },
}

func GetBufioWriter(w io.Writer) *bufio.Writer {
	bw := bufioWriterPool.Get().(*bufio.Writer)
	bw.Reset(w)
	return bw
}

func PutBufioWriter(bw *bufio.Writer) {
	bufioWriterPool.Put(bw)
}

// WarmupPools pre-populates each pool with count items, amortizing the
// first-request allocation cost across server startup instead of the
// first wave of real traffic.
func WarmupPools(count int) {
	reqs := make([]*Request, count)
	parsers := make([]*Parser, count)
	rws := make([]*ResponseWriter, count)
	bufs := make([]*ReadBuffer, count)

	for i := 0; i < count; i++ {
		reqs[i] = GetRequest()
		parsers[i] = GetParser()
		rws[i] = GetResponseWriter(nil)
		bufs[i] = GetReadBuffer()
	}
	for i := 0; i < count; i++ {
		PutRequest(reqs[i])
		PutParser(parsers[i])
		PutResponseWriter(rws[i])
		PutReadBuffer(bufs[i])
	}
}
