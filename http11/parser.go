package http11

import (
	"bytes"
	"io"
)

// Parser implements a resumable HTTP/1.0 and HTTP/1.1 request-line and
// header state machine over a ReadBuffer. It never backtracks and
// behaves identically whether the underlying transport hands it bytes
// one at a time or in large bursts: every partial read just means
// MarkLine returns ok=false and Parse calls fill to read more bytes
// before trying again.
//
// Parse drives its own read loop against an io.Reader (a blocking
// net.Conn in the connection driver); the ReadBuffer is private to the
// Parser and is not fed from outside.
type Parser struct {
	buf *ReadBuffer

	// MaxMemoryReceiver is the byte threshold past which a body spills
	// from memory to a temp file (component C). Zero means "use the
	// package default".
	MaxMemoryReceiver int64
}

// NewParser creates a parser with a buffer sized for the worst-case
// request line plus headers.
func NewParser() *Parser {
	return &Parser{buf: NewReadBuffer(ParserBufferSize)}
}

// Parse reads and parses a single request's start-line and headers
// from r, then wires up its body reader (Fixed/Chunked, Spill-backed
// once the in-memory threshold is exceeded). The returned Request's
// fields are copied out of the parser's internal buffer, so they stay
// valid across later calls to Parse until the Request is Reset.
func (p *Parser) Parse(r io.Reader) (*Request, error) {
	p.buf.Reset()

	req := GetRequest()
	req.ProtoMajor = ProtoHTTP11Major
	req.ProtoMinor = ProtoHTTP11Minor

	line, err := p.readLine(r)
	if err != nil {
		PutRequest(req)
		return nil, err
	}
	if err := p.parseRequestLine(req, line); err != nil {
		PutRequest(req)
		return nil, err
	}

	if err := p.parseHeaders(r, req); err != nil {
		PutRequest(req)
		return nil, err
	}

	req.ready = true

	if err := p.setupBodyReader(req, r); err != nil {
		PutRequest(req)
		return nil, err
	}

	return req, nil
}

// readLine returns the next CRLF (or bare-LF) terminated line,
// pulling more bytes from r as needed until one is found or the
// buffer fills without finding a terminator.
func (p *Parser) readLine(r io.Reader) ([]byte, error) {
	for {
		if line, ok := p.buf.MarkLine(); ok {
			return line, nil
		}
		if err := p.fill(r); err != nil {
			return nil, err
		}
	}
}

// fill performs one read from r into the buffer's writable space.
func (p *Parser) fill(r io.Reader) error {
	space, err := p.buf.Space()
	if err != nil {
		return ErrHeadersTooLarge
	}
	n, err := r.Read(space)
	if n > 0 {
		p.buf.Commit(n)
	}
	if n == 0 && err != nil {
		if err == io.EOF {
			return ErrUnexpectedEOF
		}
		return err
	}
	return nil
}

// parseRequestLine parses "METHOD SP Request-URI SP HTTP-Version".
// Accepts both HTTP/1.1 and HTTP/1.0; the method itself only needs to
// be a syntactically valid token — recognition of exactly which
// methods are supported is the dispatcher's job (501 Not Implemented).
func (p *Parser) parseRequestLine(req *Request, line []byte) error {
	if len(line) > MaxRequestLineSize {
		return ErrRequestLineTooLarge
	}

	spaceIdx := bytes.IndexByte(line, ' ')
	if spaceIdx == -1 {
		return ErrInvalidRequestLine
	}
	methodBytes := line[:spaceIdx]
	if !isValidToken(methodBytes) {
		return ErrInvalidMethod
	}
	req.MethodID = ParseMethodID(methodBytes)

	line = line[spaceIdx+1:]
	spaceIdx = bytes.IndexByte(line, ' ')
	if spaceIdx == -1 {
		return ErrInvalidRequestLine
	}
	uriBytes := line[:spaceIdx]
	if len(uriBytes) > MaxURILength {
		return ErrURITooLong
	}

	var pathBytes, queryBytes []byte
	if queryIdx := bytes.IndexByte(uriBytes, '?'); queryIdx != -1 {
		pathBytes = uriBytes[:queryIdx]
		queryBytes = uriBytes[queryIdx+1:]
	} else {
		pathBytes = uriBytes
		queryBytes = nil
	}
	if len(pathBytes) == 0 {
		return ErrInvalidPath
	}
	if pathBytes[0] != '/' && pathBytes[0] != '*' {
		return ErrInvalidPath
	}

	protoBytes := line[spaceIdx+1:]

	// The request-line fields are copied out of the parser's ReadBuffer
	// into req.buf immediately: later fills may realign the ReadBuffer
	// (shifting bytes down to offset 0), which would silently corrupt
	// any slice still pointing at the old positions.
	req.buf = req.buf[:0]
	req.buf = append(req.buf, methodBytes...)
	req.methodBytes = req.buf[:len(methodBytes)]

	pathStart := len(req.buf)
	req.buf = append(req.buf, pathBytes...)
	req.pathBytes = req.buf[pathStart : pathStart+len(pathBytes)]

	if queryBytes != nil {
		queryStart := len(req.buf)
		req.buf = append(req.buf, queryBytes...)
		req.queryBytes = req.buf[queryStart : queryStart+len(queryBytes)]
	}

	protoStart := len(req.buf)
	req.buf = append(req.buf, protoBytes...)
	req.protoBytes = req.buf[protoStart : protoStart+len(protoBytes)]

	switch {
	case bytes.Equal(protoBytes, http11Bytes):
		req.ProtoMajor, req.ProtoMinor = ProtoHTTP11Major, ProtoHTTP11Minor
	case bytes.Equal(protoBytes, http10Bytes):
		req.ProtoMajor, req.ProtoMinor = ProtoHTTP10Major, ProtoHTTP10Minor
		// HTTP/1.0 has no persistent-connection default; the connection
		// driver decides keep-alive from the Connection header alone.
	default:
		return ErrInvalidProtocol
	}

	return nil
}

// parseHeaders reads field-lines until the blank line that ends the
// headers section, validating and tracking the handful of headers
// that affect framing and connection semantics along the way.
func (p *Parser) parseHeaders(r io.Reader, req *Request) error {
	var (
		hasContentLength    bool
		hasTransferEncoding bool
		contentLengthValue  int64 = -1
		hasHost             bool
	)

	for {
		line, err := p.readLine(r)
		if err != nil {
			return err
		}
		if len(line) == 0 {
			break
		}

		colonIdx := bytes.IndexByte(line, ':')
		if colonIdx == -1 {
			return ErrInvalidHeader
		}
		name := line[:colonIdx]
		value := line[colonIdx+1:]

		// RFC 7230 §3.2: no whitespace is permitted between the field
		// name and the colon.
		if colonIdx > 0 && (line[colonIdx-1] == ' ' || line[colonIdx-1] == '\t') {
			return ErrInvalidHeader
		}
		if bytes.IndexByte(name, ' ') != -1 || bytes.IndexByte(name, '\t') != -1 {
			return ErrInvalidHeader
		}

		value = trimLeadingSpace(value)
		value = trimTrailingSpace(value)

		if err := req.Header.Add(name, value); err != nil {
			return err
		}

		if err := p.processSpecialHeader(req, name, value,
			&hasContentLength, &hasTransferEncoding, &contentLengthValue, &hasHost); err != nil {
			return err
		}
	}

	// RFC 7230 §3.3.3: a request with both Content-Length and
	// Transfer-Encoding is a smuggling attempt and must be rejected.
	if hasContentLength && hasTransferEncoding {
		return ErrContentLengthWithTransferEncoding
	}

	// RFC 7230 §5.4: HTTP/1.1 requests must carry exactly one Host.
	if req.ProtoMajor == ProtoHTTP11Major && req.ProtoMinor == ProtoHTTP11Minor && !hasHost {
		return ErrMissingHost
	}

	if expect := req.Header.Get(headerExpect); expect != nil {
		if !bytesEqualCaseInsensitive(expect, headerExpect100) {
			return ErrUnsupportedExpect
		}
	}

	return nil
}

func (p *Parser) processSpecialHeader(req *Request, name, value []byte,
	hasContentLength, hasTransferEncoding *bool, contentLengthValue *int64, hasHost *bool) error {

	if bytesEqualCaseInsensitive(name, headerContentLength) {
		cl, err := parseContentLength(value)
		if err != nil {
			return ErrInvalidContentLength
		}
		if *hasContentLength {
			if *contentLengthValue != cl {
				return ErrDuplicateContentLength
			}
			return nil
		}
		*hasContentLength = true
		*contentLengthValue = cl
		req.ContentLength = cl
		return nil
	}

	if bytesEqualCaseInsensitive(name, headerTransferEncoding) {
		*hasTransferEncoding = true
		if !bytesEqualCaseInsensitive(value, headerChunked) {
			return ErrNonChunkedTransferEncoding
		}
		req.chunked = true
		return nil
	}

	if bytesEqualCaseInsensitive(name, headerConnection) {
		if bytesEqualCaseInsensitive(value, headerClose) {
			req.Close = true
		}
		return nil
	}

	if bytesEqualCaseInsensitive(name, headerHost) {
		if *hasHost {
			return ErrInvalidHeader
		}
		*hasHost = true
		return nil
	}

	return nil
}

// setupBodyReader wires req.Body according to the framing priority
// order: Transfer-Encoding: chunked first, then Content-Length, then
// no body. Any body is drained eagerly, in full, into a Spill (memory
// up to threshold, then a temp file) before Parse returns.
//
// This drain happens synchronously on r — the connection driver's
// shared bufio.Reader — rather than being deferred to a lazily-read
// stream handed off to the request's own handler goroutine. A lazy
// body reader would still be live on r after Parse returns, and the
// driver's read loop calls Parse again for the next pipelined request
// as soon as it hands this one to its handler goroutine: two readers
// racing the same non-concurrency-safe bufio.Reader would corrupt the
// stream. Draining here means the wire is fully consumed for this
// request before the driver ever loops back to parse the next one.
func (p *Parser) setupBodyReader(req *Request, r io.Reader) error {
	threshold := p.MaxMemoryReceiver
	if threshold <= 0 {
		threshold = DefaultMaxMemoryReceiver
	}

	leftover := p.buf.Peek()
	var bodySource io.Reader = r
	if len(leftover) > 0 {
		bodySource = io.MultiReader(bytes.NewReader(append([]byte(nil), leftover...)), r)
		p.buf.Discard(len(leftover))
	}

	if req.chunked {
		cr := NewChunkedReader(bodySource)
		spill := NewSpill(threshold)
		if _, err := io.Copy(spill, cr); err != nil {
			spill.Close()
			return err
		}
		req.Trailers = cr.Trailers()
		return req.attachSpill(spill)
	}

	if req.ContentLength > 0 {
		spill := NewSpill(threshold)
		if _, err := io.Copy(spill, io.LimitReader(bodySource, req.ContentLength)); err != nil {
			spill.Close()
			return err
		}
		return req.attachSpill(spill)
	}

	req.Body = nil
	return nil
}

// DefaultMaxMemoryReceiver is the default in-memory threshold for
// Spill-backed bodies before migrating to a temp file.
const DefaultMaxMemoryReceiver = 1 << 20 // 1 MiB

func parseContentLength(b []byte) (int64, error) {
	if len(b) == 0 {
		return -1, ErrInvalidContentLength
	}
	var n int64
	for _, c := range b {
		if c < '0' || c > '9' {
			return -1, ErrInvalidContentLength
		}
		n = n*10 + int64(c-'0')
		if n < 0 {
			return -1, ErrInvalidContentLength
		}
	}
	return n, nil
}

func trimLeadingSpace(b []byte) []byte {
	for len(b) > 0 && (b[0] == ' ' || b[0] == '\t') {
		b = b[1:]
	}
	return b
}

func trimTrailingSpace(b []byte) []byte {
	for len(b) > 0 && (b[len(b)-1] == ' ' || b[len(b)-1] == '\t') {
		b = b[:len(b)-1]
	}
	return b
}
