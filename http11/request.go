package http11

import (
	"io"
	"net/url"
)

// Request represents a parsed HTTP request. Method/path/query/protocol
// are slices into the request's own buf (copied there from the
// parser's buffer) and are only valid until the next Reset — callers
// needing to retain them past the request's lifetime must copy.
type Request struct {
	MethodID uint8

	methodBytes []byte
	pathBytes   []byte
	queryBytes  []byte
	protoBytes  []byte

	pathParsed *url.URL

	Header Header

	Body          io.Reader
	ContentLength int64
	chunked       bool

	// bodySpill is the backing store Body was opened from, if the body
	// was received through setupBodyReader's eager drain-to-Spill path
	// (as opposed to a nil/Empty body). Closed on Reset so a spilled
	// body's temp file never outlives the request.
	bodySpill *Spill

	// Trailers is populated only after a chunked body has been fully
	// drained (reached its terminating "0\r\n"). Parse drains the body
	// before it returns, so a handler already sees the trailers; it is
	// nil when the body is not chunked or carries no trailers.
	Trailers map[string]string

	// PathParams is filled in by the router during dispatch, mapping
	// dynamic segment names (":id") to the matched path segment.
	PathParams map[string]string

	ProtoMajor int
	ProtoMinor int

	Close bool

	RemoteAddr string

	// ready is set once the start-line and headers have been fully
	// parsed; exposed through Ready.
	ready bool

	buf []byte
}

// NewRequest allocates a new, empty Request. Most callers should
// instead obtain one from the pool via GetRequest.
func NewRequest() *Request {
	return &Request{}
}

func (r *Request) Method() string      { return MethodString(r.MethodID) }
func (r *Request) MethodBytes() []byte { return r.methodBytes }
func (r *Request) Path() string        { return string(r.pathBytes) }
func (r *Request) PathBytes() []byte   { return r.pathBytes }
func (r *Request) Query() string       { return string(r.queryBytes) }
func (r *Request) QueryBytes() []byte  { return r.queryBytes }
func (r *Request) Proto() string       { return string(r.protoBytes) }

// ParsedURL lazily parses the path+query into a *url.URL, caching the
// result for subsequent calls on the same request.
func (r *Request) ParsedURL() (*url.URL, error) {
	if r.pathParsed != nil {
		return r.pathParsed, nil
	}
	raw := r.Path()
	if len(r.queryBytes) > 0 {
		raw += "?" + r.Query()
	}
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return nil, err
	}
	r.pathParsed = u
	return u, nil
}

func (r *Request) GetHeader(name []byte) []byte      { return r.Header.Get(name) }
func (r *Request) GetHeaderString(name []byte) string { return r.Header.GetString(name) }
func (r *Request) HasHeader(name []byte) bool        { return r.Header.Has(name) }

// Cookies parses and returns the request's Cookie header as a map.
// Returns nil if no Cookie header is present.
func (r *Request) Cookies() map[string]string {
	return ParseCookies(r.Header.Get(headerCookie))
}

// Param returns the dynamic path parameter bound by the router for
// name, or "" if absent.
func (r *Request) Param(name string) string {
	if r.PathParams == nil {
		return ""
	}
	return r.PathParams[name]
}

func (r *Request) IsGET() bool     { return r.MethodID == MethodGET }
func (r *Request) IsPOST() bool    { return r.MethodID == MethodPOST }
func (r *Request) IsPUT() bool     { return r.MethodID == MethodPUT }
func (r *Request) IsDELETE() bool  { return r.MethodID == MethodDELETE }
func (r *Request) IsPATCH() bool   { return r.MethodID == MethodPATCH }
func (r *Request) IsHEAD() bool    { return r.MethodID == MethodHEAD }
func (r *Request) IsOPTIONS() bool { return r.MethodID == MethodOPTIONS }

// attachSpill wires Body to a freshly-drained Spill, taking ownership
// of it so Reset closes it (and removes any temp file it created).
func (r *Request) attachSpill(s *Spill) error {
	body, err := s.Open()
	if err != nil {
		s.Close()
		return err
	}
	r.bodySpill = s
	r.Body = body
	return nil
}

func (r *Request) HasBody() bool    { return r.ContentLength > 0 || r.chunked }
func (r *Request) IsChunked() bool  { return r.chunked }
func (r *Request) ShouldClose() bool { return r.Close }

// IsHTTP10 reports whether the request line declared HTTP/1.0, which
// changes the default keep-alive decision (§4.F of the connection
// driver). Body framing does not depend on it: a chunked body on an
// HTTP/1.0 request is accepted like one on HTTP/1.1.
func (r *Request) IsHTTP10() bool {
	return r.ProtoMajor == ProtoHTTP10Major && r.ProtoMinor == ProtoHTTP10Minor
}

// Ready reports whether the start-line and headers have been fully
// parsed. A Request returned by Parse also has its body fully drained.
func (r *Request) Ready() bool { return r.ready }

// Reset clears the request for pool reuse.
func (r *Request) Reset() {
	r.MethodID = MethodUnknown
	r.methodBytes = nil
	r.pathBytes = nil
	r.queryBytes = nil
	r.protoBytes = nil
	r.pathParsed = nil
	r.Header.Reset()
	if closer, ok := r.Body.(io.Closer); ok {
		closer.Close()
	}
	if r.bodySpill != nil {
		r.bodySpill.Close()
		r.bodySpill = nil
	}
	r.Body = nil
	r.ContentLength = 0
	r.chunked = false
	r.Trailers = nil
	r.PathParams = nil
	r.ProtoMajor = 0
	r.ProtoMinor = 0
	r.Close = false
	r.RemoteAddr = ""
	r.ready = false
	r.buf = r.buf[:0]
}

// Clone returns a deep-ish copy of r with its own string-backed
// method/path/query/proto fields, safe to retain past the parser
// buffer's lifetime. Body is deliberately not cloned: it is a live
// stream, not a value.
func (r *Request) Clone() *Request {
	c := &Request{
		MethodID:      r.MethodID,
		methodBytes:   append([]byte(nil), r.methodBytes...),
		pathBytes:     append([]byte(nil), r.pathBytes...),
		queryBytes:    append([]byte(nil), r.queryBytes...),
		protoBytes:    append([]byte(nil), r.protoBytes...),
		Header:        r.Header,
		ContentLength: r.ContentLength,
		chunked:       r.chunked,
		ProtoMajor:    r.ProtoMajor,
		ProtoMinor:    r.ProtoMinor,
		Close:         r.Close,
		RemoteAddr:    r.RemoteAddr,
		ready:         r.ready,
	}
	if r.Trailers != nil {
		c.Trailers = make(map[string]string, len(r.Trailers))
		for k, v := range r.Trailers {
			c.Trailers[k] = v
		}
	}
	if r.PathParams != nil {
		c.PathParams = make(map[string]string, len(r.PathParams))
		for k, v := range r.PathParams {
			c.PathParams[k] = v
		}
	}
	return c
}
