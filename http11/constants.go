// Package http11 implements the wire-level core of an HTTP/1.0 and
// HTTP/1.1 origin-server engine: buffer, parser, body receivers,
// header storage and the response writer. It has no knowledge of
// sockets, routing or sessions; those live in sibling packages.
package http11

// HTTP method IDs for O(1) switching.
const (
	MethodUnknown uint8 = 0
	MethodGET     uint8 = 1
	MethodPOST    uint8 = 2
	MethodPUT     uint8 = 3
	MethodDELETE  uint8 = 4
	MethodPATCH   uint8 = 5
	MethodHEAD    uint8 = 6
	MethodOPTIONS uint8 = 7
	MethodCONNECT uint8 = 8
	MethodTRACE   uint8 = 9
)

var (
	methodGETBytes     = []byte("GET")
	methodPOSTBytes    = []byte("POST")
	methodPUTBytes     = []byte("PUT")
	methodDELETEBytes  = []byte("DELETE")
	methodPATCHBytes   = []byte("PATCH")
	methodHEADBytes    = []byte("HEAD")
	methodOPTIONSBytes = []byte("OPTIONS")
	methodCONNECTBytes = []byte("CONNECT")
	methodTRACEBytes   = []byte("TRACE")
)

const (
	methodGETString     = "GET"
	methodPOSTString    = "POST"
	methodPUTString     = "PUT"
	methodDELETEString  = "DELETE"
	methodPATCHString   = "PATCH"
	methodHEADString    = "HEAD"
	methodOPTIONSString = "OPTIONS"
	methodCONNECTString = "CONNECT"
	methodTRACEString   = "TRACE"
)

// Pre-compiled HTTP/1.1 status lines for the common codes (used for
// 1.0 clients as well; there is no HTTP/1.0 variant). Covers the
// large majority of real responses with zero allocation; uncommon
// codes fall back to buildStatusLine.
var status11Lines = map[int][]byte{
	100: []byte("HTTP/1.1 100 Continue\r\n"),
	101: []byte("HTTP/1.1 101 Switching Protocols\r\n"),
	200: []byte("HTTP/1.1 200 OK\r\n"),
	201: []byte("HTTP/1.1 201 Created\r\n"),
	202: []byte("HTTP/1.1 202 Accepted\r\n"),
	203: []byte("HTTP/1.1 203 Non-Authoritative Information\r\n"),
	204: []byte("HTTP/1.1 204 No Content\r\n"),
	205: []byte("HTTP/1.1 205 Reset Content\r\n"),
	206: []byte("HTTP/1.1 206 Partial Content\r\n"),
	300: []byte("HTTP/1.1 300 Multiple Choices\r\n"),
	301: []byte("HTTP/1.1 301 Moved Permanently\r\n"),
	302: []byte("HTTP/1.1 302 Found\r\n"),
	303: []byte("HTTP/1.1 303 See Other\r\n"),
	304: []byte("HTTP/1.1 304 Not Modified\r\n"),
	307: []byte("HTTP/1.1 307 Temporary Redirect\r\n"),
	308: []byte("HTTP/1.1 308 Permanent Redirect\r\n"),
	400: []byte("HTTP/1.1 400 Bad Request\r\n"),
	401: []byte("HTTP/1.1 401 Unauthorized\r\n"),
	403: []byte("HTTP/1.1 403 Forbidden\r\n"),
	404: []byte("HTTP/1.1 404 Not Found\r\n"),
	405: []byte("HTTP/1.1 405 Method Not Allowed\r\n"),
	406: []byte("HTTP/1.1 406 Not Acceptable\r\n"),
	408: []byte("HTTP/1.1 408 Request Timeout\r\n"),
	409: []byte("HTTP/1.1 409 Conflict\r\n"),
	410: []byte("HTTP/1.1 410 Gone\r\n"),
	411: []byte("HTTP/1.1 411 Length Required\r\n"),
	412: []byte("HTTP/1.1 412 Precondition Failed\r\n"),
	413: []byte("HTTP/1.1 413 Payload Too Large\r\n"),
	414: []byte("HTTP/1.1 414 URI Too Long\r\n"),
	415: []byte("HTTP/1.1 415 Unsupported Media Type\r\n"),
	417: []byte("HTTP/1.1 417 Expectation Failed\r\n"),
	426: []byte("HTTP/1.1 426 Upgrade Required\r\n"),
	429: []byte("HTTP/1.1 429 Too Many Requests\r\n"),
	431: []byte("HTTP/1.1 431 Request Header Fields Too Large\r\n"),
	500: []byte("HTTP/1.1 500 Internal Server Error\r\n"),
	501: []byte("HTTP/1.1 501 Not Implemented\r\n"),
	502: []byte("HTTP/1.1 502 Bad Gateway\r\n"),
	503: []byte("HTTP/1.1 503 Service Unavailable\r\n"),
	504: []byte("HTTP/1.1 504 Gateway Timeout\r\n"),
}

var (
	headerContentLength    = []byte("Content-Length")
	headerContentType      = []byte("Content-Type")
	headerConnection       = []byte("Connection")
	headerKeepAlive        = []byte("keep-alive")
	headerClose            = []byte("close")
	headerTransferEncoding = []byte("Transfer-Encoding")
	headerChunked          = []byte("chunked")
	headerHost             = []byte("Host")
	headerExpect           = []byte("Expect")
	headerExpect100        = []byte("100-continue")
	headerCookie           = []byte("Cookie")
	headerSetCookie        = []byte("Set-Cookie")
	headerUpgrade          = []byte("Upgrade")
	headerTrailer          = []byte("Trailer")
	headerAllow            = []byte("Allow")
)

var (
	contentTypeJSONUTF8    = []byte("application/json; charset=utf-8")
	contentTypeHTML        = []byte("text/html; charset=utf-8")
	contentTypePlain       = []byte("text/plain; charset=utf-8")
	contentTypeOctetStream = []byte("application/octet-stream")
)

var (
	http11Bytes = []byte("HTTP/1.1")
	http10Bytes = []byte("HTTP/1.0")
	crlfBytes   = []byte("\r\n")
	colonSpace  = []byte(": ")
)

// Protocol version pairs recognized by this engine.
const (
	ProtoHTTP11Major = 1
	ProtoHTTP11Minor = 1
	ProtoHTTP10Major = 1
	ProtoHTTP10Minor = 0
)

// Header and request limits (RFC 7230 recommendations plus headroom).
const (
	MaxHeaders         = 32
	MaxHeaderName      = 64
	MaxHeaderValue     = 128
	MaxRequestLineSize = 8192
	MaxURILength       = 8192
	MaxHeadersSize     = 8192

	// MaxTotalHeaderCount is the hard cap on distinct header names per
	// request, inline plus overflow combined (max_header_count). Past
	// MaxHeaders, names already spill into the overflow map one at a
	// time with no added cost to the inline arrays, so this is set well
	// above MaxHeaders rather than at it — it exists to bound a request
	// with pathologically many distinct header names, not to constrain
	// the common case.
	MaxTotalHeaderCount = 100
)

const (
	// DefaultBufferSize is the default ReadBuffer/bufio size.
	DefaultBufferSize = 4096

	// ParserBufferSize bounds the in-memory request-line+headers region.
	ParserBufferSize = MaxRequestLineSize + MaxHeadersSize
)
