package router

import (
	"bufio"
	"bytes"
	"strings"
	"testing"

	"github.com/valyala/fasthttp"

	"github.com/yourusername/originserver/http11"
)

// Comparison benchmarks: this engine's router + parser vs fasthttp.
//
// Mirrors the teacher's own comparison_bench_test.go (parser/writer vs
// net/http) and benchmarks/competitors/fasthttp_test.go (fasthttp as
// the competitor under its own RequestCtx/Request types): fasthttp is
// wired only here, never from non-test code, purely to benchmark this
// module's request routing and parsing against it.
//
// Run with: go test -bench=BenchmarkRouterComparison -benchmem

var (
	staticGETRequest = "GET /health HTTP/1.1\r\n" +
		"Host: example.com\r\n" +
		"User-Agent: bench-client/1.0\r\n" +
		"\r\n"

	dynamicGETRequest = "GET /users/4217 HTTP/1.1\r\n" +
		"Host: example.com\r\n" +
		"User-Agent: bench-client/1.0\r\n" +
		"\r\n"
)

func newBenchRouter() *Router {
	rt := New()
	rt.Add("GET", "/health", "", 0, ok200)
	rt.Add("GET", "/users/:id", "", 0, func(req *http11.Request, rw *http11.ResponseWriter) error {
		return rw.WriteText(200, []byte(req.Param("id")))
	})
	return rt
}

// BenchmarkRouterComparison_StaticRoute_Origin benchmarks this
// engine's parse+match+dispatch+write cycle for a static route.
func BenchmarkRouterComparison_StaticRoute_Origin(b *testing.B) {
	b.ReportAllocs()
	b.SetBytes(int64(len(staticGETRequest)))

	rt := newBenchRouter()
	var buf bytes.Buffer

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		buf.Reset()
		parser := http11.NewParser()
		req, err := parser.Parse(strings.NewReader(staticGETRequest))
		if err != nil {
			b.Fatal(err)
		}
		rw := http11.NewResponseWriter(&buf)
		if err := rt.Dispatch(req, rw); err != nil {
			b.Fatal(err)
		}
		http11.PutRequest(req)
	}
}

// BenchmarkRouterComparison_StaticRoute_FastHTTP benchmarks fasthttp's
// own request parsing plus a comparable static-route handler,
// invoked directly against fasthttp.RequestCtx (no network hop),
// matching the competitor harness's in-process style.
func BenchmarkRouterComparison_StaticRoute_FastHTTP(b *testing.B) {
	b.ReportAllocs()
	b.SetBytes(int64(len(staticGETRequest)))

	var ctx fasthttp.RequestCtx
	reqBytes := []byte(staticGETRequest)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ctx.Request.Reset()
		br := bufio.NewReader(bytes.NewReader(reqBytes))
		if err := ctx.Request.Read(br); err != nil {
			b.Fatal(err)
		}
		switch string(ctx.Request.URI().Path()) {
		case "/health":
			ctx.SetStatusCode(fasthttp.StatusOK)
			ctx.WriteString("ok")
		}
	}
}

// BenchmarkRouterComparison_DynamicRoute_Origin benchmarks a dynamic
// (":id") segment match, this engine's trie-based equivalent of
// fasthttp's own path-parameter router plugins.
func BenchmarkRouterComparison_DynamicRoute_Origin(b *testing.B) {
	b.ReportAllocs()
	b.SetBytes(int64(len(dynamicGETRequest)))

	rt := newBenchRouter()
	var buf bytes.Buffer

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		buf.Reset()
		parser := http11.NewParser()
		req, err := parser.Parse(strings.NewReader(dynamicGETRequest))
		if err != nil {
			b.Fatal(err)
		}
		rw := http11.NewResponseWriter(&buf)
		if err := rt.Dispatch(req, rw); err != nil {
			b.Fatal(err)
		}
		http11.PutRequest(req)
	}
}

// BenchmarkRouterComparison_DynamicRoute_FastHTTP benchmarks fasthttp
// parsing the same dynamic-segment request, with the path param
// extracted by hand (fasthttp itself has no built-in path router).
func BenchmarkRouterComparison_DynamicRoute_FastHTTP(b *testing.B) {
	b.ReportAllocs()
	b.SetBytes(int64(len(dynamicGETRequest)))

	var ctx fasthttp.RequestCtx
	reqBytes := []byte(dynamicGETRequest)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ctx.Request.Reset()
		br := bufio.NewReader(bytes.NewReader(reqBytes))
		if err := ctx.Request.Read(br); err != nil {
			b.Fatal(err)
		}
		path := string(ctx.Request.URI().Path())
		if strings.HasPrefix(path, "/users/") {
			id := strings.TrimPrefix(path, "/users/")
			ctx.SetStatusCode(fasthttp.StatusOK)
			ctx.WriteString(id)
		}
	}
}
