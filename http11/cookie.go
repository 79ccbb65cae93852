package http11

import (
	"strconv"
	"strings"
	"time"
)

// SameSite controls the SameSite attribute of a response cookie.
type SameSite int

const (
	SameSiteDefault SameSite = iota
	SameSiteLax
	SameSiteStrict
	SameSiteNone
)

// Cookie represents one Set-Cookie response directive. Response cookies
// are kept in their own ordered list (ResponseWriter.cookies) rather than in
// the Header multimap, because Set-Cookie lines must never be combined
// with ", " the way ordinary repeated headers are.
type Cookie struct {
	Name     string
	Value    string
	Path     string
	Domain   string
	Expires  time.Time
	MaxAge   int // seconds; 0 means unset
	Secure   bool
	HttpOnly bool
	SameSite SameSite
}

// String serializes the cookie into a Set-Cookie field value.
func (c *Cookie) String() string {
	var b strings.Builder
	b.WriteString(c.Name)
	b.WriteByte('=')
	b.WriteString(c.Value)

	if c.Path != "" {
		b.WriteString("; Path=")
		b.WriteString(c.Path)
	}
	if c.Domain != "" {
		b.WriteString("; Domain=")
		b.WriteString(c.Domain)
	}
	if !c.Expires.IsZero() {
		b.WriteString("; Expires=")
		b.WriteString(c.Expires.UTC().Format(timeFormatIMF))
	}
	if c.MaxAge > 0 {
		b.WriteString("; Max-Age=")
		b.WriteString(strconv.Itoa(c.MaxAge))
	} else if c.MaxAge < 0 {
		b.WriteString("; Max-Age=0")
	}
	if c.Secure {
		b.WriteString("; Secure")
	}
	if c.HttpOnly {
		b.WriteString("; HttpOnly")
	}
	switch c.SameSite {
	case SameSiteLax:
		b.WriteString("; SameSite=Lax")
	case SameSiteStrict:
		b.WriteString("; SameSite=Strict")
	case SameSiteNone:
		b.WriteString("; SameSite=None")
	}
	return b.String()
}

// ParseCookies parses a request's Cookie header value ("a=1; b=2") into
// a name->value map. Malformed pairs (missing '=') are skipped rather
// than failing the whole header, matching how browsers behave.
func ParseCookies(header []byte) map[string]string {
	if len(header) == 0 {
		return nil
	}
	out := make(map[string]string)
	for _, part := range strings.Split(string(header), ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		eq := strings.IndexByte(part, '=')
		if eq < 0 {
			continue
		}
		name := strings.TrimSpace(part[:eq])
		value := strings.TrimSpace(part[eq+1:])
		if name == "" {
			continue
		}
		out[name] = value
	}
	return out
}

// timeFormatIMF is the IMF-fixdate format required for cookie Expires
// and the Date header (RFC 7231 §7.1.1.1), hard-coding GMT.
const timeFormatIMF = "Mon, 02 Jan 2006 15:04:05 GMT"
