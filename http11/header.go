package http11

// Header stores HTTP headers inline to avoid heap allocations for the
// common case (at most MaxHeaders distinct names, each within
// MaxHeaderValue bytes). Values larger than that, or a 33rd distinct
// name, spill into an overflow map (rare case, acceptable allocation).
//
// Per the data model, repeated occurrences of the same header name are
// combined at the point of storage by joining with ", " (RFC 7230
// §3.2.2) — Add performs this merge itself so callers never need to.
// Set-Cookie is the one header that must never be combined; it is
// deliberately NOT routed through Header at all (see
// ResponseWriter.SetCookie).
type Header struct {
	names  [MaxHeaders][MaxHeaderName]byte
	values [MaxHeaders][MaxHeaderValue]byte

	nameLens  [MaxHeaders]uint8
	valueLens [MaxHeaders]uint8

	count uint8

	// overflow holds header names/values that don't fit inline: either
	// the 33rd+ distinct name, or any value exceeding MaxHeaderValue
	// (but within the 8KB absolute ceiling).
	overflow map[string]string
}

const maxHeaderValueAbsolute = 8192

// Add stores a header, combining it with any existing value for the
// same name using ", " per RFC 7230 §3.2.2.
//
// Returns ErrHeaderTooLarge if name exceeds MaxHeaderName or the
// combined value would exceed the absolute 8KB ceiling. Returns
// ErrInvalidHeader if name or value contains a bare CR or LF (response
// splitting / header injection defense).
func (h *Header) Add(name, value []byte) error {
	if len(name) > MaxHeaderName {
		return ErrHeaderTooLarge
	}
	for _, b := range name {
		if b == '\r' || b == '\n' {
			return ErrInvalidHeader
		}
	}
	for _, b := range value {
		if b == '\r' || b == '\n' {
			return ErrInvalidHeader
		}
	}

	if existing, idx, inOverflow := h.find(name); existing != nil {
		combined := make([]byte, 0, len(existing)+2+len(value))
		combined = append(combined, existing...)
		combined = append(combined, ',', ' ')
		combined = append(combined, value...)
		if len(combined) > maxHeaderValueAbsolute {
			return ErrHeaderTooLarge
		}

		if inOverflow {
			h.overflow[string(name)] = string(combined)
			return nil
		}

		if len(combined) <= MaxHeaderValue {
			copy(h.values[idx][:], combined)
			h.valueLens[idx] = uint8(len(combined))
			return nil
		}

		// Combined value no longer fits inline: move to overflow.
		nameStr := string(h.names[idx][:h.nameLens[idx]])
		h.removeInline(idx)
		h.setOverflow(nameStr, string(combined))
		return nil
	}

	if len(value) > maxHeaderValueAbsolute {
		return ErrHeaderTooLarge
	}

	if h.Len() >= MaxTotalHeaderCount {
		return ErrTooManyHeaders
	}

	if h.count < MaxHeaders && len(value) <= MaxHeaderValue {
		idx := h.count
		copy(h.names[idx][:], name)
		copy(h.values[idx][:], value)
		h.nameLens[idx] = uint8(len(name))
		h.valueLens[idx] = uint8(len(value))
		h.count++
		return nil
	}

	h.setOverflow(string(name), string(value))
	return nil
}

func (h *Header) setOverflow(name, value string) {
	if h.overflow == nil {
		h.overflow = make(map[string]string, 8)
	}
	h.overflow[name] = value
}

func (h *Header) removeInline(idx uint8) {
	if idx < h.count-1 {
		copy(h.names[idx:], h.names[idx+1:h.count])
		copy(h.values[idx:], h.values[idx+1:h.count])
		copy(h.nameLens[idx:], h.nameLens[idx+1:h.count])
		copy(h.valueLens[idx:], h.valueLens[idx+1:h.count])
	}
	h.count--
}

// find locates an existing value for name, returning it plus its
// inline index (meaningless when inOverflow is true).
func (h *Header) find(name []byte) (value []byte, idx uint8, inOverflow bool) {
	for i := uint8(0); i < h.count; i++ {
		if h.nameLens[i] == uint8(len(name)) &&
			bytesEqualCaseInsensitive(h.names[i][:h.nameLens[i]], name) {
			return h.values[i][:h.valueLens[i]], i, false
		}
	}
	if h.overflow != nil {
		if v, ok := h.overflow[string(name)]; ok {
			return []byte(v), 0, true
		}
	}
	return nil, 0, false
}

// Get retrieves the (already-combined) value for name, or nil.
func (h *Header) Get(name []byte) []byte {
	v, _, _ := h.find(name)
	return v
}

// GetString is Get but returning a string (one allocation).
func (h *Header) GetString(name []byte) string {
	v := h.Get(name)
	if v == nil {
		return ""
	}
	return string(v)
}

// Has reports whether name is present.
func (h *Header) Has(name []byte) bool {
	v, _, _ := h.find(name)
	return v != nil
}

// Set replaces any existing value for name outright (no combining).
func (h *Header) Set(name, value []byte) error {
	h.Del(name)
	return h.Add(name, value)
}

// Del removes name if present.
func (h *Header) Del(name []byte) {
	for i := uint8(0); i < h.count; i++ {
		if h.nameLens[i] == uint8(len(name)) &&
			bytesEqualCaseInsensitive(h.names[i][:h.nameLens[i]], name) {
			h.removeInline(i)
			return
		}
	}
	if h.overflow != nil {
		delete(h.overflow, string(name))
	}
}

// Len returns the number of distinct header names stored.
func (h *Header) Len() int {
	total := int(h.count)
	if h.overflow != nil {
		total += len(h.overflow)
	}
	return total
}

// Reset clears all headers for pooled reuse.
func (h *Header) Reset() {
	h.count = 0
	h.overflow = nil
}

// VisitAll calls visitor for every (name, value) pair; iteration stops
// early if visitor returns false.
func (h *Header) VisitAll(visitor func(name, value []byte) bool) {
	for i := uint8(0); i < h.count; i++ {
		if !visitor(h.names[i][:h.nameLens[i]], h.values[i][:h.valueLens[i]]) {
			return
		}
	}
	if h.overflow != nil {
		for name, value := range h.overflow {
			if !visitor([]byte(name), []byte(value)) {
				return
			}
		}
	}
}

func bytesEqualCaseInsensitive(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if toLower(a[i]) != toLower(b[i]) {
			return false
		}
	}
	return true
}

func toLower(b byte) byte {
	if b >= 'A' && b <= 'Z' {
		return b + 32
	}
	return b
}
