package message

import (
	"iter"
	"net/http"
	"slices"
	"strings"
)

// Headers is an ordered, case-insensitive multimap of header fields.
// Names keep the spelling they were first added with. The zero value is
// ready to use.
type Headers struct {
	entries []headerEntry
	index   map[string]int
}

type headerEntry struct {
	name   string
	values []string
}

// NewHeaders returns an empty header set.
func NewHeaders() *Headers {
	return &Headers{}
}

// HeadersFromHTTP converts an http.Header. Map iteration order is not
// stable, so names are added in sorted order.
func HeadersFromHTTP(h http.Header) *Headers {
	out := &Headers{}
	names := make([]string, 0, len(h))
	for name := range h {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		for _, v := range h[name] {
			out.Add(name, v)
		}
	}
	return out
}

func foldKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func (h *Headers) lookup(name string) (int, bool) {
	if h == nil || h.index == nil {
		return 0, false
	}
	i, ok := h.index[foldKey(name)]
	return i, ok
}

// Set replaces all values of name with value.
func (h *Headers) Set(name, value string) {
	if i, ok := h.lookup(name); ok {
		h.entries[i].values = []string{value}
		return
	}
	h.append(name, value)
}

// Add appends value to the values of name.
func (h *Headers) Add(name, value string) {
	if i, ok := h.lookup(name); ok {
		h.entries[i].values = append(h.entries[i].values, value)
		return
	}
	h.append(name, value)
}

func (h *Headers) append(name, value string) {
	if h.index == nil {
		h.index = make(map[string]int)
	}
	h.index[foldKey(name)] = len(h.entries)
	h.entries = append(h.entries, headerEntry{name: strings.TrimSpace(name), values: []string{value}})
}

// Get returns the first value of name and whether the header is present.
func (h *Headers) Get(name string) (string, bool) {
	i, ok := h.lookup(name)
	if !ok || len(h.entries[i].values) == 0 {
		return "", false
	}
	return h.entries[i].values[0], true
}

// Values returns a copy of all values of name.
func (h *Headers) Values(name string) []string {
	i, ok := h.lookup(name)
	if !ok {
		return nil
	}
	return slices.Clone(h.entries[i].values)
}

// Has reports whether name is present.
func (h *Headers) Has(name string) bool {
	_, ok := h.lookup(name)
	return ok
}

// Del removes name.
func (h *Headers) Del(name string) {
	i, ok := h.lookup(name)
	if !ok {
		return
	}
	h.entries = slices.Delete(h.entries, i, i+1)
	delete(h.index, foldKey(name))
	for j := i; j < len(h.entries); j++ {
		h.index[foldKey(h.entries[j].name)] = j
	}
}

// Len returns the number of distinct names.
func (h *Headers) Len() int {
	if h == nil {
		return 0
	}
	return len(h.entries)
}

// Names returns the header names in insertion order.
func (h *Headers) Names() []string {
	if h == nil {
		return nil
	}
	names := make([]string, len(h.entries))
	for i, e := range h.entries {
		names[i] = e.name
	}
	return names
}

// All iterates over names and their values in insertion order.
func (h *Headers) All() iter.Seq2[string, []string] {
	return func(yield func(string, []string) bool) {
		if h == nil {
			return
		}
		for _, e := range h.entries {
			if !yield(e.name, slices.Clone(e.values)) {
				return
			}
		}
	}
}

// Clone returns a deep copy. Cloning nil yields an empty set.
func (h *Headers) Clone() *Headers {
	out := &Headers{}
	if h == nil {
		return out
	}
	out.entries = make([]headerEntry, len(h.entries))
	out.index = make(map[string]int, len(h.entries))
	for i, e := range h.entries {
		out.entries[i] = headerEntry{name: e.name, values: slices.Clone(e.values)}
		out.index[foldKey(e.name)] = i
	}
	return out
}

// HTTP converts the set to an http.Header.
func (h *Headers) HTTP() http.Header {
	out := make(http.Header, h.Len())
	if h == nil {
		return out
	}
	for _, e := range h.entries {
		for _, v := range e.values {
			out.Add(e.name, v)
		}
	}
	return out
}
