// Package modifiers parses the transformation directives carried in the
// first segment of an image request path, e.g. "/s50-gne-efacebook/a/b.png".
package modifiers

import (
	"strconv"
	"strings"
)

// Directive keys.
const (
	Height   = "h"
	Width    = "w"
	Square   = "s"
	Crop     = "c"
	Gravity  = "g"
	X        = "x"
	Y        = "y"
	Quality  = "q"
	External = "e"
)

var (
	crops     = []string{"fit", "fill", "cut", "scale", "pad"}
	gravities = []string{"c", "n", "s", "e", "w", "ne", "nw", "se", "sw"}
)

// Directive is a single parsed option such as {Key: "h", Value: "200"}.
type Directive struct {
	Key   string
	Value string
}

// Modifiers is the ordered set of directives for one request.
type Modifiers struct {
	directives []Directive
	segment    string
}

// Parse extracts directives from the first segment of path. If that segment
// is not made up entirely of valid directives the request has no modifiers.
// A later directive with the same key replaces the earlier one in place.
func Parse(path string) Modifiers {
	trimmed := strings.TrimPrefix(path, "/")
	segment, _, found := strings.Cut(trimmed, "/")
	if !found || segment == "" {
		return Modifiers{}
	}

	var m Modifiers
	for _, item := range strings.Split(segment, "-") {
		d, ok := parseDirective(item)
		if !ok {
			return Modifiers{}
		}
		m.set(d)
	}
	m.segment = segment
	return m
}

func parseDirective(item string) (Directive, bool) {
	if len(item) < 2 {
		return Directive{}, false
	}
	key, value := item[:1], item[1:]

	switch key {
	case Height, Width, Square, X, Y:
		if n, err := strconv.Atoi(value); err != nil || n < 0 {
			return Directive{}, false
		}
	case Quality:
		if n, err := strconv.Atoi(value); err != nil || n < 1 || n > 100 {
			return Directive{}, false
		}
	case Crop:
		if !contains(crops, value) {
			return Directive{}, false
		}
	case Gravity:
		if !contains(gravities, value) {
			return Directive{}, false
		}
	case External:
		// any non-empty name
	default:
		return Directive{}, false
	}
	return Directive{Key: key, Value: value}, true
}

func (m *Modifiers) set(d Directive) {
	for i := range m.directives {
		if m.directives[i].Key == d.Key {
			m.directives[i] = d
			return
		}
	}
	m.directives = append(m.directives, d)
}

// Get returns the value of the directive with key.
func (m Modifiers) Get(key string) (string, bool) {
	for _, d := range m.directives {
		if d.Key == key {
			return d.Value, true
		}
	}
	return "", false
}

// Has reports whether a directive with key is present.
func (m Modifiers) Has(key string) bool {
	_, ok := m.Get(key)
	return ok
}

// Directives returns the directives in request order.
func (m Modifiers) Directives() []Directive {
	out := make([]Directive, len(m.directives))
	copy(out, m.directives)
	return out
}

// Len returns the number of directives.
func (m Modifiers) Len() int { return len(m.directives) }

// Segment is the raw path segment the directives were read from, empty when
// the request carried none.
func (m Modifiers) Segment() string { return m.segment }

// Strip removes the modifier segment from path.
func (m Modifiers) Strip(path string) string {
	if m.segment == "" {
		return path
	}
	rest := strings.TrimPrefix(strings.TrimPrefix(path, "/"), m.segment)
	if !strings.HasPrefix(rest, "/") {
		rest = "/" + rest
	}
	return rest
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
