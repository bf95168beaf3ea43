package image

import "strings"

// metadataMarker is the trailing token that turns a request into a
// metadata request, e.g. "photo.png.json".
const metadataMarker = "json"

// Parsed is the identity derived from a request path.
type Parsed struct {
	// Dir is everything up to and including the last "/".
	Dir string
	// Image is the lower-cased base name with format and metadata suffixes
	// removed.
	Image string
	// Base is Image in the request's original case.
	Base string
	// Ext is the source file extension in its original case, if any.
	Ext string
	// Format is set only by a ".<format>.json" suffix.
	Format string
	// OutputFormat is set only by a valid ".<in>.<out>" suffix pair.
	OutputFormat string
	// Metadata is true when the path ended in ".json".
	Metadata bool
}

// ParsePath splits a request path into its image identity. Tokens are
// lower-cased and Image is rejoined from them; Base and Ext keep the request's
// case so the source key can be rebuilt exactly.
func ParsePath(path string) Parsed {
	var p Parsed
	file := path
	if i := strings.LastIndex(path, "/"); i >= 0 {
		p.Dir, file = path[:i+1], path[i+1:]
	}

	raw := strings.Split(file, ".")
	tokens := make([]string, len(raw))
	for i, t := range raw {
		tokens[i] = strings.ToLower(t)
	}
	n := len(tokens)

	switch {
	case n >= 2 && tokens[n-1] == metadataMarker:
		p.Metadata = true
		n--
		if n >= 2 {
			p.Format = tokens[n-1]
		}
	case n >= 3 && IsInputFormat(tokens[n-2]) && IsOutputFormat(tokens[n-1]):
		p.OutputFormat = tokens[n-1]
		n--
	}

	if n >= 2 {
		p.Ext = raw[n-1]
		n--
	}
	p.Image = strings.Join(tokens[:n], ".")
	p.Base = strings.Join(raw[:n], ".")
	return p
}

// Key rebuilds the source object key: directory, base name and source
// extension, without a leading slash.
func (p Parsed) Key() string {
	key := strings.TrimPrefix(p.Dir, "/") + p.Base
	if p.Ext != "" {
		key += "." + p.Ext
	}
	return key
}
