// Package image holds the per-request image descriptor: the identity parsed
// from the request path, the requested modifiers, the fetched payload and the
// single error slot every later stage checks.
package image

import (
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/fly-io/imgdispatch/pkg/errors"
	"github.com/fly-io/imgdispatch/pkg/modifiers"
)

// Image is the descriptor for one inbound request. It is owned by the flow
// handling that request and is not safe for concurrent mutation.
type Image struct {
	parsed       Parsed
	format       string
	outputFormat string
	modifiers    modifiers.Modifiers
	path         string

	contents              []byte
	stream                io.ReadCloser
	originalContentLength int64
	expiry                time.Duration

	err   error
	mark  time.Time
	log   *Logger
	state State
}

// New builds the descriptor for a request path. It decodes the path, reads
// the modifier segment, and parses the image identity. It performs no I/O.
func New(rawPath string, expiry time.Duration) (*Image, error) {
	img := &Image{
		mark:   time.Now(),
		log:    NewLogger(),
		expiry: expiry,
		state:  StateCreated,
	}

	path, err := url.PathUnescape(rawPath)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid request path %q", rawPath)
	}
	img.path = path

	img.modifiers = modifiers.Parse(path)
	img.parsed = ParsePath(img.modifiers.Strip(path))
	img.outputFormat = img.parsed.OutputFormat
	if img.parsed.Format != "" {
		img.SetFormat(img.parsed.Format)
	}
	img.advance(StateParsed)
	img.advance(StateModifiersResolved)

	return img, nil
}

// Image is the base identifier with format suffixes removed.
func (i *Image) Image() string { return i.parsed.Image }

// Key is the object key the payload is fetched from.
func (i *Image) Key() string { return i.parsed.Key() }

// Format is the declared or sniffed input format, empty until known.
func (i *Image) Format() string { return i.format }

// SetFormat stores f normalized and returns the stored value.
func (i *Image) SetFormat(f string) string {
	i.format = NormalizeFormat(f)
	return i.format
}

// OutputFormat is the requested output container, empty if none was asked for.
func (i *Image) OutputFormat() string { return i.outputFormat }

// Modifiers are the directives parsed from the request.
func (i *Image) Modifiers() modifiers.Modifiers { return i.modifiers }

// Path is the decoded request path.
func (i *Image) Path() string { return i.path }

// IsMetadata reports whether the request asked for metadata rather than bytes.
func (i *Image) IsMetadata() bool { return i.parsed.Metadata }

// Mark is the descriptor creation time.
func (i *Image) Mark() time.Time { return i.mark }

// Log is the request's queued diagnostic log.
func (i *Image) Log() *Logger { return i.log }

// State is the current lifecycle state.
func (i *Image) State() State { return i.state }

// Expiry is the cache lifetime for the response.
func (i *Image) Expiry() time.Duration { return i.expiry }

// SetExpiry overrides the default cache lifetime.
func (i *Image) SetExpiry(d time.Duration) { i.expiry = d }

// OriginalContentLength is the payload size before any transformation.
func (i *Image) OriginalContentLength() int64 { return i.originalContentLength }

// SetOriginalContentLength records the payload size as fetched.
func (i *Image) SetOriginalContentLength(n int64) { i.originalContentLength = n }

// Err is the recorded failure, nil while the request is healthy.
func (i *Image) Err() error { return i.err }

// IsError reports whether a failure has been recorded.
func (i *Image) IsError() bool { return i.err != nil }

// Fail records err unless an error is already recorded, and returns the error
// now in force. The first error always wins.
func (i *Image) Fail(err error) error {
	i.record(err)
	if i.err != nil {
		i.advance(StateFailed)
	}
	return i.err
}

func (i *Image) record(err error) {
	if err != nil && i.err == nil {
		i.err = err
	}
}

// IsFormatValid validates the current format and records a FormatError on
// failure. An unknown format is not validated yet and reports true.
func (i *Image) IsFormatValid() bool {
	if i.format == "" {
		return true
	}
	if err := ValidateFormat(i.format); err != nil {
		i.record(err)
		i.advance(StateInvalid)
		return false
	}
	return true
}

// SetContents stores a fetched payload, replaces the format with the one
// sniffed from the bytes, and validates it. The returned error is the
// FormatError recorded when the payload is not an accepted format.
func (i *Image) SetContents(b []byte) error {
	if b == nil {
		b = []byte{}
	}
	i.contents = b
	i.stream = nil
	i.advance(StateContentReceived)

	i.SetFormat(Sniff(b))
	i.advance(StateNormalized)

	if !i.IsFormatValid() {
		return &errors.FormatError{Format: i.format}
	}
	i.advance(StateValid)
	return nil
}

// SetStream stores a payload that is still being read. The format is left as
// is.
func (i *Image) SetStream(r io.ReadCloser) {
	i.stream = r
	i.contents = nil
	i.advance(StateContentReceived)
}

// Contents returns the buffered payload, nil unless IsBuffer.
func (i *Image) Contents() []byte { return i.contents }

// Stream returns the streamed payload, nil unless IsStream.
func (i *Image) Stream() io.ReadCloser { return i.stream }

// IsBuffer reports whether the payload is a byte buffer.
func (i *Image) IsBuffer() bool { return i.contents != nil }

// IsStream reports whether the payload is a live stream.
func (i *Image) IsStream() bool { return i.stream != nil }

// GetFile resolves the stream that will produce this image's payload. A
// descriptor that has already failed gets an ErrorStream without resolution.
func (i *Image) GetFile(r Resolver) Stream {
	if i.IsError() {
		return NewErrorStream(i)
	}
	s := r.Resolve(i)
	if !i.IsError() {
		i.advance(StateStreaming)
	}
	return s
}

// SizeReduction is the number of kilobytes saved against the original payload.
func (i *Image) SizeReduction() float64 {
	return float64(i.originalContentLength-int64(len(i.contents))) / 1000
}

// SizeSaving is the percentage saved against the original payload, to two
// decimals. It reports "0.00" when the original length is unknown.
func (i *Image) SizeSaving() string {
	if i.originalContentLength == 0 {
		return "0.00"
	}
	saved := float64(i.originalContentLength-int64(len(i.contents))) / float64(i.originalContentLength) * 100
	return fmt.Sprintf("%.2f", saved)
}

// advance moves to s unless the descriptor is already in a terminal state.
func (i *Image) advance(s State) {
	if i.state.Terminal() {
		return
	}
	i.state = s
}
