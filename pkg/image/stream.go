package image

import (
	"context"
	"iter"
)

// Stream produces a request's descriptor once its contents are in place.
// Streams are one-shot: a second Seq yields nothing. Failures are recorded on
// the descriptor, so callers drain and then check IsError.
type Stream interface {
	Seq(ctx context.Context) iter.Seq[*Image]
}

// Resolver picks the stream that will fill a descriptor.
type Resolver interface {
	Resolve(img *Image) Stream
}

// ErrorStream is an already-finished stream carrying a failed descriptor.
type ErrorStream struct {
	img  *Image
	done bool
}

// NewErrorStream wraps img, which is expected to carry an error.
func NewErrorStream(img *Image) *ErrorStream {
	return &ErrorStream{img: img}
}

// Seq yields the descriptor once and ends.
func (s *ErrorStream) Seq(context.Context) iter.Seq[*Image] {
	return func(yield func(*Image) bool) {
		if s.done {
			return
		}
		s.done = true
		yield(s.img)
	}
}

// Drain consumes s and returns the last descriptor it produced, or nil if it
// produced none.
func Drain(ctx context.Context, s Stream) *Image {
	var last *Image
	for img := range s.Seq(ctx) {
		last = img
	}
	return last
}
