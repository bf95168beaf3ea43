package image

import (
	"slices"
	"strings"

	"github.com/fly-io/imgdispatch/pkg/errors"
	"github.com/gabriel-vasile/mimetype"
)

// FormatUnknown is recorded when sniffing cannot name the payload.
const FormatUnknown = "unknown"

var (
	// ValidInputFormats are the formats a source payload may have.
	ValidInputFormats = []string{"jpeg", "jpg", "gif", "png", "webp"}
	// ValidOutputFormats are the formats a request may ask for.
	ValidOutputFormats = []string{"jpeg", "png", "webp"}
)

// IsInputFormat reports whether f is an accepted input format.
func IsInputFormat(f string) bool { return slices.Contains(ValidInputFormats, f) }

// IsOutputFormat reports whether f is an accepted output format.
func IsOutputFormat(f string) bool { return slices.Contains(ValidOutputFormats, f) }

// NormalizeFormat lower-cases f and folds "jpg" into "jpeg".
func NormalizeFormat(f string) string {
	f = strings.ToLower(f)
	if f == "jpg" {
		return "jpeg"
	}
	return f
}

// ValidateFormat returns a FormatError when format is not an accepted input
// format.
func ValidateFormat(format string) error {
	if !IsInputFormat(format) {
		return &errors.FormatError{Format: format}
	}
	return nil
}

// Sniff names the format of b from its leading bytes, ignoring any file
// extension. It returns FormatUnknown when no signature matches.
func Sniff(b []byte) string {
	ext := strings.TrimPrefix(mimetype.Detect(b).Extension(), ".")
	if ext == "" {
		return FormatUnknown
	}
	return ext
}
