package errors

import (
	"fmt"
	"strings"
	"testing"
)

func TestWrap(t *testing.T) {
	if Wrap(nil, "ctx") != nil {
		t.Error("Wrap(nil) should return nil")
	}

	base := New("boom")
	err := Wrap(base, "fetch failed")
	if err.Error() != "fetch failed: boom" {
		t.Errorf("unexpected message: %q", err.Error())
	}
	if !Is(err, base) {
		t.Error("wrapped error should match base with Is")
	}

	err = Wrapf(base, "key %s", "a/b.png")
	if err.Error() != "key a/b.png: boom" {
		t.Errorf("unexpected message: %q", err.Error())
	}
}

func TestTypedErrors(t *testing.T) {
	fe := &FormatError{Format: "bmp"}
	if !strings.Contains(fe.Error(), "bmp") {
		t.Errorf("format error should name the format: %q", fe.Error())
	}
	if !IsFormatError(fmt.Errorf("outer: %w", fe)) {
		t.Error("IsFormatError should see through wrapping")
	}
	if IsExcludedSource(fe) {
		t.Error("format error is not an excluded source error")
	}

	ee := &ExcludedSourceError{Source: "s3"}
	if ee.Error() != "s3 is an excluded source" {
		t.Errorf("unexpected message: %q", ee.Error())
	}
	if !IsExcludedSource(Wrap(ee, "resolve")) {
		t.Error("IsExcludedSource should see through wrapping")
	}
}
