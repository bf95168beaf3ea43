package security

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
)

// Validator enforces limits on source keys and fetched payloads
type Validator struct {
	maxFileSize int64
}

// NewValidator creates a new security validator
func NewValidator(maxFileSize int64) *Validator {
	slog.Info("security_validator_init", "max_file_size_mb", maxFileSize/1024/1024)

	return &Validator{maxFileSize: maxFileSize}
}

// MaxFileSize is the largest payload a source may return
func (v *Validator) MaxFileSize() int64 {
	return v.maxFileSize
}

// ValidateKey checks a source key for path traversal.
// Keys are relative to the source root; a leading slash is tolerated.
func (v *Validator) ValidateKey(key string) error {
	rel := strings.TrimLeft(key, "/")
	if rel == "" {
		slog.Error("security_key_validation_failed", "key", key, "reason", "empty_key")
		return fmt.Errorf("security: empty key")
	}

	// Clean the path
	clean := filepath.Clean(rel)

	// Reject paths that start with .. (escape the source root)
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		slog.Error("security_key_validation_failed", "key", key, "reason", "path_traversal")
		return fmt.Errorf("security: path traversal detected: %s", key)
	}

	return nil
}

// ValidateFileSize checks if a payload exceeds max file size
func (v *Validator) ValidateFileSize(size int64) error {
	if v.maxFileSize > 0 && size > v.maxFileSize {
		slog.Error("security_file_size_exceeded",
			"file_size", size,
			"max_file_size", v.maxFileSize)
		return fmt.Errorf("security: file size %d exceeds max %d", size, v.maxFileSize)
	}
	return nil
}
