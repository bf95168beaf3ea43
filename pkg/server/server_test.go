package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fly-io/imgdispatch/pkg/image/imagetest"
	"github.com/fly-io/imgdispatch/pkg/metrics"
	"github.com/fly-io/imgdispatch/pkg/security"
	"github.com/fly-io/imgdispatch/pkg/sources"
	"github.com/fly-io/imgdispatch/pkg/storage"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

type memBucket map[string][]byte

func (b memBucket) Fetch(ctx context.Context, key string, limit int64) ([]byte, error) {
	data, ok := b[key]
	if !ok {
		return nil, fmt.Errorf("%s: %w", key, storage.ErrNotFound)
	}
	return data, nil
}

func newTestServer(t *testing.T, excludes []string) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	reg := prometheus.NewRegistry()
	observer, err := metrics.NewPrometheusObserver("test", reg)
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}

	resolver := sources.New(sources.Options{
		DefaultSource: "s3",
		Excludes:      excludes,
		S3: memBucket{
			"images/photo.png": imagetest.PNG(),
			"images/cat.bmp":   imagetest.BMP(),
			"images/big.png":   append(imagetest.PNG(), make([]byte, 4096)...),
		},
		Validator: security.NewValidator(2048),
		Observer:  observer,
	})
	return New(resolver, time.Hour, reg)
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestHandleImage(t *testing.T) {
	s := newTestServer(t, nil)

	w := get(t, s, "/images/photo.png.webp")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("content type = %q", ct)
	}
	if cc := w.Header().Get("Cache-Control"); cc != "public, max-age=3600" {
		t.Errorf("cache control = %q", cc)
	}
	if !bytes.Equal(w.Body.Bytes(), imagetest.PNG()) {
		t.Error("body does not match source payload")
	}
}

func TestHandleImageErrors(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		excludes []string
		status   int
		contains string
	}{
		{"excluded source", "/images/photo.png", []string{"s3"}, http.StatusForbidden, "s3 is an excluded source"},
		{"invalid format", "/images/cat.bmp", nil, http.StatusUnsupportedMediaType, "bmp"},
		{"missing object", "/images/none.png", nil, http.StatusNotFound, "object not found"},
		{"too large", "/images/big.png", nil, http.StatusRequestEntityTooLarge, "exceeds max"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, tt.excludes)
			w := get(t, s, tt.path)
			if w.Code != tt.status {
				t.Errorf("status = %d, want %d (%s)", w.Code, tt.status, w.Body.String())
			}
			var body map[string]string
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("error body is not JSON: %v", err)
			}
			if !strings.Contains(body["error"], tt.contains) {
				t.Errorf("error = %q, want containing %q", body["error"], tt.contains)
			}
		})
	}
}

func TestHandleMetadata(t *testing.T) {
	s := newTestServer(t, nil)

	w := get(t, s, "/h100-cfill/images/photo.png.json")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var md Metadata
	if err := json.Unmarshal(w.Body.Bytes(), &md); err != nil {
		t.Fatalf("decode metadata: %v", err)
	}
	if md.Image != "photo" || md.Key != "images/photo.png" || md.Format != "png" {
		t.Errorf("unexpected metadata: %+v", md)
	}
	if md.OriginalContentLength != int64(len(imagetest.PNG())) || md.SizeSaving != "0.00" {
		t.Errorf("unexpected diagnostics: %+v", md)
	}
	if md.Modifiers["h"] != "100" || md.Modifiers["c"] != "fill" {
		t.Errorf("modifiers = %v", md.Modifiers)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t, nil)

	if w := get(t, s, "/health"); w.Code != http.StatusOK {
		t.Errorf("health status = %d", w.Code)
	}

	get(t, s, "/images/photo.png")
	w := get(t, s, "/metrics")
	if w.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `test_source_resolutions_total{outcome="internal",source="s3"} 1`) {
		t.Errorf("resolution metric missing:\n%s", w.Body.String())
	}
}

func TestMethodNotAllowed(t *testing.T) {
	s := newTestServer(t, nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/images/photo.png", nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d", w.Code)
	}
}
