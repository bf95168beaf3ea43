// Package server exposes image requests over HTTP. Every request follows the
// same path: build the descriptor, resolve and drain its stream, then either
// write the payload or render the recorded error.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/fly-io/imgdispatch/pkg/errors"
	"github.com/fly-io/imgdispatch/pkg/image"
	"github.com/fly-io/imgdispatch/pkg/storage"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server is the HTTP front end for the resolver.
type Server struct {
	engine   *gin.Engine
	resolver image.Resolver
	expiry   time.Duration
}

// New builds the router. gatherer may be nil to leave /metrics unmounted.
func New(resolver image.Resolver, expiry time.Duration, gatherer prometheus.Gatherer) *Server {
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{engine: engine, resolver: resolver, expiry: expiry}

	engine.GET("/health", s.handleHealth)
	if gatherer != nil {
		engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}
	engine.NoRoute(s.handleImage)

	return s
}

// Handler returns the router as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http_server_start", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "http server failed")
	case <-ctx.Done():
		slog.Info("http_server_shutdown", "addr", addr)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleImage(c *gin.Context) {
	if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "method not allowed"})
		return
	}

	img, err := image.New(c.Request.URL.EscapedPath(), s.expiry)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	defer func() {
		img.Log().Flush(slog.Default(),
			"path", img.Path(),
			"duration_ms", time.Since(img.Mark()).Milliseconds())
	}()

	image.Drain(c.Request.Context(), img.GetFile(s.resolver))

	if img.IsError() {
		status := statusFor(img.Err())
		slog.Warn("image_request_failed", "path", img.Path(), "status", status, "error", img.Err())
		c.JSON(status, gin.H{"error": img.Err().Error()})
		return
	}

	c.Header("Cache-Control", fmt.Sprintf("public, max-age=%d", int64(img.Expiry().Seconds())))

	if img.IsMetadata() {
		c.JSON(http.StatusOK, metadataFor(img))
		return
	}

	contentType := "image/" + img.Format()
	switch {
	case img.IsBuffer():
		img.Log().Log("size saving %s%%", img.SizeSaving())
		c.Data(http.StatusOK, contentType, img.Contents())
	case img.IsStream():
		stream := img.Stream()
		defer stream.Close()
		c.DataFromReader(http.StatusOK, -1, contentType, stream, nil)
	default:
		c.JSON(http.StatusBadGateway, gin.H{"error": "source produced no payload"})
	}
}

// statusFor maps a recorded failure to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.IsFormatError(err):
		return http.StatusUnsupportedMediaType
	case errors.IsExcludedSource(err):
		return http.StatusForbidden
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, storage.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusBadGateway
	}
}

// Metadata is the body returned for ".json" requests.
type Metadata struct {
	Image                 string            `json:"image"`
	Key                   string            `json:"key"`
	Format                string            `json:"format"`
	OutputFormat          string            `json:"output_format,omitempty"`
	OriginalContentLength int64             `json:"original_content_length"`
	SizeReductionKB       float64           `json:"size_reduction_kb"`
	SizeSaving            string            `json:"size_saving"`
	ExpirySeconds         int64             `json:"expiry_seconds"`
	Modifiers             map[string]string `json:"modifiers,omitempty"`
}

func metadataFor(img *image.Image) Metadata {
	md := Metadata{
		Image:                 img.Image(),
		Key:                   img.Key(),
		Format:                img.Format(),
		OutputFormat:          img.OutputFormat(),
		OriginalContentLength: img.OriginalContentLength(),
		ExpirySeconds:         int64(img.Expiry().Seconds()),
	}
	if img.IsBuffer() {
		md.SizeReductionKB = img.SizeReduction()
		md.SizeSaving = img.SizeSaving()
	}
	if mods := img.Modifiers(); mods.Len() > 0 {
		md.Modifiers = make(map[string]string, mods.Len())
		for _, d := range mods.Directives() {
			md.Modifiers[d.Key] = d.Value
		}
	}
	return md
}
