// Package sources selects and builds the stream that produces a request's
// payload: one of the built-in source kinds, a named external origin, or an
// error stream when the effective source is excluded.
package sources

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/fly-io/imgdispatch/internal/config"
	"github.com/fly-io/imgdispatch/pkg/errors"
	"github.com/fly-io/imgdispatch/pkg/image"
	"github.com/fly-io/imgdispatch/pkg/metrics"
	"github.com/fly-io/imgdispatch/pkg/modifiers"
	"github.com/fly-io/imgdispatch/pkg/security"
	"github.com/fly-io/imgdispatch/pkg/storage"
	"github.com/spf13/afero"
)

// Kind is a built-in source type.
type Kind string

const (
	KindS3    Kind = "s3"
	KindLocal Kind = "local"
)

// Kinds lists every built-in source type.
var Kinds = []Kind{KindS3, KindLocal}

// ParseKind maps a source type name to its Kind.
func ParseKind(name string) (Kind, bool) {
	k := Kind(name)
	return k, slices.Contains(Kinds, k)
}

// ObjectFetcher reads whole objects by key. *storage.Client implements it.
type ObjectFetcher interface {
	Fetch(ctx context.Context, key string, limit int64) ([]byte, error)
}

// Options wires a Resolver. Everything here is shared read-only across
// requests.
type Options struct {
	DefaultSource string
	Excludes      []string
	External      map[string]config.ExternalOrigin

	S3         ObjectFetcher
	LocalFS    afero.Fs
	Origins    map[string]ObjectFetcher // clients for s3-type external origins
	HTTPClient *http.Client

	Validator    *security.Validator
	Observer     metrics.Observer
	FetchTimeout time.Duration
}

// Resolver picks the stream for each request.
type Resolver struct {
	opts Options
}

// New creates a Resolver from already-built clients.
func New(opts Options) *Resolver {
	if opts.Validator == nil {
		opts.Validator = security.NewValidator(0)
	}
	if opts.Observer == nil {
		opts.Observer = metrics.Nop{}
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	return &Resolver{opts: opts}
}

// NewFromConfig builds the storage clients named by cfg and returns a
// Resolver over them. This is the only place source clients are created.
func NewFromConfig(ctx context.Context, cfg *config.Config, observer metrics.Observer) (*Resolver, error) {
	if _, ok := ParseKind(cfg.DefaultSource); !ok {
		return nil, fmt.Errorf("unknown default source %q", cfg.DefaultSource)
	}

	opts := Options{
		DefaultSource: cfg.DefaultSource,
		Excludes:      cfg.Excludes(),
		External:      cfg.ExternalSources,
		LocalFS:       afero.NewBasePathFs(afero.NewOsFs(), cfg.LocalDir),
		Origins:       make(map[string]ObjectFetcher),
		HTTPClient:    &http.Client{},
		Validator:     security.NewValidator(cfg.MaxFileSize),
		Observer:      observer,
		FetchTimeout:  cfg.FetchTimeout,
	}

	if cfg.S3Bucket != "" {
		client, err := storage.NewClient(ctx, storage.Options{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Anonymous: cfg.S3Anonymous,
		})
		if err != nil {
			return nil, errors.Wrap(err, "s3 source client failed")
		}
		opts.S3 = client
	}

	for name, origin := range cfg.ExternalSources {
		if origin.Type != config.OriginS3 {
			continue
		}
		region := origin.Region
		if region == "" {
			region = cfg.S3Region
		}
		client, err := storage.NewClient(ctx, storage.Options{
			Bucket:    origin.Bucket,
			Region:    region,
			Anonymous: cfg.S3Anonymous,
		})
		if err != nil {
			return nil, errors.Wrapf(err, "external source %s client failed", name)
		}
		opts.Origins[name] = client
	}

	slog.Info("resolver_ready",
		"default_source", opts.DefaultSource,
		"excludes", opts.Excludes,
		"external_sources", len(opts.External))

	return New(opts), nil
}

// Resolve returns the stream for img. The first matching rule wins:
//
//  1. an "e" directive naming a configured external origin, regardless of
//     the exclusion list;
//  2. an "e" directive naming a built-in kind overrides the default source;
//  3. an excluded effective source records an ExcludedSourceError and
//     returns an ErrorStream;
//  4. otherwise the built-in stream for the effective source.
//
// Resolve performs no I/O.
func (r *Resolver) Resolve(img *image.Image) image.Stream {
	source := r.opts.DefaultSource

	if name, ok := img.Modifiers().Get(modifiers.External); ok {
		if origin, ok := r.opts.External[name]; ok {
			r.opts.Observer.RecordResolution(name, metrics.OutcomeExternal)
			img.Log().Log("external stream created for %s", name)
			return r.newExternalStream(img, name, origin)
		}
		if k, ok := ParseKind(name); ok {
			source = string(k)
		}
	}

	if slices.Contains(r.opts.Excludes, source) {
		img.Fail(&errors.ExcludedSourceError{Source: source})
		r.opts.Observer.RecordResolution(source, metrics.OutcomeExcluded)
		slog.Warn("source_excluded", "source", source, "path", img.Path())
		return image.NewErrorStream(img)
	}

	kind, ok := ParseKind(source)
	if !ok {
		img.Fail(fmt.Errorf("unknown source type %q", source))
		return image.NewErrorStream(img)
	}

	img.Log().Log("new stream created!")
	r.opts.Observer.RecordResolution(source, metrics.OutcomeInternal)

	switch kind {
	case KindLocal:
		return r.newLocalStream(img)
	default:
		return r.newS3Stream(img)
	}
}

// Describe reports which source Resolve would pick for img and whether it is
// excluded, without touching img.
func (r *Resolver) Describe(img *image.Image) (source string, external, excluded bool) {
	source = r.opts.DefaultSource
	if name, ok := img.Modifiers().Get(modifiers.External); ok {
		if _, ok := r.opts.External[name]; ok {
			return name, true, false
		}
		if k, ok := ParseKind(name); ok {
			source = string(k)
		}
	}
	return source, false, slices.Contains(r.opts.Excludes, source)
}
