package sources

import (
	"context"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/fly-io/imgdispatch/internal/config"
	"github.com/fly-io/imgdispatch/pkg/errors"
	"github.com/fly-io/imgdispatch/pkg/image"
	"github.com/fly-io/imgdispatch/pkg/storage"
	"github.com/spf13/afero"
)

// fetchStream runs one fetch on first drain and hands the bytes to the
// descriptor. Later drains yield nothing.
type fetchStream struct {
	img    *image.Image
	source string
	fetch  func(ctx context.Context, key string, limit int64) ([]byte, error)
	r      *Resolver
	done   bool
}

func (s *fetchStream) Seq(ctx context.Context) iter.Seq[*image.Image] {
	return func(yield func(*image.Image) bool) {
		if s.done {
			return
		}
		s.done = true
		s.run(ctx)
		yield(s.img)
	}
}

func (s *fetchStream) run(ctx context.Context) {
	if s.r.opts.FetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.r.opts.FetchTimeout)
		defer cancel()
	}

	key := s.img.Key()
	limit := s.r.opts.Validator.MaxFileSize()
	start := time.Now()

	data, err := s.fetch(ctx, key, limit)
	if err == nil {
		if verr := s.r.opts.Validator.ValidateFileSize(int64(len(data))); verr != nil {
			err = fmt.Errorf("%s: %w", verr.Error(), storage.ErrTooLarge)
		}
	}
	s.r.opts.Observer.RecordFetch(s.source, time.Since(start), len(data), err)

	if err != nil {
		slog.Error("source_fetch_failed", "source", s.source, "key", key, "error", err)
		s.img.Log().Log("%s fetch failed: %v", s.source, err)
		s.img.Fail(errors.Wrapf(err, "%s fetch failed", s.source))
		return
	}

	s.img.SetOriginalContentLength(int64(len(data)))
	if err := s.img.SetContents(data); err != nil {
		s.img.Log().Log("%v", err)
		return
	}
	s.img.Log().Log("fetched %d bytes from %s in %s", len(data), s.source, time.Since(start))
}

func (r *Resolver) newS3Stream(img *image.Image) image.Stream {
	return &fetchStream{
		img:    img,
		source: string(KindS3),
		r:      r,
		fetch: func(ctx context.Context, key string, limit int64) ([]byte, error) {
			if r.opts.S3 == nil {
				return nil, fmt.Errorf("s3 source is not configured")
			}
			return r.opts.S3.Fetch(ctx, key, limit)
		},
	}
}

func (r *Resolver) newLocalStream(img *image.Image) image.Stream {
	return &fetchStream{
		img:    img,
		source: string(KindLocal),
		r:      r,
		fetch: func(ctx context.Context, key string, limit int64) ([]byte, error) {
			if r.opts.LocalFS == nil {
				return nil, fmt.Errorf("local source is not configured")
			}
			return readLocal(r.opts.LocalFS, r.opts.Validator.ValidateKey, key, limit)
		},
	}
}

func readLocal(fs afero.Fs, validate func(string) error, key string, limit int64) ([]byte, error) {
	if err := validate(key); err != nil {
		return nil, err
	}

	info, err := fs.Stat(key)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", key, storage.ErrNotFound)
		}
		return nil, errors.Wrap(err, "failed to stat local file")
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s: %w", key, storage.ErrNotFound)
	}
	if limit > 0 && info.Size() > limit {
		return nil, fmt.Errorf("%s: %w", key, storage.ErrTooLarge)
	}

	data, err := afero.ReadFile(fs, key)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read local file")
	}
	return data, nil
}

func (r *Resolver) newExternalStream(img *image.Image, name string, origin config.ExternalOrigin) image.Stream {
	if origin.Expiry > 0 {
		img.SetExpiry(origin.Expiry)
	}

	s := &fetchStream{img: img, source: name, r: r}
	switch origin.Type {
	case config.OriginS3:
		s.fetch = func(ctx context.Context, key string, limit int64) ([]byte, error) {
			client, ok := r.opts.Origins[name]
			if !ok {
				return nil, fmt.Errorf("external source %s has no client", name)
			}
			return client.Fetch(ctx, key, limit)
		}
	default:
		s.fetch = func(ctx context.Context, key string, limit int64) ([]byte, error) {
			return fetchHTTP(ctx, r.opts.HTTPClient, origin.URL, key, limit)
		}
	}
	return s
}

func fetchHTTP(ctx context.Context, client *http.Client, base, key string, limit int64) ([]byte, error) {
	target, err := url.JoinPath(base, key)
	if err != nil {
		return nil, errors.Wrap(err, "invalid origin url")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build origin request")
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "origin request failed")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%s: %w", target, storage.ErrNotFound)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("origin returned %d for %s", resp.StatusCode, target)
	}

	if limit > 0 && resp.ContentLength > limit {
		return nil, fmt.Errorf("%s: %w", target, storage.ErrTooLarge)
	}

	var body io.Reader = resp.Body
	if limit > 0 {
		body = io.LimitReader(resp.Body, limit+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read origin body")
	}
	if limit > 0 && int64(len(data)) > limit {
		return nil, fmt.Errorf("%s: %w", target, storage.ErrTooLarge)
	}
	return data, nil
}
