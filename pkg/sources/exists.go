package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"

	"github.com/fly-io/imgdispatch/internal/config"
	"github.com/fly-io/imgdispatch/pkg/errors"
	"github.com/fly-io/imgdispatch/pkg/image"
)

// ObjectChecker reports whether a key is present. *storage.Client implements
// it.
type ObjectChecker interface {
	Exists(ctx context.Context, key string) (bool, error)
}

// Exists reports whether the source Resolve would pick for img holds img's
// key. Unlike Resolve it contacts the source. Excluded sources are refused
// without I/O.
func (r *Resolver) Exists(ctx context.Context, img *image.Image) (bool, error) {
	if r.opts.FetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.FetchTimeout)
		defer cancel()
	}

	source, external, excluded := r.Describe(img)
	if excluded {
		return false, &errors.ExcludedSourceError{Source: source}
	}
	key := img.Key()

	if external {
		origin := r.opts.External[source]
		if origin.Type == config.OriginS3 {
			return checkObject(ctx, source, r.opts.Origins[source], key)
		}
		return headHTTP(ctx, r.opts.HTTPClient, origin.URL, key)
	}

	switch Kind(source) {
	case KindS3:
		return checkObject(ctx, source, r.opts.S3, key)
	case KindLocal:
		if r.opts.LocalFS == nil {
			return false, fmt.Errorf("local source is not configured")
		}
		if err := r.opts.Validator.ValidateKey(key); err != nil {
			return false, err
		}
		info, err := r.opts.LocalFS.Stat(key)
		if err != nil {
			if os.IsNotExist(err) {
				return false, nil
			}
			return false, errors.Wrap(err, "failed to stat local file")
		}
		return !info.IsDir(), nil
	}
	return false, fmt.Errorf("unknown source type %q", source)
}

func checkObject(ctx context.Context, source string, f ObjectFetcher, key string) (bool, error) {
	if f == nil {
		return false, fmt.Errorf("%s source is not configured", source)
	}
	c, ok := f.(ObjectChecker)
	if !ok {
		return false, fmt.Errorf("%s source cannot check object presence", source)
	}
	return c.Exists(ctx, key)
}

func headHTTP(ctx context.Context, client *http.Client, base, key string) (bool, error) {
	target, err := url.JoinPath(base, key)
	if err != nil {
		return false, errors.Wrap(err, "invalid origin url")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, target, nil)
	if err != nil {
		return false, errors.Wrap(err, "failed to build origin request")
	}

	resp, err := client.Do(req)
	if err != nil {
		return false, errors.Wrap(err, "origin request failed")
	}
	resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("origin returned %d for %s", resp.StatusCode, target)
	}
}
