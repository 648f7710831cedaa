package media

import (
	"context"
	"net/url"
	"strings"

	"github.com/rs/zerolog"
)

// FileFinder looks up storage files by name.
type FileFinder interface {
	FindFileID(ctx context.Context, name string) (string, bool, error)
	ViewURL(fileID string) string
}

// Cache stores resolved URLs by media name.
type Cache interface {
	Get(ctx context.Context, name string) (string, bool, error)
	Set(ctx context.Context, name, u string) error
}

// Resolver walks bundled manifest, storage lookup and constructed URL in that order.
type Resolver struct {
	manifest   *Manifest
	bundleBase string
	storage    FileFinder
	cache      Cache
	logger     zerolog.Logger
	onResolve  func(Origin)
}

// ResolverOptions wires the optional parts of a Resolver.
type ResolverOptions struct {
	Manifest      *Manifest
	BundleBaseURL string
	Storage       FileFinder
	Cache         Cache
	// OnResolve is called with the origin of every successful resolution.
	OnResolve func(Origin)
}

func NewResolver(opts ResolverOptions, logger zerolog.Logger) *Resolver {
	return &Resolver{
		manifest:   opts.Manifest,
		bundleBase: strings.TrimRight(opts.BundleBaseURL, "/"),
		storage:    opts.Storage,
		cache:      opts.Cache,
		logger:     logger,
		onResolve:  opts.OnResolve,
	}
}

// Resolve maps a media file name to a loadable source. It reports false for
// an empty name or when neither the bundle nor storage is available.
func (r *Resolver) Resolve(ctx context.Context, name string) (Source, bool) {
	if name == "" {
		return Source{}, false
	}
	if r.manifest.Contains(name) {
		return r.done(Source{
			Name:   name,
			URL:    r.bundleBase + "/" + url.PathEscape(name),
			Type:   TypeOf(name),
			Origin: OriginBundled,
		}), true
	}
	if r.storage == nil {
		return Source{}, false
	}

	if r.cache != nil {
		if u, ok, err := r.cache.Get(ctx, name); err != nil {
			r.logger.Warn().Err(err).Str("media", name).Msg("media cache read failed")
		} else if ok {
			return r.done(r.remote(name, u)), true
		}
	}

	fileID, found, err := r.storage.FindFileID(ctx, name)
	switch {
	case err != nil:
		r.logger.Warn().Err(err).Str("media", name).Msg("storage lookup failed, using name as file id")
		return r.done(r.remote(name, r.storage.ViewURL(name))), true
	case !found:
		fileID = name
	}

	u := r.storage.ViewURL(fileID)
	if r.cache != nil {
		if err := r.cache.Set(ctx, name, u); err != nil {
			r.logger.Warn().Err(err).Str("media", name).Msg("media cache write failed")
		}
	}
	return r.done(r.remote(name, u)), true
}

func (r *Resolver) remote(name, u string) Source {
	return Source{Name: name, URL: u, Type: TypeOf(name), Origin: OriginStorage}
}

func (r *Resolver) done(s Source) Source {
	if r.onResolve != nil {
		r.onResolve(s.Origin)
	}
	return s
}
