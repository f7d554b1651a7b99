// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pdiddy/paper-fetch/pkg/types"
)

// Cache stores lookup answers by provider and query.
type Cache interface {
	Get(ctx context.Context, provider, query string) ([]types.Candidate, bool, error)
	Put(ctx context.Context, provider, query string, cands []types.Candidate) error
}

// CachedProvider answers repeated queries from Cache. Failed lookups and
// empty answers are never cached, so a paper that found nothing is looked
// up afresh on the next run.
type CachedProvider struct {
	Provider Provider
	Cache    Cache
	Logger   *slog.Logger
}

// Name returns the wrapped provider's name.
func (c *CachedProvider) Name() string { return c.Provider.Name() }

// Lookup returns a cached answer when one exists, else asks the provider
// and stores its answer.
func (c *CachedProvider) Lookup(ctx context.Context, query string) ([]types.Candidate, error) {
	name := c.Provider.Name()
	cands, ok, err := c.Cache.Get(ctx, name, query)
	if err != nil {
		c.logger().Warn("lookup cache read failed", "provider", name, "error", err)
	} else if ok {
		c.logger().Debug("lookup cache hit", "provider", name, "query", query, "candidates", len(cands))
		return cands, nil
	}

	cands, err = c.Provider.Lookup(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(cands) == 0 {
		return cands, nil
	}
	if err := c.Cache.Put(ctx, name, query, cands); err != nil {
		c.logger().Warn("lookup cache write failed", "provider", name, "error", err)
	}
	return cands, nil
}

// LookupID delegates to the wrapped provider without caching.
func (c *CachedProvider) LookupID(ctx context.Context, id string) (*types.Candidate, error) {
	idl, ok := c.Provider.(IDLookup)
	if !ok {
		return nil, fmt.Errorf("%s does not support identifier lookup", c.Provider.Name())
	}
	return idl.LookupID(ctx, id)
}

func (c *CachedProvider) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}
