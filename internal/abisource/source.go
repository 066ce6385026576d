package abisource

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"abiFrame/internal/decode"
)

// ErrNotFound is wrapped by every source when no interface exists for an address.
var ErrNotFound = errors.New("interface not found")

// Source resolves the contract interface for an address.
type Source interface {
	Resolve(ctx context.Context, address string) (*decode.Interface, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, address string) (*decode.Interface, error)

func (f SourceFunc) Resolve(ctx context.Context, address string) (*decode.Interface, error) {
	return f(ctx, address)
}

// Chain tries each source in order and returns the first hit. NotFound
// results fall through to the next source; any other error stops the chain.
type Chain []Source

func (c Chain) Resolve(ctx context.Context, address string) (*decode.Interface, error) {
	for _, src := range c {
		if src == nil {
			continue
		}
		iface, err := src.Resolve(ctx, address)
		if err == nil {
			return iface, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, address)
}

// Cached wraps a source with a caller-owned cache.
type Cached struct {
	Source Source
	Cache  *Cache
}

func NewCached(src Source, cache *Cache) *Cached {
	return &Cached{Source: src, Cache: cache}
}

func (c *Cached) Resolve(ctx context.Context, address string) (*decode.Interface, error) {
	if c.Cache == nil {
		return c.Source.Resolve(ctx, address)
	}
	return c.Cache.GetOrLoad(ctx, address, c.Source.Resolve)
}

func normalizeAddress(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}
