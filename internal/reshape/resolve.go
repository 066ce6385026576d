package reshape

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"abiFrame/internal/abisource"
	"abiFrame/internal/decode"
)

type resolution struct {
	iface *decode.Interface
	err   error
}

// resolver memoizes interface lookups for the duration of one reshape call.
// It is only used from the sequential pre-pass.
type resolver struct {
	source abisource.Source
	logger *zap.Logger

	byAddress map[string]resolution
	byABI     map[string]resolution
}

func newResolver(source abisource.Source, logger *zap.Logger) *resolver {
	return &resolver{
		source:    source,
		logger:    logger,
		byAddress: make(map[string]resolution),
		byABI:     make(map[string]resolution),
	}
}

// resolve returns the interface for a record. A non-empty inline ABI takes
// precedence over the source.
func (r *resolver) resolve(ctx context.Context, address, inlineABI string) (*decode.Interface, error) {
	if inline := strings.TrimSpace(inlineABI); inline != "" {
		return r.inline(inline)
	}

	key := strings.ToLower(strings.TrimSpace(address))
	if res, ok := r.byAddress[key]; ok {
		return res.iface, res.err
	}

	var res resolution
	if r.source == nil {
		res.err = fmt.Errorf("%w: %s", abisource.ErrNotFound, address)
	} else {
		res.iface, res.err = r.source.Resolve(ctx, address)
		if res.err == nil && res.iface == nil {
			res.err = fmt.Errorf("%w: %s", abisource.ErrNotFound, address)
		}
	}
	if res.err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		level := r.logger.Warn
		if errors.Is(res.err, abisource.ErrNotFound) {
			level = r.logger.Info
		}
		level("interface resolution failed", zap.String("address", address), zap.Error(res.err))
	}
	r.byAddress[key] = res
	return res.iface, res.err
}

func (r *resolver) inline(raw string) (*decode.Interface, error) {
	if res, ok := r.byABI[raw]; ok {
		return res.iface, res.err
	}
	iface, err := decode.ParseInterface(raw)
	if err != nil {
		err = fmt.Errorf("inline abi: %w", err)
	}
	r.byABI[raw] = resolution{iface: iface, err: err}
	return iface, err
}
