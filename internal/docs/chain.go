package docs

import (
	"context"
	"errors"
)

// Chain asks each provider in turn and returns the first hit. Provider
// errors are collected; they surface only when no provider answered.
type Chain []Provider

// Lookup implements Provider.
func (c Chain) Lookup(ctx context.Context, typeName string) (*CachedDocs, error) {
	var errs []error
	for _, p := range c {
		if p == nil {
			continue
		}
		d, err := p.Lookup(ctx, typeName)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			errs = append(errs, err)
			continue
		}
		if d != nil {
			return d, nil
		}
	}
	return nil, errors.Join(errs...)
}
