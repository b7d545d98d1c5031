// Package engine resolves a project's engine tag to an installed engine
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cryexport/cryexport/pkg/logger"
	"github.com/cryexport/cryexport/pkg/types"
)

// ErrNotFound is returned when no strategy can resolve an engine tag
var ErrNotFound = errors.New("engine not found")

// errNoMatch is returned by a strategy that has no entry for the tag
var errNoMatch = errors.New("no matching entry")

// Attempt records why one strategy did not resolve the tag
type Attempt struct {
	Strategy string
	Reason   string
}

// NotFoundError lists every strategy tried for Tag
type NotFoundError struct {
	Tag   string
	Tried []Attempt
}

func (e *NotFoundError) Error() string {
	if len(e.Tried) == 0 {
		return fmt.Sprintf("engine %q not found: no resolution strategies configured", e.Tag)
	}
	parts := make([]string, 0, len(e.Tried))
	for _, a := range e.Tried {
		parts = append(parts, fmt.Sprintf("%s: %s", a.Strategy, a.Reason))
	}
	return fmt.Sprintf("engine %q not found (%s)", e.Tag, strings.Join(parts, "; "))
}

// Is lets errors.Is(err, ErrNotFound) match every NotFoundError
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// Strategy is one source of engine metadata
type Strategy interface {
	Name() string
	Lookup(ctx context.Context, tag string) (*types.EngineMetadata, error)
}

// Resolver tries strategies in order; the first success wins
type Resolver struct {
	strategies []Strategy
	logger     logger.Logger
}

// NewResolver creates a resolver over the given strategies
func NewResolver(log logger.Logger, strategies ...Strategy) *Resolver {
	if log == nil {
		log = logger.Discard()
	}
	return &Resolver{
		strategies: strategies,
		logger:     log,
	}
}

// NewDefaultResolver wires the registry-file strategy followed by the legacy tag strategy
func NewDefaultResolver(log logger.Logger, registryFiles []string, registry InstallRegistry) *Resolver {
	return NewResolver(log,
		NewRegistryFileStrategy(registryFiles, log),
		NewLegacyTagStrategy(registry),
	)
}

// Resolve returns metadata for tag or a *NotFoundError
func (r *Resolver) Resolve(ctx context.Context, tag string) (*types.EngineMetadata, error) {
	notFound := &NotFoundError{Tag: tag}

	for _, s := range r.strategies {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		meta, err := s.Lookup(ctx, tag)
		if err == nil && meta != nil {
			r.logger.Info("Resolved engine",
				logger.WithField("tag", tag),
				logger.WithField("version", meta.Version),
				logger.WithField("path", meta.Path),
				logger.WithField("source", s.Name()))
			return meta, nil
		}

		reason := "no matching entry"
		if err != nil && !errors.Is(err, errNoMatch) {
			reason = err.Error()
			r.logger.Warn("Engine lookup failed",
				logger.WithField("source", s.Name()),
				logger.WithField("error", err))
		} else if err != nil {
			reason = err.Error()
		}
		notFound.Tried = append(notFound.Tried, Attempt{Strategy: s.Name(), Reason: reason})
	}

	return nil, notFound
}
