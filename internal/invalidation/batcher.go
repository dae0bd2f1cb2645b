// Package invalidation collects the mirror paths changed during a run and
// purges them from the CDN in a single request at the end.
package invalidation

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
)

// Invalidator purges paths from a cache.
type Invalidator interface {
	Invalidate(ctx context.Context, paths []string) error
}

// Batcher accumulates paths. It is used from a single goroutine.
type Batcher struct {
	inv    Invalidator
	dryRun bool
	paths  map[string]struct{}
}

func NewBatcher(inv Invalidator, dryRun bool) *Batcher {
	return &Batcher{
		inv:    inv,
		dryRun: dryRun,
		paths:  make(map[string]struct{}),
	}
}

// Mark records path; marking the same path twice has no further effect.
func (b *Batcher) Mark(path string) {
	b.paths[path] = struct{}{}
}

// Paths returns the pending paths in order.
func (b *Batcher) Paths() []string {
	paths := make([]string, 0, len(b.paths))
	for p := range b.paths {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

func (b *Batcher) Len() int {
	return len(b.paths)
}

// Flush sends one request for every pending path, unless there are none or
// this is a dry run, and then clears the set whatever the outcome.
func (b *Batcher) Flush(ctx context.Context) error {
	paths := b.Paths()
	clear(b.paths)

	if len(paths) == 0 {
		slog.Debug("Nothing to invalidate")
		return nil
	}
	if b.dryRun {
		slog.Info("Dry run, not invalidating", "paths", len(paths))
		return nil
	}

	slog.Info("Invalidating", "paths", len(paths))
	if err := b.inv.Invalidate(ctx, paths); err != nil {
		return fmt.Errorf("failed to invalidate %d paths: %w", len(paths), err)
	}
	return nil
}

// Log only reports what would be purged; used when no CDN is configured.
type Log struct{}

func (Log) Invalidate(ctx context.Context, paths []string) error {
	for _, p := range paths {
		slog.Info("Changed", "path", p)
	}
	return nil
}
