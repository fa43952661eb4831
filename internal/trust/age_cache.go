package trust

import (
	"context"
	"fmt"
	"time"

	"github.com/mikey/phish-fusion/internal/core"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// AgeCache memoizes registrar creation dates per registrable domain.
// Concurrent misses for one domain share a single lookup. Answers without a
// creation date are cached; lookup failures are not.
type AgeCache struct {
	store  core.AgeStore
	lookup core.TrustLookup
	group  singleflight.Group
	now    func() time.Time
	logger *zap.Logger
}

// NewAgeCache creates a new age cache backed by store
func NewAgeCache(store core.AgeStore, lookup core.TrustLookup, logger *zap.Logger) *AgeCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AgeCache{
		store:  store,
		lookup: lookup,
		now:    time.Now,
		logger: logger,
	}
}

// CreatedAt returns the creation date of domain. A nil time with a nil error
// means the registrar gave no usable date.
func (c *AgeCache) CreatedAt(ctx context.Context, domain string) (*time.Time, error) {
	if entry, err := c.store.Get(ctx, domain); err == nil {
		c.logger.Debug("Age cache hit", zap.String("domain", domain))
		return entry.CreatedAt, nil
	}

	// the shared lookup must outlive any single caller's cancellation
	ch := c.group.DoChan(domain, func() (interface{}, error) {
		return c.resolve(context.WithoutCancel(ctx), domain)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			c.logger.Debug("Shared registrar lookup", zap.String("domain", domain))
		}
		return res.Val.(*core.AgeEntry).CreatedAt, nil
	}
}

func (c *AgeCache) resolve(ctx context.Context, domain string) (*core.AgeEntry, error) {
	if entry, err := c.store.Get(ctx, domain); err == nil {
		return entry, nil
	}

	dates, err := c.lookup.CreationDates(ctx, domain)
	if err != nil {
		return nil, fmt.Errorf("failed to look up creation date for %s: %w", domain, err)
	}

	entry := &core.AgeEntry{
		Domain:    domain,
		CreatedAt: EarliestDate(dates),
		CheckedAt: c.now(),
	}
	if err := c.store.Set(ctx, entry); err != nil {
		c.logger.Warn("Failed to store domain age", zap.String("domain", domain), zap.Error(err))
	}
	return entry, nil
}
