package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"lostFoundWs/internal/modules/realtime/application/port"
	"lostFoundWs/internal/modules/realtime/domain"
)

// OwnerResolver fills in the recipients of a match event from the owners of its two
// items when the producer did not list them.
type OwnerResolver struct {
	lookup port.ItemOwnerLookup
	cache  *expirable.LRU[int64, int64]
	logger *slog.Logger
}

// ownerCacheSize bounds how many item owners are remembered at once.
const ownerCacheSize = 4096

// NewOwnerResolver caches resolved owners for ttl; ttl <= 0 disables the cache. An
// item's owner does not change while it has open matches.
func NewOwnerResolver(lookup port.ItemOwnerLookup, ttl time.Duration, logger *slog.Logger) *OwnerResolver {
	if logger == nil {
		logger = slog.Default()
	}
	r := &OwnerResolver{
		lookup: lookup,
		logger: logger.With(slog.String("component", "owner-resolver")),
	}
	if ttl > 0 {
		r.cache = expirable.NewLRU[int64, int64](ownerCacheSize, nil, ttl)
	}
	return r
}

// MatchRecipients returns explicit when it is non-empty. Otherwise it looks up the
// owners of the lost and found items; an item whose owner cannot be resolved is
// skipped.
func (r *OwnerResolver) MatchRecipients(ctx context.Context, match domain.ItemMatch, explicit []int64) []int64 {
	if len(explicit) > 0 || r == nil || r.lookup == nil {
		return explicit
	}
	var owners []int64
	for _, itemID := range []int64{match.LostItemID, match.FoundItemID} {
		if itemID <= 0 {
			continue
		}
		if owner, ok := r.owner(ctx, itemID); ok {
			owners = append(owners, owner)
		}
	}
	return owners
}

func (r *OwnerResolver) owner(ctx context.Context, itemID int64) (int64, bool) {
	if r.cache != nil {
		if owner, ok := r.cache.Get(itemID); ok {
			return owner, true
		}
	}
	owner, err := r.lookup.ItemOwner(ctx, itemID)
	if err != nil {
		r.logger.Warn("item owner lookup failed", slog.Int64("itemId", itemID), slog.Any("error", err))
		return 0, false
	}
	if r.cache != nil {
		r.cache.Add(itemID, owner)
	}
	return owner, true
}
