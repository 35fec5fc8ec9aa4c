package watcher

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/nippysky/panthart-live/internal/db"
	"github.com/nippysky/panthart-live/internal/feed"
	"github.com/rs/zerolog/log"
)

const enrichmentTTL = 10 * time.Minute

// enrichFeatured attaches bidder profile and collection metadata to a featured
// feed entry. Enrichment is best effort: lookup failures leave the fields nil
// and never block the push.
func (w *ChainWatcher) enrichFeatured(ctx context.Context, featured *feed.Event) {
	if featured.Bidder != "" {
		featured.BidderProfile = w.bidderProfile(ctx, featured.Bidder)
	}
	if featured.Collection != "" {
		featured.CollectionMeta = w.collectionMeta(ctx, featured.Collection)
	}
}

func (w *ChainWatcher) bidderProfile(ctx context.Context, wallet string) *feed.BidderProfile {
	key := "live:profile:" + strings.ToLower(wallet)
	if raw, err := w.redisClient.Get(ctx, key).Bytes(); err == nil {
		var cached feed.BidderProfile
		if json.Unmarshal(raw, &cached) == nil {
			return &cached
		}
	}

	profile, err := w.store.GetUserProfile(ctx, wallet)
	if err != nil {
		if !errors.Is(err, db.ErrRecordNotFound) {
			log.Warn().Err(err).Str("wallet", wallet).Msg("failed to load bidder profile")
		}
		return nil
	}

	result := &feed.BidderProfile{}
	if profile.Username != nil {
		result.Username = *profile.Username
	}
	if profile.Avatar != nil {
		result.Avatar = *profile.Avatar
	}

	if raw, err := json.Marshal(result); err == nil {
		if err := w.redisClient.Set(ctx, key, raw, enrichmentTTL).Err(); err != nil {
			log.Debug().Err(err).Str("wallet", wallet).Msg("failed to cache bidder profile")
		}
	}
	return result
}

func (w *ChainWatcher) collectionMeta(ctx context.Context, address string) *feed.CollectionMeta {
	key := "live:collection:" + strings.ToLower(address)
	if raw, err := w.redisClient.Get(ctx, key).Bytes(); err == nil {
		var cached feed.CollectionMeta
		if json.Unmarshal(raw, &cached) == nil {
			return &cached
		}
	}

	meta, err := w.store.GetCollectionMeta(ctx, address)
	if err != nil {
		if !errors.Is(err, db.ErrRecordNotFound) {
			log.Warn().Err(err).Str("collection", address).Msg("failed to load collection metadata")
		}
		return nil
	}

	result := &feed.CollectionMeta{}
	if meta.Name != nil {
		result.Name = *meta.Name
	}
	if meta.Image != nil {
		result.Image = *meta.Image
	}

	if raw, err := json.Marshal(result); err == nil {
		if err := w.redisClient.Set(ctx, key, raw, enrichmentTTL).Err(); err != nil {
			log.Debug().Err(err).Str("collection", address).Msg("failed to cache collection metadata")
		}
	}
	return result
}
