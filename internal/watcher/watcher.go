package watcher

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/hibiken/asynq"
	"github.com/nippysky/panthart-live/internal/db"
	"github.com/nippysky/panthart-live/internal/event"
	"github.com/nippysky/panthart-live/internal/feed"
	"github.com/nippysky/panthart-live/internal/util"
	"github.com/nippysky/panthart-live/internal/worker"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"resty.dev/v3"
)

const pollTimeout = 30 * time.Second

// ChainWatcher tails the on-chain indexer's verified event feed and relays it
// into the live layer: bid and auction lifecycle events to their topics,
// featured-slot activity into the replay buffer. It is the only producer-side
// entry point into the broker besides the settlement worker.
type ChainWatcher struct {
	config          *util.Config
	store           db.Store
	redisClient     *redis.Client
	broker          *event.Broker
	featuredFeed    *feed.Feed
	taskDistributor worker.TaskDistributor
	taskInspector   worker.TaskInspector
	indexer         *resty.Client
	scheduler       gocron.Scheduler
}

// NewChainWatcher creates a watcher polling the indexer configured in config.
func NewChainWatcher(
	config *util.Config,
	store db.Store,
	redisClient *redis.Client,
	broker *event.Broker,
	featuredFeed *feed.Feed,
	taskDistributor worker.TaskDistributor,
	taskInspector worker.TaskInspector,
) (*ChainWatcher, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	indexer := resty.New().
		SetBaseURL(config.IndexerURL).
		SetTimeout(pollTimeout)

	return &ChainWatcher{
		config:          config,
		store:           store,
		redisClient:     redisClient,
		broker:          broker,
		featuredFeed:    featuredFeed,
		taskDistributor: taskDistributor,
		taskInspector:   taskInspector,
		indexer:         indexer,
		scheduler:       scheduler,
	}, nil
}

// Start begins polling the indexer feed on the configured interval.
func (w *ChainWatcher) Start() error {
	_, err := w.scheduler.NewJob(
		gocron.DurationJob(w.config.WatchInterval),
		gocron.NewTask(func() {
			w.poll()
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return err
	}

	w.scheduler.Start()
	log.Info().
		Str("indexer_url", w.config.IndexerURL).
		Str("contract", w.config.MarketplaceContract).
		Dur("interval", w.config.WatchInterval).
		Msg("chain watcher started")
	return nil
}

// Stop shuts the polling schedule down and releases the HTTP client.
func (w *ChainWatcher) Stop() error {
	if err := w.scheduler.Shutdown(); err != nil {
		return err
	}
	return w.indexer.Close()
}

func (w *ChainWatcher) poll() {
	ctx, cancel := context.WithTimeout(context.Background(), pollTimeout)
	defer cancel()

	cursor, err := w.loadCursor(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("failed to load watcher cursor, starting from feed head")
	}

	events, err := w.fetchEvents(ctx, cursor)
	if err != nil {
		log.Error().Err(err).Int64("after_seq", cursor).Msg("failed to fetch indexer events")
		return
	}
	if len(events) == 0 {
		return
	}

	for _, ev := range events {
		w.relay(ctx, ev)
		cursor = ev.Seq
	}

	if err := w.saveCursor(ctx, cursor); err != nil {
		log.Warn().Err(err).Int64("cursor", cursor).Msg("failed to persist watcher cursor")
	}
}

func (w *ChainWatcher) fetchEvents(ctx context.Context, afterSeq int64) ([]IndexedEvent, error) {
	var events []IndexedEvent
	res, err := w.indexer.R().
		SetContext(ctx).
		SetQueryParam("contract", w.config.MarketplaceContract).
		SetQueryParam("afterSeq", strconv.FormatInt(afterSeq, 10)).
		SetResult(&events).
		Get("/v1/marketplace/events")
	if err != nil {
		return nil, err
	}
	if res.IsError() {
		return nil, fmt.Errorf("indexer responded %s", res.Status())
	}
	return events, nil
}

// relay converts one indexed event into its live-layer broadcasts.
func (w *ChainWatcher) relay(ctx context.Context, ev IndexedEvent) {
	switch ev.Kind {
	case event.EventBidPending, event.EventBidConfirmed:
		payload := event.BidPayload{
			TxHash:     ev.TxHash,
			From:       ev.From,
			AuctionID:  ev.AuctionID,
			Amount:     ev.AmountWei,
			CurrencyID: ev.CurrencyID,
			At:         ev.At,
		}
		if ev.Kind == event.EventBidConfirmed {
			payload.BlockNumber = ev.BlockNumber
		}
		w.broker.Publish(event.AuctionTopic(ev.AuctionID), ev.Kind, payload)
		w.broker.Publish(event.WalletTopic(ev.From), ev.Kind, payload)
		if ev.Kind == event.EventBidConfirmed {
			w.ensureSettlementScheduled(ctx, ev.AuctionID)
		}

	case event.EventBidFailed:
		payload := event.BidFailedPayload{
			TxHash:    ev.TxHash,
			From:      ev.From,
			AuctionID: ev.AuctionID,
			Reason:    ev.Reason,
			At:        ev.At,
		}
		w.broker.Publish(event.AuctionTopic(ev.AuctionID), ev.Kind, payload)
		w.broker.Publish(event.WalletTopic(ev.From), ev.Kind, payload)

	case event.EventAuctionExtended:
		payload := event.AuctionExtendedPayload{
			AuctionID:     ev.AuctionID,
			NewEndTimeSec: ev.NewEndTimeSec,
		}
		w.broker.Publish(event.AuctionTopic(ev.AuctionID), ev.Kind, payload)
		w.rescheduleSettlement(ctx, ev.AuctionID, ev.NewEndTimeSec)

	case event.EventAuctionSettled, event.EventAuctionCancelled:
		payload := event.AuctionClosedPayload{
			AuctionID:   ev.AuctionID,
			Status:      ev.Status,
			Winner:      ev.Winner,
			Price:       ev.PriceWei,
			BlockNumber: ev.BlockNumber,
			TxHash:      ev.TxHash,
			At:          ev.At,
		}
		w.broker.Publish(event.AuctionTopic(ev.AuctionID), ev.Kind, payload)
		if ev.Winner != "" {
			w.broker.Publish(event.WalletTopic(ev.Winner), ev.Kind, payload)
		}

	case KindFeaturedBidPlaced, KindFeaturedBidIncreased:
		kind := feed.KindBidPlaced
		if ev.Kind == KindFeaturedBidIncreased {
			kind = feed.KindBidIncreased
		}
		featured := feed.Event{
			Kind:        kind,
			At:          ev.At,
			TxHash:      ev.TxHash,
			CycleID:     ev.CycleID,
			Bidder:      ev.From,
			NewTotalWei: ev.AmountWei,
			Collection:  ev.Collection,
		}
		w.enrichFeatured(ctx, &featured)
		w.featuredFeed.Push(featured)

	default:
		log.Debug().
			Str("kind", ev.Kind).
			Int64("seq", ev.Seq).
			Msg("unrecognized indexer event kind, skipping")
	}
}

// ensureSettlementScheduled schedules the settlement broadcast at the auction's
// end time if no task is pending yet.
func (w *ChainWatcher) ensureSettlementScheduled(ctx context.Context, auctionID string) {
	auction, err := w.store.GetAuction(ctx, auctionID)
	if err != nil {
		if !errors.Is(err, db.ErrRecordNotFound) {
			log.Warn().Err(err).Str("auction_id", auctionID).Msg("failed to look up auction for settlement scheduling")
		}
		return
	}
	if auction.Status != "ACTIVE" {
		return
	}

	err = w.taskDistributor.DistributeTaskSettleAuction(
		ctx,
		&worker.PayloadSettleAuction{AuctionID: auctionID},
		asynq.ProcessAt(auction.EndTime),
		asynq.Queue(worker.QueueDefault),
	)
	if err != nil && !errors.Is(err, asynq.ErrTaskIDConflict) {
		log.Error().Err(err).Str("auction_id", auctionID).Msg("failed to schedule auction settlement")
	}
}

// rescheduleSettlement replaces a pending settlement task after an anti-snipe
// extension moved the auction's end time.
func (w *ChainWatcher) rescheduleSettlement(ctx context.Context, auctionID string, newEndTimeSec int64) {
	taskID := worker.SettleAuctionTaskID(auctionID)
	if err := w.taskInspector.DeleteTask(ctx, worker.QueueDefault, taskID); err != nil &&
		!errors.Is(err, asynq.ErrTaskNotFound) && !errors.Is(err, asynq.ErrQueueNotFound) {
		log.Warn().Err(err).Str("task_id", taskID).Msg("failed to delete pending settlement task")
	}

	err := w.taskDistributor.DistributeTaskSettleAuction(
		ctx,
		&worker.PayloadSettleAuction{AuctionID: auctionID},
		asynq.ProcessAt(time.Unix(newEndTimeSec, 0)),
		asynq.Queue(worker.QueueDefault),
	)
	if err != nil {
		log.Error().Err(err).Str("auction_id", auctionID).Msg("failed to reschedule auction settlement")
	}
}

func (w *ChainWatcher) cursorKey() string {
	return "live:watcher:cursor:" + strings.ToLower(w.config.MarketplaceContract)
}

func (w *ChainWatcher) loadCursor(ctx context.Context) (int64, error) {
	val, err := w.redisClient.Get(ctx, w.cursorKey()).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, err
	}
	return val, nil
}

func (w *ChainWatcher) saveCursor(ctx context.Context, cursor int64) error {
	return w.redisClient.Set(ctx, w.cursorKey(), cursor, 0).Err()
}
