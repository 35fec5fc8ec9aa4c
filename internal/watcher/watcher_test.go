package watcher

import (
	"context"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/nippysky/panthart-live/internal/db"
	"github.com/nippysky/panthart-live/internal/event"
	"github.com/nippysky/panthart-live/internal/feed"
	"github.com/nippysky/panthart-live/internal/util"
	"github.com/nippysky/panthart-live/internal/worker"
	"github.com/redis/go-redis/v9"
)

type fakeStore struct {
	auctions    map[string]db.Auction
	profiles    map[string]db.UserProfile
	collections map[string]db.CollectionMeta
}

func (f *fakeStore) Ping(ctx context.Context) error { return nil }

func (f *fakeStore) GetAuction(ctx context.Context, id string) (db.Auction, error) {
	auction, ok := f.auctions[id]
	if !ok {
		return db.Auction{}, db.ErrRecordNotFound
	}
	return auction, nil
}

func (f *fakeStore) GetUserProfile(ctx context.Context, wallet string) (db.UserProfile, error) {
	profile, ok := f.profiles[wallet]
	if !ok {
		return db.UserProfile{}, db.ErrRecordNotFound
	}
	return profile, nil
}

func (f *fakeStore) GetCollectionMeta(ctx context.Context, address string) (db.CollectionMeta, error) {
	meta, ok := f.collections[address]
	if !ok {
		return db.CollectionMeta{}, db.ErrRecordNotFound
	}
	return meta, nil
}

type distributedTask struct {
	payload *worker.PayloadSettleAuction
	opts    []asynq.Option
}

type fakeDistributor struct {
	tasks []distributedTask
	err   error
}

func (f *fakeDistributor) DistributeTaskSettleAuction(
	ctx context.Context,
	payload *worker.PayloadSettleAuction,
	opts ...asynq.Option,
) error {
	f.tasks = append(f.tasks, distributedTask{payload: payload, opts: opts})
	return f.err
}

type fakeInspector struct {
	deleted []string
}

func (f *fakeInspector) DeleteTask(ctx context.Context, queue, taskID string) error {
	f.deleted = append(f.deleted, taskID)
	return asynq.ErrTaskNotFound
}

func (f *fakeInspector) GetTaskInfo(ctx context.Context, queue, taskID string) (*asynq.TaskInfo, error) {
	return nil, asynq.ErrTaskNotFound
}

// newTestWatcher wires a watcher with in-memory fakes. The redis client points
// at a closed port: enrichment and cursor caching degrade gracefully when redis
// is down, so tests exercise the store fallback path.
func newTestWatcher(store *fakeStore) (*ChainWatcher, *fakeDistributor, *fakeInspector) {
	distributor := &fakeDistributor{}
	inspector := &fakeInspector{}
	w := &ChainWatcher{
		config: &util.Config{
			MarketplaceContract: "0xMarket",
			WatchInterval:       time.Second,
		},
		store: store,
		redisClient: redis.NewClient(&redis.Options{
			Addr:        "127.0.0.1:1",
			DialTimeout: 50 * time.Millisecond,
			MaxRetries:  -1,
		}),
		broker:          event.NewBroker(),
		featuredFeed:    feed.New(feed.DefaultCapacity),
		taskDistributor: distributor,
		taskInspector:   inspector,
	}
	return w, distributor, inspector
}

func recvEnvelope(t *testing.T, sink *event.Sink) event.Envelope {
	t.Helper()
	for {
		select {
		case env := <-sink.Events():
			if env.Name == event.EventReady {
				continue
			}
			return env
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for envelope")
		}
	}
}

func TestRelayBidConfirmedPublishesAndSchedules(t *testing.T) {
	store := &fakeStore{auctions: map[string]db.Auction{
		"12": {ID: "12", Status: "ACTIVE", EndTime: time.Now().Add(time.Hour)},
	}}
	w, distributor, _ := newTestWatcher(store)

	auctionSink := w.broker.Subscribe(event.AuctionTopic("12"))
	walletSink := w.broker.Subscribe(event.WalletTopic("0xBidder"))
	defer w.broker.Unsubscribe(auctionSink)
	defer w.broker.Unsubscribe(walletSink)

	w.relay(context.Background(), IndexedEvent{
		Seq:         1,
		Kind:        event.EventBidConfirmed,
		TxHash:      "0xabc",
		From:        "0xBidder",
		AuctionID:   "12",
		AmountWei:   "5000",
		CurrencyID:  "eth",
		BlockNumber: 99,
		At:          1700000000000,
	})

	for _, sink := range []*event.Sink{auctionSink, walletSink} {
		env := recvEnvelope(t, sink)
		if env.Name != event.EventBidConfirmed {
			t.Fatalf("expected %q, got %q", event.EventBidConfirmed, env.Name)
		}
		payload := env.Payload.(event.BidPayload)
		if payload.Amount != "5000" || payload.From != "0xBidder" {
			t.Errorf("unexpected bid payload: %+v", payload)
		}
		if payload.BlockNumber != 99 {
			t.Errorf("confirmed bid must carry block number, got %d", payload.BlockNumber)
		}
	}

	if len(distributor.tasks) != 1 {
		t.Fatalf("expected one settlement task, got %d", len(distributor.tasks))
	}
	if distributor.tasks[0].payload.AuctionID != "12" {
		t.Errorf("expected settlement for auction 12, got %q", distributor.tasks[0].payload.AuctionID)
	}
}

func TestRelayBidPendingOmitsBlockAndSchedulesNothing(t *testing.T) {
	w, distributor, _ := newTestWatcher(&fakeStore{})

	sink := w.broker.Subscribe(event.AuctionTopic("12"))
	defer w.broker.Unsubscribe(sink)

	w.relay(context.Background(), IndexedEvent{
		Seq:       1,
		Kind:      event.EventBidPending,
		TxHash:    "0xabc",
		From:      "0xBidder",
		AuctionID: "12",
		AmountWei: "5000",
		At:        1700000000000,
	})

	env := recvEnvelope(t, sink)
	payload := env.Payload.(event.BidPayload)
	if payload.BlockNumber != 0 {
		t.Errorf("pending bid must not carry a block number, got %d", payload.BlockNumber)
	}
	if len(distributor.tasks) != 0 {
		t.Errorf("pending bid must not schedule settlement, got %d tasks", len(distributor.tasks))
	}
}

func TestRelayBidFailedCarriesReason(t *testing.T) {
	w, _, _ := newTestWatcher(&fakeStore{})

	sink := w.broker.Subscribe(event.WalletTopic("0xBidder"))
	defer w.broker.Unsubscribe(sink)

	w.relay(context.Background(), IndexedEvent{
		Seq:       1,
		Kind:      event.EventBidFailed,
		TxHash:    "0xdead",
		From:      "0xBidder",
		AuctionID: "12",
		Reason:    "outbid in same block",
		At:        1700000000000,
	})

	env := recvEnvelope(t, sink)
	if env.Name != event.EventBidFailed {
		t.Fatalf("expected %q, got %q", event.EventBidFailed, env.Name)
	}
	payload := env.Payload.(event.BidFailedPayload)
	if payload.Reason != "outbid in same block" {
		t.Errorf("unexpected reason %q", payload.Reason)
	}
}

func TestRelayAuctionExtendedReschedulesSettlement(t *testing.T) {
	w, distributor, inspector := newTestWatcher(&fakeStore{})

	sink := w.broker.Subscribe(event.AuctionTopic("12"))
	defer w.broker.Unsubscribe(sink)

	newEnd := time.Now().Add(10 * time.Minute).Unix()
	w.relay(context.Background(), IndexedEvent{
		Seq:           1,
		Kind:          event.EventAuctionExtended,
		AuctionID:     "12",
		NewEndTimeSec: newEnd,
	})

	env := recvEnvelope(t, sink)
	payload := env.Payload.(event.AuctionExtendedPayload)
	if payload.NewEndTimeSec != newEnd {
		t.Errorf("expected new end time %d, got %d", newEnd, payload.NewEndTimeSec)
	}

	if len(inspector.deleted) != 1 || inspector.deleted[0] != worker.SettleAuctionTaskID("12") {
		t.Errorf("expected pending task deletion for auction 12, got %v", inspector.deleted)
	}
	if len(distributor.tasks) != 1 {
		t.Fatalf("expected rescheduled settlement task, got %d", len(distributor.tasks))
	}
}

func TestRelayAuctionSettledReachesWinnerWallet(t *testing.T) {
	w, _, _ := newTestWatcher(&fakeStore{})

	walletSink := w.broker.Subscribe(event.WalletTopic("0xWinner"))
	defer w.broker.Unsubscribe(walletSink)

	w.relay(context.Background(), IndexedEvent{
		Seq:         1,
		Kind:        event.EventAuctionSettled,
		AuctionID:   "12",
		Winner:      "0xWinner",
		PriceWei:    "7000",
		Status:      event.StatusEnded,
		TxHash:      "0xsettle",
		BlockNumber: 120,
		At:          1700000000000,
	})

	env := recvEnvelope(t, walletSink)
	if env.Name != event.EventAuctionSettled {
		t.Fatalf("expected %q, got %q", event.EventAuctionSettled, env.Name)
	}
	payload := env.Payload.(event.AuctionClosedPayload)
	if payload.Winner != "0xWinner" || payload.Price != "7000" {
		t.Errorf("unexpected settled payload: %+v", payload)
	}
}

func TestRelayFeaturedBidEnrichesFromStore(t *testing.T) {
	username := "nightbidder"
	avatar := "https://cdn.example/ava.png"
	name := "Mecha Apes"
	image := "https://cdn.example/mecha.png"
	store := &fakeStore{
		profiles: map[string]db.UserProfile{
			"0xBidder": {Wallet: "0xbidder", Username: &username, Avatar: &avatar},
		},
		collections: map[string]db.CollectionMeta{
			"0xCol": {Address: "0xcol", Name: &name, Image: &image},
		},
	}
	w, _, _ := newTestWatcher(store)

	w.relay(context.Background(), IndexedEvent{
		Seq:        1,
		Kind:       KindFeaturedBidIncreased,
		TxHash:     "0xfeat",
		From:       "0xBidder",
		AmountWei:  "20000",
		CycleID:    "cycle-3",
		Collection: "0xCol",
		At:         1700000000000,
	})

	entries := w.featuredFeed.Snapshot(1)
	if len(entries) != 1 {
		t.Fatalf("expected one feed entry, got %d", len(entries))
	}
	entry := entries[0]
	if entry.Kind != feed.KindBidIncreased {
		t.Errorf("expected kind %q, got %q", feed.KindBidIncreased, entry.Kind)
	}
	if entry.BidderProfile == nil || entry.BidderProfile.Username != username {
		t.Errorf("expected bidder profile enrichment, got %+v", entry.BidderProfile)
	}
	if entry.CollectionMeta == nil || entry.CollectionMeta.Name != name {
		t.Errorf("expected collection enrichment, got %+v", entry.CollectionMeta)
	}
}

func TestRelayFeaturedBidWithoutMetadataStillPushes(t *testing.T) {
	w, _, _ := newTestWatcher(&fakeStore{})

	w.relay(context.Background(), IndexedEvent{
		Seq:       1,
		Kind:      KindFeaturedBidPlaced,
		TxHash:    "0xfeat",
		From:      "0xNobody",
		AmountWei: "100",
		CycleID:   "cycle-4",
		At:        1700000000000,
	})

	entries := w.featuredFeed.Snapshot(1)
	if len(entries) != 1 {
		t.Fatalf("expected one feed entry, got %d", len(entries))
	}
	if entries[0].BidderProfile != nil || entries[0].CollectionMeta != nil {
		t.Errorf("expected nil enrichment for unknown bidder, got %+v", entries[0])
	}
}

func TestEnsureSettlementSkipsInactiveAuction(t *testing.T) {
	store := &fakeStore{auctions: map[string]db.Auction{
		"12": {ID: "12", Status: "ENDED"},
	}}
	w, distributor, _ := newTestWatcher(store)

	w.ensureSettlementScheduled(context.Background(), "12")
	if len(distributor.tasks) != 0 {
		t.Errorf("expected no scheduling for inactive auction, got %d tasks", len(distributor.tasks))
	}
}

func TestEnsureSettlementToleratesDuplicateTask(t *testing.T) {
	store := &fakeStore{auctions: map[string]db.Auction{
		"12": {ID: "12", Status: "ACTIVE", EndTime: time.Now().Add(time.Hour)},
	}}
	w, distributor, _ := newTestWatcher(store)
	distributor.err = asynq.ErrTaskIDConflict

	// A pending task with the same id is the steady state while an auction has
	// repeated confirmed bids; the conflict must be swallowed.
	w.ensureSettlementScheduled(context.Background(), "12")
	if len(distributor.tasks) != 1 {
		t.Errorf("expected one attempted scheduling, got %d", len(distributor.tasks))
	}
}

func TestRelayUnknownKindIsIgnored(t *testing.T) {
	w, distributor, _ := newTestWatcher(&fakeStore{})

	w.relay(context.Background(), IndexedEvent{Seq: 1, Kind: "governance_vote"})

	if w.featuredFeed.Len() != 0 {
		t.Errorf("unknown kind must not touch the featured feed")
	}
	if len(distributor.tasks) != 0 {
		t.Errorf("unknown kind must not schedule tasks")
	}
}

func TestCursorKeyIsCaseFolded(t *testing.T) {
	w, _, _ := newTestWatcher(&fakeStore{})
	if got := w.cursorKey(); got != "live:watcher:cursor:0xmarket" {
		t.Errorf("expected lowercased cursor key, got %q", got)
	}
}
